// Package recording defines the in-memory data model for one recording
// session: continuous streams, TTL event sources, spike sources, sync-line
// and barcode-channel registries, and the Recording aggregate that owns them.
//
// Format loaders populate the aggregate before any synchronization operation
// runs; the barcode decoder and timestamp aligner consume and mutate it.
// All registries iterate in registration order.
package recording
