// Package config defines the synchronization plan used by the streamsync
// binary and provides helpers to load, validate and save it in YAML format.
//
// The Plan type names the recording directory, the sync-line and barcode
// registrations to apply, and the output locations for timestamps and the
// alignment report.
package config
