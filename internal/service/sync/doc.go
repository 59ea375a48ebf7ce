// Package sync orchestrates a full synchronization run for the streamsync
// binary: load the recording through a format loader, apply the plan's
// sync-line registrations and barcode extractions, compute global timestamps
// and persist the results.
//
//nolint:revive,nolintlint // Package name "sync" matches the domain term; the
// standard library package is never imported alongside it.
package sync
