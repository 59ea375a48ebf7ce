// Package format defines the storage-format capability interface and the
// loader registry. A loader populates the in-memory recording data model;
// the synchronization core depends only on that model, never on a format.
//
// The flat-binary reference loader reads a YAML manifest plus raw
// little-endian sample files and a JSON TTL event table.
package format
