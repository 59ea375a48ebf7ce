// Package align computes per-sample global timestamps for every continuous
// stream of a recording, mapping each processor's local sample counter onto
// the main clock. Decoded barcode channels are the preferred reference;
// plain sync-line pulse spans are the fallback.
package align
