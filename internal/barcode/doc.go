// Package barcode decodes digital barcode pulse trains into ordered integer
// fiducial sequences. Each acquisition processor records the same barcodes on
// its own clock, so the decoded values let the aligner map sample positions
// between clocks.
package barcode
