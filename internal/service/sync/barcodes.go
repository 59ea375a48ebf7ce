package sync

import (
	"context"
	"fmt"

	"github.com/probelab/streamsync/internal/barcode"
	"github.com/probelab/streamsync/internal/format"
	"github.com/probelab/streamsync/internal/logger"
)

// BarcodeOptions controls a standalone barcode decode.
type BarcodeOptions struct {
	// Dataset is the recording directory.
	Dataset string
	// Format optionally forces a storage format instead of auto-detection.
	Format string
	// Line is the digital line carrying the barcode signal.
	Line int
	// StreamName names the stream the barcodes were recorded on.
	StreamName string
	// Bits is the barcode width. Zero means the decoder default.
	Bits int
}

// RunBarcodes decodes one barcode line of a recording and prints the
// fiducial sequence. It is a diagnostic aid for checking a line before
// running a full alignment pass.
func RunBarcodes(ctx context.Context, opts *BarcodeOptions) error {
	ctx = logger.WithName(ctx, "streamsync")

	rec, err := format.Load(ctx, opts.Dataset, opts.Format)
	if err != nil {
		return fmt.Errorf("load recording: %w", err)
	}

	channel, outcome := barcode.Extract(ctx, rec, barcode.Options{
		Line:       opts.Line,
		StreamName: opts.StreamName,
		Bits:       opts.Bits,
	})
	if !outcome.OK {
		return fmt.Errorf("decode barcodes: %w", outcome.Err)
	}

	for _, b := range channel.Barcodes {
		fmt.Printf("%4d  value=%d  start_sample=%d  start_time=%.6fs\n", b.Number, b.Value, b.StartLatency, b.StartTime)
	}

	logger.InfoKV(ctx, "Decoded barcodes",
		"stream", opts.StreamName, "line", opts.Line, "count", len(channel.Barcodes))

	return nil
}
