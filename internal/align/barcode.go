package align

import (
	"context"
	"fmt"
	"math"

	"github.com/probelab/streamsync/internal/domain/recording"
	"github.com/probelab/streamsync/internal/logger"
)

// alignByBarcodes runs the barcode-based strategy. The main channel's stream
// gets timestamps directly off its own clock, zeroed at the first barcode.
// Every other channel is validated against the main value sequence and its
// stream's sample positions are mapped into main-clock units by interpolating
// between corresponding barcode start latencies.
//
// A value mismatch aborts the whole pass; streams written by earlier loop
// iterations of the same pass keep their timestamps (the pass is not atomic
// across channels), but the mismatched and later streams stay untouched.
func alignByBarcodes(ctx context.Context, rec *recording.Recording) recording.Outcome {
	var warnings []string

	channels := rec.BarcodeChannels.Values()

	main := channels[0]
	flagged := false

	for _, ch := range channels {
		if ch.IsMain {
			main = ch
			flagged = true

			break
		}
	}

	if !flagged {
		warning := fmt.Sprintf("no barcode channel flagged as main, falling back to first decoded %s/%s",
			main.ProcessorID, main.StreamName)
		warnings = append(warnings, warning)
		logger.Warnf(ctx, "%s", warning)
	}

	if len(main.Barcodes) < 2 {
		err := fmt.Errorf("%w: main channel %s/%s has %d barcodes, need at least 2 to interpolate",
			recording.ErrDataIntegrity, main.ProcessorID, main.StreamName, len(main.Barcodes))
		logger.Errorf(ctx, "Alignment aborted: %v", err)

		return recording.Failure(err, warnings...)
	}

	mainStream, ok := rec.Stream(main.StreamName)
	if !ok {
		err := fmt.Errorf("%w: no continuous stream named %q for the main barcode channel",
			recording.ErrLookup, main.StreamName)
		logger.Errorf(ctx, "Alignment aborted: %v", err)

		return recording.Failure(err, warnings...)
	}

	mainStart := main.Barcodes[0].StartLatency

	ts := make([]float64, len(mainStream.SampleNumbers))
	for k, s := range mainStream.SampleNumbers {
		ts[k] = float64(s-mainStart) / main.SampleRate
	}

	mainStream.GlobalTimestamps = ts
	alignSpikes(ctx, rec, mainStream)

	logger.InfoKV(ctx, "Aligned main stream",
		"stream", mainStream.StreamName, "samples", len(ts), "start_latency", mainStart)

	mainValues := main.Values()
	mainLatencies := main.StartLatencies()

	for _, ch := range channels {
		if ch == main {
			continue
		}

		if err := validateValues(ch, mainValues, main); err != nil {
			logger.Errorf(ctx, "Alignment aborted: %v", err)

			return recording.Failure(err, warnings...)
		}

		stream, ok := rec.Stream(ch.StreamName)
		if !ok {
			warning := fmt.Sprintf("no continuous stream named %q for barcode channel %s, skipping",
				ch.StreamName, ch.ProcessorID)
			warnings = append(warnings, warning)
			logger.Warnf(ctx, "%s", warning)

			continue
		}

		stream.GlobalTimestamps = mapChannel(stream.SampleNumbers, ch.StartLatencies(), mainLatencies, mainStart, ch.SampleRate)
		alignSpikes(ctx, rec, stream)

		logger.InfoKV(ctx, "Aligned stream via barcodes",
			"stream", stream.StreamName, "samples", len(stream.GlobalTimestamps), "matched_barcodes", len(mainValues))
	}

	return recording.Success(warnings...)
}

// validateValues checks that the channel decoded the same fiducial sequence
// as the main channel, element-wise and in length.
func validateValues(ch *recording.BarcodeChannel, mainValues []uint64, main *recording.BarcodeChannel) error {
	values := ch.Values()

	if len(values) != len(mainValues) {
		return fmt.Errorf("%w: channel %s/%s decoded %d barcodes, main %s/%s decoded %d",
			recording.ErrDataIntegrity, ch.ProcessorID, ch.StreamName, len(values),
			main.ProcessorID, main.StreamName, len(mainValues))
	}

	for i, v := range values {
		if v != mainValues[i] {
			return fmt.Errorf("%w: barcode %d differs between %s/%s (%d) and main %s/%s (%d)",
				recording.ErrDataIntegrity, i, ch.ProcessorID, ch.StreamName, v,
				main.ProcessorID, main.StreamName, mainValues[i])
		}
	}

	return nil
}

// mapChannel interpolates each local sample position onto the main clock via
// the corresponding barcode start latencies, converts to seconds zeroed at
// the main channel's first barcode, and extrapolates the undefined head and
// tail runs at the most frequent step.
func mapChannel(samples []int64, xs, ys []float64, mainStart int64, sampleRate float64) []float64 {
	ts := make([]float64, len(samples))

	for k, s := range samples {
		v := interp1(float64(s), xs, ys)
		if math.IsNaN(v) {
			ts[k] = v

			continue
		}

		ts[k] = (v - float64(mainStart)) / sampleRate
	}

	extrapolateEdges(ts)

	return ts
}
