package align

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/probelab/streamsync/internal/domain/recording"
	"github.com/probelab/streamsync/internal/logger"
)

// Strategy names the reference data an alignment pass ran on.
type Strategy string

const (
	// StrategyBarcodes aligns via decoded barcode fiducials.
	StrategyBarcodes Strategy = "barcodes"
	// StrategySyncLines aligns via plain sync-line pulse spans.
	StrategySyncLines Strategy = "sync-lines"
	// StrategyNone means no strategy had enough reference data.
	StrategyNone Strategy = "none"
)

// PickStrategy reports which strategy ComputeGlobalTimestamps will run for
// the recording's current registry state. Barcodes are preferred.
func PickStrategy(rec *recording.Recording) Strategy {
	if rec.BarcodeChannels.Len() >= 2 {
		return StrategyBarcodes
	}

	if rec.SyncLines.Len() >= 2 {
		return StrategySyncLines
	}

	return StrategyNone
}

// ComputeGlobalTimestamps writes a global timestamp array into every
// continuous stream covered by the chosen reference data, expressing each
// sample in the main clock's time base in seconds. The pass is synchronous
// and non-incremental: it fully overwrites GlobalTimestamps on every stream
// it touches, and re-invocation recomputes from current registry state.
//
// With at least two decoded barcode channels the barcode strategy runs;
// otherwise, with at least two registered sync lines, the sync-line strategy
// runs. With neither the pass aborts and no stream is modified.
func ComputeGlobalTimestamps(ctx context.Context, rec *recording.Recording) recording.Outcome {
	ctx = logger.WithName(ctx, "aligner")

	switch PickStrategy(rec) {
	case StrategyBarcodes:
		return alignByBarcodes(ctx, rec)
	case StrategySyncLines:
		return alignBySyncLines(ctx, rec)
	default:
		err := fmt.Errorf("%w: need at least two barcode channels or two sync lines", recording.ErrInsufficientData)
		logger.Errorf(ctx, "Alignment aborted: %v", err)

		return recording.Failure(err)
	}
}

// modeStep returns the most frequent step between consecutive values of
// ts[first:last+1]. Steps are rounded to picosecond resolution before the
// mode so floating point jitter does not split one step into many.
func modeStep(ts []float64, first, last int) float64 {
	if last <= first {
		return 0
	}

	diffs := make([]float64, 0, last-first)
	for i := first + 1; i <= last; i++ {
		diffs = append(diffs, math.Round((ts[i]-ts[i-1])*1e12)/1e12)
	}

	sort.Float64s(diffs)

	mode, _ := stat.Mode(diffs, nil)

	return mode
}

// extrapolateEdges fills the undefined (NaN) head and tail runs of ts by
// stepping outward from the first and last defined values at the most
// frequent defined step. A fully undefined slice is left untouched.
func extrapolateEdges(ts []float64) {
	first, last := -1, -1

	for i, v := range ts {
		if math.IsNaN(v) {
			continue
		}

		if first < 0 {
			first = i
		}

		last = i
	}

	if first < 0 {
		return
	}

	step := modeStep(ts, first, last)

	for i := first - 1; i >= 0; i-- {
		ts[i] = ts[i+1] - step
	}

	for i := last + 1; i < len(ts); i++ {
		ts[i] = ts[i-1] + step
	}
}

// alignSpikes maps every spike source referenced to the stream's clock
// through the stream's freshly computed global timestamps.
func alignSpikes(ctx context.Context, rec *recording.Recording, stream *recording.ContinuousStream) {
	if len(stream.SampleNumbers) < 2 {
		return
	}

	var mapper func(int64) float64

	for _, spikes := range rec.Spikes.Values() {
		if spikes.StreamName != stream.StreamName {
			continue
		}

		if mapper == nil {
			mapper = streamMapper(stream)
		}

		ts := make([]float64, len(spikes.SampleNumbers))
		for i, s := range spikes.SampleNumbers {
			ts[i] = mapper(s)
		}

		spikes.GlobalTimestamps = ts

		logger.InfoKV(ctx, "Aligned spike source", "source", spikes.Name, "stream", stream.StreamName, "spikes", len(ts))
	}
}

// streamMapper returns a function mapping an arbitrary sample number on the
// stream's clock to a global timestamp, interpolating within the stream's
// sample range and extending linearly at the edges.
func streamMapper(stream *recording.ContinuousStream) func(int64) float64 {
	xs := make([]float64, len(stream.SampleNumbers))
	for i, s := range stream.SampleNumbers {
		xs[i] = float64(s)
	}

	ys := stream.GlobalTimestamps
	n := len(xs)

	return func(sample int64) float64 {
		x := float64(sample)

		if x < xs[0] {
			slope := (ys[1] - ys[0]) / (xs[1] - xs[0])

			return ys[0] - (xs[0]-x)*slope
		}

		if x > xs[n-1] {
			slope := (ys[n-1] - ys[n-2]) / (xs[n-1] - xs[n-2])

			return ys[n-1] + (x-xs[n-1])*slope
		}

		return interp1(x, xs, ys)
	}
}
