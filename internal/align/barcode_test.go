package align

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/probelab/streamsync/internal/domain/recording"
)

const testSampleRate = 30000.0

// fiducialChannel builds a decoded barcode channel whose fiducials sit at the
// given sample latencies.
func fiducialChannel(processorID, streamName string, isMain bool, latencies []int64, values []uint64) *recording.BarcodeChannel {
	barcodes := make([]recording.Barcode, len(latencies))
	for i, latency := range latencies {
		barcodes[i] = recording.Barcode{
			StartTime:    float64(latency) / testSampleRate,
			StartLatency: latency,
			Value:        values[i],
			Number:       i,
		}
	}

	return &recording.BarcodeChannel{
		Line:        4,
		ProcessorID: processorID,
		StreamName:  streamName,
		IsMain:      isMain,
		SampleRate:  testSampleRate,
		Barcodes:    barcodes,
	}
}

// rangeSamples returns sample numbers from start to end (exclusive) at the
// given stride.
func rangeSamples(start, end, stride int64) []int64 {
	var samples []int64
	for s := start; s < end; s += stride {
		samples = append(samples, s)
	}

	return samples
}

// newBarcodeAlignedRecording builds a recording with a flagged main channel
// on ProbeA and an auxiliary channel on ProbeB whose clock is offset and
// slightly stretched against the main clock.
func newBarcodeAlignedRecording(values []uint64) (*recording.Recording, []int64, []int64) {
	mainLatencies := []int64{300000, 600000, 900000}

	auxLatencies := make([]int64, len(mainLatencies))
	for i, latency := range mainLatencies {
		auxLatencies[i] = int64(math.Round(float64(latency)*1.001)) + 5000
	}

	rec := recording.New("")
	rec.AddStream(&recording.ContinuousStream{
		StreamName:    "ProbeA",
		SampleRate:    testSampleRate,
		SampleNumbers: rangeSamples(250000, 950000, 1000),
	})
	rec.AddStream(&recording.ContinuousStream{
		StreamName:    "ProbeB",
		SampleRate:    testSampleRate,
		SampleNumbers: rangeSamples(250000, 960000, 1000),
	})

	rec.AddBarcodeChannel(fiducialChannel("100", "ProbeA", true, mainLatencies, values))
	rec.AddBarcodeChannel(fiducialChannel("101", "ProbeB", false, auxLatencies, values))

	return rec, mainLatencies, auxLatencies
}

// requireNonDecreasing asserts the defined part of ts never steps backward.
func requireNonDecreasing(t *testing.T, ts []float64) {
	t.Helper()

	for i := 1; i < len(ts); i++ {
		if math.IsNaN(ts[i-1]) || math.IsNaN(ts[i]) {
			continue
		}

		require.GreaterOrEqual(t, ts[i], ts[i-1])
	}
}

// TestBarcodeMainZeroPoint verifies the main stream's timestamp at the first
// barcode's start latency is exactly zero and the stream is monotonic.
func TestBarcodeMainZeroPoint(t *testing.T) {
	t.Parallel()

	rec, mainLatencies, _ := newBarcodeAlignedRecording([]uint64{111, 222, 333})

	outcome := ComputeGlobalTimestamps(context.Background(), rec)
	require.True(t, outcome.OK)

	stream, _ := rec.Stream("ProbeA")
	require.Len(t, stream.GlobalTimestamps, len(stream.SampleNumbers))

	for k, s := range stream.SampleNumbers {
		if s == mainLatencies[0] {
			require.Zero(t, stream.GlobalTimestamps[k])
		}
	}

	requireNonDecreasing(t, stream.GlobalTimestamps)
}

// TestBarcodeAuxiliaryMapping verifies the auxiliary stream is interpolated
// onto the main clock within the fiducial span and extrapolated beyond it,
// with no undefined values left.
func TestBarcodeAuxiliaryMapping(t *testing.T) {
	t.Parallel()

	rec, mainLatencies, auxLatencies := newBarcodeAlignedRecording([]uint64{111, 222, 333})

	outcome := ComputeGlobalTimestamps(context.Background(), rec)
	require.True(t, outcome.OK)

	stream, _ := rec.Stream("ProbeB")
	require.Len(t, stream.GlobalTimestamps, len(stream.SampleNumbers))

	for _, ts := range stream.GlobalTimestamps {
		require.False(t, math.IsNaN(ts))
	}

	requireNonDecreasing(t, stream.GlobalTimestamps)

	// A sample sitting exactly on an auxiliary fiducial must map to the
	// corresponding main fiducial's offset from the zero point.
	mapped := mapChannel([]int64{auxLatencies[1]}, toFloats(auxLatencies), toFloats(mainLatencies), mainLatencies[0], testSampleRate)
	require.InDelta(t, float64(mainLatencies[1]-mainLatencies[0])/testSampleRate, mapped[0], 1e-9)
}

// TestBarcodeMismatchAborts verifies that element-wise different fiducial
// sequences abort the pass and leave the mismatched stream unset. Streams
// written before the mismatch in the same pass keep their timestamps.
func TestBarcodeMismatchAborts(t *testing.T) {
	t.Parallel()

	rec, _, _ := newBarcodeAlignedRecording([]uint64{111, 222, 333})

	// Corrupt one value on the auxiliary channel.
	aux, ok := rec.BarcodeChannels.Get(recording.ChannelKey{ProcessorID: "101", StreamName: "ProbeB"})
	require.True(t, ok)
	aux.Barcodes[1].Value = 999

	outcome := ComputeGlobalTimestamps(context.Background(), rec)
	require.False(t, outcome.OK)
	require.ErrorIs(t, outcome.Err, recording.ErrDataIntegrity)

	probeB, _ := rec.Stream("ProbeB")
	require.Nil(t, probeB.GlobalTimestamps)

	probeA, _ := rec.Stream("ProbeA")
	require.NotNil(t, probeA.GlobalTimestamps)
}

// TestBarcodeLengthMismatchAborts verifies that sequences of different
// length abort the pass.
func TestBarcodeLengthMismatchAborts(t *testing.T) {
	t.Parallel()

	rec, _, _ := newBarcodeAlignedRecording([]uint64{111, 222, 333})

	aux, ok := rec.BarcodeChannels.Get(recording.ChannelKey{ProcessorID: "101", StreamName: "ProbeB"})
	require.True(t, ok)
	aux.Barcodes = aux.Barcodes[:2]

	outcome := ComputeGlobalTimestamps(context.Background(), rec)
	require.False(t, outcome.OK)
	require.ErrorIs(t, outcome.Err, recording.ErrDataIntegrity)
}

// TestBarcodeMainFallback verifies the first decoded channel becomes the main
// reference when none is flagged, with a warning.
func TestBarcodeMainFallback(t *testing.T) {
	t.Parallel()

	rec, _, _ := newBarcodeAlignedRecording([]uint64{111, 222, 333})

	for _, ch := range rec.BarcodeChannels.Values() {
		ch.IsMain = false
	}

	outcome := ComputeGlobalTimestamps(context.Background(), rec)
	require.True(t, outcome.OK)
	require.NotEmpty(t, outcome.Warnings)

	stream, _ := rec.Stream("ProbeA")
	require.NotNil(t, stream.GlobalTimestamps)
}

// TestBarcodeTooFewFiducials verifies a main channel with fewer than two
// barcodes aborts the pass.
func TestBarcodeTooFewFiducials(t *testing.T) {
	t.Parallel()

	rec, _, _ := newBarcodeAlignedRecording([]uint64{111, 222, 333})

	main, ok := rec.BarcodeChannels.Get(recording.ChannelKey{ProcessorID: "100", StreamName: "ProbeA"})
	require.True(t, ok)
	main.Barcodes = main.Barcodes[:1]

	outcome := ComputeGlobalTimestamps(context.Background(), rec)
	require.False(t, outcome.OK)
	require.ErrorIs(t, outcome.Err, recording.ErrDataIntegrity)
}

// TestBarcodeSpikeAlignment verifies spike sources referenced to an aligned
// stream get global timestamps through the stream mapping.
func TestBarcodeSpikeAlignment(t *testing.T) {
	t.Parallel()

	rec, mainLatencies, _ := newBarcodeAlignedRecording([]uint64{111, 222, 333})

	rec.AddSpikes(&recording.SpikeSource{
		Name:          "ProbeA-units",
		StreamName:    "ProbeA",
		SampleNumbers: []int64{mainLatencies[0], mainLatencies[0] + 30000},
		ClusterIDs:    []int32{1, 2},
	})

	outcome := ComputeGlobalTimestamps(context.Background(), rec)
	require.True(t, outcome.OK)

	spikes, ok := rec.Spikes.Get("ProbeA-units")
	require.True(t, ok)
	require.Len(t, spikes.GlobalTimestamps, 2)
	require.InDelta(t, 0.0, spikes.GlobalTimestamps[0], 1e-9)
	require.InDelta(t, 1.0, spikes.GlobalTimestamps[1], 1e-9)
}

// toFloats converts sample numbers for interpolation checks.
func toFloats(samples []int64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}

	return out
}
