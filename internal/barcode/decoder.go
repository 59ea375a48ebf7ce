package barcode

import (
	"context"
	"fmt"
	"math"

	"github.com/probelab/streamsync/internal/domain/recording"
	"github.com/probelab/streamsync/internal/logger"
)

// Extract decodes the barcode pulse train on one TTL line into an ordered
// fiducial sequence, wraps it in a channel carrying the line metadata and
// appends the channel to the recording's barcode registry.
//
// On abort no channel is produced: the outcome carries a ConfigurationError
// for a missing line or stream name, and a LookupError when the named stream
// has no registered sample rate. Malformed pulses are skipped individually
// and reported as warnings, never fatally.
func Extract(ctx context.Context, rec *recording.Recording, opts Options) (*recording.BarcodeChannel, recording.Outcome) {
	ctx = logger.WithName(ctx, "barcodes")
	opts = opts.withDefaults()

	if opts.Line <= 0 {
		err := fmt.Errorf("%w: no barcode line supplied", recording.ErrConfiguration)
		logger.Errorf(ctx, "Barcode extraction aborted: %v", err)

		return nil, recording.Failure(err)
	}

	if opts.StreamName == "" {
		err := fmt.Errorf("%w: no stream name supplied", recording.ErrConfiguration)
		logger.Errorf(ctx, "Barcode extraction aborted: %v", err)

		return nil, recording.Failure(err)
	}

	if opts.Bits > maxBits {
		err := fmt.Errorf("%w: %d bits exceed the maximum of %d", recording.ErrConfiguration, opts.Bits, maxBits)
		logger.Errorf(ctx, "Barcode extraction aborted: %v", err)

		return nil, recording.Failure(err)
	}

	stream, ok := rec.Stream(opts.StreamName)
	if !ok || stream.SampleRate <= 0 {
		err := fmt.Errorf("%w: no registered sample rate for stream %q", recording.ErrLookup, opts.StreamName)
		logger.Errorf(ctx, "Barcode extraction aborted: %v", err)

		return nil, recording.Failure(err)
	}

	var lineEvents []recording.TTLEvent

	for _, event := range rec.EventsFor(opts.StreamName) {
		if event.Line == opts.Line {
			lineEvents = append(lineEvents, event)
		}
	}

	var warnings []string

	trimmed := trimEvents(lineEvents)
	if len(trimmed) == 0 {
		warning := fmt.Sprintf("no usable events on line %d of %q", opts.Line, opts.StreamName)
		warnings = append(warnings, warning)
		logger.Warnf(ctx, "Barcode extraction: %s", warning)
	}

	pulses := decodePulses(ctx, trimmed, stream.SampleRate, opts)
	barcodes := buildBarcodes(ctx, pulses, opts)

	channel := &recording.BarcodeChannel{
		Line:        opts.Line,
		ProcessorID: opts.ProcessorID,
		StreamName:  opts.StreamName,
		IsMain:      opts.IsMain,
		SampleRate:  stream.SampleRate,
		Barcodes:    barcodes,
	}

	rec.AddBarcodeChannel(channel)

	logger.InfoKV(ctx, "Decoded barcode channel",
		"line", opts.Line, "stream", opts.StreamName, "barcodes", len(barcodes), "main", opts.IsMain)

	return channel, recording.Success(warnings...)
}

// buildBarcodes reconstructs one fiducial per frame from the classified
// pulses. Unknown pulses are excluded, wrapper pulses are dropped, and the
// remaining pulses of each frame are replayed onto a bit vector: the gap
// before a pulse advances the cursor by whole zero bits, the pulse itself
// sets a run of high bits. Bit 0 is the earliest bit in time.
func buildBarcodes(ctx context.Context, pulses []pulse, opts Options) []recording.Barcode {
	var barcodes []recording.Barcode

	for start := 0; start < len(pulses); {
		frame := pulses[start].frame

		end := start
		for end < len(pulses) && pulses[end].frame == frame {
			end++
		}

		var group []pulse

		for _, p := range pulses[start:end] {
			if p.kind == pulseBarcode {
				group = append(group, p)
			}
		}

		start = end

		if len(group) == 0 {
			continue
		}

		barcodes = append(barcodes, recording.Barcode{
			StartTime:    group[0].time,
			StartLatency: group[0].latency,
			Value:        frameValue(ctx, group, opts),
			Number:       frame,
		})
	}

	return barcodes
}

// frameValue replays one frame's value pulses onto an Options.Bits-wide bit
// vector and folds it into an integer, bit i weighted by 2^i.
func frameValue(ctx context.Context, group []pulse, opts Options) uint64 {
	bits := make([]bool, opts.Bits)
	cursor := 0

	for i, p := range group {
		var zeros int
		if i == 0 {
			// The first gap includes the opening wrapper's off time.
			zeros = int(math.Round((p.offTimeMS - opts.InitDurationMS) / opts.PulseDurationMS))
		} else {
			zeros = int(math.Round(p.offTimeMS / opts.PulseDurationMS))
		}

		if zeros < 0 {
			logger.Warnf(ctx, "Negative bit gap before pulse at sample %d, clamping to zero", p.latency)

			zeros = 0
		}

		cursor += zeros

		high := int(math.Round(p.durationMS / opts.PulseDurationMS))
		for ; high > 0 && cursor < len(bits); high-- {
			bits[cursor] = true
			cursor++
		}

		if high > 0 {
			logger.Warnf(ctx, "Pulse at sample %d overflows the %d-bit frame, truncating", p.latency, opts.Bits)
		}
	}

	var value uint64

	for i, set := range bits {
		if set {
			value |= 1 << uint(i)
		}
	}

	return value
}
