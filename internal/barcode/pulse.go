package barcode

import (
	"context"
	"math"

	"github.com/probelab/streamsync/internal/domain/recording"
	"github.com/probelab/streamsync/internal/logger"
)

// pulseKind classifies one decoded pulse by its duration.
type pulseKind int

const (
	// pulseUnknown is a pulse matching neither reference duration.
	pulseUnknown pulseKind = iota
	// pulseWrapper is a frame boundary pulse of roughly the init duration.
	pulseWrapper
	// pulseBarcode is a value pulse spanning a near-integer number of bits.
	pulseBarcode
)

// pulse is one rising/falling pair of the barcode train. Intermediate only,
// never persisted on the recording.
type pulse struct {
	// latency is the rising-edge sample number.
	latency int64
	// time is the rising edge in local seconds.
	time float64
	// durationMS is the high time in milliseconds.
	durationMS float64
	// offTimeMS is the elapsed time since the previous pulse's falling edge.
	// Zero for the first pulse.
	offTimeMS float64
	// kind is the duration classification.
	kind pulseKind
	// frame is the barcode frame ordinal the pulse belongs to.
	frame int
}

// trimEvents discards leading falling-state and trailing rising-state events
// so the sequence begins on a rising edge and ends on a falling edge.
func trimEvents(events []recording.TTLEvent) []recording.TTLEvent {
	start := 0
	for start < len(events) && !events[start].State {
		start++
	}

	end := len(events)
	for end > start && events[end-1].State {
		end--
	}

	return events[start:end]
}

// decodePulses walks the trimmed event sequence in rising/falling pairs,
// computes per-pulse latency, duration and off time, classifies each pulse
// and assigns frame ordinals. A rising edge not immediately followed by a
// falling edge is skipped with a warning; decoding continues after it.
func decodePulses(ctx context.Context, events []recording.TTLEvent, sampleRate float64, opts Options) []pulse {
	var (
		pulses       []pulse
		prevFalling  int64
		havePrevious bool
	)

	samplesPerMS := sampleRate / 1000

	// Frame boundaries are declared after two cumulative wrapper pulses;
	// the ordinal rolls forward for subsequent pulses.
	var (
		frame        int
		wrapperCount int
	)

	i := 0
	for i < len(events)-1 {
		rising := events[i]
		if !rising.State {
			i++

			continue
		}

		falling := events[i+1]
		if falling.State {
			logger.Warnf(ctx, "Unpaired rising edge at sample %d on line %d, skipping", rising.SampleNumber, rising.Line)
			i++

			continue
		}

		p := pulse{
			latency:    rising.SampleNumber,
			time:       float64(rising.SampleNumber) / sampleRate,
			durationMS: float64(falling.SampleNumber-rising.SampleNumber) / samplesPerMS,
		}

		if havePrevious {
			p.offTimeMS = float64(rising.SampleNumber-prevFalling) / samplesPerMS
		}

		p.kind = classify(p.durationMS, opts)
		p.frame = frame

		if p.kind == pulseWrapper {
			wrapperCount++
			if wrapperCount == 2 {
				frame++
				wrapperCount = 0
			}
		}

		pulses = append(pulses, p)
		prevFalling = falling.SampleNumber
		havePrevious = true
		i += 2
	}

	return pulses
}

// classify compares the pulse duration against the wrapper and bit reference
// durations within the configured relative tolerance.
func classify(durationMS float64, opts Options) pulseKind {
	if math.Abs(durationMS-opts.InitDurationMS) <= opts.Tolerance*opts.InitDurationMS {
		return pulseWrapper
	}

	mod := math.Mod(durationMS, opts.PulseDurationMS)
	if mod <= opts.Tolerance*opts.PulseDurationMS ||
		opts.PulseDurationMS-mod <= opts.Tolerance*opts.PulseDurationMS {
		return pulseBarcode
	}

	return pulseUnknown
}
