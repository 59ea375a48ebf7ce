package align

import (
	"context"
	"fmt"

	"github.com/probelab/streamsync/internal/domain/recording"
	"github.com/probelab/streamsync/internal/logger"
)

// alignBySyncLines runs the sync-line fallback strategy. The main line
// defines the zero point; every auxiliary line's clock is scaled so its
// first-to-last pulse span matches the main line's span in samples.
func alignBySyncLines(ctx context.Context, rec *recording.Recording) recording.Outcome {
	var warnings []string

	lines := rec.SyncLines.Values()

	main := lines[0]
	flagged := false

	for _, sync := range lines {
		if sync.IsMain {
			main = sync
			flagged = true

			break
		}
	}

	if !flagged {
		warning := fmt.Sprintf("no sync line flagged as main, falling back to first registered %s/%s",
			main.ProcessorID, main.StreamName)
		warnings = append(warnings, warning)
		logger.Warnf(ctx, "%s", warning)
	}

	mainFirst, mainLast, ok := pulseSpan(rec, main)
	if !ok {
		err := fmt.Errorf("%w: no pulses on line %d of %q for the main sync line",
			recording.ErrDataIntegrity, main.Line, main.StreamName)
		logger.Errorf(ctx, "Alignment aborted: %v", err)

		return recording.Failure(err, warnings...)
	}

	main.Start = mainFirst
	main.Scaling = 1
	main.Offset = mainFirst

	mainTotal := mainLast - mainFirst

	for _, sync := range lines {
		if sync == main {
			continue
		}

		first, last, ok := pulseSpan(rec, sync)
		if !ok || last == first {
			warning := fmt.Sprintf("no usable pulse span on line %d of %q, leaving its streams unaligned",
				sync.Line, sync.StreamName)
			warnings = append(warnings, warning)
			logger.Warnf(ctx, "%s", warning)

			sync.Scaling = 0

			continue
		}

		sync.Start = first
		sync.Scaling = float64(mainTotal) / float64(last-first)
		sync.Offset = mainFirst
		sync.SampleRate = main.SampleRate
	}

	aligned := 0

	for _, stream := range rec.Streams.Values() {
		sync, ok := lineForStream(lines, stream.StreamName)
		if !ok || sync.Scaling == 0 {
			continue
		}

		if !rec.SampleNumbersAreTimestamps && sync.SampleRate <= 0 {
			warning := fmt.Sprintf("sync line for stream %q has no sample rate, leaving it unaligned", stream.StreamName)
			warnings = append(warnings, warning)
			logger.Warnf(ctx, "%s", warning)

			continue
		}

		ts := make([]float64, len(stream.SampleNumbers))
		for k, s := range stream.SampleNumbers {
			ts[k] = float64(s-sync.Start) * sync.Scaling

			// Formats whose sample numbers are already absolute time units
			// need no division.
			if !rec.SampleNumbersAreTimestamps {
				ts[k] /= sync.SampleRate
			}
		}

		stream.GlobalTimestamps = ts
		alignSpikes(ctx, rec, stream)
		aligned++

		logger.InfoKV(ctx, "Aligned stream via sync line",
			"stream", stream.StreamName, "samples", len(ts), "scaling", sync.Scaling)
	}

	logger.InfoKV(ctx, "Sync-line alignment finished", "streams", aligned, "main_start", mainFirst)

	return recording.Success(warnings...)
}

// pulseSpan returns the first and last rising-pulse sample numbers on the
// sync line within the event source matching its stream name.
func pulseSpan(rec *recording.Recording, sync *recording.SyncLine) (first, last int64, ok bool) {
	for _, event := range rec.EventsFor(sync.StreamName) {
		if event.Line != sync.Line || !event.State {
			continue
		}

		if !ok {
			first = event.SampleNumber
			ok = true
		}

		last = event.SampleNumber
	}

	return first, last, ok
}

// lineForStream returns the first registered sync line recorded on the stream.
func lineForStream(lines []*recording.SyncLine, streamName string) (*recording.SyncLine, bool) {
	for _, sync := range lines {
		if sync.StreamName == streamName {
			return sync, true
		}
	}

	return nil, false
}
