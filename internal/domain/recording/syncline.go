package recording

import (
	"context"
	"fmt"

	"github.com/probelab/streamsync/internal/logger"
)

// SyncLine describes a digital sync channel used as an alignment reference.
// Start, Scaling and Offset are filled in by the sync-line alignment strategy.
type SyncLine struct {
	// Line is the digital line number carrying the sync pulses.
	Line int
	// ProcessorID identifies the acquisition processor.
	ProcessorID string
	// StreamName names the stream the line was recorded on.
	StreamName string
	// IsMain marks the line as the main clock reference.
	IsMain bool
	// IsBarcode marks the line as carrying a barcode pulse train.
	IsBarcode bool
	// SampleRate is the local sampling rate looked up at registration.
	// Zero when the referenced stream was not registered.
	SampleRate float64
	// Start is the sample number of the line's first rising pulse.
	Start int64
	// Scaling converts this line's sample counts to main-clock sample counts.
	Scaling float64
	// Offset is the main line's start sample, kept for reporting.
	Offset int64
}

// RegisterSyncLine records a sync-channel descriptor against the recording.
// The sample rate is looked up from the continuous stream with a matching
// stream name; when no such stream exists the field is left unset and a
// warning is emitted, registration still succeeds. An entry sharing the same
// (processor, stream) key is replaced in place, keeping its position.
func (r *Recording) RegisterSyncLine(ctx context.Context, line int, processorID, streamName string, isMain, isBarcode bool) Outcome {
	ctx = logger.WithName(ctx, "sync-lines")

	var warnings []string

	sync := &SyncLine{
		Line:        line,
		ProcessorID: processorID,
		StreamName:  streamName,
		IsMain:      isMain,
		IsBarcode:   isBarcode,
	}

	if stream, ok := r.Stream(streamName); ok {
		sync.SampleRate = stream.SampleRate
	} else {
		warning := fmt.Sprintf("no continuous stream named %q, sample rate left unset", streamName)
		warnings = append(warnings, warning)
		logger.Warnf(ctx, "Registering sync line %d: %s", line, warning)
	}

	if isMain {
		if prior, ok := r.mainSyncLine(); ok && (prior.ProcessorID != processorID || prior.StreamName != streamName) {
			warning := fmt.Sprintf("main reference already registered for %s/%s, first registered main wins during alignment",
				prior.ProcessorID, prior.StreamName)
			warnings = append(warnings, warning)
			logger.Warnf(ctx, "Registering sync line %d: %s", line, warning)
		}
	}

	r.SyncLines.Set(ChannelKey{ProcessorID: processorID, StreamName: streamName}, sync)

	logger.InfoKV(ctx, "Registered sync line",
		"line", line, "processor", processorID, "stream", streamName, "main", isMain, "barcode", isBarcode)

	return Success(warnings...)
}

// mainSyncLine returns the first registered line flagged as main.
func (r *Recording) mainSyncLine() (*SyncLine, bool) {
	for _, sync := range r.SyncLines.Values() {
		if sync.IsMain {
			return sync, true
		}
	}

	return nil, false
}
