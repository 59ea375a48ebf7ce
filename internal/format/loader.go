package format

import (
	"context"
	"fmt"

	"github.com/probelab/streamsync/internal/domain/recording"
	"github.com/probelab/streamsync/internal/logger"
)

// Loader is the capability interface one storage format implements. The
// synchronization core never depends on a concrete format, only on the data
// model a loader populates.
type Loader interface {
	// Format returns the format name used for registration and overrides.
	Format() string
	// DetectFormat reports whether the directory holds a recording in this format.
	DetectFormat(directory string) bool
	// DetectRecordings lists recording directories under the directory.
	DetectRecordings(directory string) ([]string, error)
	// LoadContinuous populates the recording's continuous streams.
	LoadContinuous(ctx context.Context, directory string, rec *recording.Recording) error
	// LoadEvents populates the recording's TTL event sources.
	LoadEvents(ctx context.Context, directory string, rec *recording.Recording) error
	// LoadSpikes populates the recording's spike sources.
	LoadSpikes(ctx context.Context, directory string, rec *recording.Recording) error
	// SampleNumbersAreTimestamps reports whether the format stores absolute
	// time units in place of sample counters. The aligner skips the
	// sample-rate division for such formats.
	SampleNumbersAreTimestamps() bool
}

// registry holds the known loaders in registration order, so format
// detection is deterministic.
//
//nolint:gochecknoglobals // Loaders register themselves at package init.
var registry = recording.NewKeyed[string, Loader]()

func init() { //nolint:gochecknoinits // Built-in loaders are always available.
	Register(NewFlatBinary())
}

// Register adds a loader to the registry. A loader re-registering the same
// format name replaces the previous one.
func Register(l Loader) {
	registry.Set(l.Format(), l)
}

// Get returns the loader registered under the format name.
func Get(name string) (Loader, bool) {
	return registry.Get(name)
}

// Detect returns the first registered loader recognizing the directory.
func Detect(directory string) (Loader, bool) {
	for _, l := range registry.Values() {
		if l.DetectFormat(directory) {
			return l, true
		}
	}

	return nil, false
}

// Load builds a fully populated recording aggregate from the directory.
// An empty formatName auto-detects against the registry.
func Load(ctx context.Context, directory, formatName string) (*recording.Recording, error) {
	ctx = logger.WithName(ctx, "format")

	var (
		loader Loader
		ok     bool
	)

	if formatName != "" {
		loader, ok = Get(formatName)
		if !ok {
			return nil, fmt.Errorf("unknown format %q", formatName)
		}
	} else {
		loader, ok = Detect(directory)
		if !ok {
			return nil, fmt.Errorf("no registered format recognizes %q", directory)
		}
	}

	rec := recording.New(directory)
	rec.Format = loader.Format()
	rec.SampleNumbersAreTimestamps = loader.SampleNumbersAreTimestamps()

	if err := loader.LoadContinuous(ctx, directory, rec); err != nil {
		return nil, fmt.Errorf("load continuous: %w", err)
	}

	if err := loader.LoadEvents(ctx, directory, rec); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	if err := loader.LoadSpikes(ctx, directory, rec); err != nil {
		return nil, fmt.Errorf("load spikes: %w", err)
	}

	logger.InfoKV(ctx, "Loaded recording",
		"directory", directory, "format", rec.Format,
		"streams", rec.Streams.Len(), "event_sources", rec.Events.Len(), "spike_sources", rec.Spikes.Len())

	return rec, nil
}
