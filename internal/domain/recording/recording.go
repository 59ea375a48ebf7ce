package recording

import (
	"github.com/google/uuid"
)

// TTLEvent is a recorded digital transition on a numbered line.
type TTLEvent struct {
	// Line is the digital line number the transition was recorded on.
	Line int
	// State is true for a rising edge and false for a falling edge.
	State bool
	// SampleNumber is the sample-accurate position in the local clock.
	SampleNumber int64
	// Timestamp is the local time of the event in seconds.
	Timestamp float64
	// ProcessorID identifies the acquisition processor that stamped the event.
	ProcessorID string
	// StreamName names the stream the event source belongs to.
	StreamName string
}

// ContinuousStream holds one processor's continuously sampled data.
// GlobalTimestamps stays nil until an alignment pass has computed it; each
// pass overwrites it in full, there is no incremental merge.
type ContinuousStream struct {
	// StreamName is the unique stream identifier.
	StreamName string
	// SampleRate is the nominal local sampling rate in Hz.
	SampleRate float64
	// NumChannels is the number of interleaved channels per frame.
	NumChannels int
	// SampleNumbers are the local sample counters, ordered ascending.
	SampleNumbers []int64
	// Samples holds the raw frames, row-major, len = len(SampleNumbers)*NumChannels.
	Samples []int16
	// GlobalTimestamps holds one second-valued timestamp per sample in the
	// main clock's time base. Nil until computed.
	GlobalTimestamps []float64
}

// SpikeSource holds sorted spike times referenced to a continuous stream's clock.
type SpikeSource struct {
	// Name is the unique source identifier.
	Name string
	// StreamName names the continuous stream whose clock stamps the spikes.
	StreamName string
	// SampleNumbers are the spike positions in the owning stream's clock.
	SampleNumbers []int64
	// ClusterIDs assigns each spike to a sorted unit.
	ClusterIDs []int32
	// GlobalTimestamps holds spike times in the main clock's time base.
	// Nil until the owning stream has been aligned.
	GlobalTimestamps []float64
}

// ChannelKey identifies a sync line or barcode channel registration.
// Registries key on it so re-registration replaces in place deterministically.
type ChannelKey struct {
	// ProcessorID identifies the acquisition processor.
	ProcessorID string
	// StreamName names the stream the channel was recorded on.
	StreamName string
}

// Recording aggregates everything captured during one recording session and
// is the unit of lifetime: streams, event sources, spike sources and the
// synchronization registries are torn down together with it.
type Recording struct {
	// ID uniquely identifies the in-memory aggregate.
	ID uuid.UUID
	// Directory is the on-disk location the recording was loaded from.
	Directory string
	// Format names the storage format the recording was loaded by.
	Format string
	// SampleNumbersAreTimestamps is the per-format capability flag for
	// storage formats whose sample numbers are already absolute time units.
	// The aligner skips the sample-rate division when it is set.
	SampleNumbersAreTimestamps bool
	// Streams holds continuous streams keyed by stream name.
	Streams *Keyed[string, *ContinuousStream]
	// Events holds TTL event sources keyed by source name,
	// each ordered by sample number.
	Events *Keyed[string, []TTLEvent]
	// Spikes holds spike sources keyed by source name.
	Spikes *Keyed[string, *SpikeSource]
	// SyncLines holds registered sync-line descriptors.
	SyncLines *Keyed[ChannelKey, *SyncLine]
	// BarcodeChannels holds decoded barcode channels.
	BarcodeChannels *Keyed[ChannelKey, *BarcodeChannel]
}

// New creates an empty recording aggregate for the provided directory.
func New(directory string) *Recording {
	return &Recording{
		ID:              uuid.New(),
		Directory:       directory,
		Streams:         NewKeyed[string, *ContinuousStream](),
		Events:          NewKeyed[string, []TTLEvent](),
		Spikes:          NewKeyed[string, *SpikeSource](),
		SyncLines:       NewKeyed[ChannelKey, *SyncLine](),
		BarcodeChannels: NewKeyed[ChannelKey, *BarcodeChannel](),
	}
}

// AddStream registers a continuous stream under its stream name.
func (r *Recording) AddStream(stream *ContinuousStream) {
	r.Streams.Set(stream.StreamName, stream)
}

// Stream returns the continuous stream registered under the name.
func (r *Recording) Stream(name string) (*ContinuousStream, bool) {
	return r.Streams.Get(name)
}

// AddEvents registers a TTL event source under its source name.
// Events must already be ordered by sample number.
func (r *Recording) AddEvents(source string, events []TTLEvent) {
	r.Events.Set(source, events)
}

// EventsFor returns the TTL events of the named source, or nil when the
// source is unknown.
func (r *Recording) EventsFor(source string) []TTLEvent {
	events, _ := r.Events.Get(source)

	return events
}

// AddSpikes registers a spike source under its name.
func (r *Recording) AddSpikes(source *SpikeSource) {
	r.Spikes.Set(source.Name, source)
}
