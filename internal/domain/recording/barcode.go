package recording

// Barcode is one decoded synchronization fiducial.
type Barcode struct {
	// StartTime is the local time of the first value pulse in seconds.
	StartTime float64
	// StartLatency is the local sample number of the first value pulse.
	StartLatency int64
	// Value is the integer encoded by the pulse train.
	Value uint64
	// Number is the ordinal of the barcode frame within the channel.
	Number int
}

// BarcodeChannel is the ordered barcode sequence decoded from one line of one
// processor, plus the channel metadata the aligner needs.
type BarcodeChannel struct {
	// Line is the digital line number the barcodes were recorded on.
	Line int
	// ProcessorID identifies the acquisition processor.
	ProcessorID string
	// StreamName names the stream the channel was recorded on.
	StreamName string
	// IsMain marks the channel as the main clock reference.
	IsMain bool
	// SampleRate is the local sampling rate of the owning stream.
	SampleRate float64
	// Barcodes is the decoded fiducial sequence, ordered by start latency.
	Barcodes []Barcode
}

// Values returns the decoded integer sequence in order.
func (c *BarcodeChannel) Values() []uint64 {
	values := make([]uint64, len(c.Barcodes))
	for i, b := range c.Barcodes {
		values[i] = b.Value
	}

	return values
}

// StartLatencies returns the barcode start sample numbers in order.
func (c *BarcodeChannel) StartLatencies() []float64 {
	latencies := make([]float64, len(c.Barcodes))
	for i, b := range c.Barcodes {
		latencies[i] = float64(b.StartLatency)
	}

	return latencies
}

// AddBarcodeChannel appends a decoded channel to the recording's barcode
// registry. A channel sharing the same (processor, stream) key is replaced in
// place, keeping its position.
func (r *Recording) AddBarcodeChannel(channel *BarcodeChannel) {
	r.BarcodeChannels.Set(ChannelKey{ProcessorID: channel.ProcessorID, StreamName: channel.StreamName}, channel)
}
