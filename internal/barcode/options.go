package barcode

const (
	// DefaultBits is the barcode width in bits.
	DefaultBits = 32
	// DefaultIntervalMS is the nominal spacing between barcodes in
	// milliseconds. Informational only, the decoder does not enforce it.
	DefaultIntervalMS = 10000
	// DefaultInitDurationMS is the wrapper pulse duration in milliseconds.
	DefaultInitDurationMS = 10
	// DefaultPulseDurationMS is the duration of one value bit in milliseconds.
	DefaultPulseDurationMS = 30
	// DefaultTolerance is the relative error allowed when classifying pulses.
	DefaultTolerance = 0.1
	// maxBits bounds the barcode width to what a uint64 value can carry.
	maxBits = 64
)

// Options configures barcode extraction for one channel.
type Options struct {
	// Line is the digital line carrying the barcode signal. Required,
	// lines are numbered starting at 1.
	Line int
	// StreamName names the event source and continuous stream the barcodes
	// were recorded on. Required.
	StreamName string
	// ProcessorID identifies the acquisition processor.
	ProcessorID string
	// IsMain marks the channel as the main clock reference.
	IsMain bool
	// Bits is the barcode width. Defaults to DefaultBits, at most 64.
	Bits int
	// IntervalMS is the nominal barcode spacing in milliseconds.
	IntervalMS float64
	// InitDurationMS is the wrapper pulse duration in milliseconds.
	InitDurationMS float64
	// PulseDurationMS is the value bit duration in milliseconds.
	PulseDurationMS float64
	// Tolerance is the relative error allowed when classifying pulses.
	Tolerance float64
}

// withDefaults returns a copy of the options with unset fields defaulted.
func (o Options) withDefaults() Options {
	if o.Bits == 0 {
		o.Bits = DefaultBits
	}

	if o.IntervalMS == 0 {
		o.IntervalMS = DefaultIntervalMS
	}

	if o.InitDurationMS == 0 {
		o.InitDurationMS = DefaultInitDurationMS
	}

	if o.PulseDurationMS == 0 {
		o.PulseDurationMS = DefaultPulseDurationMS
	}

	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}

	return o
}
