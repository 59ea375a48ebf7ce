package recording

import "errors"

var (
	// ErrConfiguration indicates a caller-correctable request, such as a
	// missing barcode line or stream name. Only the specific operation aborts.
	ErrConfiguration = errors.New("configuration error")
	// ErrDataIntegrity indicates inconsistent recorded data, such as barcode
	// sequences that disagree between processors.
	ErrDataIntegrity = errors.New("data integrity error")
	// ErrInsufficientData indicates there are not enough reference channels
	// to run an alignment pass. Nothing is mutated.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrLookup indicates a referenced stream has no registered counterpart.
	ErrLookup = errors.New("lookup error")
)

// Outcome is the structured result of a core operation. The core never
// propagates errors as control flow across its boundary; callers inspect the
// outcome (and the presence or absence of the operation's side effect) instead.
type Outcome struct {
	// OK reports whether the operation completed.
	OK bool
	// Warnings lists recoverable conditions encountered along the way.
	Warnings []string
	// Err carries the abort reason when OK is false. It wraps one of the
	// sentinel error kinds above.
	Err error
}

// Success returns a completed outcome carrying the accumulated warnings.
func Success(warnings ...string) Outcome {
	return Outcome{OK: true, Warnings: warnings}
}

// Failure returns an aborted outcome carrying the abort reason and any
// warnings accumulated before the abort.
func Failure(err error, warnings ...string) Outcome {
	return Outcome{OK: false, Warnings: warnings, Err: err}
}
