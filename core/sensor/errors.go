package sensor

import (
	"errors"
	"fmt"
)

var (
	// ErrTransducerFailure means the transducer returned NaN for at least one value.
	ErrTransducerFailure = errors.New("transducer failure")
	// ErrRangeViolation means a numeric value is physically implausible.
	ErrRangeViolation = errors.New("range violation")
	// ErrExhaustedRetries means every attempt of a read cycle failed.
	ErrExhaustedRetries = errors.New("retries exhausted")
)

// ReadError describes why an acquisition failed. Kind is ErrTransducerFailure
// or ErrRangeViolation; Attempts is set once the retry budget is spent.
type ReadError struct {
	Kind     error
	Msg      string
	Attempts int
}

func (e *ReadError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s after %d attempts", e.Msg, e.Attempts)
	}
	return e.Msg
}

func (e *ReadError) Unwrap() []error {
	if e.Attempts > 0 {
		return []error{e.Kind, ErrExhaustedRetries}
	}
	return []error{e.Kind}
}

// kindLabel returns the short label used in events and metrics.
func kindLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRangeViolation):
		return "range"
	default:
		return "transducer"
	}
}
