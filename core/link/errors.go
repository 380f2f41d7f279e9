package link

import (
	"errors"
	"fmt"
)

var (
	// ErrDisconnected is returned when publishing while not connected.
	ErrDisconnected = errors.New("transport disconnected")
	// ErrPublishFailed wraps a broker or network publish failure.
	ErrPublishFailed = errors.New("publish failed")
	// ErrConnectionRefused means the broker rejected the connection attempt.
	ErrConnectionRefused = errors.New("connection refused")
	// ErrConnectFailed means the attempt never got a broker answer: dial
	// errors, timeouts and protocol errors.
	ErrConnectFailed = errors.New("connect failed")
)

const (
	// NoCode marks a failure without a broker reason code.
	NoCode = -1
	// CodeNetworkError and above are assigned by the client, not the broker.
	CodeNetworkError = 0xFE
)

// ConnectError carries the broker reason code of a failed connection attempt.
// Transports return it from Connect so the manager can record the code.
type ConnectError struct {
	Code int
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Refused() {
		return fmt.Sprintf("connection refused (rc=%d): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("connect failed (rc=%d): %v", e.Code, e.Err)
}

// Refused reports whether the broker answered with a rejection code.
func (e *ConnectError) Refused() bool { return e.Code > 0 && e.Code < CodeNetworkError }

func (e *ConnectError) Unwrap() []error {
	if e.Refused() {
		return []error{ErrConnectionRefused, e.Err}
	}
	return []error{ErrConnectFailed, e.Err}
}

// codeOf extracts the reason code of a connection failure.
func codeOf(err error) int {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return NoCode
}
