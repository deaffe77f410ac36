package disclosure

import (
	"errors"
	"fmt"
)

// NetworkError reports a transport failure or a non-2xx backend status.
type NetworkError struct {
	Op         string
	Target     string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.Target, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports a backend response whose shape was not understood.
type DecodeError struct {
	Op     string
	Target string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s: decode response: %v", e.Op, e.Target, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err wraps a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsDecodeError reports whether err wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
