package synth

import "errors"

var (
	// ErrOutOfRange means the request lies outside the device bounds; state is unchanged
	ErrOutOfRange = errors.New("out of range")
	// ErrUnsupported means the backend has no such operation
	ErrUnsupported = errors.New("operation not supported")
	// ErrUnavailable means the chip was not detected at setup
	ErrUnavailable = errors.New("hardware unavailable")
)
