package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed indicates the command worker has stopped.
	ErrClosed = errors.New("closed")
	// ErrNoChannel indicates the engine is not configured with an opener.
	ErrNoChannel = errors.New("no channel opener")
)

// RangeError indicates a value doesn't fit its wire width.
type RangeError struct {
	Type  string
	Value int64
}

// Error implements error.
func (e *RangeError) Error() string {
	return fmt.Sprintf("value %d out of range for %s", e.Value, e.Type)
}

// ChannelError wraps a failure of the underlying byte channel.
type ChannelError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Op, e.Err)
}

// Unwrap returns the transport error.
func (e *ChannelError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates a read didn't complete within the configured window.
type TimeoutError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *TimeoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("channel %s timeout: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("channel %s timeout", e.Op)
}

// Unwrap returns the transport error if any.
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Timeout marks the error as a timeout for net.Error style checks.
func (e *TimeoutError) Timeout() bool {
	return true
}

// UnknownDeviceKindError is returned for device kinds outside the table.
type UnknownDeviceKindError struct {
	Kind string
}

// Error implements error.
func (e *UnknownDeviceKindError) Error() string {
	return fmt.Sprintf("unknown device kind %q", e.Kind)
}

// InvalidCommandError indicates the identifier or payload shape is not
// accepted by the device kind.
type InvalidCommandError struct {
	Kind   DeviceKind
	Reason string
}

// Error implements error.
func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("invalid %s command: %s", e.Kind, e.Reason)
}

// IsTransportError tells if err came from the byte channel, meaning the
// channel has been dropped and a later command may succeed.
func IsTransportError(err error) bool {
	var chErr *ChannelError
	var toErr *TimeoutError
	return errors.As(err, &chErr) || errors.As(err, &toErr)
}
