package gpu

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the frame engine matches exactly one of these with errors.Is.
var (
	// ErrDeviceCreation reports that no adapter satisfies the minimum requirements. Fatal at startup.
	ErrDeviceCreation = errors.New("device creation failed")

	// ErrPipelineCompile reports a shader or fixed-function state mismatch while building a pipeline.
	ErrPipelineCompile = errors.New("pipeline compile failed")

	// ErrResourceBusy reports an attempt to reset or reuse a resource the GPU has not finished with.
	ErrResourceBusy = errors.New("resource busy")

	// ErrRecording reports an invalid sequence of frame or record calls.
	ErrRecording = errors.New("invalid recording sequence")

	// ErrDeviceLost reports that the device or its presentation connection is gone.
	// Recovery requires tearing down and recreating every object created from the device.
	ErrDeviceLost = errors.New("device lost")

	// ErrInvalidConfig reports invalid constructor input such as a zero width or a buffer count below two.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Error is the structured error carried across package boundaries. Kind is one of the
// sentinel errors above, Op names the operation that failed and Err is the optional cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

var _ error = &Error{}

// NewError builds an *Error of the given kind.
//
// Parameters:
//   - kind: one of the sentinel error kinds
//   - op: the operation that failed, e.g. "Renderer.Submit"
//   - err: the underlying cause, may be nil
//
// Returns:
//   - error: the structured error
func NewError(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an *Error of the given kind with a formatted cause.
//
// Parameters:
//   - kind: one of the sentinel error kinds
//   - op: the operation that failed
//   - format: fmt format string for the cause
//   - args: format arguments
//
// Returns:
//   - error: the structured error
func Errorf(kind error, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsFatal reports whether err requires tearing down the device binding.
//
// Parameters:
//   - err: the error to classify
//
// Returns:
//   - bool: true for device loss and device creation failures
func IsFatal(err error) bool {
	return errors.Is(err, ErrDeviceLost) || errors.Is(err, ErrDeviceCreation)
}
