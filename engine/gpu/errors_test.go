package gpu

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("driver reset")
	err := NewError(ErrDeviceLost, "Queue.Submit", cause)

	if !errors.Is(err, ErrDeviceLost) {
		t.Error("errors.Is(err, ErrDeviceLost) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if errors.Is(err, ErrRecording) {
		t.Error("errors.Is(err, ErrRecording) = true, want false")
	}
	if got := err.Error(); got != "Queue.Submit: device lost: driver reset" {
		t.Errorf("Error() = %q", got)
	}

	var gerr *Error
	if !errors.As(fmt.Errorf("frame 7: %w", err), &gerr) || gerr.Op != "Queue.Submit" {
		t.Errorf("errors.As through wrapping failed, got %+v", gerr)
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := NewError(ErrResourceBusy, "CommandAllocator.Reset", nil)
	if !errors.Is(err, ErrResourceBusy) {
		t.Error("errors.Is(err, ErrResourceBusy) = false")
	}
	if !strings.HasSuffix(err.Error(), "resource busy") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{Errorf(ErrDeviceLost, "op", "gone"), true},
		{Errorf(ErrDeviceCreation, "op", "no adapter"), true},
		{Errorf(ErrRecording, "op", "bad state"), false},
		{Errorf(ErrResourceBusy, "op", "in flight"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsFatal(tt.err); got != tt.want {
			t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
