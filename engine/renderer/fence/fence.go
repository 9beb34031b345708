// Package fence implements the frame fence: a CPU-owned counter of the next value to signal
// paired with the GPU-owned completed value of a timeline fence.
package fence

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// Stats summarizes how often and how long the CPU blocked on the fence.
type Stats struct {
	Signals  uint64
	Waits    uint64
	Blocked  uint64
	WaitTime time.Duration
}

// fence is the implementation of the Fence interface.
type fence struct {
	native gpu.Fence

	nextValue atomic.Uint64
	completed atomic.Uint64

	signals  atomic.Uint64
	waits    atomic.Uint64
	blocked  atomic.Uint64
	waitTime atomic.Int64
}

// Fence is the single CPU/GPU synchronization primitive of the frame engine.
//
// NextValue starts at 1 and grows by exactly one per successful Signal. CompletedValue never
// decreases and never exceeds NextValue()-1.
type Fence interface {
	// NextValue returns the value the next Signal will use.
	//
	// Returns:
	//   - uint64: the next value to signal
	NextValue() uint64

	// LastSignaled returns the most recently signaled value, or 0 before the first Signal.
	//
	// Returns:
	//   - uint64: the last signaled value
	LastSignaled() uint64

	// CompletedValue returns the last value the GPU is known to have reached. It may lag the
	// GPU and may skip intermediate values, but it never decreases.
	//
	// Returns:
	//   - uint64: the completed value
	CompletedValue() uint64

	// Signal asks q to set the fence to NextValue() once all previously submitted work has
	// executed, then advances NextValue. It does not block.
	//
	// Parameters:
	//   - q: the queue to signal on
	//
	// Returns:
	//   - uint64: the signaled value
	//   - error: the queue error, NextValue is unchanged on failure
	Signal(q gpu.Queue) (uint64, error)

	// IsComplete reports whether CompletedValue() >= value.
	//
	// Parameters:
	//   - value: the value to check
	//
	// Returns:
	//   - bool: true if the GPU has reached value
	IsComplete(value uint64) bool

	// Drained reports whether every signaled value has completed.
	//
	// Returns:
	//   - bool: true if the GPU has caught up with the last Signal
	Drained() bool

	// WaitUntil blocks until the GPU reaches value. It returns immediately if it already has.
	//
	// Parameters:
	//   - value: the value to wait for
	//
	// Returns:
	//   - error: ErrRecording if value was never signaled, ErrDeviceLost if the device is lost
	WaitUntil(value uint64) error

	// WaitUntilContext is WaitUntil bounded by ctx.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//   - value: the value to wait for
	//
	// Returns:
	//   - error: ctx.Err() on cancellation, otherwise as WaitUntil
	WaitUntilContext(ctx context.Context, value uint64) error

	// Stats returns the wait statistics collected so far.
	//
	// Returns:
	//   - Stats: signal and wait counters
	Stats() Stats

	// Native returns the backend fence.
	//
	// Returns:
	//   - gpu.Fence: the underlying timeline fence
	Native() gpu.Fence

	// Destroy releases the backend fence.
	Destroy()
}

var _ Fence = &fence{}

// NewFence creates a frame fence on device.
//
// Parameters:
//   - device: the device that creates the backend fence
//
// Returns:
//   - Fence: the new fence with NextValue() == 1 and CompletedValue() == 0
//   - error: the device error
func NewFence(device gpu.Device) (Fence, error) {
	native, err := device.CreateFence()
	if err != nil {
		return nil, err
	}
	f := &fence{native: native}
	f.nextValue.Store(1)
	return f, nil
}

func (f *fence) NextValue() uint64 {
	return f.nextValue.Load()
}

func (f *fence) LastSignaled() uint64 {
	return f.nextValue.Load() - 1
}

func (f *fence) CompletedValue() uint64 {
	observed := f.native.CompletedValue()
	for {
		current := f.completed.Load()
		if observed <= current {
			return current
		}
		if f.completed.CompareAndSwap(current, observed) {
			return observed
		}
	}
}

func (f *fence) Signal(q gpu.Queue) (uint64, error) {
	value := f.nextValue.Add(1) - 1
	if err := q.Signal(f.native, value); err != nil {
		f.nextValue.Store(value)
		return 0, err
	}
	f.signals.Add(1)
	common.Logger().Debug("fence signaled", "value", value)
	return value, nil
}

func (f *fence) IsComplete(value uint64) bool {
	return f.CompletedValue() >= value
}

func (f *fence) Drained() bool {
	return f.IsComplete(f.LastSignaled())
}

func (f *fence) WaitUntil(value uint64) error {
	return f.WaitUntilContext(context.Background(), value)
}

func (f *fence) WaitUntilContext(ctx context.Context, value uint64) error {
	f.waits.Add(1)
	if f.IsComplete(value) {
		return nil
	}
	if value > f.LastSignaled() {
		return gpu.Errorf(gpu.ErrRecording, "Fence.WaitUntil", "value %d was never signaled, last signaled is %d", value, f.LastSignaled())
	}

	f.blocked.Add(1)
	start := time.Now()
	err := f.native.Wait(ctx, value)
	f.waitTime.Add(int64(time.Since(start)))
	if err != nil {
		return err
	}
	f.CompletedValue()
	common.Logger().Debug("fence wait complete", "value", value, "waited", time.Since(start))
	return nil
}

func (f *fence) Stats() Stats {
	return Stats{
		Signals:  f.signals.Load(),
		Waits:    f.waits.Load(),
		Blocked:  f.blocked.Load(),
		WaitTime: time.Duration(f.waitTime.Load()),
	}
}

func (f *fence) Native() gpu.Fence {
	return f.native
}

func (f *fence) Destroy() {
	f.native.Destroy()
}
