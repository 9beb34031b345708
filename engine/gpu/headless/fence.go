package headless

import (
	"context"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// fence is the implementation of gpu.Fence for the headless device. Waiters block on a channel
// that is closed and replaced every time the completed value advances.
type fence struct {
	device *device

	mu        sync.Mutex
	completed uint64
	changed   chan struct{}
}

var _ gpu.Fence = &fence{}

func newFence(d *device) *fence {
	return &fence{device: d, changed: make(chan struct{})}
}

func (f *fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *fence) Wait(ctx context.Context, value uint64) error {
	for {
		f.mu.Lock()
		if f.completed >= value {
			f.mu.Unlock()
			return nil
		}
		changed := f.changed
		f.mu.Unlock()

		if err := f.device.checkLost("Fence.Wait"); err != nil {
			return err
		}
		select {
		case <-changed:
		case <-f.device.lostCh:
		case <-f.device.done:
			return gpu.Errorf(gpu.ErrDeviceLost, "Fence.Wait", "device %s destroyed", f.device.label)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *fence) Destroy() {}

// complete moves the completed value forward. Lower values are ignored.
func (f *fence) complete(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value <= f.completed {
		return
	}
	f.completed = value
	close(f.changed)
	f.changed = make(chan struct{})
}
