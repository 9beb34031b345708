package offscreen

import (
	"context"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// fence is the implementation of gpu.Fence on top of hal submission indices. A signaled value
// is bound to the last submission made before the signal and completes once the queue reports
// that submission as done.
type fence struct {
	device *device

	mu        sync.Mutex
	pending   []fencePoint
	signaled  uint64
	completed uint64
}

// fencePoint binds a signaled value to the submission index that has to retire first.
type fencePoint struct {
	value      uint64
	submission uint64
}

var _ gpu.Fence = &fence{}

func newFence(d *device) *fence {
	return &fence{device: d}
}

func (f *fence) CompletedValue() uint64 {
	if !f.device.lost.Load() {
		f.poll()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *fence) Wait(ctx context.Context, value uint64) error {
	timer := time.NewTimer(pollInterval)
	defer timer.Stop()
	for {
		if f.poll() >= value {
			return nil
		}
		if err := f.device.checkLost("Fence.Wait"); err != nil {
			return err
		}
		timer.Reset(pollInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (f *fence) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = nil
}

// signal records value as reached once submission retires.
func (f *fence) signal(value, submission uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value > f.signaled {
		f.signaled = value
	}
	f.pending = append(f.pending, fencePoint{value: value, submission: submission})
}

// poll retires every pending value whose submission the queue reports complete and returns the
// completed value.
func (f *fence) poll() uint64 {
	done := f.device.queue.native.PollCompleted()
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.pending {
		if p.submission > done {
			f.pending[n] = p
			n++
			continue
		}
		if p.value > f.completed {
			f.completed = p.value
		}
	}
	f.pending = f.pending[:n]
	return f.completed
}
