package webgpu

import (
	"context"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// pollInterval is how long a fence wait sleeps when the queue is idle but the value is not
// reached yet, which happens when the value has not been signaled.
const pollInterval = 2 * time.Millisecond

// queue is the implementation of gpu.Queue for the webgpu device.
type queue struct {
	device *device
	native *wgpu.Queue
}

var _ gpu.Queue = &queue{}

func (q *queue) Submit(cb gpu.CommandBuffer) error {
	d := q.device
	if err := d.checkLost("Queue.Submit"); err != nil {
		return err
	}
	b, ok := cb.(*commandBuffer)
	if !ok || b.alloc.device != d {
		return gpu.Errorf(gpu.ErrRecording, "Queue.Submit", "command buffer %T does not belong to %s", cb, d.label)
	}
	if b.native == nil || b.submitValue != 0 {
		return gpu.Errorf(gpu.ErrRecording, "Queue.Submit", "command buffer %s was already submitted or freed", b.label)
	}

	value := d.submitted.Add(1)
	q.native.Submit(b.native)
	b.native.Release()
	b.native = nil
	b.submitValue = value
	q.native.OnSubmittedWorkDone(func(wgpu.QueueWorkDoneStatus) {
		d.retired.Store(value)
	})
	common.Logger().Debug("webgpu submit", "label", b.label, "value", value, "commands", len(b.cmds))
	return nil
}

func (q *queue) Signal(f gpu.Fence, value uint64) error {
	d := q.device
	if err := d.checkLost("Queue.Signal"); err != nil {
		return err
	}
	wf, ok := f.(*fence)
	if !ok || wf.device != d {
		return gpu.Errorf(gpu.ErrRecording, "Queue.Signal", "fence %T does not belong to %s", f, d.label)
	}
	q.native.OnSubmittedWorkDone(func(wgpu.QueueWorkDoneStatus) {
		wf.complete(value)
	})
	return nil
}

// fence is the implementation of gpu.Fence for the webgpu device. The completed value is
// advanced by queue work-done callbacks, which only run while the device is polled.
type fence struct {
	device *device

	mu        sync.Mutex
	completed uint64
}

var _ gpu.Fence = &fence{}

func newFence(d *device) *fence {
	return &fence{device: d}
}

func (f *fence) CompletedValue() uint64 {
	f.device.poll()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

func (f *fence) Wait(ctx context.Context, value uint64) error {
	for {
		f.mu.Lock()
		done := f.completed >= value
		f.mu.Unlock()
		if done {
			return nil
		}
		if err := f.device.checkLost("Fence.Wait"); err != nil {
			return err
		}
		f.device.native.Poll(true, nil)

		f.mu.Lock()
		done = f.completed >= value
		f.mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (f *fence) Destroy() {}

func (f *fence) complete(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value > f.completed {
		f.completed = value
	}
}
