package offscreen

import (
	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/gogpu/wgpu/hal"
)

// queue is the implementation of gpu.Queue for the offscreen device. Command buffers remember
// the submission index the hal queue hands back so the owning allocator can tell when they
// have retired.
type queue struct {
	device *device
	native hal.Queue
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

	index, err := q.native.Submit([]hal.CommandBuffer{b.native})
	if err != nil {
		return d.lose("Queue.Submit", err)
	}
	d.markSubmitted(index)
	b.submitValue = index
	common.Logger().Debug("offscreen submit", "label", b.label, "submission", index, "commands", len(b.cmds))
	return nil
}

func (q *queue) Signal(f gpu.Fence, value uint64) error {
	d := q.device
	if err := d.checkLost("Queue.Signal"); err != nil {
		return err
	}
	of, ok := f.(*fence)
	if !ok || of.device != d {
		return gpu.Errorf(gpu.ErrRecording, "Queue.Signal", "fence %T does not belong to %s", f, d.label)
	}
	of.signal(value, d.submitted.Load())
	return nil
}
