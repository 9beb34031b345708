package headless

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// queue is the implementation of gpu.Queue for the headless device.
type queue struct {
	device *device
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
	if !b.state.CompareAndSwap(int32(bufferEncoded), int32(bufferSubmitted)) {
		return gpu.Errorf(gpu.ErrRecording, "Queue.Submit", "command buffer %s was already submitted or freed", b.label)
	}

	n := d.submits.Add(1)
	b.ordinal = int(n)
	if d.lossAtSubmit > 0 && int(n) == d.lossAtSubmit {
		reason := fmt.Sprintf("device removed during submit %d", n)
		d.Lose(reason)
		return gpu.NewError(gpu.ErrDeviceLost, "Queue.Submit", errors.New(reason))
	}

	common.Logger().Debug("headless submit", "label", b.label, "ordinal", n, "commands", len(b.cmds))
	d.enqueue(work{cb: b})
	return nil
}

func (q *queue) Signal(f gpu.Fence, value uint64) error {
	d := q.device
	if err := d.checkLost("Queue.Signal"); err != nil {
		return err
	}
	hf, ok := f.(*fence)
	if !ok || hf.device != d {
		return gpu.Errorf(gpu.ErrRecording, "Queue.Signal", "fence %T does not belong to %s", f, d.label)
	}
	d.signals.Add(1)
	d.enqueue(work{fence: hf, value: value})
	return nil
}
