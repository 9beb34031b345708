package headless

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

type bufferState int32

const (
	bufferEncoded bufferState = iota
	bufferSubmitted
	bufferExecuted
	bufferFreed
)

// allocator is the implementation of gpu.CommandAllocator for the headless device.
type allocator struct {
	device *device
	label  string

	mu      sync.Mutex
	buffers []*commandBuffer
}

var _ gpu.CommandAllocator = &allocator{}

func (a *allocator) Encode(label string, cmds []gpu.Command) (gpu.CommandBuffer, error) {
	if err := a.device.checkLost("CommandAllocator.Encode"); err != nil {
		return nil, err
	}
	if err := gpu.Replay(cmds, validator{}); err != nil {
		return nil, err
	}
	recorded := make([]gpu.Command, len(cmds))
	copy(recorded, cmds)

	b := &commandBuffer{alloc: a, label: label, cmds: recorded}
	a.mu.Lock()
	a.buffers = append(a.buffers, b)
	a.mu.Unlock()
	return b, nil
}

func (a *allocator) Reset() error {
	if err := a.device.checkLost("CommandAllocator.Reset"); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, b := range a.buffers {
		if bufferState(b.state.Load()) == bufferSubmitted {
			return gpu.Errorf(gpu.ErrResourceBusy, "CommandAllocator.Reset", "%s: command buffer %s is still executing", a.label, b.label)
		}
	}
	for _, b := range a.buffers {
		b.state.Store(int32(bufferFreed))
	}
	a.buffers = a.buffers[:0]
	a.device.allocatorResets.Add(1)
	common.Logger().Debug("headless allocator reset", "label", a.label)
	return nil
}

func (a *allocator) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, b := range a.buffers {
		b.state.Store(int32(bufferFreed))
	}
	a.buffers = nil
}

// commandBuffer is the implementation of gpu.CommandBuffer for the headless device.
type commandBuffer struct {
	alloc   *allocator
	label   string
	cmds    []gpu.Command
	ordinal int
	state   atomic.Int32
}

var _ gpu.CommandBuffer = &commandBuffer{}

func (b *commandBuffer) Label() string {
	return b.label
}

func (b *commandBuffer) Commands() []gpu.Command {
	return b.cmds
}

// validator accepts every well formed pass sequence. Encode runs it only for the structural
// checks gpu.Replay performs.
type validator struct{}

func (validator) Transition(gpu.Texture, gpu.ResourceState, gpu.ResourceState) error { return nil }
func (validator) BeginPass(gpu.RenderTargetView, *common.Color) error                { return nil }
func (validator) EndPass() error                                                     { return nil }
func (validator) SetPipeline(gpu.RenderPipeline) error                               { return nil }
func (validator) SetViewport(common.Viewport)                                        {}
func (validator) SetScissor(common.Rect)                                             {}
func (validator) SetVertexBuffer(uint32, gpu.Buffer) error                           { return nil }
func (validator) Draw(gpu.DrawCommand)                                               {}
