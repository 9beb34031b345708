// Package recording implements the recording context: one command allocator and one reusable
// command list that cycles through reset, record, close and submit every frame.
package recording

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/descriptor"
)

// recordingContext is the implementation of the Context interface.
type recordingContext struct {
	label     string
	allocator gpu.CommandAllocator

	open   bool
	resets uint64
	cmds   []gpu.Command
	views  []descriptor.View
}

// Recorder is the part of a Context handed to draw code during a frame. The frame
// orchestrator owns the render target, its clear and its state transitions, so a Recorder
// cannot record them.
type Recorder interface {
	// Label returns the debug name of the context.
	//
	// Returns:
	//   - string: the context label
	Label() string

	// SetPipeline binds a pipeline for subsequent draws.
	//
	// Parameters:
	//   - p: the pipeline
	//
	// Returns:
	//   - error: ErrRecording if the list is closed or p is nil
	SetPipeline(p gpu.RenderPipeline) error

	// SetViewport sets the viewport for subsequent draws.
	//
	// Parameters:
	//   - vp: the viewport
	//
	// Returns:
	//   - error: ErrRecording if the list is closed
	SetViewport(vp common.Viewport) error

	// SetScissor sets the scissor rectangle for subsequent draws.
	//
	// Parameters:
	//   - r: the scissor rectangle
	//
	// Returns:
	//   - error: ErrRecording if the list is closed
	SetScissor(r common.Rect) error

	// SetVertexBuffer binds a vertex buffer to an input slot.
	//
	// Parameters:
	//   - slot: the vertex input slot
	//   - b: the buffer
	//
	// Returns:
	//   - error: ErrRecording if the list is closed or b is nil
	SetVertexBuffer(slot uint32, b gpu.Buffer) error

	// Draw records a non-indexed draw.
	//
	// Parameters:
	//   - vertexCount: vertices per instance
	//   - instanceCount: number of instances
	//   - firstVertex: index of the first vertex
	//   - firstInstance: index of the first instance
	//
	// Returns:
	//   - error: ErrRecording if the list is closed
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error
}

// Context records commands for one frame at a time. It is not safe for concurrent use.
//
// Lifecycle: Reset opens the list, the record methods append to it, Close encodes it into a
// command buffer. Reset fails with ErrResourceBusy while the GPU still executes a buffer
// encoded since the previous Reset.
type Context interface {
	Recorder

	// Open reports whether the context is between Reset and Close.
	//
	// Returns:
	//   - bool: true while recording
	Open() bool

	// Reset frees the allocator and reopens the command list. When initial is not nil the list
	// starts with a SetPipeline for it.
	//
	// Parameters:
	//   - initial: the pipeline bound at the start of the list, may be nil
	//
	// Returns:
	//   - error: ErrRecording if the list is still open, ErrResourceBusy if the GPU is still
	//     executing a prior buffer, ErrDeviceLost if the device is lost
	Reset(initial gpu.RenderPipeline) error

	// Barrier records a resource state transition.
	//
	// Parameters:
	//   - tex: the texture to transition
	//   - before: the state the texture is in
	//   - after: the state the texture moves to
	//
	// Returns:
	//   - error: ErrRecording if the list is closed or before equals after
	Barrier(tex gpu.Texture, before, after gpu.ResourceState) error

	// SetRenderTarget binds a view from the view table. The view is checked again at Close.
	//
	// Parameters:
	//   - v: the view to render into
	//
	// Returns:
	//   - error: ErrRecording if the list is closed or the view is already stale
	SetRenderTarget(v descriptor.View) error

	// Clear clears the bound render target.
	//
	// Parameters:
	//   - c: the clear color
	//
	// Returns:
	//   - error: ErrRecording if the list is closed
	Clear(c common.Color) error

	// Commands returns a copy of the commands recorded since the last Reset.
	//
	// Returns:
	//   - []gpu.Command: the recorded commands
	Commands() []gpu.Command

	// Close ends recording and encodes the list into a command buffer.
	//
	// Returns:
	//   - gpu.CommandBuffer: the encoded buffer
	//   - error: ErrRecording if already closed or if a recorded view is no longer valid
	Close() (gpu.CommandBuffer, error)

	// Destroy releases the allocator.
	Destroy()
}

var _ Context = &recordingContext{}

// NewContext creates a closed recording context on device. Call Reset before recording.
//
// Parameters:
//   - device: the device binding
//   - label: debug name used for the allocator and encoded buffers
//
// Returns:
//   - Context: the new context
//   - error: the device error
func NewContext(device gpu.Device, label string) (Context, error) {
	alloc, err := device.CreateCommandAllocator(label + " Allocator")
	if err != nil {
		return nil, err
	}
	return &recordingContext{label: label, allocator: alloc}, nil
}

func (c *recordingContext) Label() string {
	return c.label
}

func (c *recordingContext) Open() bool {
	return c.open
}

func (c *recordingContext) Reset(initial gpu.RenderPipeline) error {
	if c.open {
		return gpu.Errorf(gpu.ErrRecording, "Context.Reset", "%s: command list is still open", c.label)
	}
	if err := c.allocator.Reset(); err != nil {
		return err
	}
	c.resets++
	c.cmds = c.cmds[:0]
	c.views = c.views[:0]
	c.open = true
	if initial != nil {
		c.cmds = append(c.cmds, gpu.SetPipelineCommand{Pipeline: initial})
	}
	return nil
}

func (c *recordingContext) record(op string, cmd gpu.Command) error {
	if !c.open {
		return gpu.Errorf(gpu.ErrRecording, op, "%s: command list is closed", c.label)
	}
	c.cmds = append(c.cmds, cmd)
	return nil
}

func (c *recordingContext) Barrier(tex gpu.Texture, before, after gpu.ResourceState) error {
	if tex == nil || before == after {
		return gpu.Errorf(gpu.ErrRecording, "Context.Barrier", "%s: invalid transition %s->%s", c.label, before, after)
	}
	return c.record("Context.Barrier", gpu.BarrierCommand{Texture: tex, Before: before, After: after})
}

func (c *recordingContext) SetPipeline(p gpu.RenderPipeline) error {
	if p == nil {
		return gpu.Errorf(gpu.ErrRecording, "Context.SetPipeline", "%s: nil pipeline", c.label)
	}
	return c.record("Context.SetPipeline", gpu.SetPipelineCommand{Pipeline: p})
}

func (c *recordingContext) SetRenderTarget(v descriptor.View) error {
	if v == nil || !v.Valid() {
		return gpu.Errorf(gpu.ErrRecording, "Context.SetRenderTarget", "%s: stale or nil view", c.label)
	}
	if err := c.record("Context.SetRenderTarget", gpu.SetRenderTargetCommand{View: v.Target()}); err != nil {
		return err
	}
	c.views = append(c.views, v)
	return nil
}

func (c *recordingContext) Clear(color common.Color) error {
	return c.record("Context.Clear", gpu.ClearCommand{Color: color})
}

func (c *recordingContext) SetViewport(vp common.Viewport) error {
	return c.record("Context.SetViewport", gpu.SetViewportCommand{Viewport: vp})
}

func (c *recordingContext) SetScissor(r common.Rect) error {
	return c.record("Context.SetScissor", gpu.SetScissorCommand{Rect: r})
}

func (c *recordingContext) SetVertexBuffer(slot uint32, b gpu.Buffer) error {
	if b == nil {
		return gpu.Errorf(gpu.ErrRecording, "Context.SetVertexBuffer", "%s: nil buffer", c.label)
	}
	return c.record("Context.SetVertexBuffer", gpu.SetVertexBufferCommand{Slot: slot, Buffer: b})
}

func (c *recordingContext) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	return c.record("Context.Draw", gpu.DrawCommand{
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
}

func (c *recordingContext) Commands() []gpu.Command {
	out := make([]gpu.Command, len(c.cmds))
	copy(out, c.cmds)
	return out
}

func (c *recordingContext) Close() (gpu.CommandBuffer, error) {
	if !c.open {
		return nil, gpu.Errorf(gpu.ErrRecording, "Context.Close", "%s: command list already closed", c.label)
	}
	c.open = false
	for _, v := range c.views {
		if !v.Valid() {
			return nil, gpu.Errorf(gpu.ErrRecording, "Context.Close", "%s: view for slot %d is from generation %d and no longer valid", c.label, v.Index(), v.Generation())
		}
	}
	cb, err := c.allocator.Encode(fmt.Sprintf("%s #%d", c.label, c.resets), c.cmds)
	if err != nil {
		return nil, err
	}
	return cb, nil
}

func (c *recordingContext) Destroy() {
	c.allocator.Destroy()
}
