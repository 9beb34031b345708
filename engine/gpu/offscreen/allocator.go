package offscreen

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// allocator is the implementation of gpu.CommandAllocator for the offscreen device. It keeps
// the native command buffers it encoded until Reset frees them.
type allocator struct {
	device *device
	label  string

	mu      sync.Mutex
	buffers []*commandBuffer
}

var _ gpu.CommandAllocator = &allocator{}

func (a *allocator) Encode(label string, cmds []gpu.Command) (gpu.CommandBuffer, error) {
	d := a.device
	if err := d.checkLost("CommandAllocator.Encode"); err != nil {
		return nil, err
	}
	encoder, err := d.native.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, d.lose("CommandAllocator.Encode", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return nil, d.lose("CommandAllocator.Encode", err)
	}

	rec := &passRecorder{encoder: encoder, label: label}
	if err := gpu.Replay(cmds, rec); err != nil {
		rec.abort()
		encoder.DiscardEncoding()
		return nil, err
	}
	native, err := encoder.EndEncoding()
	if err != nil {
		return nil, gpu.NewError(gpu.ErrRecording, "CommandAllocator.Encode", err)
	}

	recorded := make([]gpu.Command, len(cmds))
	copy(recorded, cmds)
	b := &commandBuffer{alloc: a, label: label, cmds: recorded, native: native}

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
		if b.submitValue != 0 && !a.device.retired(b.submitValue) {
			return gpu.Errorf(gpu.ErrResourceBusy, "CommandAllocator.Reset", "%s: command buffer %s is still executing", a.label, b.label)
		}
	}
	a.freeLocked()
	common.Logger().Debug("offscreen allocator reset", "label", a.label)
	return nil
}

func (a *allocator) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.freeLocked()
	a.buffers = nil
}

func (a *allocator) freeLocked() {
	for _, b := range a.buffers {
		if b.native != nil {
			a.device.native.FreeCommandBuffer(b.native)
			b.native = nil
		}
	}
	a.buffers = a.buffers[:0]
}

// commandBuffer is the implementation of gpu.CommandBuffer for the offscreen device.
type commandBuffer struct {
	alloc       *allocator
	label       string
	cmds        []gpu.Command
	native      hal.CommandBuffer
	submitValue uint64
}

var _ gpu.CommandBuffer = &commandBuffer{}

func (b *commandBuffer) Label() string {
	return b.label
}

func (b *commandBuffer) Commands() []gpu.Command {
	return b.cmds
}

// passRecorder translates a replayed command list into native encoder calls.
type passRecorder struct {
	encoder hal.CommandEncoder
	label   string
	pass    hal.RenderPassEncoder
}

var _ gpu.PassRecorder = &passRecorder{}

func (r *passRecorder) Transition(tex gpu.Texture, before, after gpu.ResourceState) error {
	t, ok := tex.(*texture)
	if !ok {
		return gpu.Errorf(gpu.ErrRecording, "CommandAllocator.Encode", "texture %T does not belong to an offscreen device", tex)
	}
	r.encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.native,
		Usage: hal.TextureUsageTransition{
			OldUsage: textureUsage(before),
			NewUsage: textureUsage(after),
		},
	}})
	return nil
}

func (r *passRecorder) BeginPass(target gpu.RenderTargetView, clear *common.Color) error {
	v, ok := target.(*view)
	if !ok {
		return gpu.Errorf(gpu.ErrRecording, "CommandAllocator.Encode", "view %T does not belong to an offscreen device", target)
	}
	attachment := hal.RenderPassColorAttachment{
		View:    v.native,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if clear != nil {
		attachment.LoadOp = gputypes.LoadOpClear
		attachment.ClearValue = gputypes.Color{R: clear.R, G: clear.G, B: clear.B, A: clear.A}
	}
	r.pass = r.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            r.label + " Pass",
		ColorAttachments: []hal.RenderPassColorAttachment{attachment},
	})
	return nil
}

func (r *passRecorder) EndPass() error {
	if r.pass != nil {
		r.pass.End()
		r.pass = nil
	}
	return nil
}

func (r *passRecorder) SetPipeline(p gpu.RenderPipeline) error {
	rp, ok := p.(*renderPipeline)
	if !ok {
		return gpu.Errorf(gpu.ErrRecording, "CommandAllocator.Encode", "pipeline %T does not belong to an offscreen device", p)
	}
	r.pass.SetPipeline(rp.native)
	return nil
}

func (r *passRecorder) SetViewport(vp common.Viewport) {
	r.pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
}

func (r *passRecorder) SetScissor(rect common.Rect) {
	r.pass.SetScissorRect(rect.X, rect.Y, rect.Width, rect.Height)
}

func (r *passRecorder) SetVertexBuffer(slot uint32, b gpu.Buffer) error {
	buf, ok := b.(*buffer)
	if !ok {
		return gpu.Errorf(gpu.ErrRecording, "CommandAllocator.Encode", "buffer %T does not belong to an offscreen device", b)
	}
	r.pass.SetVertexBuffer(slot, buf.native, 0)
	return nil
}

func (r *passRecorder) Draw(d gpu.DrawCommand) {
	r.pass.Draw(d.VertexCount, d.InstanceCount, d.FirstVertex, d.FirstInstance)
}

// abort closes a pass left open by a failed replay.
func (r *passRecorder) abort() {
	_ = r.EndPass()
}
