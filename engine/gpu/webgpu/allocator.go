package webgpu

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// allocator is the implementation of gpu.CommandAllocator for the webgpu device. wgpu-native
// owns command memory itself, so the allocator only tracks which buffers are still in flight.
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
	encoder, err := d.native.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, d.lose("CommandAllocator.Encode", err)
	}
	defer encoder.Release()

	rec := &passRecorder{encoder: encoder, label: label}
	if err := gpu.Replay(cmds, rec); err != nil {
		_ = rec.EndPass()
		return nil, err
	}
	native, err := encoder.Finish(&wgpu.CommandBufferDescriptor{Label: label})
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
	a.device.poll()
	retired := a.device.retired.Load()

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, b := range a.buffers {
		if b.submitValue > retired {
			return gpu.Errorf(gpu.ErrResourceBusy, "CommandAllocator.Reset", "%s: command buffer %s is still executing", a.label, b.label)
		}
	}
	a.freeLocked()
	common.Logger().Debug("webgpu allocator reset", "label", a.label)
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
			b.native.Release()
			b.native = nil
		}
	}
	a.buffers = a.buffers[:0]
}

// commandBuffer is the implementation of gpu.CommandBuffer for the webgpu device. The native
// buffer is released by Queue.Submit.
type commandBuffer struct {
	alloc       *allocator
	label       string
	cmds        []gpu.Command
	native      *wgpu.CommandBuffer
	submitValue uint64
}

var _ gpu.CommandBuffer = &commandBuffer{}

func (b *commandBuffer) Label() string {
	return b.label
}

func (b *commandBuffer) Commands() []gpu.Command {
	return b.cmds
}

// passRecorder translates a replayed command list into wgpu encoder calls. Transitions only
// check ownership because WebGPU derives them from render pass usage.
type passRecorder struct {
	encoder *wgpu.CommandEncoder
	label   string
	pass    *wgpu.RenderPassEncoder
}

var _ gpu.PassRecorder = &passRecorder{}

func (r *passRecorder) Transition(tex gpu.Texture, _, _ gpu.ResourceState) error {
	if _, ok := tex.(*texture); !ok {
		return gpu.Errorf(gpu.ErrRecording, "CommandAllocator.Encode", "texture %T does not belong to a webgpu device", tex)
	}
	return nil
}

func (r *passRecorder) BeginPass(target gpu.RenderTargetView, clear *common.Color) error {
	v, ok := target.(*view)
	if !ok {
		return gpu.Errorf(gpu.ErrRecording, "CommandAllocator.Encode", "view %T does not belong to a webgpu device", target)
	}
	native := v.tex.currentView()
	if native == nil {
		return gpu.Errorf(gpu.ErrRecording, "CommandAllocator.Encode", "%s is not the acquired surface texture", v.tex.label)
	}

	attachment := wgpu.RenderPassColorAttachment{
		View:    native,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	if clear != nil {
		attachment.LoadOp = wgpu.LoadOpClear
		attachment.ClearValue = wgpu.Color{R: clear.R, G: clear.G, B: clear.B, A: clear.A}
	}
	r.pass = r.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            r.label + " Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{attachment},
	})
	return nil
}

func (r *passRecorder) EndPass() error {
	if r.pass == nil {
		return nil
	}
	r.pass.End()
	r.pass.Release()
	r.pass = nil
	return nil
}

func (r *passRecorder) SetPipeline(p gpu.RenderPipeline) error {
	rp, ok := p.(*renderPipeline)
	if !ok {
		return gpu.Errorf(gpu.ErrRecording, "CommandAllocator.Encode", "pipeline %T does not belong to a webgpu device", p)
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
		return gpu.Errorf(gpu.ErrRecording, "CommandAllocator.Encode", "buffer %T does not belong to a webgpu device", b)
	}
	r.pass.SetVertexBuffer(slot, buf.native, 0, wgpu.WholeSize)
	return nil
}

func (r *passRecorder) Draw(d gpu.DrawCommand) {
	r.pass.Draw(d.VertexCount, d.InstanceCount, d.FirstVertex, d.FirstInstance)
}
