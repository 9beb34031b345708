package webgpu

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// texture is one virtual ring slot. native and nativeView are only set while the slot holds
// the acquired surface texture.
type texture struct {
	label  string
	width  uint32
	height uint32

	mu         sync.Mutex
	native     *wgpu.Texture
	nativeView *wgpu.TextureView
}

var _ gpu.Texture = &texture{}

func (t *texture) Label() string  { return t.label }
func (t *texture) Width() uint32  { return t.width }
func (t *texture) Height() uint32 { return t.height }

func (t *texture) bind(native *wgpu.Texture, nativeView *wgpu.TextureView) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.native = native
	t.nativeView = nativeView
}

func (t *texture) unbind() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.nativeView != nil {
		t.nativeView.Release()
		t.nativeView = nil
	}
	if t.native != nil {
		t.native.Release()
		t.native = nil
	}
}

func (t *texture) currentView() *wgpu.TextureView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nativeView
}

type view struct {
	tex *texture
}

var _ gpu.RenderTargetView = &view{}

func (v *view) Label() string        { return v.tex.label + " View" }
func (v *view) Texture() gpu.Texture { return v.tex }
func (v *view) Destroy()             {}

type buffer struct {
	label  string
	size   uint64
	native *wgpu.Buffer
	once   sync.Once
}

var _ gpu.Buffer = &buffer{}

func (b *buffer) Label() string { return b.label }
func (b *buffer) Size() uint64  { return b.size }
func (b *buffer) Destroy() {
	b.once.Do(b.native.Release)
}

type renderPipeline struct {
	label    string
	vertex   *wgpu.ShaderModule
	fragment *wgpu.ShaderModule
	layout   *wgpu.PipelineLayout
	native   *wgpu.RenderPipeline
	once     sync.Once
}

var _ gpu.RenderPipeline = &renderPipeline{}

func (p *renderPipeline) Label() string { return p.label }

func (p *renderPipeline) Destroy() {
	p.once.Do(p.release)
}

func (p *renderPipeline) release() {
	if p.native != nil {
		p.native.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	if p.fragment != nil {
		p.fragment.Release()
	}
	if p.vertex != nil {
		p.vertex.Release()
	}
}

func newRenderPipeline(d *device, desc *gpu.RenderPipelineDescriptor) (*renderPipeline, error) {
	const op = "Device.CreateRenderPipeline"
	format, err := textureFormat(desc.TargetFormat)
	if err != nil {
		return nil, gpu.NewError(gpu.ErrPipelineCompile, op, err)
	}
	buffers, err := vertexLayouts(desc.VertexBuffers)
	if err != nil {
		return nil, gpu.NewError(gpu.ErrPipelineCompile, op, err)
	}

	p := &renderPipeline{label: desc.Label}
	p.vertex, err = d.native.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Vertex.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Vertex.Source},
	})
	if err != nil {
		return nil, gpu.NewError(gpu.ErrPipelineCompile, op, err)
	}
	p.fragment, err = d.native.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Fragment.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Fragment.Source},
	})
	if err != nil {
		p.release()
		return nil, gpu.NewError(gpu.ErrPipelineCompile, op, err)
	}
	p.layout, err = d.native.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: desc.Label + " Layout",
	})
	if err != nil {
		p.release()
		return nil, gpu.NewError(gpu.ErrPipelineCompile, op, err)
	}

	p.native, err = d.native.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     p.vertex,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.fragment,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     blendState(desc.Blend),
				WriteMask: writeMask(desc.WriteMask),
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology(desc.Topology),
			FrontFace: frontFace(desc.FrontFace),
			CullMode:  cullMode(desc.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: desc.SampleCount,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.release()
		return nil, gpu.NewError(gpu.ErrPipelineCompile, op, err)
	}
	return p, nil
}
