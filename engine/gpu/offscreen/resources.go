package offscreen

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// textureUsage maps a swap chain resource state onto the native usage the texture is
// transitioned to. Offscreen back buffers are "presented" by being made readable.
func textureUsage(s gpu.ResourceState) gputypes.TextureUsage {
	if s == gpu.ResourceStateRenderTarget {
		return gputypes.TextureUsageRenderAttachment
	}
	return gputypes.TextureUsageCopySrc
}

type texture struct {
	device *device
	label  string
	width  uint32
	height uint32
	native hal.Texture
}

var _ gpu.Texture = &texture{}

func (t *texture) Label() string  { return t.label }
func (t *texture) Width() uint32  { return t.width }
func (t *texture) Height() uint32 { return t.height }

type view struct {
	tex    *texture
	native hal.TextureView
	once   sync.Once
}

var _ gpu.RenderTargetView = &view{}

func (v *view) Label() string        { return v.tex.label + " View" }
func (v *view) Texture() gpu.Texture { return v.tex }
func (v *view) Destroy() {
	v.once.Do(func() {
		v.tex.device.native.DestroyTextureView(v.native)
	})
}

type buffer struct {
	device *device
	label  string
	size   uint64
	native hal.Buffer
	once   sync.Once
}

var _ gpu.Buffer = &buffer{}

func (b *buffer) Label() string { return b.label }
func (b *buffer) Size() uint64  { return b.size }
func (b *buffer) Destroy() {
	b.once.Do(func() {
		b.device.native.DestroyBuffer(b.native)
	})
}

type renderPipeline struct {
	device   *device
	label    string
	vertex   hal.ShaderModule
	fragment hal.ShaderModule
	layout   hal.PipelineLayout
	native   hal.RenderPipeline
	once     sync.Once
}

var _ gpu.RenderPipeline = &renderPipeline{}

func (p *renderPipeline) Label() string { return p.label }

func (p *renderPipeline) Destroy() {
	p.once.Do(p.release)
}

func (p *renderPipeline) release() {
	dev := p.device.native
	if p.native != nil {
		dev.DestroyRenderPipeline(p.native)
	}
	if p.layout != nil {
		dev.DestroyPipelineLayout(p.layout)
	}
	if p.fragment != nil {
		dev.DestroyShaderModule(p.fragment)
	}
	if p.vertex != nil {
		dev.DestroyShaderModule(p.vertex)
	}
}

func newRenderPipeline(d *device, desc *gpu.RenderPipelineDescriptor) (*renderPipeline, error) {
	const op = "Device.CreateRenderPipeline"
	p := &renderPipeline{device: d, label: desc.Label}

	var err error
	if p.vertex, err = createShaderModule(d, desc.Label+" Vertex", desc.Vertex); err != nil {
		return nil, gpu.NewError(gpu.ErrPipelineCompile, op, err)
	}
	if p.fragment, err = createShaderModule(d, desc.Label+" Fragment", desc.Fragment); err != nil {
		p.release()
		return nil, gpu.NewError(gpu.ErrPipelineCompile, op, err)
	}
	p.layout, err = d.native.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: desc.Label + " Layout",
	})
	if err != nil {
		p.release()
		return nil, gpu.NewError(gpu.ErrPipelineCompile, op, err)
	}

	target := gputypes.ColorTargetState{
		Format:    desc.TargetFormat,
		Blend:     blendState(desc.Blend),
		WriteMask: desc.WriteMask,
	}
	p.native, err = d.native.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     p.vertex,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    desc.VertexBuffers,
		},
		Fragment: &hal.FragmentState{
			Module:     p.fragment,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets:    []gputypes.ColorTargetState{target},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  desc.Topology,
			FrontFace: desc.FrontFace,
			CullMode:  desc.CullMode,
		},
		Multisample: gputypes.MultisampleState{
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

func createShaderModule(d *device, label string, stage gpu.ShaderStage) (hal.ShaderModule, error) {
	if len(stage.SPIRV) == 0 {
		return nil, gpu.Errorf(gpu.ErrPipelineCompile, "Device.CreateRenderPipeline", "%s has no SPIR-V", label)
	}
	return d.native.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirvWords(stage.SPIRV)},
	})
}

// spirvWords packs little-endian SPIR-V bytes into 32-bit words.
func spirvWords(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = uint32(code[i*4]) |
			uint32(code[i*4+1])<<8 |
			uint32(code[i*4+2])<<16 |
			uint32(code[i*4+3])<<24
	}
	return words
}

func blendState(mode gpu.BlendMode) *gputypes.BlendState {
	switch mode {
	case gpu.BlendModeAlpha:
		return &gputypes.BlendState{
			Color: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorSrcAlpha,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
			Alpha: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorOne,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
		}
	case gpu.BlendModePremultiplied:
		premul := gputypes.BlendStatePremultiplied()
		return &premul
	default:
		return nil
	}
}
