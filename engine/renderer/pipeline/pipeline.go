package pipeline

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/gogpu/gputypes"
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	vertexShader, fragmentShader shader.Shader

	// inputLayout overrides the layout parsed from the vertex shader when set
	inputLayout []gputypes.VertexBufferLayout

	cullMode    gputypes.CullMode
	topology    gputypes.PrimitiveTopology
	frontFace   gputypes.FrontFace
	writeMask   gputypes.ColorWriteMask
	blendMode   gpu.BlendMode
	sampleCount uint32

	mu     sync.Mutex
	built  bool
	format gputypes.TextureFormat
	native gpu.RenderPipeline
}

// Pipeline is a pipeline state object: both shader stages, the vertex input layout, an empty
// binding layout and the fixed-function state, compiled once against a device and a render
// target format. After Build succeeds the pipeline is immutable.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader for a stage, or nil if not set.
	//
	// Parameters:
	//   - shaderType: the stage to retrieve
	//
	// Returns:
	//   - shader.Shader: the shader for the stage
	Shader(shaderType shader.ShaderType) shader.Shader

	// InputLayout returns the explicit input layout, or the layout parsed from the vertex
	// shader when none was given.
	//
	// Returns:
	//   - []gputypes.VertexBufferLayout: the vertex buffer layouts
	InputLayout() []gputypes.VertexBufferLayout

	// CullMode returns the configured cull mode.
	//
	// Returns:
	//   - gputypes.CullMode: the cull mode
	CullMode() gputypes.CullMode

	// Topology returns the configured primitive topology.
	//
	// Returns:
	//   - gputypes.PrimitiveTopology: the topology
	Topology() gputypes.PrimitiveTopology

	// FrontFace returns the configured front face winding.
	//
	// Returns:
	//   - gputypes.FrontFace: the winding considered front facing
	FrontFace() gputypes.FrontFace

	// WriteMask returns the color write mask of the render target.
	//
	// Returns:
	//   - gputypes.ColorWriteMask: the write mask
	WriteMask() gputypes.ColorWriteMask

	// BlendMode returns the blend mode of the render target.
	//
	// Returns:
	//   - gpu.BlendMode: the blend mode
	BlendMode() gpu.BlendMode

	// SampleCount returns the multisample count.
	//
	// Returns:
	//   - uint32: 1 or 4
	SampleCount() uint32

	// Descriptor validates the configuration and returns the device level descriptor for
	// the given render target format.
	//
	// Parameters:
	//   - format: the render target format
	//
	// Returns:
	//   - *gpu.RenderPipelineDescriptor: the descriptor
	//   - error: ErrPipelineCompile describing the first invalid setting
	Descriptor(format gputypes.TextureFormat) (*gpu.RenderPipelineDescriptor, error)

	// Build validates the configuration and compiles it on device.
	//
	// Parameters:
	//   - device: the device to compile on
	//   - format: the render target format
	//
	// Returns:
	//   - error: ErrPipelineCompile if invalid, already built, or rejected by the device
	Build(device gpu.Device, format gputypes.TextureFormat) error

	// Built reports whether Build has succeeded.
	//
	// Returns:
	//   - bool: true after a successful Build
	Built() bool

	// Format returns the render target format the pipeline was built for.
	//
	// Returns:
	//   - gputypes.TextureFormat: the format, or TextureFormatUndefined before Build
	Format() gputypes.TextureFormat

	// RenderPipeline returns the compiled device pipeline, or nil before Build.
	//
	// Returns:
	//   - gpu.RenderPipeline: the device pipeline
	RenderPipeline() gpu.RenderPipeline

	// Destroy releases the device pipeline. The pipeline reports unbuilt afterwards.
	Destroy()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates an unbuilt Pipeline. Defaults: no culling, triangle list, counter
// clockwise front faces, all channels written, opaque blending, one sample.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey: pipelineKey,
		cullMode:    gputypes.CullModeNone,
		topology:    gputypes.PrimitiveTopologyTriangleList,
		frontFace:   gputypes.FrontFaceCCW,
		writeMask:   gputypes.ColorWriteMaskAll,
		blendMode:   gpu.BlendModeOpaque,
		sampleCount: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewTrianglePipeline compiles the built-in colored triangle shader and returns an unbuilt
// pipeline for it. The input layout is common.ColorVertex.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: additional options applied after the shaders are set
//
// Returns:
//   - Pipeline: the pipeline
//   - error: ErrPipelineCompile if the shader fails to compile
func NewTrianglePipeline(pipelineKey string, opts ...PipelineBuilderOption) (Pipeline, error) {
	vs, err := shader.NewShader(pipelineKey+".vs", shader.ShaderTypeVertex, shader.WithSource(shader.TriangleSource))
	if err != nil {
		return nil, err
	}
	fs, err := shader.NewShader(pipelineKey+".fs", shader.ShaderTypeFragment, shader.WithSource(shader.TriangleSource))
	if err != nil {
		return nil, err
	}
	all := append([]PipelineBuilderOption{WithVertexShader(vs), WithFragmentShader(fs)}, opts...)
	return NewPipeline(pipelineKey, all...), nil
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) InputLayout() []gputypes.VertexBufferLayout {
	if p.inputLayout != nil {
		return p.inputLayout
	}
	if p.vertexShader != nil {
		return p.vertexShader.VertexLayouts()
	}
	return nil
}

func (p *pipeline) CullMode() gputypes.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() gputypes.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() gputypes.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() gputypes.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendMode() gpu.BlendMode {
	return p.blendMode
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) Descriptor(format gputypes.TextureFormat) (*gpu.RenderPipelineDescriptor, error) {
	if err := p.validate(format); err != nil {
		return nil, err
	}
	return &gpu.RenderPipelineDescriptor{
		Label:         p.pipelineKey,
		Vertex:        p.vertexShader.Stage(),
		Fragment:      p.fragmentShader.Stage(),
		VertexBuffers: p.InputLayout(),
		Topology:      p.topology,
		CullMode:      p.cullMode,
		FrontFace:     p.frontFace,
		WriteMask:     p.writeMask,
		Blend:         p.blendMode,
		TargetFormat:  format,
		SampleCount:   p.sampleCount,
	}, nil
}

func (p *pipeline) Build(device gpu.Device, format gputypes.TextureFormat) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.built {
		return gpu.Errorf(gpu.ErrPipelineCompile, "Pipeline.Build", "%s: pipeline is already built", p.pipelineKey)
	}
	desc, err := p.Descriptor(format)
	if err != nil {
		return err
	}
	native, err := device.CreateRenderPipeline(desc)
	if err != nil {
		return err
	}
	p.native = native
	p.format = format
	p.built = true
	common.Logger().Info("pipeline built", "key", p.pipelineKey, "format", format, "samples", p.sampleCount)
	return nil
}

func (p *pipeline) Built() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.built
}

func (p *pipeline) Format() gputypes.TextureFormat {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format
}

func (p *pipeline) RenderPipeline() gpu.RenderPipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.native
}

func (p *pipeline) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.native != nil {
		p.native.Destroy()
		p.native = nil
	}
	p.built = false
}
