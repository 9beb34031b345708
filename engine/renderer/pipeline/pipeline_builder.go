package pipeline

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/gogpu/gputypes"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex shader for this pipeline.
//
// Parameters:
//   - s: the vertex shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader for this pipeline
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment shader for this pipeline.
//
// Parameters:
//   - s: the fragment shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader for this pipeline
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithInputLayout sets the vertex input layout explicitly instead of parsing it from the
// vertex shader.
//
// Parameters:
//   - layouts: one layout per vertex buffer slot
//
// Returns:
//   - PipelineBuilderOption: a function that sets the input layout for this pipeline
func WithInputLayout(layouts ...gputypes.VertexBufferLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.inputLayout = layouts
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode gputypes.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology gputypes.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the winding order considered front facing.
//
// Parameters:
//   - face: the front face winding
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(face gputypes.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = face
	}
}

// WithWriteMask sets the color write mask of the render target.
//
// Parameters:
//   - mask: the channels written
//
// Returns:
//   - PipelineBuilderOption: a function that sets the write mask for this pipeline
func WithWriteMask(mask gputypes.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = mask
	}
}

// WithBlendMode sets how fragment output combines with the render target.
//
// Parameters:
//   - mode: the blend mode
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend mode for this pipeline
func WithBlendMode(mode gpu.BlendMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendMode = mode
	}
}

// WithSampleCount sets the multisample count. Only 1 and 4 build.
//
// Parameters:
//   - count: the sample count
//
// Returns:
//   - PipelineBuilderOption: a function that sets the sample count for this pipeline
func WithSampleCount(count uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.sampleCount = count
	}
}
