package pipeline

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/gogpu/gputypes"
)

// validate checks the configuration before any device call.
func (p *pipeline) validate(format gputypes.TextureFormat) error {
	const op = "Pipeline.Build"
	switch {
	case p.vertexShader == nil:
		return gpu.Errorf(gpu.ErrPipelineCompile, op, "%s: no vertex shader", p.pipelineKey)
	case p.fragmentShader == nil:
		return gpu.Errorf(gpu.ErrPipelineCompile, op, "%s: no fragment shader", p.pipelineKey)
	case p.vertexShader.ShaderType() != shader.ShaderTypeVertex:
		return gpu.Errorf(gpu.ErrPipelineCompile, op, "%s: vertex slot holds a %s shader", p.pipelineKey, p.vertexShader.ShaderType())
	case p.fragmentShader.ShaderType() != shader.ShaderTypeFragment:
		return gpu.Errorf(gpu.ErrPipelineCompile, op, "%s: fragment slot holds a %s shader", p.pipelineKey, p.fragmentShader.ShaderType())
	case p.sampleCount != 1 && p.sampleCount != 4:
		return gpu.Errorf(gpu.ErrPipelineCompile, op, "%s: sample count %d is not 1 or 4", p.pipelineKey, p.sampleCount)
	case format == gputypes.TextureFormatUndefined:
		return gpu.Errorf(gpu.ErrPipelineCompile, op, "%s: render target format is undefined", p.pipelineKey)
	case p.blendMode < gpu.BlendModeOpaque || p.blendMode > gpu.BlendModePremultiplied:
		return gpu.Errorf(gpu.ErrPipelineCompile, op, "%s: unknown blend mode %d", p.pipelineKey, p.blendMode)
	}
	return validateInputLayout(p.pipelineKey, p.InputLayout())
}

// validateInputLayout requires unique shader locations, known formats, and attributes that fit
// inside the buffer stride.
func validateInputLayout(key string, layouts []gputypes.VertexBufferLayout) error {
	const op = "Pipeline.Build"
	seen := make(map[uint32]bool)
	for slot, l := range layouts {
		for _, a := range l.Attributes {
			size := shader.VertexFormatSize(a.Format)
			if size == 0 {
				return gpu.Errorf(gpu.ErrPipelineCompile, op, "%s: slot %d location %d has unsupported format %v", key, slot, a.ShaderLocation, a.Format)
			}
			if seen[a.ShaderLocation] {
				return gpu.Errorf(gpu.ErrPipelineCompile, op, "%s: location %d is bound twice", key, a.ShaderLocation)
			}
			seen[a.ShaderLocation] = true
			if l.ArrayStride > 0 && a.Offset+size > l.ArrayStride {
				return gpu.Errorf(gpu.ErrPipelineCompile, op, "%s: location %d at offset %d overruns stride %d", key, a.ShaderLocation, a.Offset, l.ArrayStride)
			}
		}
	}
	return nil
}
