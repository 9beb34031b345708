package shader

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
)

// ShaderType identifies the pipeline stage a shader feeds.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex stage, the source of the pipeline input layout.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment stage writing the render target.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// shader is the implementation of the Shader interface.
type shader struct {
	key           string
	shaderType    ShaderType
	source        string
	sourcePath    string
	entryPoint    string
	vertexLayouts []gputypes.VertexBufferLayout
	spirv         []byte

	pp PreProcessor
}

// Shader is a compiled WGSL shader stage. The source is pre-processed, its entry point and
// vertex input layout are parsed, and it is compiled to SPIR-V when created, so a Shader that
// exists is known to compile.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// ShaderType returns the stage of the shader.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// VertexLayouts returns the vertex buffer layout parsed from the vertex input struct.
	// Fragment shaders and vertex shaders without inputs return nil.
	//
	// Returns:
	//   - []gputypes.VertexBufferLayout: the parsed layout, one entry per buffer slot
	VertexLayouts() []gputypes.VertexBufferLayout

	// SPIRV returns the bytecode produced by the WGSL compiler.
	//
	// Returns:
	//   - []byte: SPIR-V words in little-endian byte order
	SPIRV() []byte

	// Stage returns the device level stage description handed to pipeline creation.
	//
	// Returns:
	//   - gpu.ShaderStage: label, source, bytecode and entry point
	Stage() gpu.ShaderStage
}

var _ Shader = &shader{}

// NewShader creates and compiles a shader. The source comes from WithSource or
// WithSourceFromPath; the entry point is parsed from the stage attribute unless WithEntryPoint
// overrides it.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the stage the shader feeds
//   - opts: functional options applied before parsing
//
// Returns:
//   - Shader: the compiled shader
//   - error: ErrPipelineCompile if the source is missing, cannot be read, has no entry point
//     or fails to compile
func NewShader(key string, shaderType ShaderType, opts ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:        key,
		shaderType: shaderType,
		pp:         NewPreProcessor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	common.Logger().Debug("shader compiled", "key", s.key, "stage", s.shaderType, "entry", s.entryPoint, "spirv_bytes", len(s.spirv))
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) VertexLayouts() []gputypes.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) SPIRV() []byte {
	return s.spirv
}

func (s *shader) Stage() gpu.ShaderStage {
	return gpu.ShaderStage{
		Label:      s.key,
		Source:     s.source,
		SPIRV:      s.spirv,
		EntryPoint: s.entryPoint,
	}
}

// load reads and pre-processes the source, then parses entry point and vertex layout.
func (s *shader) load() error {
	if s.sourcePath != "" {
		data, err := os.ReadFile(s.sourcePath)
		if err != nil {
			return gpu.NewError(gpu.ErrPipelineCompile, "NewShader", fmt.Errorf("%s: read %q: %w", s.key, s.sourcePath, err))
		}
		s.source = string(data)
	}
	if s.source == "" {
		return gpu.Errorf(gpu.ErrPipelineCompile, "NewShader", "%s: no source provided", s.key)
	}

	processed, err := s.pp.Process(s.source)
	if err != nil {
		return gpu.NewError(gpu.ErrPipelineCompile, "NewShader", fmt.Errorf("%s: %w", s.key, err))
	}
	s.source = processed

	cleaned := stripComments(s.source)
	if s.entryPoint == "" {
		s.entryPoint = parseEntryPoint(cleaned, s.shaderType)
	}
	if s.entryPoint == "" {
		return gpu.Errorf(gpu.ErrPipelineCompile, "NewShader", "%s: no @%s entry point", s.key, s.shaderType)
	}
	if s.shaderType == ShaderTypeVertex {
		s.vertexLayouts = parseVertexLayout(cleaned, s.entryPoint)
	}
	return nil
}

func (s *shader) compile() error {
	spirv, err := naga.Compile(s.source)
	if err != nil {
		return gpu.NewError(gpu.ErrPipelineCompile, "NewShader", fmt.Errorf("%s: compile: %w", s.key, err))
	}
	s.spirv = spirv
	return nil
}
