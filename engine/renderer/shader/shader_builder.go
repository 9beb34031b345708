package shader

// ShaderBuilderOption is a functional option for configuring a Shader.
type ShaderBuilderOption func(*shader)

// WithSource sets the WGSL source directly.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - ShaderBuilderOption: a function that applies the source option
func WithSource(source string) ShaderBuilderOption {
	return func(s *shader) {
		s.source = source
	}
}

// WithSourceFromPath reads the WGSL source from a file when the shader is created.
// It takes precedence over WithSource.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - ShaderBuilderOption: a function that applies the source path option
func WithSourceFromPath(path string) ShaderBuilderOption {
	return func(s *shader) {
		s.sourcePath = path
	}
}

// WithEntryPoint overrides the entry point parsed from the stage attribute.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - ShaderBuilderOption: a function that applies the entry point option
func WithEntryPoint(name string) ShaderBuilderOption {
	return func(s *shader) {
		s.entryPoint = name
	}
}

// WithInclude registers a WGSL snippet for the include pre-processor.
//
// Parameters:
//   - name: the include name
//   - source: the WGSL text injected for the name
//
// Returns:
//   - ShaderBuilderOption: a function that applies the include option
func WithInclude(name, source string) ShaderBuilderOption {
	return func(s *shader) {
		s.pp.Register(name, source)
	}
}
