// pre_processor.go implements the WGSL include pre-processor. A line of the form
//
//	//@oxy:include <name>
//
// is replaced with the registered WGSL source for <name>. The built-in registry holds the
// VertexInput struct matching common.ColorVertex so shaders and the vertex buffer share one
// layout definition.
package shader

import (
	_ "embed"
	"fmt"
	"strings"
)

// annotationPrefix marks an include directive inside a WGSL line comment.
const annotationPrefix = "@oxy:include"

// VertexInputSource is the WGSL VertexInput struct for common.ColorVertex: position at
// location 0, color at location 1, 28 bytes per vertex.
//
//go:embed assets/vertex.wgsl
var VertexInputSource string

// TriangleSource is the default colored triangle shader with vs_main and fs_main entry points.
//
//go:embed assets/triangle.wgsl
var TriangleSource string

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	registry map[string]string
	included []string
}

// PreProcessor expands include directives in WGSL source.
type PreProcessor interface {
	// Register adds or replaces a named WGSL snippet.
	//
	// Parameters:
	//   - name: the include name used after the directive
	//   - source: the WGSL text injected in place of the directive
	Register(name, source string)

	// Process replaces every include directive with its registered source. Each name is
	// injected at most once; repeated directives for the same name expand to nothing.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error if a directive is malformed or names an unknown snippet
	Process(source string) (string, error)

	// Included returns the names injected by the most recent Process call, in source order.
	//
	// Returns:
	//   - []string: the included snippet names
	Included() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the built-in "vertex" snippet registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		registry: map[string]string{
			"vertex": VertexInputSource,
		},
	}
}

func (p *preProcessor) Register(name, source string) {
	p.registry[name] = source
}

func (p *preProcessor) Process(source string) (string, error) {
	p.included = p.included[:0]
	seen := make(map[string]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		name, ok, err := parseInclude(line)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", i+1, err)
		}
		if !ok {
			out = append(out, line)
			continue
		}
		snippet, known := p.registry[name]
		if !known {
			return "", fmt.Errorf("line %d: unknown include %q", i+1, name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		p.included = append(p.included, name)
		out = append(out, strings.TrimRight(snippet, "\n"))
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Included() []string {
	return p.included
}

// parseInclude reports the include name on line, if line is an include directive.
func parseInclude(line string) (string, bool, error) {
	trimmed := strings.TrimSpace(line)
	body, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return "", false, nil
	}
	body = strings.TrimSpace(body)
	rest, ok := strings.CutPrefix(body, annotationPrefix)
	if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
		return "", false, nil
	}
	args := strings.Fields(rest)
	if len(args) != 1 {
		return "", false, fmt.Errorf("include expects exactly one name, got %d", len(args))
	}
	return args[0], true, nil
}
