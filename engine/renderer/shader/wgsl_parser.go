package shader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
)

// wgslVertexFormatMap maps WGSL type names to their vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {gputypes.VertexFormatFloat32, 4},
	"vec2f":     {gputypes.VertexFormatFloat32x2, 8},
	"vec2<f32>": {gputypes.VertexFormatFloat32x2, 8},
	"vec3f":     {gputypes.VertexFormatFloat32x3, 12},
	"vec3<f32>": {gputypes.VertexFormatFloat32x3, 12},
	"vec4f":     {gputypes.VertexFormatFloat32x4, 16},
	"vec4<f32>": {gputypes.VertexFormatFloat32x4, 16},
	"u32":       {gputypes.VertexFormatUint32, 4},
	"i32":       {gputypes.VertexFormatSint32, 4},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field: optional attributes, name, colon, type
	fieldRegex = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)

	// entryRegexes match stage attributed functions and capture the entry point name
	entryRegexes = map[ShaderType]*regexp.Regexp{
		ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
		ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
	}
)

// parseVertexLayout extracts the vertex buffer layout consumed by the vertex entry point.
// The struct named in the entry point's parameter list wins; otherwise the first pure vertex
// input struct (only @location fields, no @builtin) is used. Structs with WGSL types that have
// no vertex format are skipped.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//   - entryPoint: the vertex entry point name, may be empty
//
// Returns:
//   - []gputypes.VertexBufferLayout: a single layout, or nil when the shader takes no vertex input
func parseVertexLayout(source, entryPoint string) []gputypes.VertexBufferLayout {
	structs := parseStructBlocks(source)
	candidates := make([]parsedStruct, 0, len(structs))
	for _, ps := range structs {
		if isVertexInputStruct(ps) {
			candidates = append(candidates, ps)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	pick := candidates[0]
	if params := entryParams(source, entryPoint); params != "" {
		for _, ps := range candidates {
			if regexp.MustCompile(`:\s*` + regexp.QuoteMeta(ps.name) + `\b`).MatchString(params) {
				pick = ps
				break
			}
		}
	}

	layout, ok := buildVertexBufferLayout(pick)
	if !ok {
		return nil
	}
	return []gputypes.VertexBufferLayout{layout}
}

// entryParams returns the raw parameter list of the named function, or "".
func entryParams(source, name string) string {
	if name == "" {
		return ""
	}
	re := regexp.MustCompile(`\bfn\s+` + regexp.QuoteMeta(name) + `\s*\(([^)]*)\)`)
	if m := re.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	return ""
}

// parseEntryPoint extracts the entry point function name for the given shader type
// from WGSL source. Returns an empty string if no matching entry point annotation is found.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//   - shaderType: the stage to search for
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, shaderType ShaderType) string {
	re, ok := entryRegexes[shaderType]
	if !ok {
		return ""
	}
	if match := re.FindStringSubmatch(source); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields splits a struct body into fields.
func parseStructFields(body string) []parsedField {
	parts := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(part)
		if fm == nil {
			continue
		}

		field := parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			location:  -1,
			isBuiltin: builtinRegex.MatchString(part),
		}
		if lm := locationRegex.FindStringSubmatch(part); lm != nil {
			if loc, err := strconv.Atoi(lm[1]); err == nil {
				field.location = loc
			}
		}
		fields = append(fields, field)
	}
	return fields
}
