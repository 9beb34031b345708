package shader

import (
	"strings"

	"github.com/gogpu/gputypes"
)

// stripComments removes block comments, then line comments.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

// stripLineComments truncates every line at its first "//".
func stripLineComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes /* */ comments. WGSL block comments nest.
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch source[i : i+2] {
			case "/*":
				depth++
				i++
				continue
			case "*/":
				if depth > 0 {
					depth--
					i++
					continue
				}
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// isVertexInputStruct reports whether every field is a @location input and none is a builtin.
func isVertexInputStruct(ps parsedStruct) bool {
	if len(ps.fields) == 0 {
		return false
	}
	for _, f := range ps.fields {
		if f.isBuiltin || f.location < 0 {
			return false
		}
	}
	return true
}

// buildVertexBufferLayout packs the struct fields in declaration order into one interleaved
// per-vertex buffer.
func buildVertexBufferLayout(ps parsedStruct) (gputypes.VertexBufferLayout, bool) {
	attrs := make([]gputypes.VertexAttribute, 0, len(ps.fields))
	var offset uint64
	for _, f := range ps.fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return gputypes.VertexBufferLayout{}, false
		}
		attrs = append(attrs, gputypes.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += info.size
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}

// splitAtTopLevelCommas splits s at commas outside of <...> type parameters.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// VertexFormatSize returns the byte size of a vertex format, or 0 if it is not one this
// package maps from WGSL.
func VertexFormatSize(format gputypes.VertexFormat) uint64 {
	for _, info := range wgslVertexFormatMap {
		if info.format == format {
			return info.size
		}
	}
	return 0
}
