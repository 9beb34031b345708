package shader

import "github.com/gogpu/gputypes"

// vertexFormatInfo holds the vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format gputypes.VertexFormat
	size   uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}
