// package common contains plain types and helpers shared across the engine. They are not interface-wrapped structs,
// just plain structs that express commonly used data-types.
package common

import "math"

// Color is a linear RGBA color used for render target clears.
type Color struct {
	R, G, B, A float64
}

// Viewport describes the region of a render target that clip space maps to, in pixels.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// Rect is an integer pixel rectangle, used for scissor regions.
type Rect struct {
	X, Y          uint32
	Width, Height uint32
}

// ColorVertex is a vertex with a position followed by an RGBA color, laid out as
// POSITION float3 at offset 0 and COLOR float4 at offset 12.
type ColorVertex struct {
	Position [3]float32
	Color    [4]float32
}

// FullViewport returns a viewport covering width x height pixels with a [0, 1] depth range.
//
// Parameters:
//   - width: the render target width in pixels
//   - height: the render target height in pixels
//
// Returns:
//   - Viewport: the viewport covering the whole target
func FullViewport(width, height uint32) Viewport {
	return Viewport{
		Width:    float32(width),
		Height:   float32(height),
		MaxDepth: 1,
	}
}

// FullRect returns a scissor rectangle covering width x height pixels.
//
// Parameters:
//   - width: the render target width in pixels
//   - height: the render target height in pixels
//
// Returns:
//   - Rect: the rectangle covering the whole target
func FullRect(width, height uint32) Rect {
	return Rect{Width: width, Height: height}
}

// AspectRatio returns width / height, or 1 when height is zero.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - float32: the aspect ratio
func AspectRatio(width, height uint32) float32 {
	if height == 0 {
		return 1
	}
	return float32(width) / float32(height)
}

// Triangle returns the three vertices of a red, green, blue triangle centered at the origin.
// The vertical extent is scaled by the aspect ratio so the triangle keeps its shape on wide targets.
//
// Parameters:
//   - aspect: the render target aspect ratio (width / height)
//
// Returns:
//   - []ColorVertex: the triangle vertices in clockwise order
func Triangle(aspect float32) []ColorVertex {
	if aspect <= 0 || math.IsNaN(float64(aspect)) {
		aspect = 1
	}
	return []ColorVertex{
		{Position: [3]float32{0, 0.25 * aspect, 0}, Color: [4]float32{1, 0, 0, 1}},
		{Position: [3]float32{0.25, -0.25 * aspect, 0}, Color: [4]float32{0, 1, 0, 1}},
		{Position: [3]float32{-0.25, -0.25 * aspect, 0}, Color: [4]float32{0, 0, 1, 1}},
	}
}
