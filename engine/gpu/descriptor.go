package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// MinBufferCount is the smallest number of textures a swap chain ring may hold.
const MinBufferCount = 2

// SurfaceConfig describes a ring of presentable textures.
type SurfaceConfig struct {
	Label       string
	Width       uint32
	Height      uint32
	BufferCount int
	Format      gputypes.TextureFormat
	SampleCount uint32
	PresentMode PresentMode
}

// Validate checks the configuration against the limits every backend shares.
//
// Returns:
//   - error: ErrInvalidConfig describing the first invalid field, nil otherwise
func (c SurfaceConfig) Validate() error {
	switch {
	case c.Width == 0 || c.Height == 0:
		return Errorf(ErrInvalidConfig, "SurfaceConfig.Validate", "size %dx%d must be non-zero", c.Width, c.Height)
	case c.BufferCount < MinBufferCount:
		return Errorf(ErrInvalidConfig, "SurfaceConfig.Validate", "buffer count %d is below %d", c.BufferCount, MinBufferCount)
	case c.Format == gputypes.TextureFormatUndefined:
		return Errorf(ErrInvalidConfig, "SurfaceConfig.Validate", "format is undefined")
	case c.SampleCount != 1:
		return Errorf(ErrInvalidConfig, "SurfaceConfig.Validate", "presentable surfaces must have sample count 1, got %d", c.SampleCount)
	}
	return nil
}

func (c SurfaceConfig) String() string {
	return fmt.Sprintf("%dx%d x%d %s", c.Width, c.Height, c.BufferCount, c.PresentMode)
}

// BlendMode selects the color blend equation of a pipeline's single render target.
type BlendMode int

const (
	// BlendModeOpaque writes source color unchanged.
	BlendModeOpaque BlendMode = iota

	// BlendModeAlpha blends straight (non-premultiplied) alpha.
	BlendModeAlpha

	// BlendModePremultiplied blends premultiplied alpha.
	BlendModePremultiplied
)

// ShaderStage is one compiled programmable stage.
type ShaderStage struct {
	Label      string
	Source     string
	SPIRV      []byte
	EntryPoint string
}

// RenderPipelineDescriptor is everything a backend needs to compile a render pipeline.
// The binding layout is always empty.
type RenderPipelineDescriptor struct {
	Label         string
	Vertex        ShaderStage
	Fragment      ShaderStage
	VertexBuffers []gputypes.VertexBufferLayout
	Topology      gputypes.PrimitiveTopology
	CullMode      gputypes.CullMode
	FrontFace     gputypes.FrontFace
	WriteMask     gputypes.ColorWriteMask
	Blend         BlendMode
	TargetFormat  gputypes.TextureFormat
	SampleCount   uint32
}
