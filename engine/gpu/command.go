package gpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/common"
)

// Command is one entry of a recorded command list. The set of commands is closed; backends
// translate each concrete type into native calls when a list is encoded.
type Command interface {
	// Name returns a short human readable name for logs and validation messages.
	Name() string

	command()
}

// BarrierCommand transitions Texture from Before to After.
type BarrierCommand struct {
	Texture Texture
	Before  ResourceState
	After   ResourceState
}

// SetPipelineCommand binds a render pipeline for subsequent draws.
type SetPipelineCommand struct {
	Pipeline RenderPipeline
}

// SetRenderTargetCommand binds the color attachment for subsequent clears and draws.
type SetRenderTargetCommand struct {
	View RenderTargetView
}

// ClearCommand clears the bound render target.
type ClearCommand struct {
	Color common.Color
}

// SetViewportCommand sets the viewport for subsequent draws.
type SetViewportCommand struct {
	Viewport common.Viewport
}

// SetScissorCommand sets the scissor rectangle for subsequent draws.
type SetScissorCommand struct {
	Rect common.Rect
}

// SetVertexBufferCommand binds Buffer to vertex input Slot.
type SetVertexBufferCommand struct {
	Slot   uint32
	Buffer Buffer
}

// DrawCommand draws non-indexed primitives.
type DrawCommand struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

func (c BarrierCommand) Name() string {
	label := "<nil>"
	if c.Texture != nil {
		label = c.Texture.Label()
	}
	return fmt.Sprintf("Barrier(%s %s->%s)", label, c.Before, c.After)
}
func (SetPipelineCommand) Name() string     { return "SetPipeline" }
func (SetRenderTargetCommand) Name() string { return "SetRenderTarget" }
func (ClearCommand) Name() string           { return "Clear" }
func (SetViewportCommand) Name() string     { return "SetViewport" }
func (SetScissorCommand) Name() string      { return "SetScissor" }
func (SetVertexBufferCommand) Name() string { return "SetVertexBuffer" }
func (c DrawCommand) Name() string {
	return fmt.Sprintf("Draw(%d,%d)", c.VertexCount, c.InstanceCount)
}

func (BarrierCommand) command()         {}
func (SetPipelineCommand) command()     {}
func (SetRenderTargetCommand) command() {}
func (ClearCommand) command()           {}
func (SetViewportCommand) command()     {}
func (SetScissorCommand) command()      {}
func (SetVertexBufferCommand) command() {}
func (DrawCommand) command()            {}
