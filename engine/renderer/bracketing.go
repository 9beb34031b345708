package renderer

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// checkBracketing verifies that a frame's command list moves the back buffer tex into
// RenderTarget exactly once before any clear or draw and back to Presentable exactly once
// after the last one, with no other transition of tex in between.
func checkBracketing(cmds []gpu.Command, tex gpu.Texture) error {
	const op = "Renderer.Submit"
	open, closed := -1, -1
	for i, cmd := range cmds {
		switch c := cmd.(type) {
		case gpu.BarrierCommand:
			if c.Texture != tex {
				continue
			}
			switch {
			case open < 0 && c.Before == gpu.ResourceStatePresentable && c.After == gpu.ResourceStateRenderTarget:
				open = i
			case open >= 0 && closed < 0 && c.Before == gpu.ResourceStateRenderTarget && c.After == gpu.ResourceStatePresentable:
				closed = i
			default:
				return gpu.Errorf(gpu.ErrRecording, op, "unexpected %s->%s barrier on %s at command %d", c.Before, c.After, tex.Label(), i)
			}
		case gpu.ClearCommand, gpu.DrawCommand:
			if open < 0 || closed >= 0 {
				return gpu.Errorf(gpu.ErrRecording, op, "%T at command %d is outside the RenderTarget bracket of %s", cmd, i, tex.Label())
			}
		}
	}
	if open < 0 || closed < 0 {
		return gpu.Errorf(gpu.ErrRecording, op, "%s is not bracketed Presentable->RenderTarget->Presentable", tex.Label())
	}
	return nil
}
