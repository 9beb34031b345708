package gpu

import "github.com/Carmen-Shannon/oxy-frame/common"

// PassRecorder receives a command list regrouped into render passes. Backends whose native API
// encodes work inside render passes implement it and feed it through Replay.
type PassRecorder interface {
	Transition(tex Texture, before, after ResourceState) error
	BeginPass(target RenderTargetView, clear *common.Color) error
	EndPass() error
	SetPipeline(p RenderPipeline) error
	SetViewport(vp common.Viewport)
	SetScissor(r common.Rect)
	SetVertexBuffer(slot uint32, b Buffer) error
	Draw(d DrawCommand)
}

// passState tracks the bound state that has to be re-applied whenever a new pass opens.
type passState struct {
	target   RenderTargetView
	clear    *common.Color
	open     bool
	pipeline RenderPipeline
	viewport *common.Viewport
	scissor  *common.Rect
	buffers  map[uint32]Buffer
}

// Replay walks cmds in order and drives r. Passes are opened lazily on the first command that
// needs one and closed on barriers, render target changes, clears that follow draws, and at the
// end of the list. A pending clear with no following draw still opens and closes a pass.
//
// Parameters:
//   - cmds: the recorded command list
//   - r: the backend recorder
//
// Returns:
//   - error: ErrRecording for draws without a render target or pipeline, or the recorder's error
func Replay(cmds []Command, r PassRecorder) error {
	s := &passState{buffers: make(map[uint32]Buffer)}

	for _, c := range cmds {
		switch cmd := c.(type) {
		case BarrierCommand:
			if err := s.flush(r); err != nil {
				return err
			}
			if err := r.Transition(cmd.Texture, cmd.Before, cmd.After); err != nil {
				return err
			}
		case SetRenderTargetCommand:
			if err := s.flush(r); err != nil {
				return err
			}
			s.target = cmd.View
		case ClearCommand:
			if s.target == nil {
				return Errorf(ErrRecording, "Replay", "clear without a render target")
			}
			if s.open {
				if err := s.end(r); err != nil {
					return err
				}
			}
			color := cmd.Color
			s.clear = &color
		case SetPipelineCommand:
			s.pipeline = cmd.Pipeline
			if s.open {
				if err := r.SetPipeline(cmd.Pipeline); err != nil {
					return err
				}
			}
		case SetViewportCommand:
			vp := cmd.Viewport
			s.viewport = &vp
			if s.open {
				r.SetViewport(vp)
			}
		case SetScissorCommand:
			rect := cmd.Rect
			s.scissor = &rect
			if s.open {
				r.SetScissor(rect)
			}
		case SetVertexBufferCommand:
			s.buffers[cmd.Slot] = cmd.Buffer
			if s.open {
				if err := r.SetVertexBuffer(cmd.Slot, cmd.Buffer); err != nil {
					return err
				}
			}
		case DrawCommand:
			if s.target == nil {
				return Errorf(ErrRecording, "Replay", "draw without a render target")
			}
			if s.pipeline == nil {
				return Errorf(ErrRecording, "Replay", "draw without a pipeline")
			}
			if !s.open {
				if err := s.begin(r); err != nil {
					return err
				}
			}
			r.Draw(cmd)
		default:
			return Errorf(ErrRecording, "Replay", "unknown command %T", c)
		}
	}
	return s.flush(r)
}

func (s *passState) begin(r PassRecorder) error {
	if err := r.BeginPass(s.target, s.clear); err != nil {
		return err
	}
	s.open = true
	s.clear = nil
	if s.pipeline != nil {
		if err := r.SetPipeline(s.pipeline); err != nil {
			return err
		}
	}
	if s.viewport != nil {
		r.SetViewport(*s.viewport)
	}
	if s.scissor != nil {
		r.SetScissor(*s.scissor)
	}
	for slot, b := range s.buffers {
		if err := r.SetVertexBuffer(slot, b); err != nil {
			return err
		}
	}
	return nil
}

func (s *passState) end(r PassRecorder) error {
	s.open = false
	return r.EndPass()
}

// flush closes an open pass, or runs an empty pass for a clear that no draw consumed.
func (s *passState) flush(r PassRecorder) error {
	if !s.open && s.clear != nil {
		if err := s.begin(r); err != nil {
			return err
		}
	}
	if s.open {
		return s.end(r)
	}
	return nil
}
