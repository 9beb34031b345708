package gpu

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/gogpu/gputypes"
)

type fakeTexture struct{ label string }

func (t *fakeTexture) Label() string  { return t.label }
func (t *fakeTexture) Width() uint32  { return 4 }
func (t *fakeTexture) Height() uint32 { return 4 }

type fakeView struct{ tex *fakeTexture }

func (v *fakeView) Label() string    { return v.tex.label + " view" }
func (v *fakeView) Texture() Texture { return v.tex }
func (v *fakeView) Destroy()         {}

type fakePipeline struct{}

func (fakePipeline) Label() string { return "pso" }
func (fakePipeline) Destroy()      {}

type fakeBuffer struct{}

func (fakeBuffer) Label() string { return "vb" }
func (fakeBuffer) Size() uint64  { return 84 }
func (fakeBuffer) Destroy()      {}

type traceRecorder struct {
	calls []string
}

func (r *traceRecorder) Transition(tex Texture, before, after ResourceState) error {
	r.calls = append(r.calls, fmt.Sprintf("transition %s %s->%s", tex.Label(), before, after))
	return nil
}
func (r *traceRecorder) BeginPass(target RenderTargetView, clear *common.Color) error {
	if clear != nil {
		r.calls = append(r.calls, "begin clear "+target.Label())
	} else {
		r.calls = append(r.calls, "begin load "+target.Label())
	}
	return nil
}
func (r *traceRecorder) EndPass() error { r.calls = append(r.calls, "end"); return nil }
func (r *traceRecorder) SetPipeline(RenderPipeline) error {
	r.calls = append(r.calls, "pipeline")
	return nil
}
func (r *traceRecorder) SetViewport(common.Viewport) { r.calls = append(r.calls, "viewport") }
func (r *traceRecorder) SetScissor(common.Rect)      { r.calls = append(r.calls, "scissor") }
func (r *traceRecorder) SetVertexBuffer(uint32, Buffer) error {
	r.calls = append(r.calls, "vertex buffer")
	return nil
}
func (r *traceRecorder) Draw(d DrawCommand) {
	r.calls = append(r.calls, fmt.Sprintf("draw %d", d.VertexCount))
}

func TestReplayGroupsPasses(t *testing.T) {
	tex := &fakeTexture{label: "back0"}
	view := &fakeView{tex: tex}

	tests := []struct {
		name string
		cmds []Command
		want []string
	}{
		{
			name: "frame with draw",
			cmds: []Command{
				BarrierCommand{Texture: tex, Before: ResourceStatePresentable, After: ResourceStateRenderTarget},
				SetRenderTargetCommand{View: view},
				ClearCommand{Color: common.Color{A: 1}},
				SetViewportCommand{Viewport: common.FullViewport(4, 4)},
				SetScissorCommand{Rect: common.FullRect(4, 4)},
				SetPipelineCommand{Pipeline: fakePipeline{}},
				SetVertexBufferCommand{Slot: 0, Buffer: fakeBuffer{}},
				DrawCommand{VertexCount: 3, InstanceCount: 1},
				BarrierCommand{Texture: tex, Before: ResourceStateRenderTarget, After: ResourceStatePresentable},
			},
			want: []string{
				"transition back0 Presentable->RenderTarget",
				"begin clear back0 view", "pipeline", "viewport", "scissor", "vertex buffer",
				"draw 3",
				"end",
				"transition back0 RenderTarget->Presentable",
			},
		},
		{
			name: "clear only",
			cmds: []Command{
				BarrierCommand{Texture: tex, Before: ResourceStatePresentable, After: ResourceStateRenderTarget},
				SetRenderTargetCommand{View: view},
				ClearCommand{},
				BarrierCommand{Texture: tex, Before: ResourceStateRenderTarget, After: ResourceStatePresentable},
			},
			want: []string{
				"transition back0 Presentable->RenderTarget",
				"begin clear back0 view",
				"end",
				"transition back0 RenderTarget->Presentable",
			},
		},
		{
			name: "clear after draw splits the pass",
			cmds: []Command{
				SetRenderTargetCommand{View: view},
				SetPipelineCommand{Pipeline: fakePipeline{}},
				DrawCommand{VertexCount: 3},
				ClearCommand{},
				DrawCommand{VertexCount: 6},
			},
			want: []string{
				"begin load back0 view", "pipeline", "draw 3", "end",
				"begin clear back0 view", "pipeline", "draw 6", "end",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &traceRecorder{}
			if err := Replay(tt.cmds, r); err != nil {
				t.Fatalf("Replay() error = %v", err)
			}
			if !reflect.DeepEqual(r.calls, tt.want) {
				t.Errorf("calls =\n%v\nwant\n%v", r.calls, tt.want)
			}
		})
	}
}

func TestReplayRejectsInvalidLists(t *testing.T) {
	view := &fakeView{tex: &fakeTexture{label: "back0"}}
	tests := []struct {
		name string
		cmds []Command
	}{
		{"draw without target", []Command{SetPipelineCommand{Pipeline: fakePipeline{}}, DrawCommand{VertexCount: 3}}},
		{"draw without pipeline", []Command{SetRenderTargetCommand{View: view}, DrawCommand{VertexCount: 3}}},
		{"clear without target", []Command{ClearCommand{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Replay(tt.cmds, &traceRecorder{})
			if !errors.Is(err, ErrRecording) {
				t.Errorf("Replay() error = %v, want ErrRecording", err)
			}
		})
	}
}

func TestSurfaceConfigValidate(t *testing.T) {
	valid := SurfaceConfig{Width: 800, Height: 600, BufferCount: 3, Format: gputypes.TextureFormatRGBA8Unorm, SampleCount: 1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*SurfaceConfig)
	}{
		{"zero width", func(c *SurfaceConfig) { c.Width = 0 }},
		{"zero height", func(c *SurfaceConfig) { c.Height = 0 }},
		{"one buffer", func(c *SurfaceConfig) { c.BufferCount = 1 }},
		{"undefined format", func(c *SurfaceConfig) { c.Format = gputypes.TextureFormatUndefined }},
		{"multisampled", func(c *SurfaceConfig) { c.SampleCount = 4 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
