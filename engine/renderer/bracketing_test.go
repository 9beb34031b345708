package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/recording"
)

type stubTexture struct{ label string }

func (t *stubTexture) Label() string  { return t.label }
func (t *stubTexture) Width() uint32  { return 1 }
func (t *stubTexture) Height() uint32 { return 1 }

func TestCheckBracketing(t *testing.T) {
	back := &stubTexture{label: "back"}
	other := &stubTexture{label: "other"}
	toTarget := gpu.BarrierCommand{Texture: back, Before: gpu.ResourceStatePresentable, After: gpu.ResourceStateRenderTarget}
	toPresent := gpu.BarrierCommand{Texture: back, Before: gpu.ResourceStateRenderTarget, After: gpu.ResourceStatePresentable}
	draw := gpu.DrawCommand{VertexCount: 3, InstanceCount: 1}
	clear := gpu.ClearCommand{}

	tests := []struct {
		name    string
		cmds    []gpu.Command
		wantErr bool
	}{
		{"bracketed", []gpu.Command{toTarget, clear, draw, toPresent}, false},
		{"no draws", []gpu.Command{toTarget, toPresent}, false},
		{"other texture ignored", []gpu.Command{toTarget, gpu.BarrierCommand{Texture: other, Before: gpu.ResourceStatePresentable, After: gpu.ResourceStateRenderTarget}, draw, toPresent}, false},
		{"missing open", []gpu.Command{draw, toPresent}, true},
		{"missing close", []gpu.Command{toTarget, draw}, true},
		{"draw after close", []gpu.Command{toTarget, toPresent, draw}, true},
		{"clear before open", []gpu.Command{clear, toTarget, draw, toPresent}, true},
		{"second close", []gpu.Command{toTarget, toPresent, toPresent}, true},
		{"reopened", []gpu.Command{toTarget, toPresent, toTarget, draw, toPresent}, true},
		{"early present then draw", []gpu.Command{toTarget, toPresent, draw, toPresent}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkBracketing(tt.cmds, back)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkBracketing() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, gpu.ErrRecording) {
				t.Errorf("checkBracketing() error = %v, want ErrRecording", err)
			}
		})
	}
}

func TestSubmitRejectsForeignBarrier(t *testing.T) {
	r, d := newTestRenderer(t, nil)
	draw := drawTriangle(t, d)

	if err := r.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	tex := r.RenderTarget().Texture()
	rec, ok := r.Recorder().(recording.Context)
	if !ok {
		t.Fatalf("Recorder() is %T, want a recording.Context underneath", r.Recorder())
	}
	if err := rec.Barrier(tex, gpu.ResourceStateRenderTarget, gpu.ResourceStatePresentable); err != nil {
		t.Fatalf("Barrier() error = %v", err)
	}
	if err := draw(rec); err != nil {
		t.Fatalf("draw error = %v", err)
	}

	if err := r.Submit(); !errors.Is(err, gpu.ErrRecording) {
		t.Fatalf("Submit() error = %v, want ErrRecording", err)
	}
	if !r.Poisoned() {
		t.Error("renderer not poisoned after a broken bracket")
	}
	if n := len(d.Submissions()); n != 0 {
		t.Errorf("len(Submissions()) = %d, want 0", n)
	}

	if err := r.WaitForCompletion(); err != nil {
		t.Fatalf("WaitForCompletion() error = %v", err)
	}
	if err := r.RenderFrame(0, draw); err != nil {
		t.Fatalf("RenderFrame() after recovery error = %v", err)
	}
	if v := d.Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v", v)
	}
}
