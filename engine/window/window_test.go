package window

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []WindowBuilderOption
		wantErr bool
	}{
		{"defaults", nil, false},
		{"custom size", []WindowBuilderOption{WithTitle("Test"), WithSize(800, 600)}, false},
		{"zero width", []WindowBuilderOption{WithSize(0, 600)}, true},
		{"negative height", []WindowBuilderOption{WithSize(800, -1)}, true},
		{"empty title", []WindowBuilderOption{WithTitle("")}, true},
		{"negative min size", []WindowBuilderOption{WithMinSize(-1, 240)}, true},
		{"zero max size", []WindowBuilderOption{WithMaxSize(3840, 0)}, true},
		{"min above max", []WindowBuilderOption{WithMinSize(800, 240), WithMaxSize(640, 2160)}, true},
		{"size above max", []WindowBuilderOption{WithSize(4096, 720)}, true},
		{"size below min", []WindowBuilderOption{WithSize(100, 100)}, true},
		{"tight limits", []WindowBuilderOption{WithMinSize(640, 480), WithMaxSize(640, 480), WithSize(640, 480)}, false},
		{"rejected option is not undone", []WindowBuilderOption{WithSize(0, 0), WithSize(800, 600)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &engineWindow{title: "oxy-frame", width: 1280, height: 720, minWidth: 320, minHeight: 240, maxWidth: 3840, maxHeight: 2160}
			for _, opt := range tt.opts {
				opt(w)
			}
			err := w.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, gpu.ErrInvalidConfig) {
				t.Errorf("validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRejectedOptionKeepsDefaults(t *testing.T) {
	w := &engineWindow{title: "oxy-frame", width: 1280, height: 720}
	WithSize(-5, 600)(w)
	WithTitle("")(w)
	if w.width != 1280 || w.height != 720 || w.title != "oxy-frame" {
		t.Errorf("rejected options changed the window to %q %dx%d", w.title, w.width, w.height)
	}
	if len(w.optErrs) != 2 {
		t.Errorf("len(optErrs) = %d, want 2", len(w.optErrs))
	}
}

func TestMinimized(t *testing.T) {
	w := &engineWindow{width: 1280, height: 720}
	if w.Minimized() {
		t.Error("1280x720 window reported minimized")
	}
	w.width = 0
	if !w.Minimized() {
		t.Error("zero-width window not reported minimized")
	}
}
