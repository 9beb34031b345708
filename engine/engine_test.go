package engine

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu/headless"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/recording"
)

func headlessFactory(devOpts ...[]headless.DeviceBuilderOption) (RendererFactory, *atomic.Int32) {
	calls := &atomic.Int32{}
	return func() (renderer.Renderer, error) {
		n := int(calls.Add(1))
		var opts []headless.DeviceBuilderOption
		if n <= len(devOpts) {
			opts = devOpts[n-1]
		}
		d, err := headless.NewDevice(opts...)
		if err != nil {
			return nil, err
		}
		r, err := renderer.NewRenderer(renderer.WithOwnedDevice(d), renderer.WithSize(64, 64), renderer.WithSyncInterval(0))
		if err != nil {
			return nil, err
		}
		return r, nil
	}, calls
}

func runUntil(t *testing.T, e Engine, frames *atomic.Int32, want int32) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	deadline := time.After(5 * time.Second)
	for frames.Load() < want {
		select {
		case err := <-done:
			return err
		case <-deadline:
			e.Quit()
			<-done
			t.Fatalf("rendered %d frames before the deadline, want %d", frames.Load(), want)
		default:
			time.Sleep(time.Millisecond)
		}
	}
	e.Quit()
	return <-done
}

func TestNewEngineRequiresFactory(t *testing.T) {
	if _, err := NewEngine(nil); !errors.Is(err, gpu.ErrInvalidConfig) {
		t.Fatalf("NewEngine(nil) error = %v, want ErrInvalidConfig", err)
	}
}

func TestRunRendersUntilQuit(t *testing.T) {
	factory, _ := headlessFactory()
	var frames atomic.Int32
	e, err := NewEngine(factory,
		WithSyncInterval(0),
		WithRecordCallback(func(rec recording.Recorder) error {
			if rec == nil {
				return errors.New("nil recording context")
			}
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	e.SetRenderCallback(func(float32) { frames.Add(1) })

	if err := runUntil(t, e, &frames, 10); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if e.Renderer() != nil {
		t.Error("Run() should destroy the renderer on return")
	}
}

func TestRecordErrorDoesNotStopLoop(t *testing.T) {
	factory, _ := headlessFactory()
	var frames, calls atomic.Int32
	e, err := NewEngine(factory, WithSyncInterval(0))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	e.SetRecordCallback(func(rec recording.Recorder) error {
		if calls.Add(1) == 2 {
			return errors.New("record failed")
		}
		return nil
	})
	e.SetRenderCallback(func(float32) { frames.Add(1) })

	if err := runUntil(t, e, &frames, 5); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if e.Recoveries() != 0 {
		t.Errorf("Recoveries() = %d, want 0 for a non-fatal failure", e.Recoveries())
	}
}

func TestDeviceLossRebuildsRenderer(t *testing.T) {
	factory, calls := headlessFactory([]headless.DeviceBuilderOption{headless.WithDeviceLossAtSubmit(3)})
	var frames atomic.Int32
	e, err := NewEngine(factory, WithSyncInterval(0))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	first := e.Renderer()
	e.SetRenderCallback(func(float32) { frames.Add(1) })

	if err := runUntil(t, e, &frames, 6); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("factory calls = %d, want 2", got)
	}
	if e.Recoveries() != 1 {
		t.Errorf("Recoveries() = %d, want 1", e.Recoveries())
	}
	if !first.Poisoned() {
		t.Error("lost renderer should stay poisoned")
	}
}

func TestFactoryFailureStopsRun(t *testing.T) {
	healthy, _ := headlessFactory([]headless.DeviceBuilderOption{headless.WithDeviceLossAtSubmit(1)})
	var calls atomic.Int32
	factory := func() (renderer.Renderer, error) {
		if calls.Add(1) > 1 {
			return nil, gpu.Errorf(gpu.ErrDeviceCreation, "test", "no adapter")
		}
		return healthy()
	}
	e, err := NewEngine(factory)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Run() }()
	select {
	case err := <-done:
		if !errors.Is(err, gpu.ErrDeviceCreation) {
			t.Fatalf("Run() error = %v, want ErrDeviceCreation", err)
		}
	case <-time.After(5 * time.Second):
		e.Quit()
		t.Fatal("Run() did not stop after the factory failed")
	}
}

func TestApplyResize(t *testing.T) {
	factory, _ := headlessFactory()
	eng, err := NewEngine(factory)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	e := eng.(*engine)
	r := e.Renderer()
	defer r.Destroy()

	e.queueResize(0, 0)
	if err := e.applyResize(r); err != nil {
		t.Fatalf("applyResize() with a minimized size error = %v", err)
	}
	if got := r.Stats().Resizes; got != 0 {
		t.Errorf("Resizes after minimize = %d, want 0", got)
	}

	e.queueResize(100, 50)
	e.queueResize(128, 96)
	if err := e.applyResize(r); err != nil {
		t.Fatalf("applyResize() error = %v", err)
	}
	if got := r.Stats().Resizes; got != 1 {
		t.Errorf("Resizes = %d, want 1 (only the latest size applies)", got)
	}
	if vp := r.Viewport(); vp.Width != 128 || vp.Height != 96 {
		t.Errorf("Viewport() = %+v, want 128x96", vp)
	}
	if err := e.applyResize(r); err != nil || r.Stats().Resizes != 1 {
		t.Errorf("second applyResize() should be a no-op, err = %v resizes = %d", err, r.Stats().Resizes)
	}
}

func TestToggleSync(t *testing.T) {
	factory, _ := headlessFactory()
	eng, err := NewEngine(factory, WithSyncInterval(2))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	e := eng.(*engine)
	defer e.Renderer().Destroy()

	if got := e.Renderer().SyncInterval(); got != 2 {
		t.Fatalf("renderer SyncInterval() = %d, want the engine override 2", got)
	}
	e.toggleSync()
	if got := e.SyncInterval(); got != 0 {
		t.Errorf("SyncInterval() after toggle = %d, want 0", got)
	}
	if got := e.Renderer().SyncInterval(); got != 0 {
		t.Errorf("renderer SyncInterval() after toggle = %d, want 0", got)
	}
	e.toggleSync()
	if got := e.SyncInterval(); got != 1 {
		t.Errorf("SyncInterval() after second toggle = %d, want 1", got)
	}
}

func TestSyncIntervalFollowsRenderer(t *testing.T) {
	tests := []struct {
		name string
		opts []EngineBuilderOption
		set  int
		want int
	}{
		{"factory default", nil, -1, 0},
		{"engine override", []EngineBuilderOption{WithSyncInterval(3)}, -1, 3},
		{"negative override clamps", []EngineBuilderOption{WithSyncInterval(-2)}, -1, 0},
		{"set after construction", nil, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, _ := headlessFactory()
			eng, err := NewEngine(factory, tt.opts...)
			if err != nil {
				t.Fatalf("NewEngine() error = %v", err)
			}
			e := eng.(*engine)
			if tt.set >= 0 {
				e.SetSyncInterval(tt.set)
			}

			lost := e.Renderer()
			if err := e.rebuild(lost, gpu.Errorf(gpu.ErrDeviceLost, "test", "removed")); err != nil {
				t.Fatalf("rebuild() error = %v", err)
			}
			next := e.Renderer()
			defer next.Destroy()
			if next == lost {
				t.Fatal("rebuild() kept the lost renderer")
			}
			if got := next.SyncInterval(); got != tt.want {
				t.Errorf("recreated renderer SyncInterval() = %d, want %d", got, tt.want)
			}
			if got := e.SyncInterval(); got != tt.want {
				t.Errorf("SyncInterval() = %d, want %d", got, tt.want)
			}
		})
	}
}
