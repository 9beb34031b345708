package headless

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/gogpu/gputypes"
)

func testConfig(n int) gpu.SurfaceConfig {
	return gpu.SurfaceConfig{
		Label:       "Test",
		Width:       64,
		Height:      32,
		BufferCount: n,
		Format:      gputypes.TextureFormatRGBA8Unorm,
		SampleCount: 1,
	}
}

func newTestDevice(t *testing.T, opts ...DeviceBuilderOption) Device {
	t.Helper()
	d, err := NewDevice(opts...)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	t.Cleanup(d.Destroy)
	return d
}

func frameCommands(t *testing.T, s gpu.Surface, index int) []gpu.Command {
	t.Helper()
	tex, err := s.Texture(index)
	if err != nil {
		t.Fatalf("Texture(%d) error = %v", index, err)
	}
	v, err := s.CreateView(index)
	if err != nil {
		t.Fatalf("CreateView(%d) error = %v", index, err)
	}
	return []gpu.Command{
		gpu.BarrierCommand{Texture: tex, Before: gpu.ResourceStatePresentable, After: gpu.ResourceStateRenderTarget},
		gpu.SetRenderTargetCommand{View: v},
		gpu.ClearCommand{Color: common.Color{B: 1, A: 1}},
		gpu.BarrierCommand{Texture: tex, Before: gpu.ResourceStateRenderTarget, After: gpu.ResourceStatePresentable},
	}
}

func TestAdapterSelection(t *testing.T) {
	tests := []struct {
		name          string
		adapters      []Adapter
		allowSoftware bool
		want          string
		wantErr       bool
	}{
		{
			name:     "discrete preferred",
			adapters: []Adapter{{"igpu", AdapterTypeIntegrated}, {"dgpu", AdapterTypeDiscrete}, {"warp", AdapterTypeSoftware}},
			want:     "dgpu",
		},
		{
			name:     "integrated over software",
			adapters: []Adapter{{"warp", AdapterTypeSoftware}, {"igpu", AdapterTypeIntegrated}},
			want:     "igpu",
		},
		{
			name:     "software skipped",
			adapters: []Adapter{{"warp", AdapterTypeSoftware}},
			wantErr:  true,
		},
		{
			name:          "software allowed",
			adapters:      []Adapter{{"warp", AdapterTypeSoftware}},
			allowSoftware: true,
			want:          "warp",
		},
		{
			name:    "no adapters",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDevice(WithAdapters(tt.adapters...), WithAllowSoftware(tt.allowSoftware))
			if tt.wantErr {
				if !errors.Is(err, gpu.ErrDeviceCreation) {
					t.Fatalf("NewDevice() error = %v, want ErrDeviceCreation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDevice() error = %v", err)
			}
			defer d.Destroy()
			if got := d.Adapter().Name; got != tt.want {
				t.Errorf("Adapter().Name = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubmitSignalAndWait(t *testing.T) {
	d := newTestDevice(t, WithLatency(time.Millisecond))
	s, err := d.CreateSurface(testConfig(2))
	if err != nil {
		t.Fatalf("CreateSurface() error = %v", err)
	}
	alloc, _ := d.CreateCommandAllocator("frame")
	f, _ := d.CreateFence()

	cb, err := alloc.Encode("frame 1", frameCommands(t, s, 0))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := d.Queue().Submit(cb); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := d.Queue().Signal(f, 1); err != nil {
		t.Fatalf("Signal() error = %v", err)
	}
	if err := f.Wait(t.Context(), 1); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := f.CompletedValue(); got != 1 {
		t.Errorf("CompletedValue() = %d, want 1", got)
	}
	if err := alloc.Reset(); err != nil {
		t.Errorf("Reset() after wait error = %v", err)
	}

	subs := d.Submissions()
	if len(subs) != 1 || subs[0].Label != "frame 1" || subs[0].Ordinal != 1 {
		t.Errorf("Submissions() = %+v", subs)
	}
	if v := d.Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v", v)
	}
}

func TestFrozenTimelineKeepsAllocatorBusy(t *testing.T) {
	d := newTestDevice(t, WithFrozenTimeline())
	s, _ := d.CreateSurface(testConfig(2))
	alloc, _ := d.CreateCommandAllocator("frame")
	f, _ := d.CreateFence()

	cb, _ := alloc.Encode("frame 1", frameCommands(t, s, 0))
	if err := d.Queue().Submit(cb); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	_ = d.Queue().Signal(f, 1)

	if err := alloc.Reset(); !errors.Is(err, gpu.ErrResourceBusy) {
		t.Fatalf("Reset() error = %v, want ErrResourceBusy", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	if err := f.Wait(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want deadline exceeded", err)
	}
	if got := f.CompletedValue(); got != 0 {
		t.Fatalf("CompletedValue() = %d while frozen, want 0", got)
	}

	d.SetFrozen(false)
	if err := f.Wait(t.Context(), 1); err != nil {
		t.Fatalf("Wait() after thaw error = %v", err)
	}
	if err := alloc.Reset(); err != nil {
		t.Errorf("Reset() after thaw error = %v", err)
	}
	if got := d.Stats().AllocatorResets; got != 1 {
		t.Errorf("AllocatorResets = %d, want 1", got)
	}
}

func TestResubmitRejected(t *testing.T) {
	d := newTestDevice(t)
	s, _ := d.CreateSurface(testConfig(2))
	alloc, _ := d.CreateCommandAllocator("frame")

	cb, _ := alloc.Encode("frame", frameCommands(t, s, 0))
	if err := d.Queue().Submit(cb); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := d.Queue().Submit(cb); !errors.Is(err, gpu.ErrRecording) {
		t.Errorf("second Submit() error = %v, want ErrRecording", err)
	}
}

func TestBarrierViolationDetected(t *testing.T) {
	d := newTestDevice(t)
	s, _ := d.CreateSurface(testConfig(2))
	alloc, _ := d.CreateCommandAllocator("frame")
	tex, _ := s.Texture(1)
	v, _ := s.CreateView(1)

	cmds := []gpu.Command{
		gpu.SetRenderTargetCommand{View: v},
		gpu.ClearCommand{},
		gpu.BarrierCommand{Texture: tex, Before: gpu.ResourceStateRenderTarget, After: gpu.ResourceStatePresentable},
	}
	cb, err := alloc.Encode("bad frame", cmds)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := d.Queue().Submit(cb); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := d.WaitIdle(t.Context()); err != nil {
		t.Fatalf("WaitIdle() error = %v", err)
	}

	violations := d.Violations()
	if len(violations) != 2 {
		t.Fatalf("Violations() = %v, want 2 entries", violations)
	}
	if !strings.Contains(violations[0], "Clear into") {
		t.Errorf("violations[0] = %q, want clear violation", violations[0])
	}
	if !strings.Contains(violations[1], "expects RenderTarget") {
		t.Errorf("violations[1] = %q, want barrier violation", violations[1])
	}
}

func TestDeviceLossAtSubmit(t *testing.T) {
	d := newTestDevice(t, WithDeviceLossAtSubmit(2))
	s, _ := d.CreateSurface(testConfig(2))
	alloc, _ := d.CreateCommandAllocator("frame")
	f, _ := d.CreateFence()

	cb, _ := alloc.Encode("frame 1", frameCommands(t, s, 0))
	if err := d.Queue().Submit(cb); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if err := d.WaitIdle(t.Context()); err != nil {
		t.Fatalf("WaitIdle() error = %v", err)
	}
	_ = alloc.Reset()

	cb, _ = alloc.Encode("frame 2", frameCommands(t, s, 1))
	err := d.Queue().Submit(cb)
	if !errors.Is(err, gpu.ErrDeviceLost) {
		t.Fatalf("second Submit() error = %v, want ErrDeviceLost", err)
	}
	if !d.Lost() {
		t.Fatal("Lost() = false after device loss")
	}
	if err := f.Wait(t.Context(), 5); !errors.Is(err, gpu.ErrDeviceLost) {
		t.Errorf("Wait() error = %v, want ErrDeviceLost", err)
	}
	if _, err := s.Present(1); !errors.Is(err, gpu.ErrDeviceLost) {
		t.Errorf("Present() error = %v, want ErrDeviceLost", err)
	}
	if _, err := d.CreateFence(); !errors.Is(err, gpu.ErrDeviceLost) {
		t.Errorf("CreateFence() error = %v, want ErrDeviceLost", err)
	}
}

func TestPresentOrder(t *testing.T) {
	tests := []struct {
		name  string
		opts  []DeviceBuilderOption
		count int
		want  []int
	}{
		{"round robin", nil, 3, []int{1, 2, 0, 1}},
		{"reversed", []DeviceBuilderOption{WithPresentOrder(func(p, n int) int { return p - 1 })}, 3, []int{2, 1, 0, 2}},
		{"initial index", []DeviceBuilderOption{WithInitialIndex(1)}, 2, []int{0, 1, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t, tt.opts...)
			s, _ := d.CreateSurface(testConfig(tt.count))
			for i, want := range tt.want {
				if _, err := s.AcquireIndex(); err != nil {
					t.Fatalf("AcquireIndex() error = %v", err)
				}
				got, err := s.Present(0)
				if err != nil {
					t.Fatalf("Present() error = %v", err)
				}
				if got != want {
					t.Errorf("present %d: next index = %d, want %d", i, got, want)
				}
				if acquired, _ := s.AcquireIndex(); acquired != got {
					t.Errorf("AcquireIndex() = %d, want %d", acquired, got)
				}
			}
		})
	}
}

func TestCreateRenderPipelineValidation(t *testing.T) {
	d := newTestDevice(t)
	tests := []struct {
		name    string
		desc    *gpu.RenderPipelineDescriptor
		wantErr bool
	}{
		{"nil", nil, true},
		{"no vertex entry", &gpu.RenderPipelineDescriptor{Fragment: gpu.ShaderStage{EntryPoint: "fs"}, SampleCount: 1}, true},
		{"bad samples", &gpu.RenderPipelineDescriptor{Vertex: gpu.ShaderStage{EntryPoint: "vs"}, Fragment: gpu.ShaderStage{EntryPoint: "fs"}, SampleCount: 3}, true},
		{"valid", &gpu.RenderPipelineDescriptor{Vertex: gpu.ShaderStage{EntryPoint: "vs"}, Fragment: gpu.ShaderStage{EntryPoint: "fs"}, SampleCount: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.CreateRenderPipeline(tt.desc)
			if tt.wantErr && !errors.Is(err, gpu.ErrPipelineCompile) {
				t.Errorf("CreateRenderPipeline() error = %v, want ErrPipelineCompile", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("CreateRenderPipeline() error = %v", err)
			}
		})
	}
}
