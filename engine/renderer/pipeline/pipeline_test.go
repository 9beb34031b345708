package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu/headless"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/gogpu/gputypes"
)

func newDevice(t *testing.T) headless.Device {
	t.Helper()
	d, err := headless.NewDevice()
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	t.Cleanup(d.Destroy)
	return d
}

func triangleShaders(t *testing.T) (shader.Shader, shader.Shader) {
	t.Helper()
	vs, err := shader.NewShader("vs", shader.ShaderTypeVertex, shader.WithSource(shader.TriangleSource))
	if err != nil {
		t.Fatalf("NewShader(vs) error = %v", err)
	}
	fs, err := shader.NewShader("fs", shader.ShaderTypeFragment, shader.WithSource(shader.TriangleSource))
	if err != nil {
		t.Fatalf("NewShader(fs) error = %v", err)
	}
	return vs, fs
}

func TestBuildTriangle(t *testing.T) {
	d := newDevice(t)
	p, err := NewTrianglePipeline("triangle", WithBlendMode(gpu.BlendModeAlpha))
	if err != nil {
		t.Fatalf("NewTrianglePipeline() error = %v", err)
	}
	if p.Built() || p.RenderPipeline() != nil {
		t.Fatal("pipeline reports built before Build")
	}
	if err := p.Build(d, gputypes.TextureFormatRGBA8Unorm); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer p.Destroy()

	if !p.Built() || p.RenderPipeline() == nil {
		t.Fatal("Build() succeeded but pipeline is not built")
	}
	if p.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format() = %v, want RGBA8Unorm", p.Format())
	}
	if p.RenderPipeline().Label() != "triangle" {
		t.Errorf("RenderPipeline().Label() = %q, want triangle", p.RenderPipeline().Label())
	}
	if got := p.InputLayout(); len(got) != 1 || got[0].ArrayStride != 28 {
		t.Errorf("InputLayout() = %+v, want one 28 byte layout", got)
	}

	if err := p.Build(d, gputypes.TextureFormatBGRA8Unorm); !errors.Is(err, gpu.ErrPipelineCompile) {
		t.Fatalf("second Build() error = %v, want ErrPipelineCompile", err)
	}
	if p.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Error("second Build() changed the pipeline format")
	}
}

func TestBuildValidation(t *testing.T) {
	d := newDevice(t)
	vs, fs := triangleShaders(t)

	tests := []struct {
		name   string
		format gputypes.TextureFormat
		opts   []PipelineBuilderOption
	}{
		{"no vertex shader", gputypes.TextureFormatRGBA8Unorm, []PipelineBuilderOption{WithFragmentShader(fs)}},
		{"no fragment shader", gputypes.TextureFormatRGBA8Unorm, []PipelineBuilderOption{WithVertexShader(vs)}},
		{"swapped stages", gputypes.TextureFormatRGBA8Unorm, []PipelineBuilderOption{WithVertexShader(fs), WithFragmentShader(vs)}},
		{"sample count 2", gputypes.TextureFormatRGBA8Unorm, []PipelineBuilderOption{WithVertexShader(vs), WithFragmentShader(fs), WithSampleCount(2)}},
		{"undefined format", gputypes.TextureFormatUndefined, []PipelineBuilderOption{WithVertexShader(vs), WithFragmentShader(fs)}},
		{"unknown blend", gputypes.TextureFormatRGBA8Unorm, []PipelineBuilderOption{WithVertexShader(vs), WithFragmentShader(fs), WithBlendMode(gpu.BlendMode(7))}},
		{"duplicate location", gputypes.TextureFormatRGBA8Unorm, []PipelineBuilderOption{
			WithVertexShader(vs), WithFragmentShader(fs),
			WithInputLayout(gputypes.VertexBufferLayout{
				ArrayStride: 28,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: gputypes.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 0},
				},
			}),
		}},
		{"attribute overruns stride", gputypes.TextureFormatRGBA8Unorm, []PipelineBuilderOption{
			WithVertexShader(vs), WithFragmentShader(fs),
			WithInputLayout(gputypes.VertexBufferLayout{
				ArrayStride: 16,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: gputypes.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 1},
				},
			}),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(tt.name, tt.opts...)
			if err := p.Build(d, tt.format); !errors.Is(err, gpu.ErrPipelineCompile) {
				t.Fatalf("Build() error = %v, want ErrPipelineCompile", err)
			}
			if p.Built() {
				t.Error("failed Build() left the pipeline built")
			}
		})
	}
}

func TestBuildOnLostDevice(t *testing.T) {
	d := newDevice(t)
	p, err := NewTrianglePipeline("triangle")
	if err != nil {
		t.Fatalf("NewTrianglePipeline() error = %v", err)
	}
	d.Lose("test")
	if err := p.Build(d, gputypes.TextureFormatRGBA8Unorm); !errors.Is(err, gpu.ErrDeviceLost) {
		t.Fatalf("Build() error = %v, want ErrDeviceLost", err)
	}
	if p.Built() {
		t.Error("pipeline built on a lost device")
	}
}

func TestDescriptorCarriesFixedFunctionState(t *testing.T) {
	vs, fs := triangleShaders(t)
	p := NewPipeline("state",
		WithVertexShader(vs),
		WithFragmentShader(fs),
		WithBlendMode(gpu.BlendModePremultiplied),
		WithWriteMask(gputypes.ColorWriteMaskNone),
		WithSampleCount(4),
	)
	desc, err := p.Descriptor(gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("Descriptor() error = %v", err)
	}
	if desc.Blend != gpu.BlendModePremultiplied || desc.WriteMask != gputypes.ColorWriteMaskNone || desc.SampleCount != 4 {
		t.Errorf("Descriptor() = %+v", desc)
	}
	if desc.CullMode != gputypes.CullModeNone || desc.Topology != gputypes.PrimitiveTopologyTriangleList {
		t.Errorf("defaults not applied: cull=%v topology=%v", desc.CullMode, desc.Topology)
	}
	if desc.Vertex.EntryPoint != "vs_main" || desc.Fragment.EntryPoint != "fs_main" {
		t.Errorf("entry points = %q/%q", desc.Vertex.EntryPoint, desc.Fragment.EntryPoint)
	}
}

func TestRegistryBuildAll(t *testing.T) {
	d := newDevice(t)
	vs, fs := triangleShaders(t)
	r := NewRegistry(WithWorkers(3))
	defer r.Destroy()

	const n = 8
	for i := range n {
		if err := r.Add(NewPipeline(fmt.Sprintf("p%02d", i), WithVertexShader(vs), WithFragmentShader(fs))); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if err := r.Add(NewPipeline("broken", WithVertexShader(vs))); err != nil {
		t.Fatalf("Add(broken) error = %v", err)
	}
	if err := r.Add(NewPipeline("p00")); !errors.Is(err, gpu.ErrInvalidConfig) {
		t.Errorf("duplicate Add() error = %v, want ErrInvalidConfig", err)
	}

	err := r.BuildAll(d, gputypes.TextureFormatRGBA8Unorm)
	if !errors.Is(err, gpu.ErrPipelineCompile) {
		t.Fatalf("BuildAll() error = %v, want ErrPipelineCompile", err)
	}
	for _, key := range r.Keys() {
		p, ok := r.Get(key)
		if !ok {
			t.Fatalf("Get(%q) not found", key)
		}
		if want := key != "broken"; p.Built() != want {
			t.Errorf("%s Built() = %v, want %v", key, p.Built(), want)
		}
	}
	if len(r.Keys()) != n+1 {
		t.Errorf("len(Keys()) = %d, want %d", len(r.Keys()), n+1)
	}

	if err := r.BuildAll(d, gputypes.TextureFormatRGBA8Unorm); !errors.Is(err, gpu.ErrPipelineCompile) {
		t.Errorf("second BuildAll() error = %v, want only the broken pipeline to fail", err)
	}
}

func TestRegistryDestroy(t *testing.T) {
	d := newDevice(t)
	vs, fs := triangleShaders(t)
	r := NewRegistry(WithWorkers(2))

	p := NewPipeline("main", WithVertexShader(vs), WithFragmentShader(fs))
	if err := r.Add(p); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := r.BuildAll(d, gputypes.TextureFormatRGBA8Unorm); err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}

	r.Destroy()
	r.Destroy()
	if p.Built() {
		t.Error("Destroy() left a registered pipeline built")
	}
	if len(r.Keys()) != 0 {
		t.Errorf("Keys() after Destroy = %v", r.Keys())
	}
	if err := r.Add(NewPipeline("late")); !errors.Is(err, gpu.ErrRecording) {
		t.Errorf("Add() after Destroy error = %v, want ErrRecording", err)
	}
	if err := r.BuildAll(d, gputypes.TextureFormatRGBA8Unorm); !errors.Is(err, gpu.ErrRecording) {
		t.Errorf("BuildAll() after Destroy error = %v, want ErrRecording", err)
	}
}
