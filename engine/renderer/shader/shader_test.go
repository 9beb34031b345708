package shader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/gogpu/gputypes"
)

func TestNewShaderTriangle(t *testing.T) {
	vs, err := NewShader("triangle.vs", ShaderTypeVertex, WithSource(TriangleSource))
	if err != nil {
		t.Fatalf("NewShader(vertex) error = %v", err)
	}
	fs, err := NewShader("triangle.fs", ShaderTypeFragment, WithSource(TriangleSource))
	if err != nil {
		t.Fatalf("NewShader(fragment) error = %v", err)
	}

	if vs.EntryPoint() != "vs_main" {
		t.Errorf("vertex EntryPoint() = %q, want vs_main", vs.EntryPoint())
	}
	if fs.EntryPoint() != "fs_main" {
		t.Errorf("fragment EntryPoint() = %q, want fs_main", fs.EntryPoint())
	}
	if len(vs.SPIRV()) == 0 || len(vs.SPIRV())%4 != 0 {
		t.Errorf("len(SPIRV()) = %d, want a non-empty multiple of 4", len(vs.SPIRV()))
	}
	if strings.Contains(vs.Source(), annotationPrefix) {
		t.Error("Source() still contains the include directive")
	}
	if fs.VertexLayouts() != nil {
		t.Errorf("fragment VertexLayouts() = %v, want nil", fs.VertexLayouts())
	}

	layouts := vs.VertexLayouts()
	if len(layouts) != 1 {
		t.Fatalf("len(VertexLayouts()) = %d, want 1", len(layouts))
	}
	got := layouts[0]
	if got.ArrayStride != 28 || got.StepMode != gputypes.VertexStepModeVertex {
		t.Errorf("layout stride=%d step=%v, want 28 per-vertex", got.ArrayStride, got.StepMode)
	}
	want := []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 1},
	}
	if len(got.Attributes) != len(want) {
		t.Fatalf("len(Attributes) = %d, want %d", len(got.Attributes), len(want))
	}
	for i := range want {
		if got.Attributes[i] != want[i] {
			t.Errorf("Attributes[%d] = %+v, want %+v", i, got.Attributes[i], want[i])
		}
	}

	stage := vs.Stage()
	if stage.Label != "triangle.vs" || stage.EntryPoint != "vs_main" || len(stage.SPIRV) == 0 {
		t.Errorf("Stage() = %+v", stage)
	}
}

func TestNewShaderErrors(t *testing.T) {
	tests := []struct {
		name       string
		shaderType ShaderType
		opts       []ShaderBuilderOption
	}{
		{"no source", ShaderTypeVertex, nil},
		{"missing file", ShaderTypeVertex, []ShaderBuilderOption{WithSourceFromPath(filepath.Join(t.TempDir(), "missing.wgsl"))}},
		{"no entry point", ShaderTypeFragment, []ShaderBuilderOption{WithSource("@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }")}},
		{"unknown include", ShaderTypeVertex, []ShaderBuilderOption{WithSource("//@oxy:include lights\n" + TriangleSource)}},
		{"syntax error", ShaderTypeVertex, []ShaderBuilderOption{WithSource("@vertex fn vs_main( -> { return }")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewShader("broken", tt.shaderType, tt.opts...)
			if !errors.Is(err, gpu.ErrPipelineCompile) {
				t.Fatalf("NewShader() error = %v, want ErrPipelineCompile", err)
			}
		})
	}
}

func TestNewShaderFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triangle.wgsl")
	if err := os.WriteFile(path, []byte(TriangleSource), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	s, err := NewShader("file.vs", ShaderTypeVertex, WithSourceFromPath(path))
	if err != nil {
		t.Fatalf("NewShader() error = %v", err)
	}
	if s.EntryPoint() != "vs_main" {
		t.Errorf("EntryPoint() = %q, want vs_main", s.EntryPoint())
	}
}

func TestParseEntryPoint(t *testing.T) {
	src := stripComments(`
// @vertex fn commented_out() {}
/* @fragment fn also_commented() {} */
@vertex
fn main_vs() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }
@fragment fn main_fs() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`)
	tests := []struct {
		shaderType ShaderType
		want       string
	}{
		{ShaderTypeVertex, "main_vs"},
		{ShaderTypeFragment, "main_fs"},
		{ShaderType(9), ""},
	}
	for _, tt := range tests {
		t.Run(tt.shaderType.String(), func(t *testing.T) {
			if got := parseEntryPoint(src, tt.shaderType); got != tt.want {
				t.Errorf("parseEntryPoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseVertexLayoutPicksEntryParameter(t *testing.T) {
	src := stripComments(`
struct Unused { @location(0) a: f32, };
struct Packed {
    @location(2) uv: vec2<f32>,
    @location(0) pos: vec3f,
    @location(1) id: u32,
};
struct Unsupported { @location(0) m: mat4x4<f32>, };
@vertex fn vs(v: Packed) -> @builtin(position) vec4<f32> { return vec4<f32>(v.pos, 1.0); }
`)
	layouts := parseVertexLayout(src, "vs")
	if len(layouts) != 1 {
		t.Fatalf("len(layouts) = %d, want 1", len(layouts))
	}
	l := layouts[0]
	if l.ArrayStride != 24 {
		t.Errorf("ArrayStride = %d, want 24", l.ArrayStride)
	}
	wantOffsets := []uint64{0, 8, 20}
	wantLocations := []uint32{2, 0, 1}
	for i, a := range l.Attributes {
		if a.Offset != wantOffsets[i] || a.ShaderLocation != wantLocations[i] {
			t.Errorf("Attributes[%d] = %+v, want offset %d location %d", i, a, wantOffsets[i], wantLocations[i])
		}
	}

	if got := parseVertexLayout(stripComments("struct Unsupported { @location(0) m: mat4x4<f32>, };"), ""); got != nil {
		t.Errorf("unsupported type layout = %v, want nil", got)
	}
}

func TestPreProcessor(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		wantErr  bool
		included []string
	}{
		{"plain", "fn f() {}", false, []string{}},
		{"builtin vertex", "//@oxy:include vertex\nfn f() {}", false, []string{"vertex"}},
		{"duplicate include", "// @oxy:include vertex\n//@oxy:include vertex", false, []string{"vertex"}},
		{"registered", "//@oxy:include params", false, []string{"params"}},
		{"unknown", "//@oxy:include nope", true, nil},
		{"missing name", "//@oxy:include", true, nil},
		{"not a directive", "//@oxy:includes vertex", false, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pp := NewPreProcessor()
			pp.Register("params", "struct Params { scale: f32, };")
			out, err := pp.Process(tt.source)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Process() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			got := pp.Included()
			if len(got) != len(tt.included) {
				t.Fatalf("Included() = %v, want %v", got, tt.included)
			}
			for i := range got {
				if got[i] != tt.included[i] {
					t.Errorf("Included()[%d] = %q, want %q", i, got[i], tt.included[i])
				}
			}
			if strings.Count(out, "struct VertexInput") > 1 {
				t.Error("vertex snippet injected more than once")
			}
		})
	}
}
