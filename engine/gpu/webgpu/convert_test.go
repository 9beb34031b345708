package webgpu

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

func TestTextureFormat(t *testing.T) {
	tests := []struct {
		in      gputypes.TextureFormat
		want    wgpu.TextureFormat
		wantErr bool
	}{
		{gputypes.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8Unorm, false},
		{gputypes.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8Unorm, false},
		{gputypes.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8UnormSrgb, false},
		{gputypes.TextureFormatUndefined, wgpu.TextureFormatUndefined, true},
	}
	for _, tt := range tests {
		got, err := textureFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("textureFormat(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("textureFormat(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestVertexLayouts(t *testing.T) {
	in := []gputypes.VertexBufferLayout{{
		ArrayStride: 28,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 1},
		},
	}}
	out, err := vertexLayouts(in)
	if err != nil {
		t.Fatalf("vertexLayouts() error = %v", err)
	}
	if len(out) != 1 || out[0].ArrayStride != 28 || len(out[0].Attributes) != 2 {
		t.Fatalf("vertexLayouts() = %+v", out)
	}
	if out[0].Attributes[1].Format != wgpu.VertexFormatFloat32x4 || out[0].Attributes[1].Offset != 12 {
		t.Errorf("second attribute = %+v", out[0].Attributes[1])
	}
}

func TestFixedFunctionState(t *testing.T) {
	if got := cullMode(gputypes.CullModeBack); got != wgpu.CullModeBack {
		t.Errorf("cullMode(Back) = %v", got)
	}
	if got := frontFace(gputypes.FrontFaceCW); got != wgpu.FrontFaceCW {
		t.Errorf("frontFace(CW) = %v", got)
	}
	if got := topology(gputypes.PrimitiveTopologyLineList); got != wgpu.PrimitiveTopologyLineList {
		t.Errorf("topology(LineList) = %v", got)
	}
	if got := writeMask(gputypes.ColorWriteMaskAll); got != wgpu.ColorWriteMaskAll {
		t.Errorf("writeMask(All) = %v", got)
	}
	if got := writeMask(gputypes.ColorWriteMaskNone); got != wgpu.ColorWriteMaskNone {
		t.Errorf("writeMask(None) = %v", got)
	}
	if blendState(gpu.BlendModeOpaque) != nil {
		t.Error("opaque blend should disable blending")
	}
}

func TestPresentMode(t *testing.T) {
	if got := presentMode(0); got != wgpu.PresentModeImmediate {
		t.Errorf("presentMode(0) = %v, want Immediate", got)
	}
	for _, n := range []int{1, 2, 4} {
		if got := presentMode(n); got != wgpu.PresentModeFifo {
			t.Errorf("presentMode(%d) = %v, want Fifo", n, got)
		}
	}
}
