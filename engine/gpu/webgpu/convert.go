package webgpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

func textureFormat(f gputypes.TextureFormat) (wgpu.TextureFormat, error) {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case gputypes.TextureFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb, nil
	case gputypes.TextureFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm, nil
	case gputypes.TextureFormatBGRA8UnormSrgb:
		return wgpu.TextureFormatBGRA8UnormSrgb, nil
	}
	return wgpu.TextureFormatUndefined, fmt.Errorf("unsupported texture format %v", f)
}

func vertexFormat(f gputypes.VertexFormat) (wgpu.VertexFormat, error) {
	switch f {
	case gputypes.VertexFormatFloat32:
		return wgpu.VertexFormatFloat32, nil
	case gputypes.VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2, nil
	case gputypes.VertexFormatFloat32x3:
		return wgpu.VertexFormatFloat32x3, nil
	case gputypes.VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4, nil
	case gputypes.VertexFormatUint32:
		return wgpu.VertexFormatUint32, nil
	case gputypes.VertexFormatSint32:
		return wgpu.VertexFormatSint32, nil
	}
	return 0, fmt.Errorf("unsupported vertex format %v", f)
}

func vertexLayouts(layouts []gputypes.VertexBufferLayout) ([]wgpu.VertexBufferLayout, error) {
	out := make([]wgpu.VertexBufferLayout, 0, len(layouts))
	for _, l := range layouts {
		attrs := make([]wgpu.VertexAttribute, 0, len(l.Attributes))
		for _, a := range l.Attributes {
			format, err := vertexFormat(a.Format)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         format,
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			})
		}
		step := wgpu.VertexStepModeVertex
		if l.StepMode == gputypes.VertexStepModeInstance {
			step = wgpu.VertexStepModeInstance
		}
		out = append(out, wgpu.VertexBufferLayout{
			ArrayStride: l.ArrayStride,
			StepMode:    step,
			Attributes:  attrs,
		})
	}
	return out, nil
}

func topology(t gputypes.PrimitiveTopology) wgpu.PrimitiveTopology {
	switch t {
	case gputypes.PrimitiveTopologyPointList:
		return wgpu.PrimitiveTopologyPointList
	case gputypes.PrimitiveTopologyLineList:
		return wgpu.PrimitiveTopologyLineList
	case gputypes.PrimitiveTopologyLineStrip:
		return wgpu.PrimitiveTopologyLineStrip
	case gputypes.PrimitiveTopologyTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func cullMode(c gputypes.CullMode) wgpu.CullMode {
	switch c {
	case gputypes.CullModeFront:
		return wgpu.CullModeFront
	case gputypes.CullModeBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

func frontFace(f gputypes.FrontFace) wgpu.FrontFace {
	if f == gputypes.FrontFaceCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

func writeMask(m gputypes.ColorWriteMask) wgpu.ColorWriteMask {
	var out wgpu.ColorWriteMask
	if m&gputypes.ColorWriteMaskRed != 0 {
		out |= wgpu.ColorWriteMaskRed
	}
	if m&gputypes.ColorWriteMaskGreen != 0 {
		out |= wgpu.ColorWriteMaskGreen
	}
	if m&gputypes.ColorWriteMaskBlue != 0 {
		out |= wgpu.ColorWriteMaskBlue
	}
	if m&gputypes.ColorWriteMaskAlpha != 0 {
		out |= wgpu.ColorWriteMaskAlpha
	}
	return out
}

func blendState(mode gpu.BlendMode) *wgpu.BlendState {
	add := func(src, dst wgpu.BlendFactor) wgpu.BlendComponent {
		return wgpu.BlendComponent{SrcFactor: src, DstFactor: dst, Operation: wgpu.BlendOperationAdd}
	}
	switch mode {
	case gpu.BlendModeAlpha:
		return &wgpu.BlendState{
			Color: add(wgpu.BlendFactorSrcAlpha, wgpu.BlendFactorOneMinusSrcAlpha),
			Alpha: add(wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha),
		}
	case gpu.BlendModePremultiplied:
		return &wgpu.BlendState{
			Color: add(wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha),
			Alpha: add(wgpu.BlendFactorOne, wgpu.BlendFactorOneMinusSrcAlpha),
		}
	default:
		return nil
	}
}

// presentMode maps a sync interval to a surface present mode.
func presentMode(syncInterval int) wgpu.PresentMode {
	if syncInterval == 0 {
		return wgpu.PresentModeImmediate
	}
	return wgpu.PresentModeFifo
}
