package headless

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

type texture struct {
	label     string
	width     uint32
	height    uint32
	destroyed atomic.Bool
}

var _ gpu.Texture = &texture{}

func (t *texture) Label() string  { return t.label }
func (t *texture) Width() uint32  { return t.width }
func (t *texture) Height() uint32 { return t.height }

type view struct {
	tex *texture
}

var _ gpu.RenderTargetView = &view{}

func (v *view) Label() string        { return v.tex.label + " View" }
func (v *view) Texture() gpu.Texture { return v.tex }
func (v *view) Destroy()             {}

type buffer struct {
	label string
	data  []byte
}

var _ gpu.Buffer = &buffer{}

func (b *buffer) Label() string { return b.label }
func (b *buffer) Size() uint64  { return uint64(len(b.data)) }
func (b *buffer) Destroy()      { b.data = nil }

type renderPipeline struct {
	label string
	desc  gpu.RenderPipelineDescriptor
}

var _ gpu.RenderPipeline = &renderPipeline{}

func (p *renderPipeline) Label() string { return p.label }
func (p *renderPipeline) Destroy()      {}
