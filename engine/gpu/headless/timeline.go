package headless

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// work is one item on the GPU timeline. Exactly one of its fields is set.
type work struct {
	cb      *commandBuffer
	fence   *fence
	value   uint64
	present *texture
}

// enqueue appends w to the timeline in submission order.
func (d *device) enqueue(w work) {
	d.mu.Lock()
	d.pending = append(d.pending, w)
	d.cond.Signal()
	d.mu.Unlock()
}

// run is the GPU timeline. It executes queued work strictly in order.
func (d *device) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for !d.closed && (d.frozen || len(d.pending) == 0) {
			d.cond.Wait()
		}
		if d.closed {
			d.mu.Unlock()
			return
		}
		w := d.pending[0]
		d.pending = d.pending[1:]
		d.mu.Unlock()

		if d.latency > 0 {
			time.Sleep(d.latency)
		}
		d.execute(w)
	}
}

func (d *device) execute(w work) {
	if d.lost.Load() {
		return
	}
	switch {
	case w.cb != nil:
		d.mu.Lock()
		var target *texture
		for _, c := range w.cb.cmds {
			target = d.apply(w.cb.label, target, c)
		}
		d.submissions = append(d.submissions, Submission{Ordinal: w.cb.ordinal, Label: w.cb.label, Commands: w.cb.cmds})
		if d.historyLimit > 0 && len(d.submissions) > d.historyLimit {
			d.submissions = d.submissions[len(d.submissions)-d.historyLimit:]
		}
		d.mu.Unlock()
		w.cb.state.Store(int32(bufferExecuted))
		d.executed.Add(1)
	case w.fence != nil:
		w.fence.complete(w.value)
	case w.present != nil:
		d.mu.Lock()
		if state := d.stateOf(w.present); state != gpu.ResourceStatePresentable {
			d.violate("present of %s in state %s", w.present.label, state)
		}
		d.mu.Unlock()
	}
}

// apply validates one command against the tracked texture states and returns the render
// target bound after it. d.mu must be held.
func (d *device) apply(label string, target *texture, c gpu.Command) *texture {
	switch cmd := c.(type) {
	case gpu.BarrierCommand:
		tex, ok := cmd.Texture.(*texture)
		if !ok {
			d.violate("%s: barrier on foreign texture %T", label, cmd.Texture)
			return target
		}
		if tex.destroyed.Load() {
			d.violate("%s: barrier on destroyed texture %s", label, tex.label)
			return target
		}
		if state := d.stateOf(tex); state != cmd.Before {
			d.violate("%s: barrier on %s expects %s but texture is %s", label, tex.label, cmd.Before, state)
		}
		d.states[tex] = cmd.After
	case gpu.SetRenderTargetCommand:
		v, ok := cmd.View.(*view)
		if !ok {
			d.violate("%s: render target is a foreign view %T", label, cmd.View)
			return nil
		}
		if v.tex.destroyed.Load() {
			d.violate("%s: render target %s was destroyed", label, v.tex.label)
		}
		return v.tex
	case gpu.ClearCommand, gpu.DrawCommand:
		if target == nil {
			return target
		}
		if state := d.stateOf(target); state != gpu.ResourceStateRenderTarget {
			d.violate("%s: %s into %s in state %s", label, c.Name(), target.label, state)
		}
	}
	return target
}

func (d *device) stateOf(tex *texture) gpu.ResourceState {
	if s, ok := d.states[tex]; ok {
		return s
	}
	return gpu.ResourceStatePresentable
}

func (d *device) violate(format string, args ...any) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}
