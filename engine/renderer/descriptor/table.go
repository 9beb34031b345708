// Package descriptor holds the render target view table: one view per swap chain ring slot,
// stamped with the generation of the swap chain it was built for.
package descriptor

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// View is a borrowed render target view for one ring slot. It stays valid until the table is
// rebuilt or destroyed.
type View interface {
	// Index returns the ring slot of the view.
	//
	// Returns:
	//   - int: the ring slot
	Index() int

	// Generation returns the table generation the view was built in.
	//
	// Returns:
	//   - uint64: the generation
	Generation() uint64

	// Target returns the backend render target view.
	//
	// Returns:
	//   - gpu.RenderTargetView: the backend view
	Target() gpu.RenderTargetView

	// Texture returns the texture the view renders into.
	//
	// Returns:
	//   - gpu.Texture: the viewed texture
	Texture() gpu.Texture

	// Valid reports whether the view still belongs to the current generation of its table.
	//
	// Returns:
	//   - bool: true if the view may be recorded
	Valid() bool
}

// Table owns one View per ring slot of a surface.
type Table interface {
	// Len returns the number of views, equal to the surface buffer count.
	//
	// Returns:
	//   - int: the number of views
	Len() int

	// Generation returns how many times the table has been built. The first build is generation 1.
	//
	// Returns:
	//   - uint64: the current generation
	Generation() uint64

	// View returns the view for a ring slot.
	//
	// Parameters:
	//   - index: the ring slot in [0, Len())
	//
	// Returns:
	//   - View: the view
	//   - error: ErrRecording if index is out of range or the table was destroyed
	View(index int) (View, error)

	// Rebuild destroys every view and creates a new set for surface, bumping the generation.
	// Views handed out before the rebuild report Valid() == false afterwards.
	//
	// Parameters:
	//   - surface: the (re)created surface ring
	//
	// Returns:
	//   - error: the surface error if a view could not be created
	Rebuild(surface gpu.Surface) error

	// Destroy releases every view. Views handed out earlier become invalid.
	Destroy()
}

// table is the implementation of the Table interface.
type table struct {
	mu         sync.RWMutex
	views      []*view
	generation uint64
	destroyed  bool
}

var _ Table = &table{}

// NewTable builds the view table for surface.
//
// Parameters:
//   - surface: the surface ring to build views for
//
// Returns:
//   - Table: the table at generation 1
//   - error: the surface error if a view could not be created
func NewTable(surface gpu.Surface) (Table, error) {
	t := &table{}
	if err := t.Rebuild(surface); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.views)
}

func (t *table) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

func (t *table) View(index int) (View, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.destroyed {
		return nil, gpu.Errorf(gpu.ErrRecording, "Table.View", "table destroyed")
	}
	if index < 0 || index >= len(t.views) {
		return nil, gpu.Errorf(gpu.ErrRecording, "Table.View", "index %d outside [0, %d)", index, len(t.views))
	}
	return t.views[index], nil
}

func (t *table) Rebuild(surface gpu.Surface) error {
	n := surface.Config().BufferCount
	views := make([]*view, 0, n)
	for i := range n {
		tex, err := surface.Texture(i)
		if err != nil {
			destroyViews(views)
			return err
		}
		target, err := surface.CreateView(i)
		if err != nil {
			destroyViews(views)
			return err
		}
		views = append(views, &view{owner: t, index: i, texture: tex, target: target})
	}

	t.mu.Lock()
	old := t.views
	t.generation++
	for _, v := range views {
		v.generation = t.generation
	}
	t.views = views
	t.destroyed = false
	generation := t.generation
	t.mu.Unlock()

	destroyViews(old)
	common.Logger().Info("view table built", "entries", n, "generation", generation)
	return nil
}

func (t *table) Destroy() {
	t.mu.Lock()
	old := t.views
	t.views = nil
	t.destroyed = true
	t.mu.Unlock()
	destroyViews(old)
}

func (t *table) current(v *view) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.destroyed && v.generation == t.generation
}

func destroyViews(views []*view) {
	for _, v := range views {
		v.target.Destroy()
	}
}

// view is the implementation of the View interface.
type view struct {
	owner      *table
	index      int
	generation uint64
	texture    gpu.Texture
	target     gpu.RenderTargetView
}

var _ View = &view{}

func (v *view) Index() int                   { return v.index }
func (v *view) Generation() uint64           { return v.generation }
func (v *view) Target() gpu.RenderTargetView { return v.target }
func (v *view) Texture() gpu.Texture         { return v.texture }
func (v *view) Valid() bool                  { return v.owner.current(v) }
