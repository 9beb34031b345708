package headless

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// surface is the implementation of gpu.Surface for the headless device.
type surface struct {
	device   *device
	cfg      gpu.SurfaceConfig
	textures []*texture

	mu        sync.Mutex
	current   int
	destroyed bool
}

var _ gpu.Surface = &surface{}

func newSurface(d *device, cfg gpu.SurfaceConfig) *surface {
	s := &surface{
		device:   d,
		cfg:      cfg,
		textures: make([]*texture, cfg.BufferCount),
		current:  mod(d.initialIndex, cfg.BufferCount),
	}
	for i := range s.textures {
		s.textures[i] = &texture{
			label:  fmt.Sprintf("%s Back Buffer %d", common.Coalesce(cfg.Label, "Surface"), i),
			width:  cfg.Width,
			height: cfg.Height,
		}
	}
	common.Logger().Info("headless surface created", "config", cfg.String(), "index", s.current)
	return s
}

func (s *surface) Config() gpu.SurfaceConfig {
	return s.cfg
}

func (s *surface) Texture(index int) (gpu.Texture, error) {
	if index < 0 || index >= len(s.textures) {
		return nil, gpu.Errorf(gpu.ErrInvalidConfig, "Surface.Texture", "index %d outside [0, %d)", index, len(s.textures))
	}
	return s.textures[index], nil
}

func (s *surface) CreateView(index int) (gpu.RenderTargetView, error) {
	if index < 0 || index >= len(s.textures) {
		return nil, gpu.Errorf(gpu.ErrInvalidConfig, "Surface.CreateView", "index %d outside [0, %d)", index, len(s.textures))
	}
	return &view{tex: s.textures[index]}, nil
}

func (s *surface) AcquireIndex() (int, error) {
	if err := s.device.checkLost("Surface.AcquireIndex"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return 0, gpu.Errorf(gpu.ErrDeviceLost, "Surface.AcquireIndex", "surface destroyed")
	}
	return s.current, nil
}

func (s *surface) Present(syncInterval int) (int, error) {
	d := s.device
	if err := d.checkLost("Surface.Present"); err != nil {
		return 0, err
	}
	if syncInterval < 0 {
		return 0, gpu.Errorf(gpu.ErrInvalidConfig, "Surface.Present", "negative sync interval %d", syncInterval)
	}

	n := d.presents.Add(1)
	if d.lossAtPresent > 0 && int(n) == d.lossAtPresent {
		reason := fmt.Sprintf("surface lost during present %d", n)
		d.Lose(reason)
		return 0, gpu.NewError(gpu.ErrDeviceLost, "Surface.Present", errors.New(reason))
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return 0, gpu.Errorf(gpu.ErrDeviceLost, "Surface.Present", "surface destroyed")
	}
	presented := s.current
	next := (presented + 1) % len(s.textures)
	if d.presentOrder != nil {
		next = mod(d.presentOrder(presented, len(s.textures)), len(s.textures))
	}
	s.current = next
	s.mu.Unlock()

	d.enqueue(work{present: s.textures[presented]})

	if syncInterval > 0 && d.refreshInterval > 0 {
		time.Sleep(time.Duration(syncInterval) * d.refreshInterval)
	}
	return next, nil
}

func (s *surface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true
	for _, t := range s.textures {
		t.destroyed.Store(true)
	}
}

func mod(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
