package offscreen

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// surface is the implementation of gpu.Surface for the offscreen device: a ring of render
// textures presented in round-robin order.
type surface struct {
	device   *device
	cfg      gpu.SurfaceConfig
	textures []*texture

	mu        sync.Mutex
	current   int
	destroyed bool
}

var _ gpu.Surface = &surface{}

func newSurface(d *device, cfg gpu.SurfaceConfig) (*surface, error) {
	s := &surface{device: d, cfg: cfg}
	for i := 0; i < cfg.BufferCount; i++ {
		label := fmt.Sprintf("%s Back Buffer %d", common.Coalesce(cfg.Label, "Surface"), i)
		native, err := d.native.CreateTexture(&hal.TextureDescriptor{
			Label:         label,
			Size:          hal.Extent3D{Width: cfg.Width, Height: cfg.Height, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   cfg.SampleCount,
			Dimension:     gputypes.TextureDimension2D,
			Format:        cfg.Format,
			Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			s.Destroy()
			return nil, gpu.NewError(gpu.ErrInvalidConfig, "Device.CreateSurface", err)
		}
		s.textures = append(s.textures, &texture{
			device: d,
			label:  label,
			width:  cfg.Width,
			height: cfg.Height,
			native: native,
		})
	}
	common.Logger().Info("offscreen surface created", "config", cfg.String())
	return s, nil
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
	t := s.textures[index]
	native, err := s.device.native.CreateTextureView(t.native, &hal.TextureViewDescriptor{
		Label: t.label + " View",
	})
	if err != nil {
		return nil, s.device.lose("Surface.CreateView", err)
	}
	return &view{tex: t, native: native}, nil
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
	if err := s.device.checkLost("Surface.Present"); err != nil {
		return 0, err
	}
	if syncInterval < 0 {
		return 0, gpu.Errorf(gpu.ErrInvalidConfig, "Surface.Present", "negative sync interval %d", syncInterval)
	}

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return 0, gpu.Errorf(gpu.ErrDeviceLost, "Surface.Present", "surface destroyed")
	}
	s.current = (s.current + 1) % len(s.textures)
	next := s.current
	s.mu.Unlock()

	if syncInterval > 0 && s.device.refreshInterval > 0 {
		time.Sleep(time.Duration(syncInterval) * s.device.refreshInterval)
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
		s.device.native.DestroyTexture(t.native)
	}
}
