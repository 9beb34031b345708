package webgpu

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// surface is the implementation of gpu.Surface over the device's window surface. wgpu-native
// hands out one texture at a time, so the ring positions are virtual slots that are bound to
// the acquired texture between AcquireIndex and Present.
type surface struct {
	device *device
	cfg    gpu.SurfaceConfig
	format wgpu.TextureFormat
	slots  []*texture

	mu        sync.Mutex
	current   int
	held      bool
	mode      wgpu.PresentMode
	destroyed bool
}

var _ gpu.Surface = &surface{}

func newSurface(d *device, cfg gpu.SurfaceConfig) (*surface, error) {
	format, err := textureFormat(cfg.Format)
	if err != nil {
		return nil, gpu.NewError(gpu.ErrInvalidConfig, "Device.CreateSurface", err)
	}
	s := &surface{
		device: d,
		cfg:    cfg,
		format: format,
		slots:  make([]*texture, cfg.BufferCount),
		mode:   presentMode(cfg.PresentMode.SyncInterval()),
	}
	for i := range s.slots {
		s.slots[i] = &texture{
			label:  fmt.Sprintf("%s Back Buffer %d", common.Coalesce(cfg.Label, "Surface"), i),
			width:  cfg.Width,
			height: cfg.Height,
		}
	}
	s.configure()
	common.Logger().Info("webgpu surface configured", "config", cfg.String(), "format", format)
	return s, nil
}

func (s *surface) configure() {
	d := s.device
	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surface.Configure(d.adapter, d.native, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      s.format,
		Width:       s.cfg.Width,
		Height:      s.cfg.Height,
		PresentMode: s.mode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (s *surface) Config() gpu.SurfaceConfig {
	return s.cfg
}

func (s *surface) Texture(index int) (gpu.Texture, error) {
	if index < 0 || index >= len(s.slots) {
		return nil, gpu.Errorf(gpu.ErrInvalidConfig, "Surface.Texture", "index %d outside [0, %d)", index, len(s.slots))
	}
	return s.slots[index], nil
}

func (s *surface) CreateView(index int) (gpu.RenderTargetView, error) {
	if index < 0 || index >= len(s.slots) {
		return nil, gpu.Errorf(gpu.ErrInvalidConfig, "Surface.CreateView", "index %d outside [0, %d)", index, len(s.slots))
	}
	return &view{tex: s.slots[index]}, nil
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
	if s.held {
		return s.current, nil
	}

	native, err := s.device.surface.GetCurrentTexture()
	if err != nil {
		return 0, s.device.lose("Surface.AcquireIndex", err)
	}
	nativeView, err := native.CreateView(nil)
	if err != nil {
		native.Release()
		return 0, s.device.lose("Surface.AcquireIndex", err)
	}
	s.slots[s.current].bind(native, nativeView)
	s.held = true
	return s.current, nil
}

// Present hands the acquired texture to the window. A change of sync interval reconfigures the
// surface after the present, so it takes effect from the next acquired texture.
func (s *surface) Present(syncInterval int) (int, error) {
	if err := s.device.checkLost("Surface.Present"); err != nil {
		return 0, err
	}
	if syncInterval < 0 {
		return 0, gpu.Errorf(gpu.ErrInvalidConfig, "Surface.Present", "negative sync interval %d", syncInterval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return 0, gpu.Errorf(gpu.ErrDeviceLost, "Surface.Present", "surface destroyed")
	}
	if !s.held {
		return 0, gpu.Errorf(gpu.ErrRecording, "Surface.Present", "no surface texture acquired")
	}

	s.device.surface.Present()
	s.slots[s.current].unbind()
	s.held = false
	s.current = (s.current + 1) % len(s.slots)

	if mode := presentMode(syncInterval); mode != s.mode {
		s.mode = mode
		s.configure()
		common.Logger().Debug("webgpu present mode changed", "syncInterval", syncInterval)
	}
	return s.current, nil
}

func (s *surface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true
	for _, t := range s.slots {
		t.unbind()
	}
	s.held = false
}
