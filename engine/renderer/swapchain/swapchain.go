// Package swapchain owns the ring of presentable surfaces and the authoritative current index.
package swapchain

import (
	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/fence"
	"github.com/gogpu/gputypes"
)

// DefaultFormat is the back buffer format used by CreateDefault.
const DefaultFormat = gputypes.TextureFormatRGBA8Unorm

// MaxDimension is the largest back buffer width or height accepted.
const MaxDimension = 16384

func checkSize(op string, width, height int) error {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return gpu.Errorf(gpu.ErrInvalidConfig, op, "size %dx%d must be within 1..%d", width, height, MaxDimension)
	}
	return nil
}

// swapChain is the implementation of the SwapChain interface.
type swapChain struct {
	device  gpu.Device
	cfg     gpu.SurfaceConfig
	surface gpu.Surface
	fence   fence.Fence
	current int
}

// SwapChain owns N presentable surfaces bound to an output and tracks which ring index is current.
type SwapChain interface {
	// Config returns the active surface configuration.
	//
	// Returns:
	//   - gpu.SurfaceConfig: the configuration of the current ring
	Config() gpu.SurfaceConfig

	// BufferCount returns N, the number of surfaces in the ring.
	//
	// Returns:
	//   - int: the buffer count
	BufferCount() int

	// Surface returns the backend ring.
	//
	// Returns:
	//   - gpu.Surface: the backend surface
	Surface() gpu.Surface

	// Texture returns the ring texture at index.
	//
	// Parameters:
	//   - index: ring position in [0, BufferCount())
	//
	// Returns:
	//   - gpu.Texture: the texture
	//   - error: ErrInvalidConfig when index is out of range
	Texture(index int) (gpu.Texture, error)

	// CurrentIndex returns the index adopted at creation or after the last successful present.
	//
	// Returns:
	//   - int: the current ring index
	CurrentIndex() int

	// AcquireCurrentIndex asks the presentation engine which surface it expects next. The answer
	// is authoritative and may differ from the last presented index plus one.
	//
	// Returns:
	//   - int: the ring index in [0, BufferCount())
	//   - error: ErrDeviceLost if the device or surface is lost
	AcquireCurrentIndex() (int, error)

	// Present presents the current surface and adopts the index the presentation engine reports.
	//
	// Parameters:
	//   - syncInterval: 0 presents immediately and may tear, n >= 1 waits for n vertical blanks
	//
	// Returns:
	//   - error: ErrDeviceLost if the device or surface is lost, ErrInvalidConfig for a negative interval
	Present(syncInterval int) error

	// Resize recreates the ring at a new size. Every previously signaled frame must be complete.
	// The new configuration is validated before the old ring is destroyed. If creating the new
	// ring fails the swap chain is left without a surface and Surface returns nil.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: ErrResourceBusy if GPU work is in flight, ErrInvalidConfig for a size outside
	//     1..MaxDimension, otherwise the device error
	Resize(width, height int) error

	// Viewport returns a viewport covering the whole back buffer.
	//
	// Returns:
	//   - common.Viewport: the full viewport
	Viewport() common.Viewport

	// Scissor returns a scissor rectangle covering the whole back buffer.
	//
	// Returns:
	//   - common.Rect: the full scissor rectangle
	Scissor() common.Rect

	// Destroy releases the ring.
	Destroy()
}

var _ SwapChain = &swapChain{}

// CreateDefault describes a swap chain of bufferCount surfaces of width x height in the default
// format with a sample count of 1. It has no side effects.
//
// Parameters:
//   - width: the back buffer width in pixels, must be > 0
//   - height: the back buffer height in pixels, must be > 0
//   - bufferCount: the ring size, must be >= 2
//
// Returns:
//   - gpu.SurfaceConfig: the configuration
//   - error: ErrInvalidConfig for invalid input
func CreateDefault(width, height, bufferCount int) (gpu.SurfaceConfig, error) {
	if err := checkSize("swapchain.CreateDefault", width, height); err != nil {
		return gpu.SurfaceConfig{}, err
	}
	cfg := gpu.SurfaceConfig{
		Label:       "Swap Chain",
		Width:       uint32(width),
		Height:      uint32(height),
		BufferCount: bufferCount,
		Format:      DefaultFormat,
		SampleCount: 1,
		PresentMode: gpu.PresentModeVSync,
	}
	if err := cfg.Validate(); err != nil {
		return gpu.SurfaceConfig{}, err
	}
	return cfg, nil
}

// NewSwapChain creates the surface ring on device and adopts the index the presentation engine
// reports for it.
//
// Parameters:
//   - device: the device binding
//   - cfg: the ring configuration, usually from CreateDefault
//   - opts: swap chain options
//
// Returns:
//   - SwapChain: the new swap chain
//   - error: the device or surface error
func NewSwapChain(device gpu.Device, cfg gpu.SurfaceConfig, opts ...SwapChainBuilderOption) (SwapChain, error) {
	s := &swapChain{device: device}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.create(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *swapChain) create(cfg gpu.SurfaceConfig) error {
	surface, err := s.device.CreateSurface(cfg)
	if err != nil {
		return err
	}
	index, err := surface.AcquireIndex()
	if err != nil {
		surface.Destroy()
		return err
	}
	s.cfg = cfg
	s.surface = surface
	s.current = index
	common.Logger().Info("swap chain created", "config", cfg.String(), "index", index)
	return nil
}

func (s *swapChain) Config() gpu.SurfaceConfig {
	return s.cfg
}

func (s *swapChain) BufferCount() int {
	return s.cfg.BufferCount
}

func (s *swapChain) Surface() gpu.Surface {
	return s.surface
}

func (s *swapChain) Texture(index int) (gpu.Texture, error) {
	if s.surface == nil {
		return nil, gpu.Errorf(gpu.ErrDeviceLost, "SwapChain.Texture", "swap chain has no surface")
	}
	return s.surface.Texture(index)
}

func (s *swapChain) CurrentIndex() int {
	return s.current
}

func (s *swapChain) AcquireCurrentIndex() (int, error) {
	if s.surface == nil {
		return 0, gpu.Errorf(gpu.ErrDeviceLost, "SwapChain.AcquireCurrentIndex", "swap chain has no surface")
	}
	index, err := s.surface.AcquireIndex()
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= s.cfg.BufferCount {
		return 0, gpu.Errorf(gpu.ErrDeviceLost, "SwapChain.AcquireCurrentIndex", "presentation engine reported index %d outside [0, %d)", index, s.cfg.BufferCount)
	}
	s.current = index
	return index, nil
}

func (s *swapChain) Present(syncInterval int) error {
	if syncInterval < 0 {
		return gpu.Errorf(gpu.ErrInvalidConfig, "SwapChain.Present", "negative sync interval %d", syncInterval)
	}
	if s.surface == nil {
		return gpu.Errorf(gpu.ErrDeviceLost, "SwapChain.Present", "swap chain has no surface")
	}
	next, err := s.surface.Present(syncInterval)
	if err != nil {
		return err
	}
	if next < 0 || next >= s.cfg.BufferCount {
		return gpu.Errorf(gpu.ErrDeviceLost, "SwapChain.Present", "presentation engine reported index %d outside [0, %d)", next, s.cfg.BufferCount)
	}
	common.Logger().Debug("presented", "index", s.current, "next", next, "syncInterval", syncInterval)
	s.current = next
	return nil
}

func (s *swapChain) Resize(width, height int) error {
	const op = "SwapChain.Resize"
	if err := checkSize(op, width, height); err != nil {
		return err
	}
	if s.surface == nil {
		return gpu.Errorf(gpu.ErrDeviceLost, op, "swap chain has no surface")
	}
	if s.fence != nil && !s.fence.Drained() {
		return gpu.Errorf(gpu.ErrResourceBusy, op, "fence value %d not yet complete", s.fence.LastSignaled())
	}
	cfg := s.cfg
	cfg.Width = uint32(width)
	cfg.Height = uint32(height)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Past this point a failure leaves the swap chain without a surface.
	s.surface.Destroy()
	s.surface = nil
	return s.create(cfg)
}

func (s *swapChain) Viewport() common.Viewport {
	return common.FullViewport(s.cfg.Width, s.cfg.Height)
}

func (s *swapChain) Scissor() common.Rect {
	return common.FullRect(s.cfg.Width, s.cfg.Height)
}

func (s *swapChain) Destroy() {
	if s.surface != nil {
		s.surface.Destroy()
	}
}
