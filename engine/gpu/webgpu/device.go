// Package webgpu implements gpu.Device with wgpu-native on a window surface. Resource
// transitions are implicit in WebGPU render passes, so barriers are validated but not encoded,
// and fences are emulated with queue work-done callbacks pumped by Device.Poll.
package webgpu

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// SurfaceTarget is anything that can describe a native window surface, such as a window.Window.
type SurfaceTarget interface {
	// SurfaceDescriptor returns the platform surface descriptor of the target.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, nil if the target is not ready
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

// Device is a gpu.Device backed by wgpu-native.
type Device interface {
	gpu.Device

	// Adapter returns the native adapter description the device was requested from.
	//
	// Returns:
	//   - wgpu.AdapterInfo: the adapter info
	Adapter() wgpu.AdapterInfo
}

// device is the implementation of the Device interface.
type device struct {
	label         string
	allowSoftware bool
	fallback      bool

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	info     wgpu.AdapterInfo
	surface  *wgpu.Surface
	native   *wgpu.Device
	queue    *queue

	// timeline counts submissions and retirements so allocators can tell which buffers finished.
	submitted atomic.Uint64
	retired   atomic.Uint64

	lost       atomic.Bool
	lostMu     sync.Mutex
	lostReason string
	closeOnce  sync.Once
}

var _ Device = &device{}

// NewDevice creates the instance, window surface, adapter and device. The calling goroutine is
// locked to its OS thread because wgpu-native surfaces are bound to the thread that created them.
//
// Parameters:
//   - target: the window surface to render to
//   - opts: device options
//
// Returns:
//   - Device: the new device
//   - error: ErrDeviceCreation if no surface, adapter or device could be created
func NewDevice(target SurfaceTarget, opts ...DeviceBuilderOption) (Device, error) {
	const op = "webgpu.NewDevice"
	if target == nil || target.SurfaceDescriptor() == nil {
		return nil, gpu.Errorf(gpu.ErrDeviceCreation, op, "no surface target")
	}
	runtime.LockOSThread()

	d := &device{label: "WebGPU Device"}
	for _, opt := range opts {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(target.SurfaceDescriptor())

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      wgpu.PowerPreferenceHighPerformance,
		ForceFallbackAdapter: d.fallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.release()
		return nil, gpu.NewError(gpu.ErrDeviceCreation, op, err)
	}
	d.adapter = a
	d.info = a.GetInfo()
	if d.info.AdapterType == wgpu.AdapterTypeCPU && !d.allowSoftware {
		d.release()
		return nil, gpu.Errorf(gpu.ErrDeviceCreation, op, "adapter %s is a software adapter", d.info.Name)
	}

	native, err := a.RequestDevice(&wgpu.DeviceDescriptor{Label: d.label})
	if err != nil {
		d.release()
		return nil, gpu.NewError(gpu.ErrDeviceCreation, op, err)
	}
	d.native = native
	d.queue = &queue{device: d, native: native.GetQueue()}

	common.Logger().Info("webgpu device created", "label", d.label, "adapter", d.info.Name, "backend", d.info.BackendType)
	return d, nil
}

func (d *device) Label() string {
	return d.label
}

func (d *device) Adapter() wgpu.AdapterInfo {
	return d.info
}

func (d *device) Queue() gpu.Queue {
	return d.queue
}

func (d *device) CreateFence() (gpu.Fence, error) {
	if err := d.checkLost("Device.CreateFence"); err != nil {
		return nil, err
	}
	return newFence(d), nil
}

func (d *device) CreateCommandAllocator(label string) (gpu.CommandAllocator, error) {
	if err := d.checkLost("Device.CreateCommandAllocator"); err != nil {
		return nil, err
	}
	return &allocator{device: d, label: label}, nil
}

func (d *device) CreateSurface(cfg gpu.SurfaceConfig) (gpu.Surface, error) {
	if err := d.checkLost("Device.CreateSurface"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newSurface(d, cfg)
}

func (d *device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	if err := d.checkLost("Device.CreateRenderPipeline"); err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, gpu.Errorf(gpu.ErrPipelineCompile, "Device.CreateRenderPipeline", "nil descriptor")
	}
	return newRenderPipeline(d, desc)
}

func (d *device) CreateVertexBuffer(label string, data []byte) (gpu.Buffer, error) {
	if err := d.checkLost("Device.CreateVertexBuffer"); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, gpu.Errorf(gpu.ErrInvalidConfig, "Device.CreateVertexBuffer", "%s: empty vertex data", label)
	}
	native, err := d.native.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(len(data)),
		Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, gpu.NewError(gpu.ErrInvalidConfig, "Device.CreateVertexBuffer", err)
	}
	d.queue.native.WriteBuffer(native, 0, data)
	return &buffer{label: label, size: uint64(len(data)), native: native}, nil
}

func (d *device) Lost() bool {
	return d.lost.Load()
}

func (d *device) WaitIdle(ctx context.Context) error {
	if err := d.checkLost("Device.WaitIdle"); err != nil {
		return err
	}
	target := d.submitted.Load()
	for d.retired.Load() < target {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.native.Poll(true, nil)
	}
	return nil
}

func (d *device) Destroy() {
	d.closeOnce.Do(func() {
		d.release()
		common.Logger().Info("webgpu device destroyed", "label", d.label)
	})
}

func (d *device) release() {
	if d.queue != nil {
		d.queue.native.Release()
	}
	if d.native != nil {
		d.native.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.surface != nil {
		d.surface.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
}

// poll runs pending work-done callbacks without blocking.
func (d *device) poll() {
	if !d.lost.Load() {
		d.native.Poll(false, nil)
	}
}

// lose marks the device lost after a native call failed and returns the matching error.
func (d *device) lose(op string, cause error) error {
	d.lostMu.Lock()
	if !d.lost.Load() {
		d.lostReason = cause.Error()
		d.lost.Store(true)
		common.Logger().Warn("webgpu device lost", "label", d.label, "op", op, "err", cause)
	}
	d.lostMu.Unlock()
	return gpu.NewError(gpu.ErrDeviceLost, op, cause)
}

func (d *device) checkLost(op string) error {
	if !d.lost.Load() {
		return nil
	}
	d.lostMu.Lock()
	reason := d.lostReason
	d.lostMu.Unlock()
	return gpu.NewError(gpu.ErrDeviceLost, op, errors.New(reason))
}
