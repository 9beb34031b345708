// Package offscreen implements gpu.Device on top of the gogpu/wgpu hardware abstraction layer.
// Swap chain surfaces are rings of offscreen render textures, barriers are native texture
// transitions and fences follow the hal queue submission indices. Vulkan is used when it is available;
// otherwise the device falls back to the hal noop backend.
package offscreen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// pollInterval bounds a single native fence wait so context cancellation is observed.
const pollInterval = 5 * time.Millisecond

// Device is a gpu.Device backed by a hal device.
type Device interface {
	gpu.Device

	// Adapter returns the native adapter description the device was opened on.
	//
	// Returns:
	//   - gputypes.AdapterInfo: the adapter info
	Adapter() gputypes.AdapterInfo

	// Native returns the underlying hal device.
	//
	// Returns:
	//   - hal.Device: the native device
	Native() hal.Device
}

// device is the implementation of the Device interface.
type device struct {
	label           string
	api             hal.Backend
	requireHardware bool
	allowSoftware   bool
	refreshInterval time.Duration

	instance hal.Instance
	adapter  gputypes.AdapterInfo
	native   hal.Device
	queue    *queue

	// submitted is the highest submission index the hal queue has handed out.
	submitted atomic.Uint64

	lost       atomic.Bool
	lostMu     sync.Mutex
	lostReason string
	closeOnce  sync.Once
}

var _ Device = &device{}

// NewDevice opens a hal device. Without WithAPI the Vulkan backend is tried first and the noop
// backend is used when Vulkan is not available, unless hardware is required.
//
// Parameters:
//   - opts: device options
//
// Returns:
//   - Device: the new device
//   - error: ErrDeviceCreation if no backend or adapter is acceptable
func NewDevice(opts ...DeviceBuilderOption) (Device, error) {
	d := &device{
		label: "Offscreen Device",
	}
	for _, opt := range opts {
		opt(d)
	}

	allowSoftware := d.allowSoftware && !d.requireHardware
	if d.api == nil {
		if vk, ok := hal.GetBackend(gputypes.BackendVulkan); ok {
			d.api = vk
		} else if d.requireHardware {
			return nil, gpu.Errorf(gpu.ErrDeviceCreation, "offscreen.NewDevice", "vulkan backend not available")
		} else {
			d.api = noop.API{}
			allowSoftware = true
		}
	}

	instance, err := d.api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, gpu.NewError(gpu.ErrDeviceCreation, "offscreen.NewDevice", err)
	}
	d.instance = instance

	selected, err := selectAdapter(instance.EnumerateAdapters(nil), allowSoftware)
	if err != nil {
		instance.Destroy()
		return nil, err
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, gpu.NewError(gpu.ErrDeviceCreation, "offscreen.NewDevice", err)
	}
	d.adapter = selected.Info
	d.native = openDev.Device
	d.queue = &queue{device: d, native: openDev.Queue}

	common.Logger().Info("offscreen device created", "label", d.label, "adapter", d.adapter.Name, "type", d.adapter.DeviceType)
	return d, nil
}

// selectAdapter prefers discrete over integrated adapters. Any other adapter type is treated
// as software and only taken when allowed.
func selectAdapter(adapters []hal.ExposedAdapter, allowSoftware bool) (*hal.ExposedAdapter, error) {
	rank := func(t gputypes.DeviceType) int {
		switch t {
		case gputypes.DeviceTypeDiscreteGPU:
			return 3
		case gputypes.DeviceTypeIntegratedGPU:
			return 2
		}
		if allowSoftware {
			return 1
		}
		return 0
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		r := rank(adapters[i].Info.DeviceType)
		if r == 0 {
			continue
		}
		if selected == nil || r > rank(selected.Info.DeviceType) {
			selected = &adapters[i]
		}
	}
	if selected == nil {
		return nil, gpu.Errorf(gpu.ErrDeviceCreation, "offscreen.NewDevice", "no suitable adapter among %d", len(adapters))
	}
	return selected, nil
}

func (d *device) Label() string {
	return d.label
}

func (d *device) Adapter() gputypes.AdapterInfo {
	return d.adapter
}

func (d *device) Native() hal.Device {
	return d.native
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
	native, err := d.native.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, gpu.NewError(gpu.ErrInvalidConfig, "Device.CreateVertexBuffer", err)
	}
	if err := d.queue.native.WriteBuffer(native, 0, data); err != nil {
		d.native.DestroyBuffer(native)
		return nil, d.lose("Device.CreateVertexBuffer", err)
	}
	return &buffer{device: d, label: label, size: uint64(len(data)), native: native}, nil
}

func (d *device) Lost() bool {
	return d.lost.Load()
}

func (d *device) WaitIdle(ctx context.Context) error {
	if err := d.checkLost("Device.WaitIdle"); err != nil {
		return err
	}
	target := d.submitted.Load()
	timer := time.NewTimer(pollInterval)
	defer timer.Stop()
	for !d.retired(target) {
		if err := d.checkLost("Device.WaitIdle"); err != nil {
			return err
		}
		timer.Reset(pollInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// markSubmitted records index as the latest submission.
func (d *device) markSubmitted(index uint64) {
	for {
		cur := d.submitted.Load()
		if index <= cur || d.submitted.CompareAndSwap(cur, index) {
			return
		}
	}
}

// retired reports whether the queue has finished the submission with the given index.
func (d *device) retired(index uint64) bool {
	return index == 0 || d.queue.native.PollCompleted() >= index
}

func (d *device) Destroy() {
	d.closeOnce.Do(func() {
		d.native.Destroy()
		d.instance.Destroy()
		common.Logger().Info("offscreen device destroyed", "label", d.label)
	})
}

// lose marks the device lost after a native call failed and returns the matching error.
func (d *device) lose(op string, cause error) error {
	d.lostMu.Lock()
	if !d.lost.Load() {
		d.lostReason = cause.Error()
		d.lost.Store(true)
		common.Logger().Warn("offscreen device lost", "label", d.label, "op", op, "err", cause)
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
