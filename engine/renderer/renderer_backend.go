package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu/headless"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeHeadless selects the simulated GPU. It needs no hardware or window.
	BackendTypeHeadless RendererBackendType = iota

	// BackendTypeOffscreen selects a gogpu hal device rendering into offscreen textures. The
	// device is created by the caller with offscreen.NewDevice and passed through WithOwnedDevice
	// or WithDevice.
	BackendTypeOffscreen

	// BackendTypeWGPU selects the WebGPU backend on a window surface. The device is created
	// by the caller with webgpu.NewDevice and passed through WithDevice.
	BackendTypeWGPU
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeHeadless:
		return "headless"
	case BackendTypeOffscreen:
		return "offscreen"
	case BackendTypeWGPU:
		return "wgpu"
	default:
		return fmt.Sprintf("RendererBackendType(%d)", int(t))
	}
}

// newDevice creates the device for backends that need no external surface.
func newDevice(backendType RendererBackendType, label string) (gpu.Device, error) {
	switch backendType {
	case BackendTypeHeadless:
		return headless.NewDevice(headless.WithLabel(label + " Device"))
	case BackendTypeOffscreen:
		return nil, gpu.Errorf(gpu.ErrDeviceCreation, "NewRenderer", "the offscreen backend needs an offscreen.Device, pass WithOwnedDevice")
	case BackendTypeWGPU:
		return nil, gpu.Errorf(gpu.ErrDeviceCreation, "NewRenderer", "the wgpu backend needs a window surface, pass WithDevice")
	default:
		return nil, gpu.Errorf(gpu.ErrDeviceCreation, "NewRenderer", "unknown backend %s", backendType)
	}
}
