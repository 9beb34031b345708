package offscreen

import (
	"time"

	"github.com/gogpu/wgpu/hal"
)

// DeviceBuilderOption is a functional option used to configure an offscreen Device during construction.
type DeviceBuilderOption func(*device)

// WithLabel sets the debug name of the device.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - DeviceBuilderOption: a function that sets the device label
func WithLabel(label string) DeviceBuilderOption {
	return func(d *device) {
		d.label = label
	}
}

// WithAPI selects the hal backend explicitly, for example noop.API{} in tests.
//
// Parameters:
//   - api: the hal backend to create the instance from
//
// Returns:
//   - DeviceBuilderOption: a function that sets the hal backend
func WithAPI(api hal.Backend) DeviceBuilderOption {
	return func(d *device) {
		d.api = api
	}
}

// WithRequireHardware rejects software adapters and the noop fallback.
//
// Parameters:
//   - require: whether a discrete or integrated adapter is required
//
// Returns:
//   - DeviceBuilderOption: a function that sets the hardware requirement
func WithRequireHardware(require bool) DeviceBuilderOption {
	return func(d *device) {
		d.requireHardware = require
	}
}

// WithAllowSoftware lets adapter selection fall back to adapters that are neither discrete nor
// integrated. Ignored when hardware is required.
//
// Parameters:
//   - allow: whether software adapters are acceptable
//
// Returns:
//   - DeviceBuilderOption: a function that sets the software fallback flag
func WithAllowSoftware(allow bool) DeviceBuilderOption {
	return func(d *device) {
		d.allowSoftware = allow
	}
}

// WithRefreshInterval sets the pacing period of offscreen presents. Presents with a sync
// interval of n >= 1 block for n periods.
//
// Parameters:
//   - interval: the refresh period, 0 disables pacing
//
// Returns:
//   - DeviceBuilderOption: a function that sets the refresh interval
func WithRefreshInterval(interval time.Duration) DeviceBuilderOption {
	return func(d *device) {
		d.refreshInterval = interval
	}
}
