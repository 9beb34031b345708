package webgpu

// DeviceBuilderOption is a functional option used to configure a webgpu Device during construction.
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

// WithAllowSoftware accepts a CPU adapter when no hardware adapter is compatible with the surface.
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

// WithForceFallbackAdapter requests the fallback adapter and implies WithAllowSoftware(true).
//
// Returns:
//   - DeviceBuilderOption: a function that forces the fallback adapter
func WithForceFallbackAdapter() DeviceBuilderOption {
	return func(d *device) {
		d.fallback = true
		d.allowSoftware = true
	}
}
