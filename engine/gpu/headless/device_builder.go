package headless

import "time"

// DeviceBuilderOption is a functional option used to configure a headless Device during construction.
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

// WithAdapters replaces the adapters the device can be created on. An empty list makes
// NewDevice fail with ErrDeviceCreation.
//
// Parameters:
//   - adapters: the adapters to expose
//
// Returns:
//   - DeviceBuilderOption: a function that sets the adapter list
func WithAdapters(adapters ...Adapter) DeviceBuilderOption {
	return func(d *device) {
		d.adapters = adapters
	}
}

// WithAllowSoftware lets adapter selection fall back to software adapters.
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

// WithLatency delays the execution of every queued item on the GPU timeline.
//
// Parameters:
//   - latency: the simulated execution time per item
//
// Returns:
//   - DeviceBuilderOption: a function that sets the execution latency
func WithLatency(latency time.Duration) DeviceBuilderOption {
	return func(d *device) {
		d.latency = latency
	}
}

// WithFrozenTimeline starts the device with its GPU timeline paused. Work is queued but nothing
// executes and no fence advances until SetFrozen(false) is called.
//
// Returns:
//   - DeviceBuilderOption: a function that freezes the timeline
func WithFrozenTimeline() DeviceBuilderOption {
	return func(d *device) {
		d.frozen = true
	}
}

// WithDeviceLossAtSubmit makes the n-th Queue.Submit (1-based) fail with ErrDeviceLost and
// lose the device.
//
// Parameters:
//   - n: the submit ordinal that loses the device, 0 disables
//
// Returns:
//   - DeviceBuilderOption: a function that schedules the device loss
func WithDeviceLossAtSubmit(n int) DeviceBuilderOption {
	return func(d *device) {
		d.lossAtSubmit = n
	}
}

// WithDeviceLossAtPresent makes the n-th Surface.Present (1-based, across all surfaces) fail
// with ErrDeviceLost and lose the device.
//
// Parameters:
//   - n: the present ordinal that loses the device, 0 disables
//
// Returns:
//   - DeviceBuilderOption: a function that schedules the device loss
func WithDeviceLossAtPresent(n int) DeviceBuilderOption {
	return func(d *device) {
		d.lossAtPresent = n
	}
}

// WithPresentOrder overrides how surfaces pick the next ring index after a present. The
// result is reduced modulo the buffer count.
//
// Parameters:
//   - order: receives the presented index and the buffer count, returns the next index
//
// Returns:
//   - DeviceBuilderOption: a function that sets the present order
func WithPresentOrder(order func(presented, bufferCount int) int) DeviceBuilderOption {
	return func(d *device) {
		d.presentOrder = order
	}
}

// WithInitialIndex sets the ring index newly created surfaces report before their first present.
//
// Parameters:
//   - index: the initial index, reduced modulo the buffer count
//
// Returns:
//   - DeviceBuilderOption: a function that sets the initial index
func WithInitialIndex(index int) DeviceBuilderOption {
	return func(d *device) {
		d.initialIndex = index
	}
}

// WithRefreshInterval sets the simulated vertical blank period. Presents with a sync interval
// of n >= 1 block for n periods.
//
// Parameters:
//   - interval: the refresh period, 0 disables blocking
//
// Returns:
//   - DeviceBuilderOption: a function that sets the refresh interval
func WithRefreshInterval(interval time.Duration) DeviceBuilderOption {
	return func(d *device) {
		d.refreshInterval = interval
	}
}

// WithHistoryLimit bounds how many executed command buffers are kept for inspection.
//
// Parameters:
//   - limit: the number of most recent submissions to keep
//
// Returns:
//   - DeviceBuilderOption: a function that sets the history limit
func WithHistoryLimit(limit int) DeviceBuilderOption {
	return func(d *device) {
		d.historyLimit = limit
	}
}
