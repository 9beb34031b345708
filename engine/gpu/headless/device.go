// Package headless implements gpu.Device as a simulated GPU. Submitted work runs on a dedicated
// goroutine that plays the GPU timeline, tracks the resource state of every surface texture and
// records what it executed, so the frame protocol can be exercised without graphics hardware.
package headless

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
)

// AdapterType classifies a simulated adapter.
type AdapterType int

const (
	AdapterTypeDiscrete AdapterType = iota
	AdapterTypeIntegrated
	AdapterTypeSoftware
)

// Adapter describes a simulated physical device.
type Adapter struct {
	Name string
	Type AdapterType
}

// Submission is one command buffer the simulated GPU executed.
type Submission struct {
	// Ordinal is the 1-based submit count at which the buffer was queued.
	Ordinal int
	Label   string

	Commands []gpu.Command
}

// Stats counts the work seen by the device.
type Stats struct {
	Submits         uint64
	Executed        uint64
	Signals         uint64
	Presents        uint64
	AllocatorResets uint64
}

// Device is a gpu.Device with hooks for inspecting and steering the simulated GPU.
type Device interface {
	gpu.Device

	// Adapter returns the adapter the device was created on.
	//
	// Returns:
	//   - Adapter: the selected adapter
	Adapter() Adapter

	// SetFrozen pauses or resumes the GPU timeline. While frozen, work is queued but not executed.
	//
	// Parameters:
	//   - frozen: true to pause, false to resume
	SetFrozen(frozen bool)

	// Lose marks the device lost. Pending work is dropped and every waiter is released with ErrDeviceLost.
	//
	// Parameters:
	//   - reason: recorded as the cause of the loss
	Lose(reason string)

	// Submissions returns the most recent executed command buffers in execution order.
	//
	// Returns:
	//   - []Submission: the executed buffers
	Submissions() []Submission

	// Violations returns every resource-state violation the timeline detected.
	//
	// Returns:
	//   - []string: human readable violation messages
	Violations() []string

	// Stats returns the work counters.
	//
	// Returns:
	//   - Stats: the current counters
	Stats() Stats
}

// device is the implementation of the Device interface.
type device struct {
	label           string
	adapters        []Adapter
	adapter         Adapter
	allowSoftware   bool
	latency         time.Duration
	lossAtSubmit    int
	lossAtPresent   int
	presentOrder    func(presented, bufferCount int) int
	initialIndex    int
	refreshInterval time.Duration
	historyLimit    int

	queue *queue

	mu          *sync.Mutex
	cond        *sync.Cond
	pending     []work
	frozen      bool
	closed      bool
	submissions []Submission
	violations  []string
	states      map[*texture]gpu.ResourceState

	lost       atomic.Bool
	lostCh     chan struct{}
	lostOnce   sync.Once
	lostReason string
	done       chan struct{}
	closeOnce  sync.Once

	submits         atomic.Uint64
	executed        atomic.Uint64
	signals         atomic.Uint64
	presents        atomic.Uint64
	allocatorResets atomic.Uint64
}

var _ Device = &device{}

// NewDevice creates a simulated device and starts its GPU timeline.
// By default a single discrete adapter is available.
//
// Parameters:
//   - opts: device options
//
// Returns:
//   - Device: the new device
//   - error: ErrDeviceCreation if no adapter is acceptable
func NewDevice(opts ...DeviceBuilderOption) (Device, error) {
	mu := &sync.Mutex{}
	d := &device{
		label:        "Headless Device",
		adapters:     []Adapter{{Name: "Headless Discrete GPU", Type: AdapterTypeDiscrete}},
		historyLimit: 256,
		mu:           mu,
		cond:         sync.NewCond(mu),
		states:       make(map[*texture]gpu.ResourceState),
		lostCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	adapter, err := selectAdapter(d.adapters, d.allowSoftware)
	if err != nil {
		return nil, err
	}
	d.adapter = adapter
	d.queue = &queue{device: d}

	common.Logger().Info("headless device created", "label", d.label, "adapter", adapter.Name)

	go d.run()
	return d, nil
}

// selectAdapter prefers discrete over integrated adapters and only takes a software adapter
// when allowed.
func selectAdapter(adapters []Adapter, allowSoftware bool) (Adapter, error) {
	best := -1
	rank := func(t AdapterType) int {
		switch t {
		case AdapterTypeDiscrete:
			return 3
		case AdapterTypeIntegrated:
			return 2
		case AdapterTypeSoftware:
			if allowSoftware {
				return 1
			}
		}
		return 0
	}
	for i, a := range adapters {
		if rank(a.Type) == 0 {
			continue
		}
		if best < 0 || rank(a.Type) > rank(adapters[best].Type) {
			best = i
		}
	}
	if best < 0 {
		return Adapter{}, gpu.Errorf(gpu.ErrDeviceCreation, "headless.NewDevice", "no suitable adapter among %d", len(adapters))
	}
	return adapters[best], nil
}

func (d *device) Label() string {
	return d.label
}

func (d *device) Adapter() Adapter {
	return d.adapter
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
	return newSurface(d, cfg), nil
}

func (d *device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	if err := d.checkLost("Device.CreateRenderPipeline"); err != nil {
		return nil, err
	}
	if desc == nil {
		return nil, gpu.Errorf(gpu.ErrPipelineCompile, "Device.CreateRenderPipeline", "nil descriptor")
	}
	switch {
	case desc.Vertex.EntryPoint == "":
		return nil, gpu.Errorf(gpu.ErrPipelineCompile, "Device.CreateRenderPipeline", "%s: vertex stage has no entry point", desc.Label)
	case desc.Fragment.EntryPoint == "":
		return nil, gpu.Errorf(gpu.ErrPipelineCompile, "Device.CreateRenderPipeline", "%s: fragment stage has no entry point", desc.Label)
	case desc.SampleCount != 1 && desc.SampleCount != 4:
		return nil, gpu.Errorf(gpu.ErrPipelineCompile, "Device.CreateRenderPipeline", "%s: unsupported sample count %d", desc.Label, desc.SampleCount)
	}
	return &renderPipeline{label: desc.Label, desc: *desc}, nil
}

func (d *device) CreateVertexBuffer(label string, data []byte) (gpu.Buffer, error) {
	if err := d.checkLost("Device.CreateVertexBuffer"); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, gpu.Errorf(gpu.ErrInvalidConfig, "Device.CreateVertexBuffer", "%s: empty vertex data", label)
	}
	contents := make([]byte, len(data))
	copy(contents, data)
	return &buffer{label: label, data: contents}, nil
}

func (d *device) Lost() bool {
	return d.lost.Load()
}

func (d *device) WaitIdle(ctx context.Context) error {
	f := newFence(d)
	if err := d.queue.Signal(f, 1); err != nil {
		return err
	}
	return f.Wait(ctx, 1)
}

func (d *device) Destroy() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.cond.Broadcast()
		d.mu.Unlock()
		<-d.done
		common.Logger().Info("headless device destroyed", "label", d.label)
	})
}

func (d *device) SetFrozen(frozen bool) {
	d.mu.Lock()
	d.frozen = frozen
	d.cond.Broadcast()
	d.mu.Unlock()
}

func (d *device) Lose(reason string) {
	d.lostOnce.Do(func() {
		d.mu.Lock()
		d.lostReason = reason
		d.lost.Store(true)
		d.pending = nil
		d.cond.Broadcast()
		d.mu.Unlock()
		close(d.lostCh)
		common.Logger().Warn("headless device lost", "label", d.label, "reason", reason)
	})
}

func (d *device) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Submission, len(d.submissions))
	copy(out, d.submissions)
	return out
}

func (d *device) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.violations))
	copy(out, d.violations)
	return out
}

func (d *device) Stats() Stats {
	return Stats{
		Submits:         d.submits.Load(),
		Executed:        d.executed.Load(),
		Signals:         d.signals.Load(),
		Presents:        d.presents.Load(),
		AllocatorResets: d.allocatorResets.Load(),
	}
}

func (d *device) checkLost(op string) error {
	if !d.lost.Load() {
		return nil
	}
	d.mu.Lock()
	reason := d.lostReason
	d.mu.Unlock()
	return gpu.NewError(gpu.ErrDeviceLost, op, errors.New(reason))
}
