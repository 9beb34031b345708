package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/descriptor"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/fence"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/recording"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/swapchain"
	"github.com/gogpu/gputypes"
)

// State is the position of a renderer in the per-frame protocol.
type State int

const (
	// StateIdle accepts BeginFrame.
	StateIdle State = iota

	// StateRecording has an open command list; callers record draws.
	StateRecording

	// StateSubmitted has handed the frame's command buffer to the queue.
	StateSubmitted

	// StatePresented has queued the back buffer for display and awaits WaitForCompletion.
	StatePresented
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRecording:
		return "Recording"
	case StateSubmitted:
		return "Submitted"
	case StatePresented:
		return "Presented"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats is a snapshot of renderer counters.
type Stats struct {
	// Frames counts frames that reached Presented.
	Frames uint64
	// Completed counts frames confirmed complete by WaitForCompletion.
	Completed uint64
	// BusyRejections counts BeginFrame calls refused because the previous frame was in flight.
	BusyRejections uint64
	// Resizes counts successful swap chain recreations.
	Resizes uint64
	// Fence holds the frame fence statistics.
	Fence fence.Stats
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	label        string
	backendType  RendererBackendType
	device       gpu.Device
	ownsDevice   bool
	width        int
	height       int
	bufferCount  int
	format       gputypes.TextureFormat
	syncInterval int
	clearColor   common.Color

	pipe      pipeline.Pipeline
	ownsPipe  bool
	extra     []pipeline.Pipeline
	pipelines pipeline.Registry
	swapChain swapchain.SwapChain
	table     descriptor.Table
	fence     fence.Fence
	rec       recording.Context

	state     State
	poisoned  error
	destroyed bool

	// frameIndex and target are the swap chain slot and view bound by the open frame.
	frameIndex int
	target     descriptor.View

	// pendingValue is a fence value signaled by WaitForCompletion but not yet confirmed.
	pendingValue uint64

	stats Stats
}

// Renderer is the frame orchestrator. It sequences the device, swap chain, view table,
// recording context and frame fence into the per-frame protocol
//
//	BeginFrame -> record -> Submit -> Present -> WaitForCompletion
//
// and enforces the state machine Idle -> Recording -> Submitted -> Presented -> Idle.
//
// One goroutine drives the protocol. Methods lock an internal mutex so accessors may be read
// from another goroutine, but WaitForCompletion holds it while blocked.
//
// Any failure in the middle of a frame poisons the renderer: BeginFrame is rejected with
// ErrRecording until a WaitForCompletion succeeds or the renderer is destroyed. Device loss
// cannot be cleared; the caller must Destroy and create a new renderer.
type Renderer interface {
	// BeginFrame starts a frame. It checks that the previous frame completed, resets the
	// recording context, acquires the current back buffer, records the
	// Presentable->RenderTarget transition, binds and clears the render target and sets the
	// full viewport and scissor.
	//
	// Returns:
	//   - error: ErrRecording when not Idle, poisoned or destroyed; ErrResourceBusy when the
	//     previous frame is still executing; ErrDeviceLost on device loss
	BeginFrame() error

	// Submit records the RenderTarget->Presentable transition, closes the command list and
	// submits it.
	//
	// Returns:
	//   - error: ErrRecording when not Recording or the list fails to close; ErrDeviceLost on
	//     device loss
	Submit() error

	// Present queues the back buffer for display and adopts the index reported by the swap
	// chain.
	//
	// Parameters:
	//   - syncInterval: 0 presents immediately, n >= 1 waits for n vertical blanks
	//
	// Returns:
	//   - error: ErrRecording when not Submitted; ErrInvalidConfig for a negative interval;
	//     ErrDeviceLost on device loss
	Present(syncInterval int) error

	// WaitForCompletion signals the frame fence and blocks until the GPU reaches the value.
	// From Presented it returns to Idle. From a poisoned state it clears a non-device
	// failure. From Idle it drains outstanding work.
	//
	// Returns:
	//   - error: ErrRecording mid-frame or when destroyed; ErrDeviceLost on device loss
	WaitForCompletion() error

	// WaitForCompletionContext is WaitForCompletion with cancellation. A canceled wait leaves
	// the state unchanged; the next call waits for the same fence value.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//
	// Returns:
	//   - error: as WaitForCompletion, or the context error
	WaitForCompletionContext(ctx context.Context) error

	// RenderFrame runs one complete frame: BeginFrame, record, Submit, Present and
	// WaitForCompletion.
	//
	// Parameters:
	//   - syncInterval: passed to Present
	//   - record: records draws into the open list, may be nil
	//
	// Returns:
	//   - error: the first failing step
	RenderFrame(syncInterval int, record func(rec recording.Recorder) error) error

	// Recorder returns the draw side of the open command list, or nil outside Recording.
	// Barriers, render target binding and clears stay with the renderer.
	//
	// Returns:
	//   - recording.Recorder: the recorder for the open frame
	Recorder() recording.Recorder

	// RenderTarget returns the view bound for the open frame, or nil outside Recording.
	//
	// Returns:
	//   - descriptor.View: the back buffer view
	RenderTarget() descriptor.View

	// Viewport returns the full back buffer viewport.
	//
	// Returns:
	//   - common.Viewport: the viewport
	Viewport() common.Viewport

	// Scissor returns the full back buffer scissor rectangle.
	//
	// Returns:
	//   - common.Rect: the scissor rectangle
	Scissor() common.Rect

	// Resize recreates the swap chain and view table at the new size. The renderer must be
	// Idle; outstanding GPU work is drained first.
	//
	// Parameters:
	//   - width: new back buffer width
	//   - height: new back buffer height
	//
	// Returns:
	//   - error: ErrRecording when not Idle; ErrInvalidConfig for a non-positive size; the
	//     device error otherwise
	Resize(width, height int) error

	// Destroy waits for the GPU where possible and releases every resource. Afterwards the
	// renderer reports Idle and rejects BeginFrame with ErrRecording.
	Destroy()

	// State returns the protocol state.
	//
	// Returns:
	//   - State: the current state
	State() State

	// Poisoned reports whether a mid-frame failure is blocking BeginFrame.
	//
	// Returns:
	//   - bool: true while poisoned
	Poisoned() bool

	// Err returns the failure that poisoned the renderer, or nil.
	//
	// Returns:
	//   - error: the poisoning error
	Err() error

	// CurrentIndex returns the swap chain index the next frame renders into.
	//
	// Returns:
	//   - int: a value in [0, BufferCount)
	CurrentIndex() int

	// BufferCount returns the swap chain size.
	//
	// Returns:
	//   - int: the number of back buffers
	BufferCount() int

	// FrameCount returns the number of frames presented.
	//
	// Returns:
	//   - uint64: presented frames
	FrameCount() uint64

	// SyncInterval returns the interval the host loop presents with.
	//
	// Returns:
	//   - int: the sync interval
	SyncInterval() int

	// SetSyncInterval changes the interval the host loop presents with.
	//
	// Parameters:
	//   - interval: 0 for uncapped, n >= 1 for vsync
	SetSyncInterval(interval int)

	// Pipeline returns the pipeline bound at the start of every frame.
	//
	// Returns:
	//   - pipeline.Pipeline: the active pipeline
	Pipeline() pipeline.Pipeline

	// PipelineByKey returns the active pipeline or one added with WithPipelines.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline, or nil
	//   - bool: true if found
	PipelineByKey(key string) (pipeline.Pipeline, bool)

	// Device returns the device binding.
	//
	// Returns:
	//   - gpu.Device: the device
	Device() gpu.Device

	// Table returns the descriptor view table.
	//
	// Returns:
	//   - descriptor.Table: the view table
	Table() descriptor.Table

	// Fence returns the frame fence.
	//
	// Returns:
	//   - fence.Fence: the frame fence
	Fence() fence.Fence

	// Stats returns a snapshot of the renderer counters.
	//
	// Returns:
	//   - Stats: the counters
	Stats() Stats
}

var _ Renderer = &renderer{}

// NewRenderer creates the device (unless WithDevice supplies one), swap chain, view table,
// frame fence, recording context and pipeline. Without WithPipeline the built-in colored
// triangle pipeline is built. Destroy releases what NewRenderer created and the pipelines
// added with WithPipelines.
//
// Parameters:
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: an Idle renderer
//   - error: ErrDeviceCreation, ErrPipelineCompile or ErrInvalidConfig
func NewRenderer(options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:           &sync.Mutex{},
		label:        "Renderer",
		backendType:  BackendTypeHeadless,
		width:        1280,
		height:       720,
		bufferCount:  3,
		format:       swapchain.DefaultFormat,
		syncInterval: 1,
		clearColor:   common.Color{R: 0, G: 0.2, B: 0.4, A: 1},
	}
	for _, opt := range options {
		opt(r)
	}
	if err := r.init(); err != nil {
		r.release()
		return nil, err
	}
	common.Logger().Info("renderer created", "label", r.label, "backend", r.backendType, "device", r.device.Label(),
		"buffers", r.bufferCount, "size", fmt.Sprintf("%dx%d", r.width, r.height))
	return r, nil
}

func (r *renderer) init() error {
	if r.syncInterval < 0 {
		return gpu.Errorf(gpu.ErrInvalidConfig, "NewRenderer", "negative sync interval %d", r.syncInterval)
	}
	cfg, err := swapchain.CreateDefault(r.width, r.height, r.bufferCount)
	if err != nil {
		return err
	}
	cfg.Label = r.label
	cfg.Format = r.format
	if r.syncInterval == 0 {
		cfg.PresentMode = gpu.PresentModeUncapped
	}

	if r.device == nil {
		if r.device, err = newDevice(r.backendType, r.label); err != nil {
			return err
		}
		r.ownsDevice = true
	}
	if r.fence, err = fence.NewFence(r.device); err != nil {
		return err
	}
	if r.swapChain, err = swapchain.NewSwapChain(r.device, cfg, swapchain.WithFence(r.fence)); err != nil {
		return err
	}
	if r.table, err = descriptor.NewTable(r.swapChain.Surface()); err != nil {
		return err
	}
	if r.rec, err = recording.NewContext(r.device, r.label+" Commands"); err != nil {
		return err
	}
	if r.pipe == nil {
		if r.pipe, err = pipeline.NewTrianglePipeline(r.label + " Triangle"); err != nil {
			return err
		}
		r.ownsPipe = true
	}
	return r.buildPipelines(cfg.Format)
}

// buildPipelines registers the owned pipelines and compiles them in parallel. A caller supplied
// main pipeline stays outside the registry and is built directly.
func (r *renderer) buildPipelines(format gputypes.TextureFormat) error {
	r.pipelines = pipeline.NewRegistry()
	owned := r.extra
	if r.ownsPipe {
		owned = append([]pipeline.Pipeline{r.pipe}, owned...)
	} else {
		if err := checkPipelineFormat(r.pipe, format); err != nil {
			return err
		}
		if !r.pipe.Built() {
			if err := r.pipe.Build(r.device, format); err != nil {
				return err
			}
		}
	}
	for _, p := range owned {
		if p == nil {
			return gpu.Errorf(gpu.ErrInvalidConfig, "NewRenderer", "nil pipeline")
		}
		if p.PipelineKey() == r.pipe.PipelineKey() && p != r.pipe {
			return gpu.Errorf(gpu.ErrInvalidConfig, "NewRenderer", "pipeline %q already registered", p.PipelineKey())
		}
		if err := checkPipelineFormat(p, format); err != nil {
			return err
		}
		if err := r.pipelines.Add(p); err != nil {
			return err
		}
	}
	return r.pipelines.BuildAll(r.device, format)
}

func checkPipelineFormat(p pipeline.Pipeline, format gputypes.TextureFormat) error {
	if p.Built() && p.Format() != format {
		return gpu.Errorf(gpu.ErrPipelineCompile, "NewRenderer", "pipeline %s was built for %v, swap chain uses %v", p.PipelineKey(), p.Format(), format)
	}
	return nil
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	const op = "Renderer.BeginFrame"

	if err := r.checkUsable(op); err != nil {
		return err
	}
	if r.state != StateIdle {
		return gpu.Errorf(gpu.ErrRecording, op, "state is %s, want Idle", r.state)
	}
	if last := r.fence.LastSignaled(); !r.fence.IsComplete(last) {
		r.stats.BusyRejections++
		return gpu.Errorf(gpu.ErrResourceBusy, op, "frame fence value %d not complete (completed %d)", last, r.fence.CompletedValue())
	}

	if err := r.rec.Reset(r.pipe.RenderPipeline()); err != nil {
		if errors.Is(err, gpu.ErrResourceBusy) {
			r.stats.BusyRejections++
			return err
		}
		return r.fail(err)
	}
	r.state = StateRecording

	index, err := r.swapChain.AcquireCurrentIndex()
	if err != nil {
		return r.fail(err)
	}
	view, err := r.table.View(index)
	if err != nil {
		return r.fail(err)
	}
	steps := []func() error{
		func() error {
			return r.rec.Barrier(view.Texture(), gpu.ResourceStatePresentable, gpu.ResourceStateRenderTarget)
		},
		func() error { return r.rec.SetRenderTarget(view) },
		func() error { return r.rec.Clear(r.clearColor) },
		func() error { return r.rec.SetViewport(r.swapChain.Viewport()) },
		func() error { return r.rec.SetScissor(r.swapChain.Scissor()) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return r.fail(err)
		}
	}
	r.frameIndex = index
	r.target = view
	common.Logger().Debug("frame begun", "label", r.label, "index", index, "frame", r.stats.Frames+1)
	return nil
}

func (r *renderer) Submit() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	const op = "Renderer.Submit"

	if err := r.checkUsable(op); err != nil {
		return err
	}
	if r.state != StateRecording {
		return gpu.Errorf(gpu.ErrRecording, op, "state is %s, want Recording", r.state)
	}
	if err := r.rec.Barrier(r.target.Texture(), gpu.ResourceStateRenderTarget, gpu.ResourceStatePresentable); err != nil {
		return r.fail(err)
	}
	if err := checkBracketing(r.rec.Commands(), r.target.Texture()); err != nil {
		return r.fail(err)
	}
	cb, err := r.rec.Close()
	if err != nil {
		return r.fail(err)
	}
	if err := r.device.Queue().Submit(cb); err != nil {
		return r.fail(err)
	}
	r.state = StateSubmitted
	common.Logger().Debug("frame submitted", "label", r.label, "buffer", cb.Label(), "commands", len(cb.Commands()))
	return nil
}

func (r *renderer) Present(syncInterval int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	const op = "Renderer.Present"

	if err := r.checkUsable(op); err != nil {
		return err
	}
	if r.state != StateSubmitted {
		return gpu.Errorf(gpu.ErrRecording, op, "state is %s, want Submitted", r.state)
	}
	if syncInterval < 0 {
		return gpu.Errorf(gpu.ErrInvalidConfig, op, "negative sync interval %d", syncInterval)
	}
	if err := r.swapChain.Present(syncInterval); err != nil {
		return r.fail(err)
	}
	r.state = StatePresented
	r.target = nil
	r.stats.Frames++
	return nil
}

func (r *renderer) WaitForCompletion() error {
	return r.WaitForCompletionContext(context.Background())
}

func (r *renderer) WaitForCompletionContext(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	const op = "Renderer.WaitForCompletion"

	if r.destroyed {
		return gpu.Errorf(gpu.ErrRecording, op, "renderer destroyed")
	}
	if r.poisoned == nil && (r.state == StateRecording || r.state == StateSubmitted) {
		return gpu.Errorf(gpu.ErrRecording, op, "state is %s, want Presented", r.state)
	}
	if r.poisoned != nil && gpu.IsFatal(r.poisoned) {
		return gpu.Errorf(gpu.ErrRecording, op, "renderer is poisoned: %w", r.poisoned)
	}
	if r.poisoned != nil && r.rec.Open() {
		// Discard the half recorded frame so the next Reset finds a closed list.
		_, _ = r.rec.Close()
	}

	if r.pendingValue == 0 {
		v, err := r.fence.Signal(r.device.Queue())
		if err != nil {
			return r.fail(err)
		}
		r.pendingValue = v
	}
	if err := r.fence.WaitUntilContext(ctx, r.pendingValue); err != nil {
		if errors.Is(err, gpu.ErrDeviceLost) {
			return r.fail(err)
		}
		return err
	}
	common.Logger().Debug("frame complete", "label", r.label, "value", r.pendingValue, "state", r.state)

	r.pendingValue = 0
	if r.state == StatePresented {
		r.stats.Completed++
	}
	if r.poisoned != nil {
		common.Logger().Info("renderer recovered", "label", r.label, "cause", r.poisoned)
		r.poisoned = nil
	}
	r.state = StateIdle
	r.target = nil
	return nil
}

func (r *renderer) RenderFrame(syncInterval int, record func(rec recording.Recorder) error) error {
	if err := r.BeginFrame(); err != nil {
		return err
	}
	if record != nil {
		if err := record(r.Recorder()); err != nil {
			r.mu.Lock()
			err = r.fail(err)
			r.mu.Unlock()
			return err
		}
	}
	if err := r.Submit(); err != nil {
		return err
	}
	if err := r.Present(syncInterval); err != nil {
		return err
	}
	return r.WaitForCompletion()
}

func (r *renderer) Recorder() recording.Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording || r.poisoned != nil {
		return nil
	}
	return r.rec
}

func (r *renderer) RenderTarget() descriptor.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return nil
	}
	return r.target
}

func (r *renderer) Viewport() common.Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.swapChain == nil {
		return common.Viewport{}
	}
	return r.swapChain.Viewport()
}

func (r *renderer) Scissor() common.Rect {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.swapChain == nil {
		return common.Rect{}
	}
	return r.swapChain.Scissor()
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	const op = "Renderer.Resize"

	if err := r.checkUsable(op); err != nil {
		return err
	}
	if r.state != StateIdle {
		return gpu.Errorf(gpu.ErrRecording, op, "state is %s, want Idle", r.state)
	}
	if last := r.fence.LastSignaled(); !r.fence.IsComplete(last) {
		if err := r.fence.WaitUntil(last); err != nil {
			return r.fail(err)
		}
	}
	if err := r.swapChain.Resize(width, height); err != nil {
		if r.swapChain.Surface() != nil && (errors.Is(err, gpu.ErrInvalidConfig) || errors.Is(err, gpu.ErrResourceBusy)) {
			return err
		}
		return r.fail(err)
	}
	if err := r.table.Rebuild(r.swapChain.Surface()); err != nil {
		return r.fail(err)
	}
	r.width, r.height = width, height
	r.stats.Resizes++
	common.Logger().Info("renderer resized", "label", r.label, "size", fmt.Sprintf("%dx%d", width, height),
		"index", r.swapChain.CurrentIndex(), "generation", r.table.Generation())
	return nil
}

func (r *renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return
	}
	if r.device != nil && !r.device.Lost() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := r.device.WaitIdle(ctx); err != nil {
			common.Logger().Warn("renderer destroy without drain", "label", r.label, "error", err)
		}
		cancel()
	}
	r.release()
	r.destroyed = true
	r.state = StateIdle
	r.target = nil
	common.Logger().Info("renderer destroyed", "label", r.label, "frames", r.stats.Frames)
}

// release destroys whatever init created, in reverse order.
func (r *renderer) release() {
	if r.rec != nil {
		r.rec.Destroy()
	}
	if r.pipelines != nil {
		r.pipelines.Destroy()
	}
	if r.table != nil {
		r.table.Destroy()
	}
	if r.swapChain != nil {
		r.swapChain.Destroy()
	}
	if r.fence != nil {
		r.fence.Destroy()
	}
	if r.device != nil && r.ownsDevice {
		r.device.Destroy()
	}
}

func (r *renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *renderer) Poisoned() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.poisoned != nil
}

func (r *renderer) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.poisoned
}

func (r *renderer) CurrentIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRecording {
		return r.frameIndex
	}
	return r.swapChain.CurrentIndex()
}

func (r *renderer) BufferCount() int {
	return r.bufferCount
}

func (r *renderer) FrameCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats.Frames
}

func (r *renderer) SyncInterval() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.syncInterval
}

func (r *renderer) SetSyncInterval(interval int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncInterval = max(interval, 0)
}

func (r *renderer) Pipeline() pipeline.Pipeline {
	return r.pipe
}

func (r *renderer) PipelineByKey(key string) (pipeline.Pipeline, bool) {
	if r.pipe != nil && r.pipe.PipelineKey() == key {
		return r.pipe, true
	}
	if r.pipelines == nil {
		return nil, false
	}
	return r.pipelines.Get(key)
}

func (r *renderer) Device() gpu.Device {
	return r.device
}

func (r *renderer) Table() descriptor.Table {
	return r.table
}

func (r *renderer) Fence() fence.Fence {
	return r.fence
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.Fence = r.fence.Stats()
	return s
}

// checkUsable rejects calls on a destroyed or poisoned renderer.
func (r *renderer) checkUsable(op string) error {
	if r.destroyed {
		return gpu.Errorf(gpu.ErrRecording, op, "renderer destroyed")
	}
	if r.poisoned != nil {
		return gpu.Errorf(gpu.ErrRecording, op, "renderer is poisoned: %w", r.poisoned)
	}
	return nil
}

// fail poisons the renderer with err and returns it.
func (r *renderer) fail(err error) error {
	if r.poisoned == nil {
		r.poisoned = err
		common.Logger().Warn("renderer poisoned", "label", r.label, "state", r.state, "error", err)
	}
	return err
}
