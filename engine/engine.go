package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/recording"
	"github.com/Carmen-Shannon/oxy-frame/engine/window"
)

// minimizedPoll is how long the render loop sleeps while the window has no drawable area.
const minimizedPoll = 16 * time.Millisecond

// RendererFactory creates a renderer together with its device. The engine calls it once at
// construction and again every time the device is lost.
type RendererFactory func() (renderer.Renderer, error)

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	factory    RendererFactory
	rendererMu sync.Mutex
	renderer   renderer.Renderer
	recoveries int
	err        error

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	recordCallback func(rec recording.Recorder) error
	renderCallback func(deltaTime float32)

	// initialSync overrides the sync interval of the first renderer when set.
	initialSync *int

	resizeMu      sync.Mutex
	resizePending bool
	resizeWidth   int
	resizeHeight  int

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the host loop. It owns a renderer built by a RendererFactory, drives one frame
// per render loop iteration, forwards window resizes to the swap chain and rebuilds the
// renderer after device loss.
type Engine interface {
	// Window returns the window, or nil for a windowless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the current renderer. The instance changes after device loss recovery.
	//
	// Returns:
	//   - renderer.Renderer: the live renderer
	Renderer() renderer.Renderer

	// Recoveries returns how many times the renderer was rebuilt after device loss.
	//
	// Returns:
	//   - int: the recovery count
	Recoveries() int

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRecordCallback registers the function that records draw commands between
	// BeginFrame and Submit. The render target, viewport and scissor are already bound.
	//
	// Parameters:
	//   - callback: function receiving the open recording context
	SetRecordCallback(callback func(rec recording.Recorder) error)

	// SetRenderCallback registers the function called after each completed frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// SetSyncInterval sets the sync interval the renderer presents with. Recreated renderers
	// keep it.
	//
	// Parameters:
	//   - interval: 0 presents immediately, n >= 1 waits for n vertical blanks
	SetSyncInterval(interval int)

	// SyncInterval returns the sync interval the renderer presents with.
	//
	// Returns:
	//   - int: the current sync interval, 0 once Run has returned
	SyncInterval() int

	// Run starts the engine. With a window it blocks in the window message loop until the
	// window closes; without one it blocks until Quit. The renderer is destroyed on return,
	// the window is left for the caller to Close.
	//
	// Returns:
	//   - error: the error that stopped the render loop, nil on a clean quit
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine and its first renderer.
//
// Parameters:
//   - factory: creates the renderer, called again after device loss
//   - options: functional options for engine configuration (window, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: gpu.ErrInvalidConfig without a factory, or the factory error
func NewEngine(factory RendererFactory, options ...EngineBuilderOption) (Engine, error) {
	if factory == nil {
		return nil, gpu.Errorf(gpu.ErrInvalidConfig, "engine.NewEngine", "renderer factory is nil")
	}
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		factory:         factory,
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}

	r, err := factory()
	if err != nil {
		return nil, err
	}
	e.renderer = r
	if e.initialSync != nil {
		r.SetSyncInterval(*e.initialSync)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.queueResize)
		e.window.SetKeyDownCallback(func(keyCode uint32) {
			if keyCode == common.KeyV {
				e.toggleSync()
			}
		})
	}

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	e.rendererMu.Lock()
	defer e.rendererMu.Unlock()
	return e.renderer
}

func (e *engine) Recoveries() int {
	e.rendererMu.Lock()
	defer e.rendererMu.Unlock()
	return e.recoveries
}

func (e *engine) Run() error {
	e.running.Store(true)
	e.handle()
	if e.window != nil {
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				e.window.RequestClose()
			default:
			}
		})
		e.window.ProcessMessages()
		e.signalQuit()
	} else {
		<-e.quitChannel
	}
	e.wg.Wait()

	e.rendererMu.Lock()
	defer e.rendererMu.Unlock()
	if e.renderer != nil {
		e.renderer.Destroy()
		e.renderer = nil
	}
	return e.err
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// handle launches the tick and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Each iteration applies a pending resize and renders one complete frame.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.err = gpu.Errorf(gpu.ErrRecording, "engine.Run", "render loop panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		if e.window != nil && e.window.Minimized() {
			time.Sleep(minimizedPoll)
			continue
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		if err := e.renderFrame(); err != nil {
			e.err = err
			common.Logger().Error("render loop stopped", "error", err)
			e.signalQuit()
			return
		}

		if e.renderCallback != nil {
			e.renderCallback(dt)
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			elapsed := time.Since(lastRender)
			if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame drives one frame and handles its failure. It returns an error only when the
// loop cannot continue.
func (e *engine) renderFrame() error {
	r := e.Renderer()

	if err := e.applyResize(r); err != nil {
		return e.handleFrameError(r, err)
	}

	err := r.RenderFrame(r.SyncInterval(), e.recordCallback)
	if err == nil {
		if e.profilingEnabled && e.profiler != nil {
			e.profiler.Tick(r.Stats().Fence)
		}
		return nil
	}
	return e.handleFrameError(r, err)
}

func (e *engine) handleFrameError(r renderer.Renderer, err error) error {
	switch {
	case gpu.IsFatal(err) || gpu.IsFatal(r.Err()):
		return e.rebuild(r, err)
	case errors.Is(err, gpu.ErrResourceBusy):
		common.Logger().Debug("frame skipped", "error", err)
		return nil
	case errors.Is(err, gpu.ErrInvalidConfig):
		common.Logger().Warn("frame rejected", "error", err)
		return nil
	}

	common.Logger().Warn("frame failed", "state", r.State(), "error", err)
	if !r.Poisoned() {
		return nil
	}
	if werr := r.WaitForCompletion(); werr != nil {
		if gpu.IsFatal(werr) || gpu.IsFatal(r.Err()) {
			return e.rebuild(r, werr)
		}
		return werr
	}
	return nil
}

// rebuild replaces a renderer whose device was lost.
func (e *engine) rebuild(lost renderer.Renderer, cause error) error {
	common.Logger().Warn("device lost, recreating renderer", "device", lost.Device().Label(), "cause", cause)
	syncInterval := lost.SyncInterval()
	lost.Destroy()

	next, err := e.factory()
	if err != nil {
		return err
	}
	next.SetSyncInterval(syncInterval)
	if e.window != nil && !e.window.Minimized() {
		if err := next.Resize(e.window.Width(), e.window.Height()); err != nil {
			next.Destroy()
			return err
		}
	}

	e.rendererMu.Lock()
	e.renderer = next
	e.recoveries++
	n := e.recoveries
	e.rendererMu.Unlock()

	common.Logger().Info("renderer recreated", "device", next.Device().Label(), "recoveries", n)
	return nil
}

// queueResize records the latest framebuffer size. The render loop applies it between frames.
func (e *engine) queueResize(width, height int) {
	e.resizeMu.Lock()
	defer e.resizeMu.Unlock()
	e.resizePending = true
	e.resizeWidth = width
	e.resizeHeight = height
}

func (e *engine) applyResize(r renderer.Renderer) error {
	e.resizeMu.Lock()
	if !e.resizePending || e.resizeWidth <= 0 || e.resizeHeight <= 0 {
		e.resizeMu.Unlock()
		return nil
	}
	width, height := e.resizeWidth, e.resizeHeight
	e.resizePending = false
	e.resizeMu.Unlock()

	return r.Resize(width, height)
}

func (e *engine) toggleSync() {
	next := 1
	if e.SyncInterval() != 0 {
		next = 0
	}
	e.SetSyncInterval(next)
	common.Logger().Info("sync interval toggled", "syncInterval", next)
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRecordCallback(callback func(rec recording.Recorder) error) {
	e.recordCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) SetSyncInterval(interval int) {
	if r := e.Renderer(); r != nil {
		r.SetSyncInterval(interval)
	}
}

func (e *engine) SyncInterval() int {
	if r := e.Renderer(); r != nil {
		return r.SyncInterval()
	}
	return 0
}
