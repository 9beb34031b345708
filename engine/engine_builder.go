package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/recording"
	"github.com/Carmen-Shannon/oxy-frame/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow attaches a window. The engine forwards its resizes to the renderer and stops
// when it closes. Without a window the engine runs until Quit.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithSyncInterval overrides the sync interval the factory's renderer was configured with. The
// V key toggles it between 0 and 1 at runtime when a window is attached.
//
// Parameters:
//   - interval: 0 presents immediately, n >= 1 waits for n vertical blanks
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSyncInterval(interval int) EngineBuilderOption {
	return func(e *engine) {
		interval = max(interval, 0)
		e.initialSync = &interval
	}
}

// WithRecordCallback registers the function that records each frame's draw commands.
//
// Parameters:
//   - callback: function receiving the open recording context
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRecordCallback(callback func(rec recording.Recorder) error) EngineBuilderOption {
	return func(e *engine) {
		e.recordCallback = callback
	}
}

// WithProfiler replaces the default profiler, for example to change its interval.
//
// Parameters:
//   - p: the profiler to feed after every completed frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
