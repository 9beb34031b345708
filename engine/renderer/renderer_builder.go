package renderer

import (
	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/gpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/pipeline"
	"github.com/gogpu/gputypes"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithBackend selects the backend NewRenderer creates a device for.
//
// Parameters:
//   - backendType: the backend, defaults to BackendTypeHeadless
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend option to a renderer
func WithBackend(backendType RendererBackendType) RendererBuilderOption {
	return func(r *renderer) {
		r.backendType = backendType
	}
}

// WithDevice supplies an existing device instead of creating one. The renderer does not
// destroy a supplied device.
//
// Parameters:
//   - device: the device binding
//
// Returns:
//   - RendererBuilderOption: a function that applies the device option to a renderer
func WithDevice(device gpu.Device) RendererBuilderOption {
	return func(r *renderer) {
		r.device = device
	}
}

// WithOwnedDevice supplies an existing device and hands its ownership to the renderer:
// Destroy also destroys the device. Hosts that recreate the renderer after device loss use it.
//
// Parameters:
//   - device: the device binding
//
// Returns:
//   - RendererBuilderOption: a function that applies the device option to a renderer
func WithOwnedDevice(device gpu.Device) RendererBuilderOption {
	return func(r *renderer) {
		r.device = device
		r.ownsDevice = true
	}
}

// WithBufferCount sets the number of swap chain back buffers.
//
// Parameters:
//   - n: the buffer count, at least 2, defaults to 3
//
// Returns:
//   - RendererBuilderOption: a function that applies the buffer count option to a renderer
func WithBufferCount(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.bufferCount = n
	}
}

// WithSize sets the initial back buffer size.
//
// Parameters:
//   - width: back buffer width, defaults to 1280
//   - height: back buffer height, defaults to 720
//
// Returns:
//   - RendererBuilderOption: a function that applies the size option to a renderer
func WithSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.width = width
		r.height = height
	}
}

// WithFormat sets the back buffer format.
//
// Parameters:
//   - format: the texture format, defaults to RGBA8Unorm
//
// Returns:
//   - RendererBuilderOption: a function that applies the format option to a renderer
func WithFormat(format gputypes.TextureFormat) RendererBuilderOption {
	return func(r *renderer) {
		r.format = format
	}
}

// WithSyncInterval sets the interval the host loop presents with.
//
// Parameters:
//   - interval: 0 for uncapped, n >= 1 for vsync, defaults to 1
//
// Returns:
//   - RendererBuilderOption: a function that applies the sync interval option to a renderer
func WithSyncInterval(interval int) RendererBuilderOption {
	return func(r *renderer) {
		r.syncInterval = interval
	}
}

// WithClearColor sets the color every frame's render target is cleared to.
//
// Parameters:
//   - c: the clear color, defaults to {0, 0.2, 0.4, 1}
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(c common.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithPipeline sets the pipeline bound at the start of every frame. An unbuilt pipeline is
// built against the swap chain format.
//
// Parameters:
//   - p: the pipeline
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipeline option to a renderer
func WithPipeline(p pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pipe = p
	}
}

// WithPipelines adds pipelines that draw code can switch to with Recorder.SetPipeline. The
// renderer compiles them in parallel alongside its own pipeline and destroys them with itself.
//
// Parameters:
//   - pipelines: the additional pipelines, each with a unique key
//
// Returns:
//   - RendererBuilderOption: a function that adds the pipelines to a renderer
func WithPipelines(pipelines ...pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.extra = append(r.extra, pipelines...)
	}
}

// WithLabel sets the debug name used for the renderer and the objects it creates.
//
// Parameters:
//   - label: the label, defaults to "Renderer"
//
// Returns:
//   - RendererBuilderOption: a function that applies the label option to a renderer
func WithLabel(label string) RendererBuilderOption {
	return func(r *renderer) {
		r.label = label
	}
}
