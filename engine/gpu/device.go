package gpu

import "context"

// Device is the logical graphics device. It owns exactly one Queue and creates every other
// GPU object. A Device is created once per backend and destroyed after all GPU work is drained.
type Device interface {
	// Label returns the debug name of the device.
	//
	// Returns:
	//   - string: the device label
	Label() string

	// Queue returns the single submission queue owned by the device.
	//
	// Returns:
	//   - Queue: the device queue
	Queue() Queue

	// CreateFence creates a timeline fence whose completed value starts at 0.
	//
	// Returns:
	//   - Fence: the new fence
	//   - error: ErrDeviceLost if the device is lost
	CreateFence() (Fence, error)

	// CreateCommandAllocator creates an allocator that backs encoded command buffers.
	//
	// Parameters:
	//   - label: debug name for the allocator
	//
	// Returns:
	//   - CommandAllocator: the new allocator
	//   - error: ErrDeviceLost if the device is lost
	CreateCommandAllocator(label string) (CommandAllocator, error)

	// CreateSurface creates the native ring of presentable textures described by cfg.
	// All textures start in ResourceStatePresentable.
	//
	// Parameters:
	//   - cfg: the surface configuration
	//
	// Returns:
	//   - Surface: the new surface ring
	//   - error: ErrInvalidConfig for a bad configuration, ErrDeviceLost if the device is lost
	CreateSurface(cfg SurfaceConfig) (Surface, error)

	// CreateRenderPipeline compiles a render pipeline.
	//
	// Parameters:
	//   - desc: the complete pipeline description
	//
	// Returns:
	//   - RenderPipeline: the compiled, immutable pipeline
	//   - error: ErrPipelineCompile when the description is rejected
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)

	// CreateVertexBuffer creates a vertex buffer initialized with data.
	//
	// Parameters:
	//   - label: debug name for the buffer
	//   - data: the initial contents, must not be empty
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: ErrInvalidConfig for empty data, ErrDeviceLost if the device is lost
	CreateVertexBuffer(label string, data []byte) (Buffer, error)

	// Lost reports whether the device has been lost. A lost device never recovers.
	//
	// Returns:
	//   - bool: true if the device is lost
	Lost() bool

	// WaitIdle blocks until every submission has finished executing or ctx is done.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//
	// Returns:
	//   - error: ctx.Err() on cancellation, ErrDeviceLost if the device is lost
	WaitIdle(ctx context.Context) error

	// Destroy releases the device. Objects created from it must be destroyed first.
	Destroy()
}

// Queue executes command buffers in submission order.
type Queue interface {
	// Submit hands a closed command buffer to the GPU. It does not wait for execution.
	//
	// Parameters:
	//   - cb: the command buffer, produced by a CommandAllocator of the same device
	//
	// Returns:
	//   - error: ErrDeviceLost if the device is lost, ErrRecording for a foreign or resubmitted buffer
	Submit(cb CommandBuffer) error

	// Signal asks the queue to set f's completed value to value after all previously submitted
	// work has executed. It does not block.
	//
	// Parameters:
	//   - f: the fence to signal
	//   - value: the timeline value to signal
	//
	// Returns:
	//   - error: ErrDeviceLost if the device is lost
	Signal(f Fence, value uint64) error
}

// Fence is a GPU timeline value observed by the CPU.
type Fence interface {
	// CompletedValue returns the last value the GPU reached. It never decreases but may lag.
	//
	// Returns:
	//   - uint64: the completed value
	CompletedValue() uint64

	// Wait blocks until CompletedValue() >= value or ctx is done.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//   - value: the value to wait for
	//
	// Returns:
	//   - error: ctx.Err() on cancellation, ErrDeviceLost if the device is lost while waiting
	Wait(ctx context.Context, value uint64) error

	// Destroy releases the fence.
	Destroy()
}

// CommandAllocator owns the memory behind encoded command buffers.
type CommandAllocator interface {
	// Encode translates a recorded command list into a native command buffer owned by the allocator.
	//
	// Parameters:
	//   - label: debug name for the command buffer
	//   - cmds: the recorded commands in execution order
	//
	// Returns:
	//   - CommandBuffer: the encoded buffer, ready for Queue.Submit
	//   - error: ErrRecording for an invalid command list, ErrDeviceLost if the device is lost
	Encode(label string, cmds []Command) (CommandBuffer, error)

	// Reset frees every command buffer encoded since the last reset.
	//
	// Returns:
	//   - error: ErrResourceBusy while any of those buffers is still executing on the GPU
	Reset() error

	// Destroy releases the allocator and its buffers.
	Destroy()
}

// CommandBuffer is a closed, GPU-executable command list.
type CommandBuffer interface {
	// Label returns the debug name of the buffer.
	//
	// Returns:
	//   - string: the buffer label
	Label() string

	// Commands returns the command list the buffer was encoded from.
	//
	// Returns:
	//   - []Command: the recorded commands
	Commands() []Command
}

// Surface is a ring of presentable textures bound to an output.
type Surface interface {
	// Config returns the configuration the surface was created with.
	//
	// Returns:
	//   - SurfaceConfig: the surface configuration
	Config() SurfaceConfig

	// Texture returns the ring texture at index.
	//
	// Parameters:
	//   - index: ring position in [0, BufferCount)
	//
	// Returns:
	//   - Texture: the texture at that position
	//   - error: ErrInvalidConfig when index is out of range
	Texture(index int) (Texture, error)

	// CreateView creates a render target view of the ring texture at index.
	//
	// Parameters:
	//   - index: ring position in [0, BufferCount)
	//
	// Returns:
	//   - RenderTargetView: the new view
	//   - error: ErrInvalidConfig when index is out of range
	CreateView(index int) (RenderTargetView, error)

	// AcquireIndex returns the ring position the presentation engine expects to be rendered next.
	// The value is authoritative and need not equal the last presented index plus one.
	//
	// Returns:
	//   - int: the ring position in [0, BufferCount)
	//   - error: ErrDeviceLost if the surface or device is lost
	AcquireIndex() (int, error)

	// Present hands the current texture to the presentation engine.
	//
	// Parameters:
	//   - syncInterval: 0 presents immediately, n >= 1 waits for n vertical blanks
	//
	// Returns:
	//   - int: the ring position the presentation engine reports as next
	//   - error: ErrDeviceLost if the surface or device is lost
	Present(syncInterval int) (int, error)

	// Destroy releases the ring textures.
	Destroy()
}

// Texture is a GPU image.
type Texture interface {
	Label() string
	Width() uint32
	Height() uint32
}

// RenderTargetView is a color attachment view of a Texture.
type RenderTargetView interface {
	Label() string
	Texture() Texture
	Destroy()
}

// Buffer is a GPU memory buffer.
type Buffer interface {
	Label() string
	Size() uint64
	Destroy()
}

// RenderPipeline is a compiled, immutable pipeline state object.
type RenderPipeline interface {
	Label() string
	Destroy()
}
