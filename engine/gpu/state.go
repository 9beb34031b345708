package gpu

// ResourceState is the usage a swap chain texture is currently in. Moving between states
// requires an explicit BarrierCommand.
type ResourceState int

const (
	// ResourceStatePresentable means the texture may be handed to the presentation engine.
	ResourceStatePresentable ResourceState = iota

	// ResourceStateRenderTarget means the texture may be cleared and drawn into.
	ResourceStateRenderTarget
)

func (s ResourceState) String() string {
	switch s {
	case ResourceStatePresentable:
		return "Presentable"
	case ResourceStateRenderTarget:
		return "RenderTarget"
	default:
		return "Unknown"
	}
}

// PresentMode selects how presents are paced when a surface is created.
// Present calls may override it per frame through their sync interval.
type PresentMode int

const (
	// PresentModeVSync waits for vertical blank (FIFO).
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents immediately and may tear.
	PresentModeUncapped
)

func (m PresentMode) String() string {
	if m == PresentModeUncapped {
		return "Uncapped"
	}
	return "VSync"
}

// SyncInterval returns the sync interval that matches the present mode.
//
// Returns:
//   - int: 1 for VSync, 0 for Uncapped
func (m PresentMode) SyncInterval() int {
	if m == PresentModeUncapped {
		return 0
	}
	return 1
}
