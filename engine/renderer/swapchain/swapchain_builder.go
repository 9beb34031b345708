package swapchain

import "github.com/Carmen-Shannon/oxy-frame/engine/renderer/fence"

// SwapChainBuilderOption is a functional option used to configure a SwapChain during construction.
type SwapChainBuilderOption func(*swapChain)

// WithFence attaches the frame fence that guards Resize. While the fence has an unconfirmed
// signaled value, Resize fails with ErrResourceBusy.
//
// Parameters:
//   - f: the frame fence
//
// Returns:
//   - SwapChainBuilderOption: a function that sets the resize guard fence
func WithFence(f fence.Fence) SwapChainBuilderOption {
	return func(s *swapChain) {
		s.fence = f
	}
}
