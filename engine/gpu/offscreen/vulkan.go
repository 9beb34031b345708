//go:build !cgo

package offscreen

// The Vulkan backend loads the driver through goffi, which only builds with cgo disabled.
// Cgo builds register no Vulkan backend and NewDevice falls back to the noop backend.
import _ "github.com/gogpu/wgpu/hal/vulkan"
