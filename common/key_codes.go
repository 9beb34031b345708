package common

// Virtual key codes for the host loop. These values match GLFW key codes.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeySpace = 32  // Spacebar (ASCII)
	KeyV     = 86  // V key (ASCII)
	KeyEsc   = 256 // Escape key (GLFW)
)
