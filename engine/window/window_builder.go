package window

import "github.com/Carmen-Shannon/oxy-frame/engine/gpu"

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Invalid arguments are recorded and reported by NewWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text, must not be empty
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		if title == "" {
			w.reject("WithTitle", "empty title")
			return
		}
		w.title = title
	}
}

// WithSize sets the initial framebuffer size. It must lie within the size limits.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if w.checkPositive("WithSize", width, height) {
			w.width, w.height = width, height
		}
	}
}

// WithMinSize sets the smallest size the user can drag the window to.
//
// Parameters:
//   - width: minimum width in pixels
//   - height: minimum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if w.checkPositive("WithMinSize", width, height) {
			w.minWidth, w.minHeight = width, height
		}
	}
}

// WithMaxSize sets the largest size the user can drag the window to.
//
// Parameters:
//   - width: maximum width in pixels
//   - height: maximum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		if w.checkPositive("WithMaxSize", width, height) {
			w.maxWidth, w.maxHeight = width, height
		}
	}
}

func (w *engineWindow) checkPositive(op string, width, height int) bool {
	if width <= 0 || height <= 0 {
		w.reject(op, "size %dx%d must be positive", width, height)
		return false
	}
	return true
}

func (w *engineWindow) reject(op, format string, args ...any) {
	w.optErrs = append(w.optErrs, gpu.Errorf(gpu.ErrInvalidConfig, "window."+op, format, args...))
}
