package common

// Virtual key codes passed to window key callbacks.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW   = 87  // W key (ASCII)
	KeyA   = 65  // A key (ASCII)
	KeyS   = 83  // S key (ASCII)
	KeyD   = 68  // D key (ASCII)
	KeyQ   = 81  // Q key (ASCII)
	KeyE   = 69  // E key (ASCII)
	KeyB   = 66  // B key (ASCII)
	KeyL   = 76  // L key (ASCII)
	KeyO   = 79  // O key (ASCII)
	KeyP   = 80  // P key (ASCII)
	KeyX   = 88  // X key (ASCII)
	KeyEsc = 256 // Escape key (GLFW)
)
