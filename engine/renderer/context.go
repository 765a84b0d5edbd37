package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/settings"
)

// Frame describes the frame being rendered.
type Frame struct {
	// Index counts rendered frames, starting at zero.
	Index uint64
	// Width and Height are the render target size in texels.
	Width, Height int
	// Delta is the time since the previous frame.
	Delta time.Duration
}

// RenderContext is the state every pass reads while a frame is recorded. Passes must not keep it
// beyond the call they receive it in.
type RenderContext struct {
	Device   device.Device
	Scene    scene.Scene
	Camera   camera.Camera
	Settings settings.Settings
	Frame    Frame
}

// Pass is one stage of the deferred pipeline.
type Pass interface {
	// Name identifies the pass in logs and stats.
	Name() string

	// Init registers pipelines and allocates size-independent resources. It runs once, outside a frame.
	//
	// Parameters:
	//   - ctx: the render context; Frame holds the initial size
	//
	// Returns:
	//   - error: an error if a pipeline or texture could not be created
	Init(ctx *RenderContext) error

	// Resize reallocates every target that depends on the framebuffer size.
	//
	// Parameters:
	//   - ctx: the render context
	//   - width: the new width in texels
	//   - height: the new height in texels
	//
	// Returns:
	//   - error: an error if a texture could not be created
	Resize(ctx *RenderContext, width, height int) error

	// Render records the pass into the current frame.
	//
	// Parameters:
	//   - ctx: the render context
	//
	// Returns:
	//   - error: a device error; the frame is abandoned
	Render(ctx *RenderContext) error

	// Release frees every device resource the pass owns.
	Release()
}
