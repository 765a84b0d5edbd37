package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/settings"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
)

// ErrNoScene is returned by Run when no scene was set.
var ErrNoScene = errors.New("engine: no scene to render")

// maxTicksPerFrame bounds how many fixed ticks one slow frame may catch up on.
const maxTicksPerFrame = 5

// engine implements the Engine interface.
// Everything runs on the main thread: GLFW event polling, fixed-rate ticks and rendering.
type engine struct {
	quitChannel chan struct{}
	quitOnce    sync.Once

	window   window.Window
	device   gpu.GPUDevice
	renderer renderer.Renderer
	store    settings.Store
	scene    scene.Scene

	presentMode     gpu.PresentMode
	rendererOptions []renderer.RendererBuilderOption

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	lastFrame   time.Time
	accumulator time.Duration
	err         error
}

// Engine owns the window, the GPU device and the deferred renderer, and drives them from the main thread.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Device returns the GPU device rendering into the window surface.
	Device() gpu.GPUDevice

	// Renderer returns the deferred renderer.
	Renderer() renderer.Renderer

	// Settings returns the settings store the renderer reads each frame.
	Settings() settings.Store

	// Scene returns the scene rendered each frame, or nil.
	Scene() scene.Scene

	// SetScene replaces the rendered scene. The engine publishes the current framebuffer size to it
	// so its camera aspect matches the window on the next frame.
	//
	// Parameters:
	//   - s: the scene to render
	SetScene(s scene.Scene)

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called at the fixed tick rate, before rendering.
	// Use this for game logic and input processing.
	//
	// Parameters:
	//   - callback: function receiving the fixed tick length in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function receiving the frame delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run renders until the window closes or Quit is called. It must be called from the main thread.
	//
	// Returns:
	//   - error: ErrNoScene, or the render error that stopped the loop
	Run() error

	// Release frees the renderer and the device and closes the window. Scenes holding meshes created on
	// the device must be closed first.
	Release()

	// Quit stops Run after the current frame. Safe to call from any goroutine and more than once.
	Quit()
}

// NewEngine opens the window if none was given, creates a GPU device for its surface and initializes
// the renderer at the framebuffer size. Must be called from the main thread.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if the device or renderer could not be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		quitChannel:    make(chan struct{}),
		engineTickRate: time.Second / 60,
		profiler:       profiler.NewProfiler(time.Second),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.window == nil {
		e.window = window.NewWindow()
	}
	if e.store == nil {
		e.store = settings.NewStore()
	}

	dev, err := gpu.NewDevice(e.window.SurfaceDescriptor(), gpu.WithPresentMode(e.presentMode))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.device = dev
	width, height := e.window.Width(), e.window.Height()
	if err := dev.ConfigureSurface(width, height); err != nil {
		dev.Release()
		return nil, fmt.Errorf("engine: %w", err)
	}

	opts := append([]renderer.RendererBuilderOption{renderer.WithSettings(e.store), renderer.WithPresent(true)}, e.rendererOptions...)
	e.renderer = renderer.NewRenderer(dev, opts...)
	if err := e.renderer.Init(width, height); err != nil {
		e.renderer.Release()
		dev.Release()
		return nil, fmt.Errorf("engine: %w", err)
	}

	e.window.SetResizeCallback(e.resize)
	if e.scene != nil {
		e.scene.PublishResize(width, height)
	}
	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Device() gpu.GPUDevice {
	return e.device
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Settings() settings.Store {
	return e.store
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) SetScene(s scene.Scene) {
	e.scene = s
	if s != nil {
		s.PublishResize(e.window.Width(), e.window.Height())
	}
}

// resize reconfigures the surface at once and lets the renderer pick the new size up through the scene.
// A minimized window reports a zero size, which is skipped.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if err := e.device.ConfigureSurface(width, height); err != nil {
		common.Logger().Error("engine: reconfigure surface", "width", width, "height", height, "err", err)
		return
	}
	if e.scene != nil {
		e.scene.PublishResize(width, height)
	}
}

func (e *engine) Run() error {
	if e.scene == nil {
		return ErrNoScene
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if e.store.Path() != "" {
		if err := e.store.Watch(ctx, nil); err != nil {
			common.Logger().Warn("engine: settings hot reload disabled", "err", err)
		}
	}

	e.lastFrame = time.Now()
	e.window.SetUpdateCallback(e.frame)
	e.window.ProcessMessages()
	return e.err
}

// Quit signals the loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// frame runs once per message loop iteration: fixed ticks, then one rendered frame.
func (e *engine) frame() {
	select {
	case <-e.quitChannel:
		e.window.RequestClose()
		return
	default:
	}
	if e.scene == nil {
		return
	}

	now := time.Now()
	elapsed := now.Sub(e.lastFrame)
	e.lastFrame = now

	e.accumulator += elapsed
	ticks := 0
	for e.accumulator >= e.engineTickRate {
		e.accumulator -= e.engineTickRate
		if ticks == maxTicksPerFrame {
			e.accumulator = 0
			break
		}
		ticks++
		if e.tickCallback != nil {
			e.tickCallback(float32(e.engineTickRate.Seconds()))
		}
	}

	if cam := e.scene.Camera(); cam != nil {
		cam.Update()
	}
	if err := e.renderer.RenderFrame(e.scene); err != nil {
		common.Logger().Error("engine: frame failed", "err", err)
		e.err = err
		e.Quit()
		return
	}

	dt := float32(elapsed.Seconds())
	if e.renderCallback != nil {
		e.renderCallback(dt)
	}
	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick(e.renderer.Stats())
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(now); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

func (e *engine) Release() {
	e.renderer.Release()
	e.device.Release()
	if err := e.window.Close(); err != nil {
		common.Logger().Warn("engine: close window", "err", err)
	}
	common.Logger().Info("engine stopped")
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(fps float64) {
	e.engineTickRate = tickRate(fps)
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameLimit(fps)
}

func tickRate(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

func frameLimit(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
