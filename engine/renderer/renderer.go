package renderer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/settings"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

var (
	// ErrNotInitialized is returned when a frame is rendered before Init.
	ErrNotInitialized = errors.New("renderer: not initialized")
	// ErrResizeInFrame is returned when Resize is called while a frame is being recorded.
	ErrResizeInFrame = errors.New("renderer: resize during a frame")
	// ErrNotALight is returned when shadow casting is toggled on an entity without a light.
	ErrNotALight = errors.New("renderer: entity has no light")
)

// PassTime is the CPU time one pass took to record.
type PassTime struct {
	Name     string
	Duration time.Duration
}

// Stats describes the last rendered frame.
type Stats struct {
	Frames       uint64
	Draws        int
	Swaps        int
	ShadowPasses int
	Emissive     bool
	Bloom        bool
	Sprites      int
	SpriteRuns   int
	Passes       []PassTime
}

// Renderer runs the deferred pipeline: gbuffer, ssao, lighting with shadows, emissive, bloom, tonemap
// and the sprite overlay, in that order, followed by any extra passes.
//
// All methods must be called from the render thread.
type Renderer interface {
	// Device returns the device the renderer draws with.
	Device() device.Device

	// Settings returns the settings store read at the start of every frame.
	Settings() settings.Store

	// Init registers every pipeline and allocates the targets for the initial size.
	//
	// Parameters:
	//   - width: the framebuffer width
	//   - height: the framebuffer height
	//
	// Returns:
	//   - error: an error if a pass failed to initialize
	Init(width, height int) error

	// RenderFrame renders the scene from its active camera. It applies reloaded settings and dispatches
	// the scene's queued events first, so a published resize takes effect before drawing.
	// A nil scene or a scene without a camera is a programmer error and panics.
	//
	// Parameters:
	//   - s: the scene to draw
	//
	// Returns:
	//   - error: ErrNotInitialized, or a device error naming the failing pass
	RenderFrame(s scene.Scene) error

	// Resize reallocates every size-dependent target immediately.
	//
	// Parameters:
	//   - width: the new width; zero or less is ignored
	//   - height: the new height; zero or less is ignored
	//
	// Returns:
	//   - error: ErrResizeInFrame inside a frame, or an allocation error
	Resize(width, height int) error

	// Size returns the current framebuffer size.
	Size() (int, int)

	// FinalTexture returns the tone-mapped image with the sprite overlay.
	FinalTexture() device.Texture

	// LightingTexture returns the HDR lighting result of the last frame, emissive included.
	LightingTexture() device.Texture

	// GBufferTexture returns one resolved G-buffer attachment.
	GBufferTexture(t GeometryBufferType) device.Texture

	// ReadEntityID reads the pick id at a viewport position with a top-left origin.
	//
	// Parameters:
	//   - x, y: the position relative to the viewport origin
	//
	// Returns:
	//   - uint32: the pick id, or scene.NullPickID
	//   - error: a readback error
	ReadEntityID(x, y int) (uint32, error)

	// PickEntity resolves the entity drawn at a viewport position in the last rendered scene.
	//
	// Parameters:
	//   - x, y: the position relative to the viewport origin
	//
	// Returns:
	//   - donburi.Entity: the entity
	//   - bool: false when nothing was drawn there
	//   - error: a readback error
	PickEntity(x, y int) (donburi.Entity, bool, error)

	// SetShadowCasting moves a light's shadow state machine using the shadow settings.
	//
	// Parameters:
	//   - s: the scene owning the light
	//   - e: the light entity
	//   - cast: the requested state
	//
	// Returns:
	//   - error: ErrNotALight, or an allocation error
	SetShadowCasting(s scene.Scene, e donburi.Entity, cast bool) error

	// SetExposure starts an exposure transition.
	//
	// Parameters:
	//   - target: the exposure to reach
	//   - seconds: the transition length; zero or less applies it immediately
	SetExposure(target, seconds float32)

	// Exposure returns the exposure of the last frame.
	Exposure() float32

	// Sprites returns the overlay sprite batch.
	Sprites() Batch

	// SSAOKernel returns the current SSAO sample kernel.
	SSAOKernel() []mgl32.Vec3

	// Passes returns the ordered pass list.
	Passes() []Pass

	// Stats returns the statistics of the last frame.
	Stats() Stats

	// Release frees every resource of every pass. The device itself is not released.
	Release()
}

type renderer struct {
	mu *sync.Mutex

	dev   device.Device
	store settings.Store

	gbuffer  *gbufferPass
	ssao     *ssaoPass
	lighting *lightingPass
	emissive *emissivePass
	bloom    *bloomPass
	tonemap  *tonemapPass
	sprites  *spritePass
	extra    []Pass
	passes   []Pass

	ctx         RenderContext
	initialized bool
	inFrame     atomic.Bool
	present     bool
	seed        uint64
	now         func() time.Time
	last        time.Time

	subscribed    map[scene.Scene]bool
	pendingResize *scene.ResizeEvent
	lastScene     scene.Scene

	stats Stats
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer drawing with dev. Call Init before the first frame.
//
// Parameters:
//   - dev: the device
//   - options: functional options
//
// Returns:
//   - Renderer: the renderer
func NewRenderer(dev device.Device, options ...RendererBuilderOption) Renderer {
	if dev == nil {
		panic("renderer: NewRenderer requires a non-nil Device")
	}
	r := &renderer{
		mu:         &sync.Mutex{},
		dev:        dev,
		seed:       1,
		now:        time.Now,
		subscribed: make(map[scene.Scene]bool),
	}
	for _, option := range options {
		option(r)
	}
	if r.store == nil {
		r.store = settings.NewStore()
	}

	r.gbuffer = newGBufferPass()
	r.ssao = newSSAOPass(r.gbuffer, r.seed)
	r.lighting = newLightingPass(r.gbuffer, r.ssao)
	r.emissive = newEmissivePass(r.gbuffer, r.lighting)
	r.bloom = newBloomPass(r.lighting)
	r.tonemap = newTonemapPass(r.lighting, r.bloom)
	r.sprites = newSpritePass(r.tonemap)
	r.passes = append([]Pass{r.gbuffer, r.ssao, r.lighting, r.emissive, r.bloom, r.tonemap, r.sprites}, r.extra...)
	return r
}

func (r *renderer) Device() device.Device {
	return r.dev
}

func (r *renderer) Settings() settings.Store {
	return r.store
}

func (r *renderer) Init(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return nil
	}
	r.ctx = RenderContext{
		Device:   r.dev,
		Settings: r.store.Get(),
		Frame:    Frame{Width: max(width, 1), Height: max(height, 1)},
	}
	for _, p := range r.passes {
		if err := p.Init(&r.ctx); err != nil {
			return fmt.Errorf("renderer: init %s: %w", p.Name(), err)
		}
	}
	r.initialized = true
	r.last = r.now()
	common.Logger().Info("renderer initialized", "device", r.dev.Name(), "width", r.ctx.Frame.Width, "height", r.ctx.Frame.Height, "passes", len(r.passes))
	return nil
}

func (r *renderer) RenderFrame(s scene.Scene) error {
	if s == nil {
		panic("renderer: RenderFrame requires a scene")
	}
	cam := s.Camera()
	if cam == nil {
		panic("renderer: scene " + s.Name() + " has no active camera")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return ErrNotInitialized
	}

	if _, ok := r.store.Poll(); ok {
		common.Logger().Info("renderer: applying reloaded settings")
	}
	r.ctx.Settings = r.store.Get()

	if !r.subscribed[s] {
		s.OnResize(func(e scene.ResizeEvent) {
			event := e
			r.pendingResize = &event
		})
		r.subscribed[s] = true
	}
	s.ProcessEvents()
	if e := r.pendingResize; e != nil {
		r.pendingResize = nil
		if err := r.resize(e.Width, e.Height); err != nil {
			return err
		}
		if e.Height > 0 {
			cam.SetAspect(float32(e.Width) / float32(e.Height))
		}
	}

	now := r.now()
	r.ctx.Scene = s
	r.ctx.Camera = cam
	r.ctx.Frame.Delta = now.Sub(r.last)
	r.last = now
	r.lastScene = s

	if err := r.record(); err != nil {
		return err
	}
	r.ctx.Frame.Index++
	r.collectStats()
	return nil
}

func (r *renderer) record() error {
	if err := r.dev.BeginFrame(); err != nil {
		return fmt.Errorf("renderer: begin frame: %w", err)
	}
	r.inFrame.Store(true)
	defer r.inFrame.Store(false)

	r.lighting.shadows.passes = 0
	times := make([]PassTime, 0, len(r.passes))
	for _, p := range r.passes {
		start := time.Now()
		if err := p.Render(&r.ctx); err != nil {
			_ = r.dev.EndFrame()
			return fmt.Errorf("renderer: %s: %w", p.Name(), err)
		}
		times = append(times, PassTime{Name: p.Name(), Duration: time.Since(start)})
	}
	r.stats.Passes = times

	if r.present {
		if err := r.dev.Present(r.tonemap.Final()); err != nil {
			common.Logger().Warn("renderer: present failed", "err", err)
		}
	}
	if err := r.dev.EndFrame(); err != nil {
		return fmt.Errorf("renderer: end frame: %w", err)
	}
	return nil
}

func (r *renderer) collectStats() {
	r.stats.Frames = r.ctx.Frame.Index
	r.stats.Draws = r.gbuffer.drawn
	r.stats.Swaps = r.lighting.swaps
	r.stats.ShadowPasses = r.lighting.shadows.passes
	r.stats.Emissive = r.emissive.ran
	r.stats.Bloom = r.bloom.Result() != nil
	r.stats.Sprites = r.sprites.Len()
	r.stats.SpriteRuns = r.sprites.Runs()
	common.Logger().Debug("frame rendered", "frame", r.stats.Frames, "draws", r.stats.Draws, "lights", r.stats.Swaps)
}

func (r *renderer) Resize(width, height int) error {
	if r.inFrame.Load() {
		return ErrResizeInFrame
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resize(width, height)
}

func (r *renderer) resize(width, height int) error {
	if width <= 0 || height <= 0 {
		common.Logger().Debug("renderer: ignoring empty resize", "width", width, "height", height)
		return nil
	}
	if width == r.ctx.Frame.Width && height == r.ctx.Frame.Height {
		return nil
	}
	r.ctx.Frame.Width, r.ctx.Frame.Height = width, height
	if !r.initialized {
		return nil
	}
	for _, p := range r.passes {
		if err := p.Resize(&r.ctx, width, height); err != nil {
			return fmt.Errorf("renderer: resize %s: %w", p.Name(), err)
		}
	}
	common.Logger().Info("renderer resized", "width", width, "height", height)
	return nil
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx.Frame.Width, r.ctx.Frame.Height
}

func (r *renderer) FinalTexture() device.Texture {
	return r.tonemap.Final()
}

func (r *renderer) LightingTexture() device.Texture {
	return r.lighting.Result()
}

func (r *renderer) GBufferTexture(t GeometryBufferType) device.Texture {
	if t < 0 || int(t) >= geometryBufferCount {
		return nil
	}
	return r.gbuffer.Texture(t)
}

func (r *renderer) ReadEntityID(x, y int) (uint32, error) {
	return r.gbuffer.ReadEntityID(r.dev, x, y)
}

func (r *renderer) PickEntity(x, y int) (donburi.Entity, bool, error) {
	id, err := r.ReadEntityID(x, y)
	if err != nil || id == scene.NullPickID || r.lastScene == nil {
		return donburi.Null, false, err
	}
	e, ok := r.lastScene.EntityByPickID(id)
	return e, ok, nil
}

func (r *renderer) SetShadowCasting(s scene.Scene, e donburi.Entity, cast bool) error {
	cfg := ShadowConfig(r.store.Get())
	if d := s.DirectionalLight(e); d != nil {
		return d.SetCastShadow(r.dev, cfg, cast)
	}
	if p := s.PointLight(e); p != nil {
		return p.SetCastShadow(r.dev, cfg, cast)
	}
	return fmt.Errorf("%w: %s", ErrNotALight, s.EntityName(e))
}

func (r *renderer) SetExposure(target, seconds float32) {
	r.tonemap.SetExposure(target, seconds)
}

func (r *renderer) Exposure() float32 {
	return r.tonemap.Exposure()
}

func (r *renderer) Sprites() Batch {
	return r.sprites
}

func (r *renderer) SSAOKernel() []mgl32.Vec3 {
	return r.ssao.Kernel()
}

func (r *renderer) Passes() []Pass {
	return append([]Pass(nil), r.passes...)
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.stats
	stats.Passes = append([]PassTime(nil), r.stats.Passes...)
	return stats
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.passes) - 1; i >= 0; i-- {
		r.passes[i].Release()
	}
	r.initialized = false
}
