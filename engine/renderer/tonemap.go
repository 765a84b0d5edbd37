package renderer

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// tonemapPass maps the lit HDR buffer, mixed with bloom, into the displayable final texture.
// Exposure changes are tweened rather than applied in one frame.
type tonemapPass struct {
	lighting *lightingPass
	bloom    *bloomPass
	program  *shader.TonemapProgram

	final device.Texture

	exposure   float32
	configured float32
	tween      *gween.Tween
}

var _ Pass = &tonemapPass{}

func newTonemapPass(lighting *lightingPass, bloom *bloomPass) *tonemapPass {
	return &tonemapPass{lighting: lighting, bloom: bloom, program: shader.NewTonemapProgram()}
}

func (t *tonemapPass) Name() string {
	return "tonemap"
}

func (t *tonemapPass) Init(ctx *RenderContext) error {
	if err := ctx.Device.RegisterPipeline(device.NewPipeline(shader.KeyTonemap, t.program,
		device.WithFullscreen(), device.WithColorTargets(device.FormatRGBA8Unorm))); err != nil {
		return err
	}
	t.exposure = ctx.Settings.Tonemap.Exposure
	t.configured = t.exposure
	return t.Resize(ctx, ctx.Frame.Width, ctx.Frame.Height)
}

func (t *tonemapPass) Resize(ctx *RenderContext, width, height int) error {
	releaseTextures(&t.final)
	final, err := createTarget(ctx.Device, "final", width, height, device.FormatRGBA8Unorm, 1)
	if err != nil {
		return err
	}
	t.final = final
	return nil
}

// SetExposure starts a transition from the current exposure to target.
//
// Parameters:
//   - target: the exposure to reach
//   - seconds: the transition length; zero or less applies target immediately
func (t *tonemapPass) SetExposure(target, seconds float32) {
	if seconds <= 0 {
		t.exposure, t.tween = target, nil
		return
	}
	t.tween = gween.New(t.exposure, target, seconds, ease.InOutQuad)
}

// Exposure returns the exposure used by the last rendered frame.
func (t *tonemapPass) Exposure() float32 {
	return t.exposure
}

func (t *tonemapPass) advance(ctx *RenderContext) {
	cfg := ctx.Settings.Tonemap
	if cfg.Exposure != t.configured {
		t.configured = cfg.Exposure
		t.SetExposure(cfg.Exposure, cfg.ExposureSeconds)
	}
	if t.tween == nil {
		return
	}
	value, done := t.tween.Update(float32(ctx.Frame.Delta.Seconds()))
	t.exposure = value
	if done {
		t.tween = nil
	}
}

func (t *tonemapPass) Render(ctx *RenderContext) error {
	t.advance(ctx)
	bloom := t.bloom.Result()
	u := &shader.TonemapUniform{
		Exposure:      t.exposure,
		Gamma:         ctx.Settings.Tonemap.Gamma,
		BloomStrength: ctx.Settings.Bloom.Strength,
		Bloom:         bloom != nil,
	}
	if bloom == nil {
		bloom = t.lighting.Result()
	}
	return fullscreenPass(ctx.Device, "tonemap", t.final, device.LoadOpClear, mgl32.Vec4{}, shader.KeyTonemap, func(p device.Pass) {
		p.SetUniforms(shader.TonemapUniformBinding, u)
		p.SetTexture(shader.TonemapHDR, t.lighting.Result())
		p.SetTexture(shader.TonemapBloom, bloom)
	})
}

// Final returns the displayable color texture.
func (t *tonemapPass) Final() device.Texture {
	return t.final
}

func (t *tonemapPass) Release() {
	releaseTextures(&t.final)
}
