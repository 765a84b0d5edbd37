package renderer

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

// lightingPass accumulates one full-screen pass per light into a ping-pong pair. Each light reads the
// last written buffer as its base and writes the other one; the buffers then swap.
type lightingPass struct {
	gbuffer *gbufferPass
	ssao    *ssaoPass
	shadows *shadowRenderer

	directional *shader.DirectionalLightProgram
	point       *shader.PointLightProgram

	buffers  [2]device.Texture
	current  int
	noShadow device.Texture

	swaps int
}

var _ Pass = &lightingPass{}

func newLightingPass(gbuffer *gbufferPass, ssao *ssaoPass) *lightingPass {
	return &lightingPass{
		gbuffer:     gbuffer,
		ssao:        ssao,
		shadows:     newShadowRenderer(),
		directional: shader.NewDirectionalLightProgram(),
		point:       shader.NewPointLightProgram(),
	}
}

func (l *lightingPass) Name() string {
	return "lighting"
}

func (l *lightingPass) Init(ctx *RenderContext) error {
	dev := ctx.Device
	if err := l.shadows.init(dev); err != nil {
		return err
	}
	for _, p := range []device.Pipeline{
		device.NewPipeline(shader.KeyLightDirectional, l.directional, device.WithFullscreen(), device.WithColorTargets(device.FormatRGBA16Float)),
		device.NewPipeline(shader.KeyLightPoint, l.point, device.WithFullscreen(), device.WithColorTargets(device.FormatRGBA16Float)),
	} {
		if err := dev.RegisterPipeline(p); err != nil {
			return err
		}
	}
	noShadow, err := solidTexture(dev, "no_shadow", device.FormatDepth32Float, mgl32.Vec4{1})
	if err != nil {
		return err
	}
	l.noShadow = noShadow
	return l.Resize(ctx, ctx.Frame.Width, ctx.Frame.Height)
}

func (l *lightingPass) Resize(ctx *RenderContext, width, height int) error {
	releaseTextures(&l.buffers[0], &l.buffers[1])
	for i, label := range []string{"lighting_a", "lighting_b"} {
		tex, err := createTarget(ctx.Device, label, width, height, device.FormatRGBA16Float, 1)
		if err != nil {
			return err
		}
		l.buffers[i] = tex
	}
	l.current = 0
	return nil
}

func (l *lightingPass) Render(ctx *RenderContext) error {
	l.swaps = 0
	l.current = 0
	if err := clearPass(ctx.Device, "lighting_clear", l.buffers[l.current], ctx.Scene.Background().Vec4(1)); err != nil {
		return err
	}

	cfg := ShadowConfig(ctx.Settings)
	casters := l.shadowCasters(ctx, cfg)

	var err error
	ctx.Scene.EachDirectionalLight(func(e donburi.Entity, t *transform.Transform, d *light.Directional) {
		if err != nil {
			return
		}
		front := t.Front()
		if d.CastShadow() {
			if err = l.shadows.renderDirectional(ctx, d, front, casters); err != nil {
				return
			}
		}
		shadowMap := l.noShadow
		if s := d.Shadow(); s != nil {
			shadowMap = s.Texture()
		}
		err = l.accumulate(ctx, "light_directional", shader.KeyLightDirectional, light.DirectionalUniform(d, front, ctx.Camera), shadowMap)
	})
	if err != nil {
		return err
	}

	ctx.Scene.EachPointLight(func(e donburi.Entity, t *transform.Transform, p *light.Point) {
		if err != nil {
			return
		}
		position := t.WorldPosition()
		if p.CastShadow() {
			if err = l.shadows.renderPoint(ctx, p, position, casters); err != nil {
				return
			}
		}
		shadowMap := l.noShadow
		if s := p.Shadow(); s != nil {
			shadowMap = s.Texture()
		}
		err = l.accumulate(ctx, "light_point", shader.KeyLightPoint, light.PointUniform(p, position, t.Front(), ctx.Camera), shadowMap)
	})
	return err
}

// shadowCasters reallocates shadow maps whose configuration no longer matches the settings and
// returns every mesh draw when at least one light casts shadows.
func (l *lightingPass) shadowCasters(ctx *RenderContext, cfg light.ShadowConfig) []scene.Draw {
	casting := false
	ctx.Scene.EachDirectionalLight(func(e donburi.Entity, _ *transform.Transform, d *light.Directional) {
		if s := d.Shadow(); s != nil {
			if s.Texture().Width() != cfg.Resolution || s.Bias() != cfg.Bias || !slices.Equal(s.Planes(), cfg.Planes) {
				l.reallocate(ctx, e, func(cast bool) error { return d.SetCastShadow(ctx.Device, cfg, cast) })
			}
			casting = casting || d.CastShadow()
		}
	})
	ctx.Scene.EachPointLight(func(e donburi.Entity, _ *transform.Transform, p *light.Point) {
		if s := p.Shadow(); s != nil {
			if s.Texture().Width() != cfg.Resolution || s.Far() != cfg.PointFar || s.Bias() != cfg.PointBias {
				l.reallocate(ctx, e, func(cast bool) error { return p.SetCastShadow(ctx.Device, cfg, cast) })
			}
			casting = casting || p.CastShadow()
		}
	})
	if !casting {
		return nil
	}
	return ctx.Scene.CollectDraws(nil)
}

func (l *lightingPass) reallocate(ctx *RenderContext, e donburi.Entity, set func(bool) error) {
	_ = set(false)
	if err := set(true); err != nil {
		common.Logger().Warn("renderer: shadow map reallocation failed", "entity", ctx.Scene.EntityName(e), "err", err)
	}
}

func (l *lightingPass) accumulate(ctx *RenderContext, label, key string, u device.Uniforms, shadowMap device.Texture) error {
	base, target := l.buffers[l.current], l.buffers[1-l.current]
	err := fullscreenPass(ctx.Device, label, target, device.LoadOpClear, mgl32.Vec4{}, key, func(p device.Pass) {
		p.SetUniforms(shader.LightUniformBinding, u)
		p.SetTexture(shader.LightGPosition, l.gbuffer.Texture(Position))
		p.SetTexture(shader.LightGNormal, l.gbuffer.Texture(Normal))
		p.SetTexture(shader.LightGAlbedo, l.gbuffer.Texture(Albedo))
		p.SetTexture(shader.LightGAmbient, l.gbuffer.Texture(Ambient))
		p.SetTexture(shader.LightSSAO, l.ssao.Texture())
		p.SetTexture(shader.LightBase, base)
		p.SetTexture(shader.LightShadowMap, shadowMap)
	})
	if err != nil {
		return err
	}
	l.current = 1 - l.current
	l.swaps++
	return nil
}

// Result returns the buffer holding the accumulated lighting.
func (l *lightingPass) Result() device.Texture {
	return l.buffers[l.current]
}

func (l *lightingPass) Release() {
	releaseTextures(&l.buffers[0], &l.buffers[1], &l.noShadow)
}
