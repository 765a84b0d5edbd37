package renderer

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// emissivePass adds the emissive G-buffer channel onto the accumulated lighting. It is skipped when
// the scene has no lights.
type emissivePass struct {
	gbuffer  *gbufferPass
	lighting *lightingPass
	program  *shader.EmissiveProgram

	ran bool
}

var _ Pass = &emissivePass{}

func newEmissivePass(gbuffer *gbufferPass, lighting *lightingPass) *emissivePass {
	return &emissivePass{gbuffer: gbuffer, lighting: lighting, program: shader.NewEmissiveProgram()}
}

func (e *emissivePass) Name() string {
	return "emissive"
}

func (e *emissivePass) Init(ctx *RenderContext) error {
	return ctx.Device.RegisterPipeline(device.NewPipeline(shader.KeyEmissive, e.program,
		device.WithFullscreen(),
		device.WithColorTargets(device.FormatRGBA16Float),
		device.WithBlend(device.BlendAdditive),
	))
}

func (e *emissivePass) Resize(*RenderContext, int, int) error {
	return nil
}

func (e *emissivePass) Render(ctx *RenderContext) error {
	e.ran = false
	if ctx.Scene.LightCount() == 0 {
		return nil
	}
	err := fullscreenPass(ctx.Device, "emissive", e.lighting.Result(), device.LoadOpLoad, mgl32.Vec4{}, shader.KeyEmissive, func(p device.Pass) {
		p.SetTexture(shader.EmissiveInput, e.gbuffer.Texture(Emissive))
	})
	if err != nil {
		return err
	}
	e.ran = true
	return nil
}

func (e *emissivePass) Release() {}
