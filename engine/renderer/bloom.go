package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// bloomPass builds a bright-pass mip chain from the lighting result. Level 0 is half the framebuffer
// size; each level halves again. The upsample walk writes its own chain so no level is read and
// written in one pass.
type bloomPass struct {
	lighting *lightingPass
	down     *shader.BloomDownProgram
	up       *shader.BloomUpProgram

	width, height int
	downChain     []device.Texture
	upChain       []device.Texture
	result        device.Texture
}

var _ Pass = &bloomPass{}

func newBloomPass(lighting *lightingPass) *bloomPass {
	return &bloomPass{
		lighting: lighting,
		down:     shader.NewBloomDownProgram(),
		up:       shader.NewBloomUpProgram(),
	}
}

func (b *bloomPass) Name() string {
	return "bloom"
}

func (b *bloomPass) Init(ctx *RenderContext) error {
	for _, p := range []device.Pipeline{
		device.NewPipeline(shader.KeyBloomDown, b.down, device.WithFullscreen(), device.WithColorTargets(device.FormatRGBA16Float)),
		device.NewPipeline(shader.KeyBloomUp, b.up, device.WithFullscreen(), device.WithColorTargets(device.FormatRGBA16Float)),
	} {
		if err := ctx.Device.RegisterPipeline(p); err != nil {
			return err
		}
	}
	return b.Resize(ctx, ctx.Frame.Width, ctx.Frame.Height)
}

func (b *bloomPass) Resize(ctx *RenderContext, width, height int) error {
	b.width, b.height = width, height
	return b.allocate(ctx.Device, ctx.Settings.Bloom.Levels)
}

func (b *bloomPass) allocate(dev device.Device, levels int) error {
	b.releaseChain()
	w, h := b.width, b.height
	for i := range levels {
		w, h = max(w/2, 1), max(h/2, 1)
		tex, err := createTarget(dev, fmt.Sprintf("bloom_down_%d", i), w, h, device.FormatRGBA16Float, 1)
		if err != nil {
			return err
		}
		b.downChain = append(b.downChain, tex)
		if i == levels-1 {
			break
		}
		up, err := createTarget(dev, fmt.Sprintf("bloom_up_%d", i), w, h, device.FormatRGBA16Float, 1)
		if err != nil {
			return err
		}
		b.upChain = append(b.upChain, up)
	}
	return nil
}

func (b *bloomPass) Render(ctx *RenderContext) error {
	cfg := ctx.Settings.Bloom
	b.result = nil
	if !cfg.State {
		return nil
	}
	if len(b.downChain) != cfg.Levels {
		if err := b.allocate(ctx.Device, cfg.Levels); err != nil {
			return err
		}
	}

	source := b.lighting.Result()
	for i, dst := range b.downChain {
		u := &shader.BloomUniform{Threshold: cfg.Threshold, Knee: cfg.Threshold * cfg.SoftThreshold, FirstPass: i == 0}
		src := source
		err := fullscreenPass(ctx.Device, fmt.Sprintf("bloom_down_%d", i), dst, device.LoadOpClear, mgl32.Vec4{}, shader.KeyBloomDown, func(p device.Pass) {
			p.SetUniforms(shader.BloomUniformBinding, u)
			p.SetTexture(shader.BloomSource, src)
		})
		if err != nil {
			return err
		}
		source = dst
	}

	low := b.downChain[len(b.downChain)-1]
	for i := len(b.upChain) - 1; i >= 0; i-- {
		high, dst, l := b.downChain[i], b.upChain[i], low
		err := fullscreenPass(ctx.Device, fmt.Sprintf("bloom_up_%d", i), dst, device.LoadOpClear, mgl32.Vec4{}, shader.KeyBloomUp, func(p device.Pass) {
			p.SetTexture(shader.BloomLow, l)
			p.SetTexture(shader.BloomHigh, high)
		})
		if err != nil {
			return err
		}
		low = dst
	}
	b.result = low
	return nil
}

// Result returns the blurred bright pass of this frame, or nil when bloom is disabled.
func (b *bloomPass) Result() device.Texture {
	return b.result
}

func (b *bloomPass) releaseChain() {
	for i := range b.downChain {
		releaseTextures(&b.downChain[i])
	}
	for i := range b.upChain {
		releaseTextures(&b.upChain[i])
	}
	b.downChain, b.upChain, b.result = nil, nil, nil
}

func (b *bloomPass) Release() {
	b.releaseChain()
}
