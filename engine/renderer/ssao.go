package renderer

import (
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// NoiseSize is the width and height of the tiled SSAO rotation texture.
const NoiseSize = 4

// GenerateKernel builds n sample offsets in the +Z hemisphere. Offsets are scaled by lerp(0.1, 1, t²)
// with t = i/n so they cluster near the origin.
//
// Parameters:
//   - n: the sample count
//   - rng: the random source
//
// Returns:
//   - []mgl32.Vec3: the kernel
func GenerateKernel(n int, rng *rand.Rand) []mgl32.Vec3 {
	kernel := make([]mgl32.Vec3, n)
	for i := range kernel {
		sample := mgl32.Vec3{
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
			rng.Float32(),
		}
		if sample.Len() < common.Epsilon {
			sample = mgl32.Vec3{0, 0, 1}
		}
		sample = sample.Normalize().Mul(rng.Float32())
		t := float32(i) / float32(n)
		kernel[i] = sample.Mul(common.Lerp(0.1, 1, t*t))
	}
	return kernel
}

// GenerateNoise builds the NoiseSize x NoiseSize rotation vectors around +Z, each with z = 0.
//
// Parameters:
//   - rng: the random source
//
// Returns:
//   - []mgl32.Vec3: the noise vectors, row by row
func GenerateNoise(rng *rand.Rand) []mgl32.Vec3 {
	noise := make([]mgl32.Vec3, NoiseSize*NoiseSize)
	for i := range noise {
		noise[i] = mgl32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, 0}
	}
	return noise
}

// ssaoPass computes ambient occlusion from the resolved G-buffer and blurs it. When disabled the
// output is cleared to fully visible.
type ssaoPass struct {
	gbuffer *gbufferPass
	ssao    *shader.SSAOProgram
	blur    *shader.SSAOBlurProgram
	rng     *rand.Rand

	kernel  []mgl32.Vec3
	noise   device.Texture
	raw     device.Texture
	blurred device.Texture
}

var _ Pass = &ssaoPass{}

func newSSAOPass(gbuffer *gbufferPass, seed uint64) *ssaoPass {
	return &ssaoPass{
		gbuffer: gbuffer,
		ssao:    shader.NewSSAOProgram(),
		blur:    shader.NewSSAOBlurProgram(),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *ssaoPass) Name() string {
	return "ssao"
}

func (s *ssaoPass) Init(ctx *RenderContext) error {
	dev := ctx.Device
	if err := dev.RegisterPipeline(device.NewPipeline(shader.KeySSAO, s.ssao,
		device.WithFullscreen(), device.WithColorTargets(device.FormatR8Unorm))); err != nil {
		return err
	}
	if err := dev.RegisterPipeline(device.NewPipeline(shader.KeySSAOBlur, s.blur,
		device.WithFullscreen(), device.WithColorTargets(device.FormatR8Unorm))); err != nil {
		return err
	}

	s.kernel = GenerateKernel(ctx.Settings.SSAO.KernelSize, s.rng)
	noise, err := createTarget(dev, "ssao_noise", NoiseSize, NoiseSize, device.FormatRGBA32Float, 1)
	if err != nil {
		return err
	}
	p := common.NewPacker(NoiseSize * NoiseSize * device.FormatRGBA32Float.BytesPerTexel())
	for _, v := range GenerateNoise(s.rng) {
		p.Vec3(v, 0)
	}
	if err := dev.WriteTexture(noise, 0, p.Bytes()); err != nil {
		noise.Release()
		return err
	}
	s.noise = noise
	return s.Resize(ctx, ctx.Frame.Width, ctx.Frame.Height)
}

func (s *ssaoPass) Resize(ctx *RenderContext, width, height int) error {
	releaseTextures(&s.raw, &s.blurred)
	raw, err := createTarget(ctx.Device, "ssao", width, height, device.FormatR8Unorm, 1)
	if err != nil {
		return err
	}
	s.raw = raw
	blurred, err := createTarget(ctx.Device, "ssao_blur", width, height, device.FormatR8Unorm, 1)
	if err != nil {
		return err
	}
	s.blurred = blurred
	return nil
}

func (s *ssaoPass) Render(ctx *RenderContext) error {
	cfg := ctx.Settings.SSAO
	if !cfg.State {
		return clearPass(ctx.Device, "ssao_disabled", s.blurred, mgl32.Vec4{1, 1, 1, 1})
	}
	if len(s.kernel) != cfg.KernelSize {
		s.kernel = GenerateKernel(cfg.KernelSize, s.rng)
	}

	u := &shader.SSAOUniform{
		Projection: ctx.Camera.Projection(),
		View:       ctx.Camera.View(),
		Radius:     cfg.Radius,
		Bias:       cfg.Bias,
		Power:      float32(cfg.Power),
		Kernel:     s.kernel,
	}
	err := fullscreenPass(ctx.Device, "ssao", s.raw, device.LoadOpClear, mgl32.Vec4{1, 1, 1, 1}, shader.KeySSAO, func(p device.Pass) {
		p.SetUniforms(shader.SSAOUniformBinding, u)
		p.SetTexture(shader.SSAOGPosition, s.gbuffer.Texture(Position))
		p.SetTexture(shader.SSAOGNormal, s.gbuffer.Texture(Normal))
		p.SetTexture(shader.SSAONoise, s.noise)
	})
	if err != nil {
		return err
	}
	return fullscreenPass(ctx.Device, "ssao_blur", s.blurred, device.LoadOpClear, mgl32.Vec4{1, 1, 1, 1}, shader.KeySSAOBlur, func(p device.Pass) {
		p.SetTexture(shader.SSAOBlurInput, s.raw)
	})
}

// Kernel returns the current sample kernel.
func (s *ssaoPass) Kernel() []mgl32.Vec3 {
	return s.kernel
}

// Texture returns the blurred occlusion.
func (s *ssaoPass) Texture() device.Texture {
	return s.blurred
}

func (s *ssaoPass) Release() {
	releaseTextures(&s.noise, &s.raw, &s.blurred)
}
