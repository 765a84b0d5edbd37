package shader

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// EmissiveInput is the only binding of the emissive program.
const EmissiveInput = 0

// Bloom downsample bindings.
const (
	BloomUniformBinding = iota
	BloomSource
)

// Bloom upsample bindings.
const (
	BloomLow = iota
	BloomHigh
)

// Tonemap bindings.
const (
	TonemapUniformBinding = iota
	TonemapHDR
	TonemapBloom
)

var emissiveLayout = device.Layout{
	{Name: "g_emissive", Kind: device.BindingTexture},
}

var bloomDownLayout = device.Layout{
	{Name: "bloom", Kind: device.BindingUniform, Size: 16, Type: "Bloom"},
	{Name: "source", Kind: device.BindingTexture},
}

var bloomUpLayout = device.Layout{
	{Name: "low", Kind: device.BindingTexture},
	{Name: "high", Kind: device.BindingTexture},
}

var tonemapLayout = device.Layout{
	{Name: "tonemap", Kind: device.BindingUniform, Size: 16, Type: "Tonemap"},
	{Name: "hdr", Kind: device.BindingTexture},
	{Name: "bloom_map", Kind: device.BindingTexture},
}

// EmissiveProgram outputs the emissive G-buffer channel; it is drawn with additive blending.
type EmissiveProgram struct {
	program
}

// NewEmissiveProgram builds the emissive program.
func NewEmissiveProgram() *EmissiveProgram {
	return &EmissiveProgram{program: mustBuild(KeyEmissive, emissiveLayout)}
}

func (p *EmissiveProgram) Fragment(b *soft.Bindings, f soft.Fragment) (soft.FragmentOutput, bool) {
	x, y := texelOf(f)
	var out soft.FragmentOutput
	out.Color[0] = b.Load(EmissiveInput, x, y, 0).Vec3().Vec4(0)
	return out, true
}

// BloomDownProgram halves its source with a 2x2 box filter, applying the soft threshold on the first level.
type BloomDownProgram struct {
	program
}

// NewBloomDownProgram builds the downsample program.
func NewBloomDownProgram() *BloomDownProgram {
	return &BloomDownProgram{program: mustBuild(KeyBloomDown, bloomDownLayout)}
}

// SoftThreshold applies the bloom knee curve to a color.
//
// Parameters:
//   - color: the linear color
//   - threshold: brightness where bloom starts at full strength
//   - knee: width of the quadratic ramp below threshold
//
// Returns:
//   - mgl32.Vec3: the bright-pass color
func SoftThreshold(color mgl32.Vec3, threshold, knee float32) mgl32.Vec3 {
	brightness := max(color[0], color[1], color[2])
	soft := max(0, min(2*knee, brightness-threshold+knee))
	soft = soft * soft / (4*knee + 1e-4)
	contribution := max(soft, brightness-threshold) / max(brightness, 1e-4)
	return color.Mul(contribution)
}

func (p *BloomDownProgram) Fragment(b *soft.Bindings, f soft.Fragment) (soft.FragmentOutput, bool) {
	u := b.Uniform(BloomUniformBinding).(*BloomUniform)
	x, y := texelOf(f)
	var color mgl32.Vec3
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			color = color.Add(b.Load(BloomSource, 2*x+dx, 2*y+dy, 0).Vec3())
		}
	}
	color = color.Mul(0.25)
	if u.FirstPass {
		color = SoftThreshold(color, u.Threshold, u.Knee)
	}
	var out soft.FragmentOutput
	out.Color[0] = color.Vec4(1)
	return out, true
}

// BloomUpProgram adds a tent-filtered lower level onto the current level.
type BloomUpProgram struct {
	program
}

// NewBloomUpProgram builds the upsample program.
func NewBloomUpProgram() *BloomUpProgram {
	return &BloomUpProgram{program: mustBuild(KeyBloomUp, bloomUpLayout)}
}

func (p *BloomUpProgram) Fragment(b *soft.Bindings, f soft.Fragment) (soft.FragmentOutput, bool) {
	x, y := texelOf(f)
	cx, cy := x/2, y/2
	var blurred mgl32.Vec3
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			weight := float32((2 - abs(dx)) * (2 - abs(dy)))
			blurred = blurred.Add(b.Load(BloomLow, cx+dx, cy+dy, 0).Vec3().Mul(weight))
		}
	}
	var out soft.FragmentOutput
	out.Color[0] = b.Load(BloomHigh, x, y, 0).Vec3().Add(blurred.Mul(1.0 / 16)).Vec4(1)
	return out, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// TonemapProgram mixes in bloom, applies exposure and gamma and writes the displayable color.
type TonemapProgram struct {
	program
}

// NewTonemapProgram builds the tone mapping program.
func NewTonemapProgram() *TonemapProgram {
	return &TonemapProgram{program: mustBuild(KeyTonemap, tonemapLayout)}
}

// Tonemap maps one HDR color to display range.
//
// Parameters:
//   - hdr: the linear color
//   - exposure: the exposure multiplier
//   - gamma: the display gamma
//
// Returns:
//   - mgl32.Vec3: the mapped color in [0, 1]
func Tonemap(hdr mgl32.Vec3, exposure, gamma float32) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := range 3 {
		mapped := 1 - math32.Exp(-hdr[i]*exposure)
		out[i] = math32.Pow(mapped, 1/gamma)
	}
	return out
}

func (p *TonemapProgram) Fragment(b *soft.Bindings, f soft.Fragment) (soft.FragmentOutput, bool) {
	u := b.Uniform(TonemapUniformBinding).(*TonemapUniform)
	x, y := texelOf(f)
	color := b.Load(TonemapHDR, x, y, 0).Vec3()
	if u.Bloom {
		bloom := b.LoadUV(TonemapBloom, f.Varyings[0].Vec2(), 0).Vec3()
		color = color.Add(bloom.Sub(color).Mul(u.BloomStrength))
	}
	var out soft.FragmentOutput
	out.Color[0] = Tonemap(color, u.Exposure, u.Gamma).Vec4(1)
	return out, true
}
