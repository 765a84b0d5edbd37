package shader

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SSAO program bindings.
const (
	SSAOUniformBinding = iota
	SSAOGPosition
	SSAOGNormal
	SSAONoise
)

// SSAOBlurInput is the only binding of the blur program.
const SSAOBlurInput = 0

var ssaoLayout = device.Layout{
	{Name: "ssao", Kind: device.BindingUniform, Size: 1168, Type: "SSAO"},
	{Name: "g_position", Kind: device.BindingTexture},
	{Name: "g_normal", Kind: device.BindingTexture},
	{Name: "noise_map", Kind: device.BindingTexture},
}

var ssaoBlurLayout = device.Layout{
	{Name: "ssao_input", Kind: device.BindingTexture},
}

// SSAOProgram computes view-space hemisphere occlusion from the resolved G-buffer.
// Background texels are fully visible.
type SSAOProgram struct {
	program
}

// NewSSAOProgram builds the occlusion program.
func NewSSAOProgram() *SSAOProgram {
	return &SSAOProgram{program: mustBuild(KeySSAO, ssaoLayout)}
}

func (p *SSAOProgram) Fragment(b *soft.Bindings, f soft.Fragment) (soft.FragmentOutput, bool) {
	var out soft.FragmentOutput
	x, y := texelOf(f)
	world := b.Load(SSAOGPosition, x, y, 0)
	if world[3] < 0.5 {
		out.Color[0] = mgl32.Vec4{1, 1, 1, 1}
		return out, true
	}
	u := b.Uniform(SSAOUniformBinding).(*SSAOUniform)
	w, h := b.Size(SSAOGPosition)

	origin := u.View.Mul4x1(world.Vec3().Vec4(1)).Vec3()
	normal := normalize(u.View.Mul4x1(b.Load(SSAOGNormal, x, y, 0).Vec3().Vec4(0)).Vec3())
	noise := b.Load(SSAONoise, x%4, y%4, 0).Vec3()

	tangent := noise.Sub(normal.Mul(noise.Dot(normal)))
	if tangent.Len() < 1e-4 {
		axis := mgl32.Vec3{1, 0, 0}
		if math32.Abs(normal[0]) > 0.9 {
			axis = mgl32.Vec3{0, 1, 0}
		}
		tangent = normal.Cross(axis)
	}
	tangent = normalize(tangent)
	bitangent := normal.Cross(tangent)

	var occlusion float32
	count := u.KernelSize()
	for i := 0; i < count; i++ {
		k := u.Kernel[i]
		samplePos := origin.Add(tangent.Mul(k[0] * u.Radius)).Add(bitangent.Mul(k[1] * u.Radius)).Add(normal.Mul(k[2] * u.Radius))
		clip := u.Projection.Mul4x1(samplePos.Vec4(1))
		sx, sy := ndcTexel(w, h, mgl32.Vec2{clip[0] / clip[3], clip[1] / clip[3]})
		sampleWorld := b.Load(SSAOGPosition, sx, sy, 0)
		if sampleWorld[3] < 0.5 {
			continue
		}
		sampleDepth := u.View.Mul4x1(sampleWorld.Vec3().Vec4(1))[2]
		rangeCheck := smoothstep(0, 1, u.Radius/max(math32.Abs(origin[2]-sampleDepth), 1e-4))
		if sampleDepth >= samplePos[2]+u.Bias {
			occlusion += rangeCheck
		}
	}
	visibility := 1 - occlusion/float32(max(count, 1))
	out.Color[0] = mgl32.Vec4{math32.Pow(visibility, u.Power), 0, 0, 1}
	return out, true
}

func smoothstep(edge0, edge1, x float32) float32 {
	t := max(0, min(1, (x-edge0)/(edge1-edge0)))
	return t * t * (3 - 2*t)
}

// SSAOBlurProgram averages the 4x4 neighbourhood of each occlusion texel.
type SSAOBlurProgram struct {
	program
}

// NewSSAOBlurProgram builds the blur program.
func NewSSAOBlurProgram() *SSAOBlurProgram {
	return &SSAOBlurProgram{program: mustBuild(KeySSAOBlur, ssaoBlurLayout)}
}

func (p *SSAOBlurProgram) Fragment(b *soft.Bindings, f soft.Fragment) (soft.FragmentOutput, bool) {
	x, y := texelOf(f)
	var sum float32
	for dy := -2; dy < 2; dy++ {
		for dx := -2; dx < 2; dx++ {
			sum += b.Load(SSAOBlurInput, x+dx, y+dy, 0)[0]
		}
	}
	var out soft.FragmentOutput
	out.Color[0] = mgl32.Vec4{sum / 16, 0, 0, 1}
	return out, true
}
