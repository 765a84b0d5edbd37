package shader

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Bindings shared by the directional and point lighting programs.
const (
	LightUniformBinding = iota
	LightGPosition
	LightGNormal
	LightGAlbedo
	LightGAmbient
	LightSSAO
	LightBase
	LightShadowMap
)

func lightLayout(uniformType string, size int) device.Layout {
	return device.Layout{
		{Name: "light", Kind: device.BindingUniform, Size: size, Type: uniformType},
		{Name: "g_position", Kind: device.BindingTexture},
		{Name: "g_normal", Kind: device.BindingTexture},
		{Name: "g_albedo", Kind: device.BindingTexture},
		{Name: "g_ambient", Kind: device.BindingTexture},
		{Name: "ssao_map", Kind: device.BindingTexture},
		{Name: "base_lighting", Kind: device.BindingTexture},
		{Name: "shadow_map", Kind: device.BindingDepthArray},
	}
}

// DirectionalLightProgram adds one directional light on top of the base lighting texture.
type DirectionalLightProgram struct {
	program
}

// NewDirectionalLightProgram builds the directional lighting program.
func NewDirectionalLightProgram() *DirectionalLightProgram {
	return &DirectionalLightProgram{program: mustBuild(KeyLightDirectional, lightLayout("DirectionalLight", 704))}
}

func (p *DirectionalLightProgram) Fragment(b *soft.Bindings, f soft.Fragment) (soft.FragmentOutput, bool) {
	var out soft.FragmentOutput
	x, y := texelOf(f)
	base := b.Load(LightBase, x, y, 0)
	s := loadSurface(b, x, y)
	if !s.covered {
		out.Color[0] = base
		return out, true
	}
	u := b.Uniform(LightUniformBinding).(*DirectionalLightUniform)
	toLight := normalize(u.Direction.Mul(-1))
	ambient, shadowable := phong(s, toLight, u.ViewPosition, u.Ambient, u.Diffuse, u.Specular)
	lit := float32(1)
	if u.CastShadow {
		lit = 1 - directionalShadow(b, u, s, toLight)
	}
	out.Color[0] = base.Vec3().Add(ambient).Add(shadowable.Mul(lit)).Vec4(1)
	return out, true
}

func directionalShadow(b *soft.Bindings, u *DirectionalLightUniform, s surface, toLight mgl32.Vec3) float32 {
	count := u.CascadeCount()
	if count == 0 {
		return 0
	}
	depth := -u.View.Mul4x1(s.position.Vec4(1))[2]
	layer := count - 1
	for i := 0; i < count; i++ {
		if depth < u.Plane(i) {
			layer = i
			break
		}
	}
	clip := u.LightViewProj[layer].Mul4x1(s.position.Vec4(1))
	ndc := clip.Vec3().Mul(1 / clip[3])
	if ndc[2] > 1 {
		return 0
	}
	w, h := b.Size(LightShadowMap)
	bias := max(u.Bias*(1-s.normal.Dot(toLight)), u.Bias*0.1)
	tx, ty := ndcTexel(w, h, ndc.Vec2())
	return pcf(b, LightShadowMap, tx, ty, layer, ndc[2], bias)
}

// PointLightProgram adds one attenuated point or spot light on top of the base lighting texture.
type PointLightProgram struct {
	program
}

// NewPointLightProgram builds the point lighting program.
func NewPointLightProgram() *PointLightProgram {
	return &PointLightProgram{program: mustBuild(KeyLightPoint, lightLayout("PointLight", 512))}
}

// CubeFace returns the cube face a direction falls on, ordered +X, -X, +Y, -Y, +Z, -Z.
func CubeFace(d mgl32.Vec3) int {
	ax, ay, az := math32.Abs(d[0]), math32.Abs(d[1]), math32.Abs(d[2])
	switch {
	case ax >= ay && ax >= az:
		if d[0] >= 0 {
			return 0
		}
		return 1
	case ay >= az:
		if d[1] >= 0 {
			return 2
		}
		return 3
	default:
		if d[2] >= 0 {
			return 4
		}
		return 5
	}
}

func (p *PointLightProgram) Fragment(b *soft.Bindings, f soft.Fragment) (soft.FragmentOutput, bool) {
	var out soft.FragmentOutput
	x, y := texelOf(f)
	base := b.Load(LightBase, x, y, 0)
	s := loadSurface(b, x, y)
	if !s.covered {
		out.Color[0] = base
		return out, true
	}
	u := b.Uniform(LightUniformBinding).(*PointLightUniform)
	offset := u.Position.Sub(s.position)
	distance := offset.Len()
	toLight := offset.Mul(1 / max(distance, 1e-6))
	attenuation := 1 / max(u.Constant+u.Linear*distance+u.Quadratic*distance*distance, 1e-6)

	intensity := float32(1)
	if u.Spot {
		theta := toLight.Dot(normalize(u.SpotDirection.Mul(-1)))
		epsilon := max(u.CosInner-u.CosOuter, 1e-6)
		intensity = max(0, min(1, (theta-u.CosOuter)/epsilon))
	}

	ambient, shadowable := phong(s, toLight, u.ViewPosition, u.Ambient, u.Diffuse, u.Specular)
	lit := float32(1)
	if u.CastShadow {
		lit = 1 - pointShadow(b, u, s)
	}
	color := ambient.Mul(attenuation).Add(shadowable.Mul(lit * attenuation * intensity))
	out.Color[0] = base.Vec3().Add(color).Vec4(1)
	return out, true
}

func pointShadow(b *soft.Bindings, u *PointLightUniform, s surface) float32 {
	fromLight := s.position.Sub(u.Position)
	face := CubeFace(fromLight)
	clip := u.FaceViewProj[face].Mul4x1(s.position.Vec4(1))
	current := fromLight.Len() / u.Far
	if current > 1 {
		return 0
	}
	w, h := b.Size(LightShadowMap)
	tx, ty := ndcTexel(w, h, mgl32.Vec2{clip[0] / clip[3], clip[1] / clip[3]})
	return pcf(b, LightShadowMap, tx, ty, face, current, u.Bias)
}
