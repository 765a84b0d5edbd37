package shader

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowUniformBinding is the only binding of both shadow programs.
const ShadowUniformBinding = 0

var shadowCascadeLayout = device.Layout{
	{Name: "shadow", Kind: device.BindingUniform, Size: 128, Type: "Shadow"},
}

var shadowPointLayout = device.Layout{
	{Name: "shadow", Kind: device.BindingUniform, Size: 144, Type: "PointShadow"},
}

// ShadowCascadeProgram renders depth into one cascade layer.
type ShadowCascadeProgram struct {
	program
}

// NewShadowCascadeProgram builds the cascade depth program.
func NewShadowCascadeProgram() *ShadowCascadeProgram {
	return &ShadowCascadeProgram{program: mustBuild(KeyShadowCascade, shadowCascadeLayout)}
}

func (p *ShadowCascadeProgram) Vertex(b *soft.Bindings, v device.Vertex) (mgl32.Vec4, soft.Varyings) {
	u := b.Uniform(ShadowUniformBinding).(*ShadowUniform)
	return u.LightViewProj.Mul4(u.Model).Mul4x1(v.Position.Vec4(1)), soft.Varyings{}
}

func (p *ShadowCascadeProgram) Fragment(*soft.Bindings, soft.Fragment) (soft.FragmentOutput, bool) {
	return soft.FragmentOutput{}, true
}

// ShadowPointProgram renders linear light distance over the far plane into one cube face.
type ShadowPointProgram struct {
	program
}

// NewShadowPointProgram builds the cube face depth program.
func NewShadowPointProgram() *ShadowPointProgram {
	return &ShadowPointProgram{program: mustBuild(KeyShadowPoint, shadowPointLayout)}
}

func (p *ShadowPointProgram) Vertex(b *soft.Bindings, v device.Vertex) (mgl32.Vec4, soft.Varyings) {
	u := b.Uniform(ShadowUniformBinding).(*PointShadowUniform)
	world := u.Model.Mul4x1(v.Position.Vec4(1))
	var out soft.Varyings
	out[0] = world
	return u.FaceViewProj.Mul4x1(world), out
}

func (p *ShadowPointProgram) Fragment(b *soft.Bindings, f soft.Fragment) (soft.FragmentOutput, bool) {
	u := b.Uniform(ShadowUniformBinding).(*PointShadowUniform)
	distance := f.Varyings[0].Vec3().Sub(u.LightPosition).Len()
	return soft.FragmentOutput{Depth: common.Clamp(distance/u.Far, 0, 1), WriteDepth: true}, true
}
