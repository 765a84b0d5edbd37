package shader

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/go-gl/mathgl/mgl32"
)

// G-buffer program bindings.
const (
	GBufferCamera = iota
	GBufferObject
	GBufferAlbedoMap
)

// G-buffer color target order. EntityID is an R32Uint target.
const (
	TargetPosition = iota
	TargetNormal
	TargetAlbedo
	TargetAmbient
	TargetEmissive
	TargetEntityID
)

var gbufferLayout = device.Layout{
	{Name: "camera", Kind: device.BindingUniform, Size: 144, Type: "Camera"},
	{Name: "object", Kind: device.BindingUniform, Size: 208, Type: "Object"},
	{Name: "albedo_map", Kind: device.BindingTexture},
}

// GBufferProgram rasterizes meshes into the G-buffer targets. The albedo map must always be
// bound; untextured materials bind a white texel.
type GBufferProgram struct {
	program
}

// NewGBufferProgram builds the G-buffer program.
func NewGBufferProgram() *GBufferProgram {
	return &GBufferProgram{program: mustBuild(KeyGBuffer, gbufferLayout)}
}

func (p *GBufferProgram) Vertex(b *soft.Bindings, v device.Vertex) (mgl32.Vec4, soft.Varyings) {
	camera := b.Uniform(GBufferCamera).(*CameraUniform)
	object := b.Uniform(GBufferObject).(*ObjectUniform)
	world := object.Model.Mul4x1(v.Position.Vec4(1))

	var out soft.Varyings
	out[0] = world
	out[1] = object.Normal.Mul4x1(v.Normal.Vec4(0))
	out[2] = v.UV.Vec4(0, 0)
	return camera.ViewProj.Mul4x1(world), out
}

func (p *GBufferProgram) Fragment(b *soft.Bindings, f soft.Fragment) (soft.FragmentOutput, bool) {
	object := b.Uniform(GBufferObject).(*ObjectUniform)
	texel := b.LoadUV(GBufferAlbedoMap, f.Varyings[2].Vec2(), 0)
	albedo := mgl32.Vec3{object.Albedo[0] * texel[0], object.Albedo[1] * texel[1], object.Albedo[2] * texel[2]}

	var out soft.FragmentOutput
	out.Color[TargetPosition] = f.Varyings[0].Vec3().Vec4(1)
	out.Color[TargetNormal] = normalize(f.Varyings[1].Vec3()).Vec4(object.Shininess)
	out.Color[TargetAlbedo] = albedo.Vec4(object.SpecularStrength)
	out.Color[TargetAmbient] = object.Ambient.Vec4(1)
	out.Color[TargetEmissive] = object.Emissive.Vec4(1)
	out.Uint[TargetEntityID] = object.EntityID
	return out, true
}
