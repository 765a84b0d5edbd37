package shader

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/go-gl/mathgl/mgl32"
)

// Sprite program bindings.
const (
	SpriteUniformBinding = iota
	SpriteTexture
)

var spriteLayout = device.Layout{
	{Name: "sprite", Kind: device.BindingUniform, Size: 64, Type: "Sprite"},
	{Name: "sprite_texture", Kind: device.BindingTexture},
}

// SpriteProgram draws textured, tinted quads given in pixel space.
type SpriteProgram struct {
	program
}

// NewSpriteProgram builds the sprite program.
func NewSpriteProgram() *SpriteProgram {
	return &SpriteProgram{program: mustBuild(KeySprite, spriteLayout)}
}

func (p *SpriteProgram) Vertex(b *soft.Bindings, v device.Vertex) (mgl32.Vec4, soft.Varyings) {
	u := b.Uniform(SpriteUniformBinding).(*SpriteUniform)
	var out soft.Varyings
	out[0] = v.UV.Vec4(0, 0)
	out[1] = v.Color
	return u.Projection.Mul4x1(v.Position.Vec4(1)), out
}

func (p *SpriteProgram) Fragment(b *soft.Bindings, f soft.Fragment) (soft.FragmentOutput, bool) {
	texel := b.LoadUV(SpriteTexture, f.Varyings[0].Vec2(), 0)
	tint := f.Varyings[1]
	var out soft.FragmentOutput
	out.Color[0] = mgl32.Vec4{texel[0] * tint[0], texel[1] * tint[1], texel[2] * tint[2], texel[3] * tint[3]}
	return out, true
}
