package material

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/Carmen-Shannon/oxy-deferred/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	m := New()
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, m.Albedo)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, m.Ambient)
	assert.Equal(t, mgl32.Vec3{}, m.Emissive)
	assert.Equal(t, float32(32), m.Shininess)
	assert.Nil(t, m.Texture())
}

func TestUniformCarriesMaterialAndPickID(t *testing.T) {
	m := New(
		WithName("red"),
		WithAlbedo(mgl32.Vec3{1, 0, 0}),
		WithAmbient(mgl32.Vec3{0.5, 0.5, 0.5}),
		WithEmissive(mgl32.Vec3{0, 0, 1}),
		WithSpecular(0.25, 8),
	)
	model := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 2, 2))
	u := m.Uniform(model, 7)

	assert.Equal(t, "red", m.Name)
	assert.Equal(t, model, u.Model)
	assert.Equal(t, uint32(7), u.EntityID)
	assert.Equal(t, float32(0.25), u.SpecularStrength)
	assert.Equal(t, float32(8), u.Shininess)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, u.Emissive)
	// uniform scale keeps the normal direction
	n := u.Normal.Mul4x1(mgl32.Vec4{0, 1, 0, 0}).Vec3().Normalize()
	assert.InDelta(t, 1, n.Y(), 1e-5)
	assert.Len(t, u.Marshal(), u.Size())
}

func TestAlbedoTextureReleasedWithLastReference(t *testing.T) {
	d := soft.NewDevice()
	tex, err := d.CreateTexture(device.TextureDescriptor{Label: "albedo", Width: 2, Height: 2, Format: device.FormatRGBA8Unorm})
	require.NoError(t, err)
	require.Equal(t, 1, d.LiveTextures())

	h := resource.NewHandle(resource.HashString("albedo"), &Texture{Texture: tex})
	a := New(WithAlbedoTexture(h.Clone()))
	b := New(WithAlbedoTexture(h))
	assert.Same(t, tex, a.Texture())

	a.Release()
	assert.Nil(t, a.Texture())
	assert.Equal(t, 1, d.LiveTextures())

	b.Release()
	assert.Equal(t, 0, d.LiveTextures())
}
