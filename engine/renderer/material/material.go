package material

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
)

// Texture is a cached device texture. Its Release runs when the last handle to it is released.
type Texture struct {
	device.Texture
}

var _ resource.Releaser = &Texture{}

// Material holds the Phong surface properties written into the G-buffer.
//
// Colors are linear RGB in [0, 1]; the G-buffer stores albedo, ambient and emissive in 8-bit channels,
// so brighter emissive values saturate.
type Material struct {
	// Name identifies the material in logs.
	Name string

	// Albedo is the diffuse color, multiplied by the albedo texture when one is set.
	Albedo mgl32.Vec3

	// Ambient is the ambient reflectance.
	Ambient mgl32.Vec3

	// Emissive is light emitted by the surface, added after lighting.
	Emissive mgl32.Vec3

	// Specular is the specular strength.
	Specular float32

	// Shininess is the Phong exponent.
	Shininess float32

	// AlbedoTexture is optional. An empty handle samples as white.
	AlbedoTexture resource.Handle[Texture]
}

// New creates a white, mildly glossy material.
//
// Parameters:
//   - opts: functional options
//
// Returns:
//   - Material: the material
func New(opts ...MaterialBuilderOption) Material {
	m := Material{
		Name:      "default",
		Albedo:    mgl32.Vec3{1, 1, 1},
		Ambient:   mgl32.Vec3{1, 1, 1},
		Specular:  0.5,
		Shininess: 32,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Texture returns the albedo texture, or nil when none is set or it was released.
func (m *Material) Texture() device.Texture {
	t := m.AlbedoTexture.Get()
	if t == nil {
		return nil
	}
	return t.Texture
}

// Release drops the material's texture reference.
func (m *Material) Release() {
	m.AlbedoTexture.Release()
	m.AlbedoTexture = resource.Handle[Texture]{}
}
