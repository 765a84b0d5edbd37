package material

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialBuilderOption configures a Material during construction.
type MaterialBuilderOption func(*Material)

// WithName sets the material name.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - MaterialBuilderOption: a function that sets the name
func WithName(name string) MaterialBuilderOption {
	return func(m *Material) {
		m.Name = name
	}
}

// WithAlbedo sets the diffuse color.
//
// Parameters:
//   - albedo: linear RGB
//
// Returns:
//   - MaterialBuilderOption: a function that sets the albedo
func WithAlbedo(albedo mgl32.Vec3) MaterialBuilderOption {
	return func(m *Material) {
		m.Albedo = albedo
	}
}

// WithAmbient sets the ambient reflectance.
//
// Parameters:
//   - ambient: linear RGB
//
// Returns:
//   - MaterialBuilderOption: a function that sets the ambient reflectance
func WithAmbient(ambient mgl32.Vec3) MaterialBuilderOption {
	return func(m *Material) {
		m.Ambient = ambient
	}
}

// WithEmissive sets the emitted color.
//
// Parameters:
//   - emissive: linear RGB
//
// Returns:
//   - MaterialBuilderOption: a function that sets the emissive color
func WithEmissive(emissive mgl32.Vec3) MaterialBuilderOption {
	return func(m *Material) {
		m.Emissive = emissive
	}
}

// WithSpecular sets the specular strength and Phong exponent.
//
// Parameters:
//   - strength: the specular strength
//   - shininess: the Phong exponent
//
// Returns:
//   - MaterialBuilderOption: a function that sets the specular terms
func WithSpecular(strength, shininess float32) MaterialBuilderOption {
	return func(m *Material) {
		m.Specular = strength
		m.Shininess = shininess
	}
}

// WithAlbedoTexture sets the albedo texture. The material takes ownership of the handle.
//
// Parameters:
//   - tex: a handle obtained from a texture cache
//
// Returns:
//   - MaterialBuilderOption: a function that sets the texture
func WithAlbedoTexture(tex resource.Handle[Texture]) MaterialBuilderOption {
	return func(m *Material) {
		m.AlbedoTexture = tex
	}
}
