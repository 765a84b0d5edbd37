package light

import "github.com/go-gl/mathgl/mgl32"

// DirectionalBuilderOption configures a Directional during construction.
type DirectionalBuilderOption func(*Directional)

// PointBuilderOption configures a Point during construction.
type PointBuilderOption func(*Point)

// WithDirectionalColors sets the Phong terms of a directional light.
//
// Parameters:
//   - ambient: the ambient color
//   - diffuse: the diffuse color
//   - specular: the specular color
//
// Returns:
//   - DirectionalBuilderOption: a function that sets the colors
func WithDirectionalColors(ambient, diffuse, specular mgl32.Vec3) DirectionalBuilderOption {
	return func(d *Directional) {
		d.Phong = Phong{Ambient: ambient, Diffuse: diffuse, Specular: specular}
	}
}

// WithPointColors sets the Phong terms of a point light.
//
// Parameters:
//   - ambient: the ambient color
//   - diffuse: the diffuse color
//   - specular: the specular color
//
// Returns:
//   - PointBuilderOption: a function that sets the colors
func WithPointColors(ambient, diffuse, specular mgl32.Vec3) PointBuilderOption {
	return func(p *Point) {
		p.Phong = Phong{Ambient: ambient, Diffuse: diffuse, Specular: specular}
	}
}

// WithAttenuation sets the constant, linear and quadratic falloff terms.
//
// Parameters:
//   - constant: the constant term
//   - linear: the linear term
//   - quadratic: the quadratic term
//
// Returns:
//   - PointBuilderOption: a function that sets the attenuation
func WithAttenuation(constant, linear, quadratic float32) PointBuilderOption {
	return func(p *Point) {
		p.Constant = constant
		p.Linear = linear
		p.Quadratic = quadratic
	}
}

// WithSpotCone turns the light into a spot light.
//
// Parameters:
//   - innerDeg: the inner cone half-angle in degrees
//   - outerDeg: the outer cone half-angle in degrees
//
// Returns:
//   - PointBuilderOption: a function that enables the cone
func WithSpotCone(innerDeg, outerDeg float32) PointBuilderOption {
	return func(p *Point) {
		p.Spot = true
		p.CutOff = innerDeg
		p.OuterCutOff = outerDeg
	}
}

// WithMatrixFuncs replaces the matrix builders of the light's future point shadows.
//
// Parameters:
//   - funcs: the builders
//
// Returns:
//   - PointBuilderOption: a function that sets the builders
func WithMatrixFuncs(funcs MatrixFuncs) PointBuilderOption {
	return func(p *Point) {
		p.funcs = funcs
	}
}
