package light

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun or moon. Affects all fragments
	// uniformly with no distance attenuation.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position,
	// attenuated by distance. With a spot cone it only lights fragments inside the cone.
	LightTypePoint
)

// DirectionalComponent is the ECS component type of directional lights. The light travels along the
// front axis of the entity's transform.
var DirectionalComponent = donburi.NewComponentType[Directional]()

// PointComponent is the ECS component type of point and spot lights, positioned by the entity's transform.
var PointComponent = donburi.NewComponentType[Point]()

// Phong holds the three Phong color terms shared by every light type.
type Phong struct {
	Ambient  mgl32.Vec3
	Diffuse  mgl32.Vec3
	Specular mgl32.Vec3
}

// Directional is a directional light.
//
// Its shadow map follows a two-state machine driven by SetCastShadow: enabling allocates a
// CascadeShadow, disabling releases it, and enabling again allocates a fresh one.
type Directional struct {
	Phong

	castShadow bool
	shadow     *CascadeShadow
}

// NewDirectional creates a directional light with white diffuse and specular and a dim ambient term.
//
// Parameters:
//   - opts: functional options
//
// Returns:
//   - Directional: the light, not casting shadows
func NewDirectional(opts ...DirectionalBuilderOption) Directional {
	d := Directional{Phong: defaultPhong()}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func defaultPhong() Phong {
	return Phong{
		Ambient:  mgl32.Vec3{0.1, 0.1, 0.1},
		Diffuse:  mgl32.Vec3{1, 1, 1},
		Specular: mgl32.Vec3{1, 1, 1},
	}
}

// Type returns LightTypeDirectional.
func (d *Directional) Type() LightType { return LightTypeDirectional }

// CastShadow reports whether the light currently owns a shadow map.
func (d *Directional) CastShadow() bool { return d.castShadow }

// Shadow returns the cascaded shadow map, or nil when the light casts no shadow.
func (d *Directional) Shadow() *CascadeShadow { return d.shadow }

// SetCastShadow moves the shadow state machine. A false→true transition allocates a cascaded shadow
// map sized by cfg; true→false releases it. Setting the current state again does nothing.
//
// Parameters:
//   - alloc: creates the shadow texture
//   - cfg: the resolution, planes and bias of the new map
//   - cast: the requested state
//
// Returns:
//   - error: an allocation error; the light stays shadowless
func (d *Directional) SetCastShadow(alloc Allocator, cfg ShadowConfig, cast bool) error {
	if cast == d.castShadow {
		return nil
	}
	if !cast {
		d.shadow.Release()
		d.shadow = nil
		d.castShadow = false
		return nil
	}
	shadow, err := NewCascadeShadow(alloc, cfg.Resolution, cfg.Planes, cfg.Bias)
	if err != nil {
		return err
	}
	d.shadow = shadow
	d.castShadow = true
	return nil
}

// Point is a point light, optionally restricted to a spot cone.
//
// Its shadow map follows the same state machine as Directional, with a PointShadow cube map.
type Point struct {
	Phong

	Constant  float32
	Linear    float32
	Quadratic float32

	// Spot restricts the light to a cone around the entity's front axis.
	Spot bool
	// CutOff and OuterCutOff are the inner and outer cone half-angles in degrees.
	CutOff      float32
	OuterCutOff float32

	castShadow bool
	shadow     *PointShadow
	funcs      MatrixFuncs
}

// NewPoint creates a point light with attenuation reaching roughly 50 units.
//
// Parameters:
//   - opts: functional options
//
// Returns:
//   - Point: the light, not casting shadows
func NewPoint(opts ...PointBuilderOption) Point {
	p := Point{
		Phong:       defaultPhong(),
		Constant:    1.0,
		Linear:      0.09,
		Quadratic:   0.032,
		CutOff:      12.5,
		OuterCutOff: 17.5,
		funcs:       DefaultMatrixFuncs(),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Type returns LightTypePoint.
func (p *Point) Type() LightType { return LightTypePoint }

// CosCutOff returns the cosines of the inner and outer cone half-angles.
func (p *Point) CosCutOff() (inner, outer float32) {
	return math32.Cos(mgl32.DegToRad(p.CutOff)), math32.Cos(mgl32.DegToRad(p.OuterCutOff))
}

// Attenuation returns the distance falloff factor at distance d.
func (p *Point) Attenuation(d float32) float32 {
	return 1 / max(p.Constant+p.Linear*d+p.Quadratic*d*d, 1e-6)
}

// CastShadow reports whether the light currently owns a shadow map.
func (p *Point) CastShadow() bool { return p.castShadow }

// Shadow returns the cube shadow map, or nil when the light casts no shadow.
func (p *Point) Shadow() *PointShadow { return p.shadow }

// SetCastShadow moves the shadow state machine. A false→true transition allocates a cube shadow map
// sized by cfg; true→false releases it. Setting the current state again does nothing.
//
// Parameters:
//   - alloc: creates the shadow texture
//   - cfg: the resolution, far plane and bias of the new map
//   - cast: the requested state
//
// Returns:
//   - error: an allocation error; the light stays shadowless
func (p *Point) SetCastShadow(alloc Allocator, cfg ShadowConfig, cast bool) error {
	if cast == p.castShadow {
		return nil
	}
	if !cast {
		p.shadow.Release()
		p.shadow = nil
		p.castShadow = false
		return nil
	}
	shadow, err := NewPointShadow(alloc, cfg.Resolution, cfg.PointFar, cfg.PointBias, p.funcs)
	if err != nil {
		return err
	}
	p.shadow = shadow
	p.castShadow = true
	return nil
}
