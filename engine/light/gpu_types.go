package light

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// Viewer is the camera state the lighting programs read. camera.Camera satisfies it.
type Viewer interface {
	Frustum
	View() mgl32.Mat4
	Position() mgl32.Vec3
}

// DirectionalUniform packs a directional light for the directional lighting program. When the light
// casts shadows the cascade matrices of the last ComputeCascadeLightMatrix call are included.
//
// Parameters:
//   - d: the light
//   - front: the direction the light travels, from the entity's transform
//   - viewer: the active camera
//
// Returns:
//   - *shader.DirectionalLightUniform: the uniform value
func DirectionalUniform(d *Directional, front mgl32.Vec3, viewer Viewer) *shader.DirectionalLightUniform {
	u := &shader.DirectionalLightUniform{
		View:         viewer.View(),
		ViewPosition: viewer.Position(),
		Direction:    front,
		Ambient:      d.Ambient,
		Diffuse:      d.Diffuse,
		Specular:     d.Specular,
	}
	if s := d.Shadow(); s != nil {
		u.CastShadow = true
		u.Bias = s.Bias()
		u.Planes = s.Planes()
		u.LightViewProj = s.Matrices()
	}
	return u
}

// PointUniform packs a point or spot light for the point lighting program. When the light casts
// shadows the cube face matrices are taken from its PointShadow, recomputing them only if it moved.
//
// Parameters:
//   - p: the light
//   - position: the world-space light position
//   - front: the spot axis, from the entity's transform
//   - viewer: the active camera
//
// Returns:
//   - *shader.PointLightUniform: the uniform value
func PointUniform(p *Point, position, front mgl32.Vec3, viewer Viewer) *shader.PointLightUniform {
	inner, outer := p.CosCutOff()
	u := &shader.PointLightUniform{
		ViewPosition:  viewer.Position(),
		Position:      position,
		SpotDirection: front,
		Spot:          p.Spot,
		CosInner:      inner,
		CosOuter:      outer,
		Ambient:       p.Ambient,
		Diffuse:       p.Diffuse,
		Specular:      p.Specular,
		Constant:      p.Constant,
		Linear:        p.Linear,
		Quadratic:     p.Quadratic,
	}
	if s := p.Shadow(); s != nil {
		u.CastShadow = true
		u.Bias = s.Bias()
		u.Far = s.Far()
		u.FaceViewProj = s.GetProjectionMatrix(position)
	}
	return u
}
