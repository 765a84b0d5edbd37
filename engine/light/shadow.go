package light

import (
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowMapResolution is the default width and height in texels of every shadow map layer.
const ShadowMapResolution = 2048

// DefaultShadowBias is the default slope-scaled depth bias of directional shadows.
const DefaultShadowBias float32 = 0.005

// DefaultPointShadowBias is the default bias of point shadows, in units of distance / far.
const DefaultPointShadowBias float32 = 0.02

// DefaultPointShadowNear and DefaultPointShadowFar bound the cube face projections.
const (
	DefaultPointShadowNear float32 = 0.1
	DefaultPointShadowFar  float32 = 25.0
)

// CascadeZPadding stretches each cascade's light-space depth range so casters outside the camera
// slice still land in the map.
const CascadeZPadding float32 = 10

// ErrInvalidPlanes is returned when cascade planes are empty, non-positive or not strictly increasing.
var ErrInvalidPlanes = errors.New("light: cascade planes must be positive and strictly increasing")

// Allocator creates the depth textures of shadow maps. device.Device satisfies it.
type Allocator interface {
	CreateTexture(desc device.TextureDescriptor) (device.Texture, error)
}

// ShadowConfig sizes the shadow maps allocated when a light starts casting shadows.
type ShadowConfig struct {
	Resolution int
	// Planes are the far view distances of each cascade.
	Planes    []float32
	Bias      float32
	PointBias float32
	PointFar  float32
}

// DefaultShadowConfig returns the configuration used when none is given.
func DefaultShadowConfig() ShadowConfig {
	return ShadowConfig{
		Resolution: ShadowMapResolution,
		Planes:     []float32{10, 50, 200, 1000},
		Bias:       DefaultShadowBias,
		PointBias:  DefaultPointShadowBias,
		PointFar:   DefaultPointShadowFar,
	}
}

// Frustum is the part of a camera cascades are fitted to. camera.Camera satisfies it.
type Frustum interface {
	Near() float32
	SubFrustumCorners(near, far float32) [8]mgl32.Vec3
}

// ValidatePlanes checks that planes can split a view frustum.
func ValidatePlanes(planes []float32) error {
	if len(planes) == 0 {
		return ErrInvalidPlanes
	}
	for i, p := range planes {
		if p <= 0 || (i > 0 && p <= planes[i-1]) {
			return fmt.Errorf("%w: %v", ErrInvalidPlanes, planes)
		}
	}
	return nil
}

// CascadeShadow is the shadow map of a directional light: one depth array layer per cascade and
// the light-space projection-view of each cascade, nearest first.
type CascadeShadow struct {
	texture  device.Texture
	planes   []float32
	matrices []mgl32.Mat4
	bias     float32
}

// NewCascadeShadow allocates a cascaded shadow map.
//
// Parameters:
//   - alloc: creates the depth array texture
//   - resolution: the width and height of each layer
//   - planes: the far distance of each cascade, strictly increasing
//   - bias: the depth comparison bias
//
// Returns:
//   - *CascadeShadow: the shadow map
//   - error: ErrInvalidPlanes, or a texture creation error
func NewCascadeShadow(alloc Allocator, resolution int, planes []float32, bias float32) (*CascadeShadow, error) {
	if err := ValidatePlanes(planes); err != nil {
		return nil, err
	}
	tex, err := alloc.CreateTexture(device.TextureDescriptor{
		Label:  "cascade_shadow",
		Width:  resolution,
		Height: resolution,
		Layers: len(planes),
		Format: device.FormatDepth32Float,
	})
	if err != nil {
		return nil, fmt.Errorf("light: allocate cascade shadow: %w", err)
	}
	return &CascadeShadow{
		texture:  tex,
		planes:   append([]float32(nil), planes...),
		matrices: make([]mgl32.Mat4, len(planes)),
		bias:     bias,
	}, nil
}

// Texture returns the depth array, one layer per cascade.
func (c *CascadeShadow) Texture() device.Texture { return c.texture }

// Planes returns a copy of the cascade far distances.
func (c *CascadeShadow) Planes() []float32 { return append([]float32(nil), c.planes...) }

// Matrices returns the projection-view of each cascade from the last ComputeCascadeLightMatrix call.
func (c *CascadeShadow) Matrices() []mgl32.Mat4 { return append([]mgl32.Mat4(nil), c.matrices...) }

// Bias returns the depth comparison bias.
func (c *CascadeShadow) Bias() float32 { return c.bias }

// Release frees the depth texture.
func (c *CascadeShadow) Release() {
	if c.texture != nil {
		c.texture.Release()
		c.texture = nil
	}
}

// ComputeCascadeLightMatrix fits an orthographic light projection around each cascade's slice of the
// camera frustum. Cascade i spans [planes[i-1], planes[i]], the first starting at the camera's near plane.
//
// Parameters:
//   - lightFront: the direction the light travels
//   - camera: the viewer the cascades follow
//
// Returns:
//   - []mgl32.Mat4: the projection-view per cascade
func (c *CascadeShadow) ComputeCascadeLightMatrix(lightFront mgl32.Vec3, camera Frustum) []mgl32.Mat4 {
	if lightFront.Len() < common.Epsilon {
		lightFront = mgl32.Vec3{0, -1, 0}
	}
	lightFront = lightFront.Normalize()
	near := camera.Near()
	for i, far := range c.planes {
		corners := camera.SubFrustumCorners(near, far)
		c.matrices[i] = cascadeMatrix(lightFront, corners)
		near = far
	}
	return c.Matrices()
}

func cascadeMatrix(lightFront mgl32.Vec3, corners [8]mgl32.Vec3) mgl32.Mat4 {
	center := common.Centroid(corners[:])
	view := common.LookAt(center.Sub(lightFront), center, mgl32.Vec3{0, 1, 0})

	minX, minY, minZ := float32(math.MaxFloat32), float32(math.MaxFloat32), float32(math.MaxFloat32)
	maxX, maxY, maxZ := -minX, -minY, -minZ
	for _, corner := range corners {
		p := view.Mul4x1(corner.Vec4(1))
		minX, maxX = min(minX, p[0]), max(maxX, p[0])
		minY, maxY = min(minY, p[1]), max(maxY, p[1])
		minZ, maxZ = min(minZ, p[2]), max(maxZ, p[2])
	}

	// The light looks down -Z, so the nearest corner has the largest z.
	near, far := -maxZ, -minZ
	if near < 0 {
		near *= CascadeZPadding
	} else {
		near /= CascadeZPadding
	}
	if far < 0 {
		far /= CascadeZPadding
	} else {
		far *= CascadeZPadding
	}
	return common.Ortho(minX, maxX, minY, maxY, near, far).Mul4(view)
}

// MatrixFuncs are the matrix builders PointShadow uses. Tests swap them to count calls.
type MatrixFuncs struct {
	LookAt      func(eye, center, up mgl32.Vec3) mgl32.Mat4
	Perspective func(fovY, aspect, near, far float32) mgl32.Mat4
}

// DefaultMatrixFuncs returns the common package builders.
func DefaultMatrixFuncs() MatrixFuncs {
	return MatrixFuncs{LookAt: common.LookAt, Perspective: common.Perspective}
}

// cubeFaces are the view direction and up vector of each face, ordered +X, -X, +Y, -Y, +Z, -Z.
var cubeFaces = [6][2]mgl32.Vec3{
	{{1, 0, 0}, {0, -1, 0}},
	{{-1, 0, 0}, {0, -1, 0}},
	{{0, 1, 0}, {0, 0, 1}},
	{{0, -1, 0}, {0, 0, -1}},
	{{0, 0, 1}, {0, -1, 0}},
	{{0, 0, -1}, {0, -1, 0}},
}

// PointShadow is the cube shadow map of a point light. Its six face projections are cached and only
// recomputed when the light moves or the depth range changes.
type PointShadow struct {
	texture  device.Texture
	near     float32
	far      float32
	bias     float32
	lastPos  mgl32.Vec3
	matrices [6]mgl32.Mat4
	outdated bool
	funcs    MatrixFuncs
}

// NewPointShadow allocates a point shadow map.
//
// Parameters:
//   - alloc: creates the cube depth texture
//   - resolution: the width and height of each face
//   - far: the far plane, also the distance normalizer of stored depths
//   - bias: the depth comparison bias
//   - funcs: the matrix builders, usually DefaultMatrixFuncs()
//
// Returns:
//   - *PointShadow: the shadow map
//   - error: a texture creation error
func NewPointShadow(alloc Allocator, resolution int, far, bias float32, funcs MatrixFuncs) (*PointShadow, error) {
	tex, err := alloc.CreateTexture(device.TextureDescriptor{
		Label:  "point_shadow",
		Width:  resolution,
		Height: resolution,
		Cube:   true,
		Format: device.FormatDepth32Float,
	})
	if err != nil {
		return nil, fmt.Errorf("light: allocate point shadow: %w", err)
	}
	if funcs.LookAt == nil || funcs.Perspective == nil {
		funcs = DefaultMatrixFuncs()
	}
	return &PointShadow{
		texture:  tex,
		near:     DefaultPointShadowNear,
		far:      far,
		bias:     bias,
		outdated: true,
		funcs:    funcs,
	}, nil
}

// Texture returns the cube depth texture, one layer per face.
func (p *PointShadow) Texture() device.Texture { return p.texture }

// Near returns the near plane of the face projections.
func (p *PointShadow) Near() float32 { return p.near }

// Far returns the far plane of the face projections.
func (p *PointShadow) Far() float32 { return p.far }

// Bias returns the depth comparison bias.
func (p *PointShadow) Bias() float32 { return p.bias }

// SetRange changes the depth range and invalidates the cached matrices.
func (p *PointShadow) SetRange(near, far float32) {
	if near != p.near || far != p.far {
		p.near, p.far = near, far
		p.outdated = true
	}
}

// Outdated reports whether the next GetProjectionMatrix call recomputes.
func (p *PointShadow) Outdated() bool { return p.outdated }

// GetProjectionMatrix returns the projection-view of every cube face for a light at lightPos.
// The matrices are recomputed only when lightPos differs from the previous call or the range changed.
//
// Parameters:
//   - lightPos: the world-space light position
//
// Returns:
//   - [6]mgl32.Mat4: one matrix per face, ordered +X, -X, +Y, -Y, +Z, -Z
func (p *PointShadow) GetProjectionMatrix(lightPos mgl32.Vec3) [6]mgl32.Mat4 {
	if !p.outdated && lightPos == p.lastPos {
		return p.matrices
	}
	proj := p.funcs.Perspective(math.Pi/2, 1, p.near, p.far)
	for i, face := range cubeFaces {
		view := p.funcs.LookAt(lightPos, lightPos.Add(face[0]), face[1])
		p.matrices[i] = proj.Mul4(view)
	}
	p.lastPos = lightPos
	p.outdated = false
	return p.matrices
}

// Release frees the cube texture.
func (p *PointShadow) Release() {
	if p.texture != nil {
		p.texture.Release()
		p.texture = nil
	}
}
