package camera

import (
	"math"
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraController places a camera on a sphere around a target. A Camera with a controller copies
// its position and target on every Update.
type CameraController interface {
	// Position returns the eye position derived from the target and the spherical coordinates.
	Position() mgl32.Vec3

	// Target returns the orbit center.
	Target() mgl32.Vec3

	// SetTarget moves the orbit center, keeping the spherical offset.
	SetTarget(target mgl32.Vec3)

	// Spherical returns the radius, azimuth around +Y (0 looks from +Z) and elevation above the XZ plane.
	Spherical() (radius, azimuth, elevation float32)

	// SetSpherical replaces the spherical coordinates. Radius and elevation are clamped to their bounds.
	SetSpherical(radius, azimuth, elevation float32)

	// Step orbits by whole keyboard steps, scaled by the orbit speed.
	//
	// Parameters:
	//   - azimuth: steps around +Y, positive turns right
	//   - elevation: steps up, positive raises the eye
	Step(azimuth, elevation float32)

	// Orbit applies a mouse drag in pixels, scaled by the mouse sensitivity.
	Orbit(dx, dy float32)

	// Zoom moves the eye toward the target by delta times the zoom speed.
	Zoom(delta float32)

	// Pan translates eye and target together along the view's right and up axes, scaled by the pan speed.
	Pan(right, up float32)

	// RadiusBounds returns the radius clamp range.
	RadiusBounds() (minRadius, maxRadius float32)
}

type orbitController struct {
	mu *sync.Mutex

	target mgl32.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius, maxRadius       float32
	minElevation, maxElevation float32

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32
}

var _ CameraController = &orbitController{}

const epsilon = 1e-8

// NewCameraController creates an orbit controller 10 units from the origin, 30 degrees up.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &orbitController{
		mu:               &sync.Mutex{},
		radius:           10,
		elevation:        float32(math.Pi / 6),
		minRadius:        1,
		maxRadius:        500,
		minElevation:     -float32(math.Pi/2 - 0.1),
		maxElevation:     float32(math.Pi/2 - 0.1),
		orbitSpeed:       0.03,
		mouseSensitivity: 0.005,
		zoomSpeed:        1,
		panSpeed:         0.1,
	}
	for _, option := range options {
		option(cc)
	}
	cc.clamp()
	return cc
}

// clamp keeps radius and elevation in bounds. Caller must hold the mutex.
func (cc *orbitController) clamp() {
	cc.radius = mgl32.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = mgl32.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
}

// offset is the eye position relative to the target. Caller must hold the mutex.
func (cc *orbitController) offset() mgl32.Vec3 {
	cosElev, sinElev := math32.Cos(cc.elevation), math32.Sin(cc.elevation)
	cosAzim, sinAzim := math32.Cos(cc.azimuth), math32.Sin(cc.azimuth)
	return mgl32.Vec3{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	}
}

func (cc *orbitController) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target.Add(cc.offset())
}

func (cc *orbitController) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *orbitController) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
}

func (cc *orbitController) Spherical() (float32, float32, float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius, cc.azimuth, cc.elevation
}

func (cc *orbitController) SetSpherical(radius, azimuth, elevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius, cc.azimuth, cc.elevation = radius, azimuth, elevation
	cc.clamp()
}

func (cc *orbitController) Step(azimuth, elevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += azimuth * cc.orbitSpeed
	cc.elevation += elevation * cc.orbitSpeed
	cc.clamp()
}

func (cc *orbitController) Orbit(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth -= dx * cc.mouseSensitivity
	cc.elevation += dy * cc.mouseSensitivity
	cc.clamp()
}

func (cc *orbitController) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius -= delta * cc.zoomSpeed
	cc.clamp()
}

func (cc *orbitController) Pan(right, up float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	backward := cc.offset()
	if backward.Len() < epsilon {
		return
	}
	backward = backward.Normalize()
	// right = cross(+Y, backward), so it stays horizontal.
	r := mgl32.Vec3{backward[2], 0, -backward[0]}
	if r.Len() < epsilon {
		return
	}
	r = r.Normalize()
	u := backward.Cross(r)
	cc.target = cc.target.Add(r.Mul(right * cc.panSpeed)).Add(u.Mul(up * cc.panSpeed))
}

func (cc *orbitController) RadiusBounds() (float32, float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minRadius, cc.maxRadius
}
