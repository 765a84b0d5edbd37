package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestSubFrustumCornersSpanSlice(t *testing.T) {
	c := NewCamera(WithLookAt(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}), WithNear(0.1), WithFar(1000))
	corners := c.SubFrustumCorners(1, 100)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, -1, corners[i][2], 1e-3)
		assert.InDelta(t, -100, corners[4+i][2], 1e-1)
	}
	// The far face is wider than the near face by the distance ratio.
	assert.InDelta(t, 100*corners[1][0], corners[5][0], 1e-1)
}

func TestCameraMatrices(t *testing.T) {
	c := NewCamera(WithLookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}), WithAspect(2))
	assert.Equal(t, c.Projection().Mul4(c.View()), c.ViewProjection())
	assert.True(t, c.Front().ApproxEqual(mgl32.Vec3{0, 0, -1}))

	// The target projects to the center of the screen.
	clip := c.ViewProjection().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, clip[0]/clip[3], 1e-5)
	assert.InDelta(t, 0, clip[1]/clip[3], 1e-5)

	c.SetAspect(1)
	assert.Equal(t, float32(1), c.Aspect())
}

func TestControllerDrivesCamera(t *testing.T) {
	ctrl := NewCameraController(WithOrbit(10, 0, 0), WithTarget(mgl32.Vec3{1, 0, 0}))
	assert.True(t, ctrl.Position().ApproxEqual(mgl32.Vec3{1, 0, 10}))

	c := NewCamera(WithController(ctrl))
	assert.True(t, c.Position().ApproxEqual(mgl32.Vec3{1, 0, 10}))

	ctrl.SetSpherical(10, math32.Pi/2, 0)
	c.Update()
	pos := c.Position()
	assert.InDelta(t, 11, pos[0], 1e-4)
	assert.InDelta(t, 0, pos[1], 1e-4)
	assert.InDelta(t, 0, pos[2], 1e-4)

	ctrl.SetSpherical(1e6, 0, 0)
	radius, _, _ := ctrl.Spherical()
	_, maxRadius := ctrl.RadiusBounds()
	assert.Equal(t, maxRadius, radius)
}

func TestControllerClampsElevation(t *testing.T) {
	ctrl := NewCameraController(WithElevationBounds(-0.5, 0.5), WithSpeeds(0.1, 0, 0, 0))
	for range 20 {
		ctrl.Step(0, 1)
	}
	_, _, elevation := ctrl.Spherical()
	assert.InDelta(t, 0.5, elevation, 1e-6)

	ctrl.Orbit(0, -1e4)
	_, _, elevation = ctrl.Spherical()
	assert.InDelta(t, -0.5, elevation, 1e-6)
}

func TestControllerPanKeepsOrbit(t *testing.T) {
	ctrl := NewCameraController(WithOrbit(5, 0.3, 0.4))
	before := ctrl.Position().Sub(ctrl.Target())
	ctrl.Pan(3, -2)
	after := ctrl.Position().Sub(ctrl.Target())
	assert.True(t, before.ApproxEqualThreshold(after, 1e-4))
	assert.False(t, ctrl.Target().ApproxEqual(mgl32.Vec3{}))
	assert.InDelta(t, 0, ctrl.Target().Sub(mgl32.Vec3{}).Dot(before), 1e-3, "pan moves across the view")
}
