package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func project(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	c := m.Mul4x1(p.Vec4(1))
	return c.Vec3().Mul(1 / c.W())
}

func TestPerspectiveDepthRange(t *testing.T) {
	proj := Perspective(mgl32.DegToRad(60), 1.5, 0.1, 100)

	assert.InDelta(t, 0, project(proj, mgl32.Vec3{0, 0, -0.1}).Z(), 1e-5)
	assert.InDelta(t, 1, project(proj, mgl32.Vec3{0, 0, -100}).Z(), 1e-5)
}

func TestOrthoDepthRange(t *testing.T) {
	proj := Ortho(-2, 2, -1, 1, 1, 11)

	near := project(proj, mgl32.Vec3{-2, -1, -1})
	far := project(proj, mgl32.Vec3{2, 1, -11})
	assert.InDelta(t, 0, near.Z(), 1e-6)
	assert.InDelta(t, -1, near.X(), 1e-6)
	assert.InDelta(t, 1, far.Z(), 1e-6)
	assert.InDelta(t, 1, far.Y(), 1e-6)
}

func TestLookAtHandlesParallelUp(t *testing.T) {
	view := LookAt(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})

	for _, v := range view {
		require.False(t, math32.IsNaN(v), "view matrix contains NaN")
	}
	p := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -10, p.Z(), 1e-5)
}

func TestFrustumCornersMatchNearFar(t *testing.T) {
	view := LookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := Perspective(mgl32.DegToRad(90), 1, 1, 10)
	corners := FrustumCorners(proj.Mul4(view).Inv())

	for i := 0; i < 4; i++ {
		assert.InDelta(t, 4, corners[i].Z(), 1e-3, "near corner %d", i)
		assert.InDelta(t, -5, corners[i+4].Z(), 1e-3, "far corner %d", i)
	}
	assert.InDelta(t, 1, corners[2].X(), 1e-3)
	assert.InDelta(t, 10, corners[6].Y(), 1e-3)
}

func TestFrustumContainsSphere(t *testing.T) {
	view := LookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := Perspective(mgl32.DegToRad(60), 1, 0.1, 50)
	f := ExtractFrustumFromMatrix(proj.Mul4(view))

	assert.True(t, f.ContainsSphere(mgl32.Vec3{}, 1))
	assert.False(t, f.ContainsSphere(mgl32.Vec3{0, 0, 20}, 1), "behind the camera")
	assert.False(t, f.ContainsSphere(mgl32.Vec3{100, 0, 0}, 1), "far to the right")
	assert.True(t, f.ContainsSphere(mgl32.Vec3{0, 0, 6}, 1.5), "straddling the eye")
}

func TestPackerLayout(t *testing.T) {
	b := NewPacker(32).Vec3(mgl32.Vec3{1, 2, 3}, 0).U32(7).Pad(16).Bytes()
	assert.Len(t, b, 32)
	assert.Equal(t, byte(7), b[16])
}
