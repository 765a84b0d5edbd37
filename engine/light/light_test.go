package light

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFrustum struct {
	camera.Camera
	slices [][2]float32
}

func (r *recordingFrustum) SubFrustumCorners(near, far float32) [8]mgl32.Vec3 {
	r.slices = append(r.slices, [2]float32{near, far})
	return r.Camera.SubFrustumCorners(near, far)
}

func smallConfig() ShadowConfig {
	cfg := DefaultShadowConfig()
	cfg.Resolution = 8
	return cfg
}

func TestCascadePlaneOrdering(t *testing.T) {
	d := soft.NewDevice()
	cam := &recordingFrustum{Camera: camera.NewCamera(
		camera.WithLookAt(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}), camera.WithNear(0.1), camera.WithFar(1000),
	)}
	shadow, err := NewCascadeShadow(d, 8, []float32{1, 100, 500, 1000}, DefaultShadowBias)
	require.NoError(t, err)
	assert.Equal(t, 4, shadow.Texture().Layers())

	matrices := shadow.ComputeCascadeLightMatrix(mgl32.Vec3{0.3, -1, 0.2}, cam)
	require.Len(t, matrices, 4)
	assert.Equal(t, [][2]float32{{0.1, 1}, {1, 100}, {100, 500}, {500, 1000}}, cam.slices)

	prevWidth := float32(0)
	for i, m := range matrices {
		slice := cam.slices[i]
		for _, corner := range cam.Camera.SubFrustumCorners(slice[0], slice[1]) {
			clip := m.Mul4x1(corner.Vec4(1))
			ndc := clip.Vec3().Mul(1 / clip[3])
			assert.InDelta(t, 0, ndc[0], 1.001, "cascade %d", i)
			assert.InDelta(t, 0, ndc[1], 1.001, "cascade %d", i)
			assert.True(t, ndc[2] >= -1e-4 && ndc[2] <= 1+1e-4, "cascade %d depth %f", i, ndc[2])
		}
		width := 2 / mgl32.Vec3{m[0], m[4], m[8]}.Len()
		assert.Greater(t, width, prevWidth, "cascade %d", i)
		prevWidth = width
	}
}

func TestCascadePlanesValidated(t *testing.T) {
	d := soft.NewDevice()
	for _, planes := range [][]float32{nil, {0, 1}, {10, 5}, {1, 1}} {
		_, err := NewCascadeShadow(d, 8, planes, 0)
		assert.ErrorIs(t, err, ErrInvalidPlanes, "%v", planes)
	}
	assert.Equal(t, 0, d.LiveTextures())
}

func TestPointShadowDirtyCheck(t *testing.T) {
	lookAts, perspectives := 0, 0
	funcs := MatrixFuncs{
		LookAt: func(eye, center, up mgl32.Vec3) mgl32.Mat4 {
			lookAts++
			return DefaultMatrixFuncs().LookAt(eye, center, up)
		},
		Perspective: func(fovY, aspect, near, far float32) mgl32.Mat4 {
			perspectives++
			return DefaultMatrixFuncs().Perspective(fovY, aspect, near, far)
		},
	}
	shadow, err := NewPointShadow(soft.NewDevice(), 8, 25, DefaultPointShadowBias, funcs)
	require.NoError(t, err)
	assert.True(t, shadow.Texture().Cube())

	p := mgl32.Vec3{1, 2, 3}
	first := shadow.GetProjectionMatrix(p)
	assert.Equal(t, 6, lookAts)
	assert.Equal(t, 1, perspectives)

	second := shadow.GetProjectionMatrix(p)
	assert.Equal(t, first, second)
	assert.Equal(t, 6, lookAts)
	assert.Equal(t, 1, perspectives)
	assert.False(t, shadow.Outdated())

	shadow.GetProjectionMatrix(mgl32.Vec3{1, 2, 4})
	assert.Equal(t, 12, lookAts)
	assert.Equal(t, 2, perspectives)

	shadow.SetRange(0.1, 50)
	assert.True(t, shadow.Outdated())
	shadow.GetProjectionMatrix(mgl32.Vec3{1, 2, 4})
	assert.Equal(t, 18, lookAts)
}

func TestPointShadowFacesCoverTheirAxis(t *testing.T) {
	shadow, err := NewPointShadow(soft.NewDevice(), 8, 25, 0, DefaultMatrixFuncs())
	require.NoError(t, err)
	pos := mgl32.Vec3{1, 1, 1}
	faces := shadow.GetProjectionMatrix(pos)
	dirs := []mgl32.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	for i, dir := range dirs {
		clip := faces[i].Mul4x1(pos.Add(dir.Mul(5)).Vec4(1))
		assert.Greater(t, clip[3], float32(0), "face %d", i)
		assert.InDelta(t, 0, clip[0]/clip[3], 1e-4, "face %d", i)
		assert.InDelta(t, 0, clip[1]/clip[3], 1e-4, "face %d", i)
	}
}

func TestDirectionalShadowStateMachine(t *testing.T) {
	d := soft.NewDevice()
	l := NewDirectional()
	assert.False(t, l.CastShadow())
	assert.Nil(t, l.Shadow())

	require.NoError(t, l.SetCastShadow(d, smallConfig(), true))
	first := l.Shadow()
	require.NotNil(t, first)
	assert.Equal(t, 1, d.LiveTextures())

	// Repeating the current state keeps the map.
	require.NoError(t, l.SetCastShadow(d, smallConfig(), true))
	assert.Same(t, first, l.Shadow())

	require.NoError(t, l.SetCastShadow(d, smallConfig(), false))
	assert.Nil(t, l.Shadow())
	assert.Equal(t, 0, d.LiveTextures())

	require.NoError(t, l.SetCastShadow(d, smallConfig(), true))
	assert.NotSame(t, first, l.Shadow())
	assert.Equal(t, 1, d.LiveTextures())
}

func TestDirectionalShadowAllocationFailure(t *testing.T) {
	cfg := smallConfig()
	cfg.Planes = []float32{5, 1}
	l := NewDirectional()
	assert.ErrorIs(t, l.SetCastShadow(soft.NewDevice(), cfg, true), ErrInvalidPlanes)
	assert.False(t, l.CastShadow())
}

func TestPointShadowStateMachine(t *testing.T) {
	d := soft.NewDevice()
	l := NewPoint()
	require.NoError(t, l.SetCastShadow(d, smallConfig(), true))
	require.NotNil(t, l.Shadow())
	assert.Equal(t, DefaultPointShadowFar, l.Shadow().Far())
	require.NoError(t, l.SetCastShadow(d, smallConfig(), false))
	assert.Nil(t, l.Shadow())
	assert.Equal(t, 0, d.LiveTextures())
}

func TestUniforms(t *testing.T) {
	cam := camera.NewCamera(camera.WithLookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}))

	dir := NewDirectional(WithDirectionalColors(mgl32.Vec3{0.2, 0.2, 0.2}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}))
	du := DirectionalUniform(&dir, mgl32.Vec3{0, -1, 0}, cam)
	assert.False(t, du.CastShadow)
	assert.Equal(t, 0, du.CascadeCount())
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, du.Diffuse)
	assert.Equal(t, cam.Position(), du.ViewPosition)

	point := NewPoint(WithSpotCone(10, 20), WithAttenuation(1, 0, 0))
	require.NoError(t, point.SetCastShadow(soft.NewDevice(), smallConfig(), true))
	pu := PointUniform(&point, mgl32.Vec3{0, 3, 0}, mgl32.Vec3{0, -1, 0}, cam)
	assert.True(t, pu.Spot)
	assert.Greater(t, pu.CosInner, pu.CosOuter)
	assert.True(t, pu.CastShadow)
	assert.Equal(t, point.Shadow().GetProjectionMatrix(mgl32.Vec3{0, 3, 0}), pu.FaceViewProj)
	assert.Equal(t, float32(1), point.Attenuation(10))
}
