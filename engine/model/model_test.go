package model

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/Carmen-Shannon/oxy-deferred/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingUploader struct{}

func (failingUploader) CreateMesh(string, device.MeshData) (device.Mesh, error) {
	return nil, errors.New("out of memory")
}

func assertOutwardWinding(t *testing.T, name string, data device.MeshData) {
	t.Helper()
	for i := 0; i < len(data.Indices); i += 3 {
		a := data.Vertices[data.Indices[i]]
		b := data.Vertices[data.Indices[i+1]]
		c := data.Vertices[data.Indices[i+2]]
		n := b.Position.Sub(a.Position).Cross(c.Position.Sub(a.Position))
		if n.Len() < 1e-9 {
			continue
		}
		assert.Greater(t, n.Dot(a.Normal.Add(b.Normal).Add(c.Normal)), float32(0), "%s triangle %d winds inward", name, i/3)
	}
}

func TestPrimitivesWindCounterClockwise(t *testing.T) {
	assertOutwardWinding(t, "cube", Cube())
	assertOutwardWinding(t, "plane", Plane(4))
	assertOutwardWinding(t, "quad", Quad())
	assertOutwardWinding(t, "sphere", Sphere(12, 8))
}

func TestPrimitiveIndicesInRange(t *testing.T) {
	for name, data := range map[string]device.MeshData{
		"cube":   Cube(),
		"plane":  Plane(1),
		"quad":   Quad(),
		"sphere": Sphere(2, 1),
	} {
		require.NotEmpty(t, data.Indices, name)
		assert.Zero(t, len(data.Indices)%3, name)
		for _, i := range data.Indices {
			assert.Less(t, int(i), len(data.Vertices), name)
		}
	}
}

func TestComputeBounds(t *testing.T) {
	b := ComputeBounds(Cube().Vertices)
	assert.InDelta(t, 0, b.Center.Len(), 1e-6)
	assert.InDelta(t, 0.8660254, b.Radius, 1e-5)

	b = ComputeBounds(Plane(2).Vertices)
	assert.InDelta(t, 1.4142135, b.Radius, 1e-5)

	assert.Equal(t, Bounds{}, ComputeBounds(nil))
}

func TestBoundsTransformed(t *testing.T) {
	b := Bounds{Center: mgl32.Vec3{1, 0, 0}, Radius: 1}
	world := mgl32.Translate3D(0, 5, 0).Mul4(mgl32.Scale3D(2, 3, 1))
	got := b.Transformed(world)
	assert.InDelta(t, 2, got.Center.X(), 1e-6)
	assert.InDelta(t, 5, got.Center.Y(), 1e-6)
	assert.InDelta(t, 3, got.Radius, 1e-6)
}

func TestNewMeshUploadsAndReleasesThroughHandle(t *testing.T) {
	d := soft.NewDevice()
	m, err := NewMesh(d, "cube", Cube(), WithColor(mgl32.Vec4{1, 0, 0, 1}), WithCPUData())
	require.NoError(t, err)
	require.NotNil(t, m.GPU())
	assert.Equal(t, "cube", m.Name())
	assert.Equal(t, 36, m.GPU().IndexCount())
	for _, v := range m.Data().Vertices {
		assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, v.Color)
	}
	// recoloring never touches the shared primitive data
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, Cube().Vertices[0].Color)

	h := resource.NewHandle(resource.HashString("cube"), m)
	h.Release()
	assert.Nil(t, m.GPU())
}

func TestNewMeshErrors(t *testing.T) {
	_, err := NewMesh(soft.NewDevice(), "empty", device.MeshData{})
	assert.Error(t, err)

	_, err = NewMesh(failingUploader{}, "cube", Cube())
	assert.ErrorContains(t, err, "out of memory")

	m, err := NewMesh(soft.NewDevice(), "plane", Plane(1), WithBounds(Bounds{Radius: 9}))
	require.NoError(t, err)
	assert.Equal(t, float32(9), m.Bounds().Radius)
	assert.Empty(t, m.Data().Vertices)
}
