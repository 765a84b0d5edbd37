package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/resource"
	"github.com/go-gl/mathgl/mgl32"
)

// Uploader creates device meshes. device.Device satisfies it.
type Uploader interface {
	CreateMesh(label string, data device.MeshData) (device.Mesh, error)
}

// Bounds is a bounding sphere in model space.
type Bounds struct {
	Center mgl32.Vec3
	Radius float32
}

// Transformed returns the sphere enclosing b after applying world.
// The radius is scaled by the largest axis scale of world.
func (b Bounds) Transformed(world mgl32.Mat4) Bounds {
	center := world.Mul4x1(b.Center.Vec4(1)).Vec3()
	sx := world.Col(0).Vec3().Len()
	sy := world.Col(1).Vec3().Len()
	sz := world.Col(2).Vec3().Len()
	return Bounds{Center: center, Radius: b.Radius * max(sx, sy, sz)}
}

// Mesh is a named piece of device-resident geometry with a bounding sphere.
// It is usually owned by a resource.Handle and released with its last reference.
type Mesh struct {
	name   string
	data   device.MeshData
	gpu    device.Mesh
	bounds Bounds
	keep   bool
}

var _ resource.Releaser = &Mesh{}

// NewMesh uploads data and wraps the device mesh.
//
// Parameters:
//   - up: the device that stores the geometry
//   - name: the mesh label
//   - data: the indexed triangle list
//   - opts: functional options
//
// Returns:
//   - *Mesh: the mesh
//   - error: an upload error, or an error if data has no triangles
func NewMesh(up Uploader, name string, data device.MeshData, opts ...MeshBuilderOption) (*Mesh, error) {
	if len(data.Indices) == 0 || len(data.Indices)%3 != 0 {
		return nil, fmt.Errorf("model: mesh %q needs a non-empty triangle list, got %d indices", name, len(data.Indices))
	}
	m := &Mesh{name: name, data: data, bounds: ComputeBounds(data.Vertices)}
	for _, opt := range opts {
		opt(m)
	}
	gpu, err := up.CreateMesh(name, m.data)
	if err != nil {
		return nil, fmt.Errorf("model: upload mesh %q: %w", name, err)
	}
	m.gpu = gpu
	if !m.keep {
		m.data = device.MeshData{}
	}
	return m, nil
}

// Name returns the mesh label.
func (m *Mesh) Name() string { return m.name }

// GPU returns the device mesh, or nil after Release.
func (m *Mesh) GPU() device.Mesh { return m.gpu }

// Bounds returns the model-space bounding sphere.
func (m *Mesh) Bounds() Bounds { return m.bounds }

// Data returns the CPU geometry when the mesh was built WithCPUData, otherwise empty data.
func (m *Mesh) Data() device.MeshData { return m.data }

// Release frees the device mesh.
func (m *Mesh) Release() {
	if m.gpu != nil {
		m.gpu.Release()
		m.gpu = nil
	}
}

// ComputeBounds returns the sphere centered on the vertex AABB center enclosing every vertex.
func ComputeBounds(vertices []device.Vertex) Bounds {
	if len(vertices) == 0 {
		return Bounds{}
	}
	lo, hi := vertices[0].Position, vertices[0].Position
	for _, v := range vertices[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], v.Position[i])
			hi[i] = max(hi[i], v.Position[i])
		}
	}
	center := lo.Add(hi).Mul(0.5)
	var radius float32
	for _, v := range vertices {
		radius = max(radius, v.Position.Sub(center).Len())
	}
	return Bounds{Center: center, Radius: radius}
}
