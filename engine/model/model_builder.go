package model

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshBuilderOption is a functional option for configuring a Mesh via NewMesh.
type MeshBuilderOption func(*Mesh)

// WithBounds overrides the computed bounding sphere.
//
// Parameters:
//   - bounds: the model-space bounding sphere
//
// Returns:
//   - MeshBuilderOption: a function that sets the bounds
func WithBounds(bounds Bounds) MeshBuilderOption {
	return func(m *Mesh) {
		m.bounds = bounds
	}
}

// WithColor replaces every vertex color before upload.
//
// Parameters:
//   - color: the RGBA vertex color
//
// Returns:
//   - MeshBuilderOption: a function that recolors the vertices
func WithColor(color mgl32.Vec4) MeshBuilderOption {
	return func(m *Mesh) {
		vertices := make([]device.Vertex, len(m.data.Vertices))
		copy(vertices, m.data.Vertices)
		for i := range vertices {
			vertices[i].Color = color
		}
		m.data.Vertices = vertices
	}
}

// WithCPUData keeps the geometry on the CPU after upload.
//
// Returns:
//   - MeshBuilderOption: a function that keeps the data
func WithCPUData() MeshBuilderOption {
	return func(m *Mesh) {
		m.keep = true
	}
}
