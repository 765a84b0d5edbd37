package model

import (
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

var white = mgl32.Vec4{1, 1, 1, 1}

// Cube returns a unit cube centered on the origin with per-face normals.
func Cube() device.MeshData {
	type face struct {
		normal, u, v mgl32.Vec3
	}
	faces := [6]face{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	var data device.MeshData
	for _, f := range faces {
		base := uint32(len(data.Vertices))
		center := f.normal.Mul(0.5)
		corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		for _, c := range corners {
			pos := center.Add(f.u.Mul(c[0] * 0.5)).Add(f.v.Mul(c[1] * 0.5))
			data.Vertices = append(data.Vertices, device.Vertex{
				Position: pos,
				Normal:   f.normal,
				UV:       mgl32.Vec2{(c[0] + 1) / 2, (1 - c[1]) / 2},
				Color:    white,
			})
		}
		data.Indices = append(data.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return data
}

// Plane returns a size×size plane in XZ facing +Y.
func Plane(size float32) device.MeshData {
	h := size / 2
	up := mgl32.Vec3{0, 1, 0}
	return device.MeshData{
		Vertices: []device.Vertex{
			{Position: mgl32.Vec3{-h, 0, h}, Normal: up, UV: mgl32.Vec2{0, 1}, Color: white},
			{Position: mgl32.Vec3{h, 0, h}, Normal: up, UV: mgl32.Vec2{1, 1}, Color: white},
			{Position: mgl32.Vec3{h, 0, -h}, Normal: up, UV: mgl32.Vec2{1, 0}, Color: white},
			{Position: mgl32.Vec3{-h, 0, -h}, Normal: up, UV: mgl32.Vec2{0, 0}, Color: white},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// Quad returns a unit quad in XY facing +Z, the geometry of sprites.
func Quad() device.MeshData {
	n := mgl32.Vec3{0, 0, 1}
	return device.MeshData{
		Vertices: []device.Vertex{
			{Position: mgl32.Vec3{-0.5, -0.5, 0}, Normal: n, UV: mgl32.Vec2{0, 1}, Color: white},
			{Position: mgl32.Vec3{0.5, -0.5, 0}, Normal: n, UV: mgl32.Vec2{1, 1}, Color: white},
			{Position: mgl32.Vec3{0.5, 0.5, 0}, Normal: n, UV: mgl32.Vec2{1, 0}, Color: white},
			{Position: mgl32.Vec3{-0.5, 0.5, 0}, Normal: n, UV: mgl32.Vec2{0, 0}, Color: white},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// Sphere returns a UV sphere of radius 0.5. Segments and rings are clamped to at least 3 and 2.
func Sphere(segments, rings int) device.MeshData {
	segments = max(segments, 3)
	rings = max(rings, 2)
	var data device.MeshData
	for r := 0; r <= rings; r++ {
		v := float32(r) / float32(rings)
		theta := v * math.Pi
		for s := 0; s <= segments; s++ {
			u := float32(s) / float32(segments)
			phi := u * 2 * math.Pi
			n := mgl32.Vec3{
				math32.Sin(theta) * math32.Sin(phi),
				math32.Cos(theta),
				math32.Sin(theta) * math32.Cos(phi),
			}
			data.Vertices = append(data.Vertices, device.Vertex{
				Position: n.Mul(0.5),
				Normal:   n,
				UV:       mgl32.Vec2{u, v},
				Color:    white,
			})
		}
	}
	stride := uint32(segments + 1)
	for r := uint32(0); r < uint32(rings); r++ {
		for s := uint32(0); s < uint32(segments); s++ {
			a := r*stride + s
			b := a + stride
			if r != 0 {
				data.Indices = append(data.Indices, a, b, a+1)
			}
			if r != uint32(rings)-1 {
				data.Indices = append(data.Indices, a+1, b, b+1)
			}
		}
	}
	return data
}
