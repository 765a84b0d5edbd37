package device

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is the size of one packed Vertex in bytes.
const VertexStride = 48

// Vertex is the single vertex layout shared by every mesh pipeline.
//
// Layout:
//
//	vec3<f32> position (offset  0)
//	vec3<f32> normal   (offset 12)
//	vec2<f32> uv       (offset 24)
//	vec4<f32> color    (offset 32)
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	Color    mgl32.Vec4
}

// MeshData is CPU-side geometry: an indexed triangle list.
type MeshData struct {
	Vertices []Vertex
	Indices  []uint32
}

// VertexBytes packs the vertices into the VertexStride layout.
func (m MeshData) VertexBytes() []byte {
	p := common.NewPacker(len(m.Vertices) * VertexStride)
	for _, v := range m.Vertices {
		p.F32(v.Position[0]).F32(v.Position[1]).F32(v.Position[2])
		p.F32(v.Normal[0]).F32(v.Normal[1]).F32(v.Normal[2])
		p.F32(v.UV[0]).F32(v.UV[1])
		p.Vec4(v.Color)
	}
	return p.Bytes()
}

// IndexBytes packs the indices as little-endian uint32.
func (m MeshData) IndexBytes() []byte {
	p := common.NewPacker(len(m.Indices) * 4)
	for _, i := range m.Indices {
		p.U32(i)
	}
	return p.Bytes()
}

// Mesh is device-resident geometry.
type Mesh interface {
	Label() string
	VertexCount() int
	IndexCount() int
	Release()
}
