package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Packer appends little-endian values to a byte buffer following WGSL uniform layout rules.
// Callers are responsible for inserting padding where WGSL alignment requires it.
type Packer struct {
	buf []byte
}

// NewPacker creates a packer with capacity for size bytes.
func NewPacker(size int) *Packer {
	return &Packer{buf: make([]byte, 0, size)}
}

// F32 appends a float32.
func (p *Packer) F32(v float32) *Packer {
	p.buf = binary.LittleEndian.AppendUint32(p.buf, math.Float32bits(v))
	return p
}

// U32 appends a uint32.
func (p *Packer) U32(v uint32) *Packer {
	p.buf = binary.LittleEndian.AppendUint32(p.buf, v)
	return p
}

// Vec3 appends a vec3<f32> padded to 16 bytes with w.
func (p *Packer) Vec3(v mgl32.Vec3, w float32) *Packer {
	return p.F32(v[0]).F32(v[1]).F32(v[2]).F32(w)
}

// Vec4 appends a vec4<f32>.
func (p *Packer) Vec4(v mgl32.Vec4) *Packer {
	return p.F32(v[0]).F32(v[1]).F32(v[2]).F32(v[3])
}

// Mat4 appends a column-major mat4x4<f32>.
func (p *Packer) Mat4(m mgl32.Mat4) *Packer {
	for _, v := range m {
		p.F32(v)
	}
	return p
}

// Pad appends zero bytes until the buffer length is a multiple of align.
func (p *Packer) Pad(align int) *Packer {
	for len(p.buf)%align != 0 {
		p.buf = append(p.buf, 0)
	}
	return p
}

// Bytes returns the packed buffer.
func (p *Packer) Bytes() []byte {
	return p.buf
}
