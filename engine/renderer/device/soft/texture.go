package soft

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/x448/float16"
)

// texture stores every sample of every texel. Rows are stored top row first.
type texture struct {
	desc     device.TextureDescriptor
	f        []float32
	u        []uint32
	released bool
}

var _ device.Texture = &texture{}

func newTexture(desc device.TextureDescriptor) *texture {
	desc = desc.Normalized()
	n := desc.Width * desc.Height * desc.Layers * desc.Samples
	t := &texture{desc: desc}
	if desc.Format.IsUint() {
		t.u = make([]uint32, n)
	} else {
		t.f = make([]float32, n*4)
	}
	return t
}

func (t *texture) Label() string                { return t.desc.Label }
func (t *texture) Width() int                   { return t.desc.Width }
func (t *texture) Height() int                  { return t.desc.Height }
func (t *texture) Layers() int                  { return t.desc.Layers }
func (t *texture) Cube() bool                   { return t.desc.Cube }
func (t *texture) Format() device.TextureFormat { return t.desc.Format }
func (t *texture) Samples() int                 { return t.desc.Samples }

func (t *texture) Release() {
	t.released = true
	t.f = nil
	t.u = nil
}

func (t *texture) index(layer, x, y, sample int) int {
	return ((layer*t.desc.Height+y)*t.desc.Width+x)*t.desc.Samples + sample
}

func (t *texture) clamp(x, y int) (int, int) {
	x = max(0, min(t.desc.Width-1, x))
	y = max(0, min(t.desc.Height-1, y))
	return x, y
}

func (t *texture) color(layer, x, y, sample int) mgl32.Vec4 {
	if t.u != nil {
		return mgl32.Vec4{float32(t.u[t.index(layer, x, y, sample)]), 0, 0, 0}
	}
	i := t.index(layer, x, y, sample) * 4
	return mgl32.Vec4{t.f[i], t.f[i+1], t.f[i+2], t.f[i+3]}
}

func (t *texture) setColor(layer, x, y, sample int, c mgl32.Vec4) {
	i := t.index(layer, x, y, sample) * 4
	q := quantize(t.desc.Format, c)
	copy(t.f[i:i+4], q[:])
}

func (t *texture) setUint(layer, x, y, sample int, v uint32) {
	t.u[t.index(layer, x, y, sample)] = v
}

// fillLayer sets every sample of one layer.
func (t *texture) fillLayer(layer int, c mgl32.Vec4, v uint32) {
	for y := 0; y < t.desc.Height; y++ {
		for x := 0; x < t.desc.Width; x++ {
			for s := 0; s < t.desc.Samples; s++ {
				if t.u != nil {
					t.setUint(layer, x, y, s, v)
				} else {
					t.setColor(layer, x, y, s, c)
				}
			}
		}
	}
}

// quantize rounds a color to the precision and channel count of the format.
func quantize(f device.TextureFormat, c mgl32.Vec4) mgl32.Vec4 {
	switch f {
	case device.FormatRGBA8Unorm:
		for i := range c {
			c[i] = unorm8(c[i])
		}
	case device.FormatR8Unorm:
		c = mgl32.Vec4{unorm8(c[0]), 0, 0, 1}
	case device.FormatRGBA16Float:
		for i := range c {
			c[i] = float16.Fromfloat32(c[i]).Float32()
		}
	case device.FormatDepth32Float:
		c = mgl32.Vec4{c[0], 0, 0, 1}
	}
	return c
}

func unorm8(v float32) float32 {
	v = max(0, min(1, v))
	return float32(math.Round(float64(v)*255)) / 255
}

// decode unpacks one texel of tightly packed upload data.
func decode(f device.TextureFormat, b []byte) (mgl32.Vec4, uint32) {
	switch f {
	case device.FormatRGBA8Unorm:
		return mgl32.Vec4{float32(b[0]) / 255, float32(b[1]) / 255, float32(b[2]) / 255, float32(b[3]) / 255}, 0
	case device.FormatR8Unorm:
		return mgl32.Vec4{float32(b[0]) / 255, 0, 0, 1}, 0
	case device.FormatR32Uint:
		return mgl32.Vec4{}, binary.LittleEndian.Uint32(b)
	case device.FormatRGBA16Float:
		var c mgl32.Vec4
		for i := range c {
			c[i] = float16.Frombits(binary.LittleEndian.Uint16(b[i*2:])).Float32()
		}
		return c, 0
	case device.FormatDepth32Float:
		return mgl32.Vec4{math.Float32frombits(binary.LittleEndian.Uint32(b)), 0, 0, 1}, 0
	default:
		var c mgl32.Vec4
		for i := range c {
			c[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
		return c, 0
	}
}

type mesh struct {
	label string
	data  device.MeshData
}

var _ device.Mesh = &mesh{}

func (m *mesh) Label() string    { return m.label }
func (m *mesh) VertexCount() int { return len(m.data.Vertices) }
func (m *mesh) IndexCount() int  { return len(m.data.Indices) }
func (m *mesh) Release()         { m.data = device.MeshData{} }
