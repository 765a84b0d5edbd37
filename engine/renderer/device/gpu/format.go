package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/x448/float16"
)

// rowAlignment is the bytes-per-row alignment WebGPU requires for buffer copies.
const rowAlignment = 256

func textureFormat(f device.TextureFormat) (wgpu.TextureFormat, error) {
	switch f {
	case device.FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case device.FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float, nil
	case device.FormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float, nil
	case device.FormatR8Unorm:
		return wgpu.TextureFormatR8Unorm, nil
	case device.FormatR32Uint:
		return wgpu.TextureFormatR32Uint, nil
	case device.FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float, nil
	default:
		return wgpu.TextureFormatUndefined, fmt.Errorf("gpu: unsupported texture format %s", f)
	}
}

func cullMode(m device.CullMode) wgpu.CullMode {
	switch m {
	case device.CullFront:
		return wgpu.CullModeFront
	case device.CullBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

// blendState returns nil for replace blending and for integer targets, which cannot blend.
func blendState(m device.BlendMode, f device.TextureFormat) *wgpu.BlendState {
	if f.IsUint() {
		return nil
	}
	switch m {
	case device.BlendAdditive:
		add := wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd}
		return &wgpu.BlendState{Color: add, Alpha: add}
	case device.BlendAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
			Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha, Operation: wgpu.BlendOperationAdd},
		}
	default:
		return nil
	}
}

// vertexLayout describes device.Vertex to the vertex stage.
func vertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: device.VertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3},
		},
	}
}

// layoutEntries turns a program layout into bind group 0 layout entries visible to both stages.
// Float textures are declared unfilterable since every program reads them with textureLoad.
func layoutEntries(layout device.Layout) []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, len(layout))
	for i, b := range layout {
		e := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		}
		switch b.Kind {
		case device.BindingUniform:
			e.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: uint64(b.Size)}
		case device.BindingTexture:
			e.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeUnfilterableFloat, ViewDimension: wgpu.TextureViewDimension2D}
		case device.BindingTextureArray:
			e.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeUnfilterableFloat, ViewDimension: wgpu.TextureViewDimension2DArray}
		case device.BindingUintTexture:
			e.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeUint, ViewDimension: wgpu.TextureViewDimension2D}
		case device.BindingMultisampledTexture:
			e.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeUnfilterableFloat, ViewDimension: wgpu.TextureViewDimension2D, Multisampled: true}
		case device.BindingMultisampledUintTexture:
			e.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeUint, ViewDimension: wgpu.TextureViewDimension2D, Multisampled: true}
		case device.BindingDepthArray:
			e.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeDepth, ViewDimension: wgpu.TextureViewDimension2DArray}
		}
		entries[i] = e
	}
	return entries
}

// alignedRow returns the padded bytes-per-row of a buffer copy of width texels.
func alignedRow(width int, f device.TextureFormat) int {
	row := width * f.BytesPerTexel()
	return (row + rowAlignment - 1) / rowAlignment * rowAlignment
}

// decodeTexel converts one texel read back from the GPU.
func decodeTexel(f device.TextureFormat, b []byte) (device.Texel, error) {
	if len(b) < f.BytesPerTexel() {
		return device.Texel{}, fmt.Errorf("gpu: %d bytes for a %s texel", len(b), f)
	}
	var t device.Texel
	switch f {
	case device.FormatRGBA8Unorm:
		for i := range 4 {
			t.Color[i] = float32(b[i]) / 255
		}
	case device.FormatR8Unorm:
		t.Color[0] = float32(b[0]) / 255
	case device.FormatRGBA16Float:
		for i := range 4 {
			t.Color[i] = float16.Frombits(binary.LittleEndian.Uint16(b[i*2:])).Float32()
		}
	case device.FormatRGBA32Float:
		for i := range 4 {
			t.Color[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
	case device.FormatDepth32Float:
		t.Color[0] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	case device.FormatR32Uint:
		t.Uint = binary.LittleEndian.Uint32(b)
	default:
		return device.Texel{}, fmt.Errorf("gpu: cannot decode %s", f)
	}
	return t, nil
}

func clearColor(c mgl32.Vec4) wgpu.Color {
	return wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
}

func loadOp(op device.LoadOp) wgpu.LoadOp {
	if op == device.LoadOpLoad {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}
