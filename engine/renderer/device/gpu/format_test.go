package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestTextureFormatCoversEveryDeviceFormat(t *testing.T) {
	want := map[device.TextureFormat]wgpu.TextureFormat{
		device.FormatRGBA8Unorm:   wgpu.TextureFormatRGBA8Unorm,
		device.FormatRGBA16Float:  wgpu.TextureFormatRGBA16Float,
		device.FormatRGBA32Float:  wgpu.TextureFormatRGBA32Float,
		device.FormatR8Unorm:      wgpu.TextureFormatR8Unorm,
		device.FormatR32Uint:      wgpu.TextureFormatR32Uint,
		device.FormatDepth32Float: wgpu.TextureFormatDepth32Float,
	}
	for f, w := range want {
		got, err := textureFormat(f)
		require.NoError(t, err, f.String())
		assert.Equal(t, w, got, f.String())
	}
	_, err := textureFormat(device.TextureFormat(99))
	assert.Error(t, err)
}

func TestDecodeTexel(t *testing.T) {
	t.Run("rgba8", func(t *testing.T) {
		texel, err := decodeTexel(device.FormatRGBA8Unorm, []byte{255, 0, 51, 255})
		require.NoError(t, err)
		assert.InDelta(t, 1, texel.Color[0], 1e-6)
		assert.InDelta(t, 0.2, texel.Color[2], 1e-6)
	})

	t.Run("rgba16float", func(t *testing.T) {
		b := make([]byte, 8)
		for i, v := range []float32{0.5, -2, 1024, 0.25} {
			binary.LittleEndian.PutUint16(b[i*2:], float16.Fromfloat32(v).Bits())
		}
		texel, err := decodeTexel(device.FormatRGBA16Float, b)
		require.NoError(t, err)
		assert.Equal(t, float32(0.5), texel.Color[0])
		assert.Equal(t, float32(-2), texel.Color[1])
		assert.Equal(t, float32(1024), texel.Color[2])
		assert.Equal(t, float32(0.25), texel.Color[3])
	})

	t.Run("r32uint", func(t *testing.T) {
		b := binary.LittleEndian.AppendUint32(nil, 0xFFFFFFFF)
		texel, err := decodeTexel(device.FormatR32Uint, b)
		require.NoError(t, err)
		assert.Equal(t, uint32(0xFFFFFFFF), texel.Uint)
	})

	t.Run("depth32", func(t *testing.T) {
		b := binary.LittleEndian.AppendUint32(nil, math.Float32bits(0.75))
		texel, err := decodeTexel(device.FormatDepth32Float, b)
		require.NoError(t, err)
		assert.Equal(t, float32(0.75), texel.Color[0])
	})

	t.Run("short", func(t *testing.T) {
		_, err := decodeTexel(device.FormatRGBA32Float, make([]byte, 4))
		assert.Error(t, err)
	})
}

func TestAlignedRow(t *testing.T) {
	assert.Equal(t, 256, alignedRow(1, device.FormatR8Unorm))
	assert.Equal(t, 256, alignedRow(64, device.FormatRGBA8Unorm))
	assert.Equal(t, 512, alignedRow(65, device.FormatRGBA8Unorm))
	assert.Equal(t, 512, alignedRow(17, device.FormatRGBA32Float))
}

func TestLayoutEntries(t *testing.T) {
	entries := layoutEntries(device.Layout{
		{Name: "camera", Kind: device.BindingUniform, Size: 208, Type: "Camera"},
		{Name: "albedo", Kind: device.BindingTexture},
		{Name: "ids", Kind: device.BindingMultisampledUintTexture},
		{Name: "cascades", Kind: device.BindingDepthArray},
	})
	require.Len(t, entries, 4)
	for i, e := range entries {
		assert.Equal(t, uint32(i), e.Binding)
		assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, e.Visibility)
	}
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	assert.Equal(t, uint64(208), entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.TextureSampleTypeUnfilterableFloat, entries[1].Texture.SampleType)
	assert.True(t, entries[2].Texture.Multisampled)
	assert.Equal(t, wgpu.TextureSampleTypeUint, entries[2].Texture.SampleType)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, entries[3].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2DArray, entries[3].Texture.ViewDimension)
}

func TestBlendStateSkipsIntegerTargets(t *testing.T) {
	assert.Nil(t, blendState(device.BlendAdditive, device.FormatR32Uint))
	assert.Nil(t, blendState(device.BlendReplace, device.FormatRGBA16Float))
	add := blendState(device.BlendAdditive, device.FormatRGBA16Float)
	require.NotNil(t, add)
	assert.Equal(t, wgpu.BlendFactorOne, add.Color.DstFactor)
	alpha := blendState(device.BlendAlpha, device.FormatRGBA8Unorm)
	require.NotNil(t, alpha)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, alpha.Color.DstFactor)
}

func TestUniformClass(t *testing.T) {
	assert.Equal(t, uint64(256), uniformClass(0))
	assert.Equal(t, uint64(256), uniformClass(208))
	assert.Equal(t, uint64(1024), uniformClass(704))
	assert.Equal(t, uint64(1024), uniformClass(1024))
}

func TestUniformDepth(t *testing.T) {
	data := make([]byte, 0, 16)
	for range 4 {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(1))
	}
	v, ok := uniformDepth(data)
	require.True(t, ok)
	assert.Equal(t, float32(1), v)

	data = binary.LittleEndian.AppendUint32(data, math.Float32bits(0.5))
	_, ok = uniformDepth(data)
	assert.False(t, ok)
}

func TestPickSurfaceFormatPrefersLinear(t *testing.T) {
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm,
		pickSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm}))
	assert.Equal(t, wgpu.TextureFormatRGBA16Float,
		pickSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatRGBA16Float}))
}

func TestInternalPipelines(t *testing.T) {
	present := presentPipeline()
	assert.False(t, present.MeshInput())
	assert.Equal(t, []device.TextureFormat{formatSurface}, present.ColorFormats())

	resolve := resolveUintPipeline()
	assert.Equal(t, device.BindingMultisampledUintTexture, resolve.Program().Layout()[0].Kind)
	assert.Contains(t, resolve.Program().Source(), "fn vs_main")
	assert.Contains(t, resolve.Program().Source(), "fn fs_main")
}
