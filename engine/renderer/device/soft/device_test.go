package soft

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type colorUniform struct {
	color mgl32.Vec4
	id    uint32
}

func (c *colorUniform) Size() int       { return 16 }
func (c *colorUniform) Marshal() []byte { return nil }

// flatProgram passes clip-space positions through and writes a uniform color and id.
type flatProgram struct{}

func (flatProgram) Key() string           { return "flat" }
func (flatProgram) Source() string        { return "" }
func (flatProgram) Layout() device.Layout { return device.Layout{{Name: "color", Kind: device.BindingUniform, Size: 16}} }

func (flatProgram) Vertex(_ *Bindings, v device.Vertex) (mgl32.Vec4, Varyings) {
	var out Varyings
	out[0] = v.Color
	return v.Position.Vec4(1), out
}

func (flatProgram) Fragment(b *Bindings, f Fragment) (FragmentOutput, bool) {
	u := b.Uniform(0).(*colorUniform)
	var out FragmentOutput
	out.Color[0] = u.color
	out.Uint[1] = u.id
	return out, true
}

// copyProgram copies texture 0 to the target.
type copyProgram struct{}

func (copyProgram) Key() string           { return "copy" }
func (copyProgram) Source() string        { return "" }
func (copyProgram) Layout() device.Layout { return device.Layout{{Name: "src", Kind: device.BindingTexture}} }

func (copyProgram) Vertex(_ *Bindings, v device.Vertex) (mgl32.Vec4, Varyings) {
	return v.Position.Vec4(1), Varyings{}
}

func (copyProgram) Fragment(b *Bindings, f Fragment) (FragmentOutput, bool) {
	var out FragmentOutput
	out.Color[0] = b.Load(0, int(f.Coord[0]), int(f.Coord[1]), 0)
	return out, true
}

// quad covers the NDC rectangle [x0, x1] x [y0, y1] at depth z with counter-clockwise winding.
func quad(x0, y0, x1, y1, z float32) device.MeshData {
	return device.MeshData{
		Vertices: []device.Vertex{
			{Position: mgl32.Vec3{x0, y0, z}},
			{Position: mgl32.Vec3{x1, y0, z}},
			{Position: mgl32.Vec3{x1, y1, z}},
			{Position: mgl32.Vec3{x0, y1, z}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

func newTargets(t *testing.T, d device.Device, samples int) (device.Texture, device.Texture, device.Texture) {
	t.Helper()
	color, err := d.CreateTexture(device.TextureDescriptor{Label: "color", Width: 8, Height: 8, Format: device.FormatRGBA8Unorm, Samples: samples})
	require.NoError(t, err)
	ids, err := d.CreateTexture(device.TextureDescriptor{Label: "ids", Width: 8, Height: 8, Format: device.FormatR32Uint, Samples: samples})
	require.NoError(t, err)
	depth, err := d.CreateTexture(device.TextureDescriptor{Label: "depth", Width: 8, Height: 8, Format: device.FormatDepth32Float, Samples: samples})
	require.NoError(t, err)
	return color, ids, depth
}

func drawQuads(t *testing.T, d device.Device, color, ids, depth device.Texture, cull device.CullMode, quads ...device.MeshData) {
	t.Helper()
	require.NoError(t, d.RegisterPipeline(device.NewPipeline("flat", flatProgram{},
		device.WithColorTargets(device.FormatRGBA8Unorm, device.FormatR32Uint),
		device.WithDepthTarget(device.FormatDepth32Float),
		device.WithSamples(color.Samples()),
		device.WithCullMode(cull),
	)))
	require.NoError(t, d.BeginFrame())
	pass, err := d.BeginPass(device.PassDescriptor{
		Label: "flat",
		Color: []device.ColorAttachment{
			{Texture: color, Clear: mgl32.Vec4{0, 0, 0, 1}},
			{Texture: ids, ClearUint: 0xFFFFFFFF},
		},
		Depth: &device.DepthAttachment{Texture: depth, Clear: 1},
	})
	require.NoError(t, err)
	require.NoError(t, pass.SetPipeline("flat"))
	for i, q := range quads {
		m, err := d.CreateMesh("quad", q)
		require.NoError(t, err)
		pass.SetUniforms(0, &colorUniform{color: mgl32.Vec4{1, float32(i), 0, 1}, id: uint32(i + 1)})
		require.NoError(t, pass.DrawMesh(m))
	}
	require.NoError(t, pass.End())
	require.NoError(t, d.EndFrame())
}

func TestClearAndRasterizeWithBottomLeftReadback(t *testing.T) {
	d := NewDevice()
	color, ids, depth := newTargets(t, d, 1)

	// Bottom-left quadrant of the screen.
	drawQuads(t, d, color, ids, depth, device.CullBack, quad(-1, -1, 0, 0, 0.5))

	in, err := d.ReadTexel(ids, 0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), in.Uint)
	out, err := d.ReadTexel(ids, 0, 6, 6)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFFFFFF), out.Uint)

	c, err := d.ReadTexel(color, 0, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, c.Color)

	z, err := d.ReadTexel(depth, 0, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, z.Color[0], 1e-6)

	_, err = d.ReadTexel(ids, 0, 8, 0)
	assert.ErrorIs(t, err, device.ErrOutOfBounds)
}

func TestDepthTestKeepsNearest(t *testing.T) {
	d := NewDevice()
	color, ids, depth := newTargets(t, d, 1)

	drawQuads(t, d, color, ids, depth, device.CullNone,
		quad(-1, -1, 1, 1, 0.2),
		quad(-1, -1, 1, 1, 0.8),
	)

	texel, err := d.ReadTexel(ids, 0, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), texel.Uint)
}

func TestCullFrontDiscardsCounterClockwise(t *testing.T) {
	d := NewDevice()
	color, ids, depth := newTargets(t, d, 1)

	drawQuads(t, d, color, ids, depth, device.CullFront, quad(-1, -1, 1, 1, 0.5))

	texel, err := d.ReadTexel(ids, 0, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFFFFFF), texel.Uint)
}

func TestResolveAndFullscreen(t *testing.T) {
	d := NewDevice()
	color, ids, depth := newTargets(t, d, 4)
	drawQuads(t, d, color, ids, depth, device.CullBack, quad(-1, -1, 1, 0, 0.5))

	resolvedColor, err := d.CreateTexture(device.TextureDescriptor{Label: "resolved", Width: 8, Height: 8, Format: device.FormatRGBA8Unorm})
	require.NoError(t, err)
	resolvedIDs, err := d.CreateTexture(device.TextureDescriptor{Label: "resolved_ids", Width: 8, Height: 8, Format: device.FormatR32Uint})
	require.NoError(t, err)
	copied, err := d.CreateTexture(device.TextureDescriptor{Label: "copy", Width: 8, Height: 8, Format: device.FormatRGBA8Unorm})
	require.NoError(t, err)
	require.NoError(t, d.RegisterPipeline(device.NewPipeline("copy", copyProgram{},
		device.WithColorTargets(device.FormatRGBA8Unorm), device.WithFullscreen())))

	require.ErrorIs(t, d.Resolve(color, resolvedColor), device.ErrNoFrame)
	require.NoError(t, d.BeginFrame())
	require.NoError(t, d.Resolve(color, resolvedColor))
	require.NoError(t, d.Resolve(ids, resolvedIDs))
	assert.ErrorIs(t, d.Resolve(color, resolvedIDs), device.ErrFormatMismatch)
	pass, err := d.BeginPass(device.PassDescriptor{Label: "copy", Color: []device.ColorAttachment{{Texture: copied}}})
	require.NoError(t, err)
	require.NoError(t, pass.SetPipeline("copy"))
	pass.SetTexture(0, resolvedColor)
	require.NoError(t, pass.DrawFullscreen())
	require.NoError(t, pass.End())
	_, err = d.ReadTexel(copied, 0, 0, 0)
	assert.ErrorIs(t, err, device.ErrFrameInProgress)
	require.NoError(t, d.EndFrame())

	bottom, err := d.ReadTexel(copied, 0, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, bottom.Color)
	top, err := d.ReadTexel(copied, 0, 2, 6)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, top.Color)
	id, err := d.ReadTexel(resolvedIDs, 0, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id.Uint)

	assert.Equal(t, []string{"resolve:color", "resolve:ids", "copy"}, d.PassLog())
}

func TestNearPlaneClipping(t *testing.T) {
	d := NewDevice()
	color, ids, depth := newTargets(t, d, 1)

	// Half of the quad lies behind the near plane (z < 0); only the rest is drawn.
	m := device.MeshData{
		Vertices: []device.Vertex{
			{Position: mgl32.Vec3{-1, -1, -1}},
			{Position: mgl32.Vec3{1, -1, -1}},
			{Position: mgl32.Vec3{1, 1, 1}},
			{Position: mgl32.Vec3{-1, 1, 1}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
	drawQuads(t, d, color, ids, depth, device.CullNone, m)

	top, err := d.ReadTexel(ids, 0, 4, 7)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), top.Uint)
	bottom, err := d.ReadTexel(ids, 0, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFFFFFF), bottom.Uint)
}

func TestWriteTextureRoundTrip(t *testing.T) {
	d := NewDevice()
	tex, err := d.CreateTexture(device.TextureDescriptor{Label: "albedo", Width: 2, Height: 2, Format: device.FormatRGBA8Unorm})
	require.NoError(t, err)

	data := []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 255, 255, 255, 255,
	}
	require.NoError(t, d.WriteTexture(tex, 0, data))
	assert.Error(t, d.WriteTexture(tex, 0, data[:4]))

	// Upload rows are top row first; readback origin is bottom-left.
	texel, err := d.ReadTexel(tex, 0, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, texel.Color)
	texel, err = d.ReadTexel(tex, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, texel.Color)

	assert.Equal(t, 1, d.LiveTextures())
	tex.Release()
	assert.Equal(t, 0, d.LiveTextures())
}
