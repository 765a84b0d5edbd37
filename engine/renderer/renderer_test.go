package renderer

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/resource"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/settings"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

const testSize = 16

type fixture struct {
	dev   soft.SoftDevice
	store settings.Store
	r     Renderer
	s     scene.Scene
	clock time.Time
}

// newFixture builds a 16x16 renderer over the soft device with MSAA, SSAO and bloom off and tiny
// shadow maps, and a scene whose camera looks straight down at the origin from y = 5.
func newFixture(t *testing.T, configure func(*settings.Settings), options ...RendererBuilderOption) *fixture {
	t.Helper()
	f := &fixture{dev: soft.NewDevice(), store: settings.NewStore(), clock: time.Unix(0, 0)}
	f.store.Update(func(s *settings.Settings) {
		s.Renderer.MSAA = 1
		s.SSAO.State = false
		s.Bloom.State = false
		s.Shadow.Resolution = 8
		if configure != nil {
			configure(s)
		}
	})
	options = append([]RendererBuilderOption{
		WithSettings(f.store),
		WithClock(func() time.Time { return f.clock }),
	}, options...)
	f.r = NewRenderer(f.dev, options...)
	require.NoError(t, f.r.Init(testSize, testSize))
	t.Cleanup(f.r.Release)

	cam := camera.NewCamera(
		camera.WithUp(mgl32.Vec3{0, 0, -1}),
		camera.WithLookAt(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{}),
	)
	f.s = scene.NewScene("test", cam)
	t.Cleanup(f.s.Close)
	return f
}

func (f *fixture) addMesh(t *testing.T, name string, data device.MeshData, mat material.Material) donburi.Entity {
	t.Helper()
	m, err := model.NewMesh(f.dev, name, data)
	require.NoError(t, err)
	e := f.s.CreateEntity(name)
	require.NoError(t, f.s.SetMesh(e, resource.NewHandle(resource.HashString(name), m)))
	require.NoError(t, f.s.SetMaterial(e, mat))
	return e
}

// addSun adds a directional light travelling straight down.
func (f *fixture) addSun(t *testing.T, l light.Directional) donburi.Entity {
	t.Helper()
	e := f.s.CreateEntity("sun")
	require.NoError(t, f.s.Tree().SetLocalRotation(e, mgl32.QuatRotate(-mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0})))
	require.NoError(t, f.s.AddDirectionalLight(e, l))
	return e
}

func (f *fixture) render(t *testing.T) {
	t.Helper()
	f.clock = f.clock.Add(100 * time.Millisecond)
	require.NoError(t, f.r.RenderFrame(f.s))
}

func (f *fixture) texel(t *testing.T, tex device.Texture, x, y int) device.Texel {
	t.Helper()
	texel, err := f.dev.ReadTexel(tex, 0, x, y)
	require.NoError(t, err)
	return texel
}

func TestRenderFramePanicsWithoutSceneOrCamera(t *testing.T) {
	f := newFixture(t, nil)
	assert.PanicsWithValue(t, "renderer: RenderFrame requires a scene", func() {
		_ = f.r.RenderFrame(nil)
	})
	f.s.SetCamera(nil)
	assert.PanicsWithValue(t, "renderer: scene test has no active camera", func() {
		_ = f.r.RenderFrame(f.s)
	})
}

func TestRenderFrameRequiresInit(t *testing.T) {
	r := NewRenderer(soft.NewDevice())
	s := scene.NewScene("uninitialized", camera.NewCamera())
	defer s.Close()
	assert.ErrorIs(t, r.RenderFrame(s), ErrNotInitialized)
}

func TestPassOrder(t *testing.T) {
	f := newFixture(t, nil)
	var names []string
	for _, p := range f.r.Passes() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"gbuffer", "ssao", "lighting", "emissive", "bloom", "tonemap", "sprite"}, names)
}

func TestEntityIDClearedToSentinel(t *testing.T) {
	f := newFixture(t, nil)
	f.render(t)

	for y := range testSize {
		for x := range testSize {
			id, err := f.r.ReadEntityID(x, y)
			require.NoError(t, err)
			require.Equal(t, uint32(scene.NullPickID), id, "texel %d,%d", x, y)
		}
	}
}

func TestEntityIDCoversMeshRectangle(t *testing.T) {
	f := newFixture(t, nil)
	// A 2x2 plane seen from 5 units with a 45 degree fov spans texels 4 to 11 on both axes.
	e := f.addMesh(t, "tile", model.Plane(2), material.New())
	want := f.s.PickID(e)
	f.render(t)

	for y := range testSize {
		for x := range testSize {
			id, err := f.r.ReadEntityID(x, y)
			require.NoError(t, err)
			switch {
			case x >= 5 && x <= 10 && y >= 5 && y <= 10:
				assert.Equal(t, want, id, "inside %d,%d", x, y)
			case x <= 2 || x >= 13 || y <= 2 || y >= 13:
				assert.Equal(t, uint32(scene.NullPickID), id, "outside %d,%d", x, y)
			}
		}
	}

	got, ok, err := f.r.PickEntity(8, 8)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e, got)

	_, ok, err = f.r.PickEntity(0, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := f.r.ReadEntityID(-1, testSize)
	require.NoError(t, err)
	assert.Equal(t, uint32(scene.NullPickID), id)
	assert.Equal(t, 1, f.r.Stats().Draws)
}

func TestDirectionalLightWithoutShadowIsPlainPhong(t *testing.T) {
	f := newFixture(t, nil)
	f.addMesh(t, "floor", model.Plane(20), material.New(material.WithSpecular(0, 32)))
	f.addSun(t, light.NewDirectional(light.WithDirectionalColors(
		mgl32.Vec3{0.1, 0.1, 0.1},
		mgl32.Vec3{0.6, 0.5, 0.4},
		mgl32.Vec3{1, 1, 1},
	)))
	f.render(t)

	// White albedo and ambient, n.l = 1, no specular strength, occlusion 1, shadow factor 1.
	want := mgl32.Vec3{0.7, 0.6, 0.5}
	lit := f.r.LightingTexture()
	for y := range testSize {
		for x := range testSize {
			got := f.texel(t, lit, x, y).Color.Vec3()
			require.True(t, common.Vec3Near(want, got, 1e-2), "texel %d,%d = %v", x, y, got)
		}
	}
	assert.Zero(t, f.r.Stats().ShadowPasses)
}

func TestUncoveredTexelsKeepBackground(t *testing.T) {
	f := newFixture(t, nil)
	f.s.SetBackground(mgl32.Vec3{0.25, 0.5, 0.75})
	f.addSun(t, light.NewDirectional())
	f.render(t)

	got := f.texel(t, f.r.LightingTexture(), 0, 0).Color.Vec3()
	assert.True(t, common.Vec3Near(mgl32.Vec3{0.25, 0.5, 0.75}, got, 1e-2), "%v", got)
}

func TestLightingPingPongSwapsOncePerLight(t *testing.T) {
	f := newFixture(t, nil)
	f.addMesh(t, "floor", model.Plane(20), material.New())
	f.addSun(t, light.NewDirectional())
	f.addSun(t, light.NewDirectional())
	for range 3 {
		e := f.s.CreateEntity("lamp")
		require.NoError(t, f.s.AddPointLight(e, light.NewPoint()))
	}
	f.render(t)

	assert.Equal(t, 5, f.r.Stats().Swaps)
	assert.Equal(t, "lighting_b", f.r.LightingTexture().Label())

	var lights []string
	for _, label := range f.dev.PassLog() {
		if label == "light_directional" || label == "light_point" {
			lights = append(lights, label)
		}
	}
	assert.Equal(t, []string{"light_directional", "light_directional", "light_point", "light_point", "light_point"}, lights)

	f.render(t)
	assert.Equal(t, 5, f.r.Stats().Swaps, "swaps are counted per frame")
	assert.Equal(t, "lighting_b", f.r.LightingTexture().Label())
}

func TestEmissiveSkippedWithoutLights(t *testing.T) {
	f := newFixture(t, nil)
	f.addMesh(t, "glow", model.Plane(20), material.New(material.WithEmissive(mgl32.Vec3{1, 0, 0})))
	f.render(t)
	assert.False(t, f.r.Stats().Emissive)
	assert.NotContains(t, f.dev.PassLog(), "emissive")
	assert.Zero(t, f.texel(t, f.r.LightingTexture(), 8, 8).Color[0])

	f.addSun(t, light.NewDirectional(light.WithDirectionalColors(mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{})))
	f.render(t)
	assert.True(t, f.r.Stats().Emissive)
	assert.Contains(t, f.dev.PassLog(), "emissive")
	assert.InDelta(t, 1, f.texel(t, f.r.LightingTexture(), 8, 8).Color[0], 1e-2)
}

func TestShadowPassesPerCascadeAndFace(t *testing.T) {
	f := newFixture(t, nil)
	f.addMesh(t, "floor", model.Plane(20), material.New())
	sun := f.addSun(t, light.NewDirectional())
	require.NoError(t, f.r.SetShadowCasting(f.s, sun, true))
	f.render(t)

	planes := len(settings.Defaults().Shadow.CascadePlanes)
	assert.Equal(t, planes, f.r.Stats().ShadowPasses)
	assert.Contains(t, f.dev.PassLog(), "shadow_cascade_0")
	assert.Equal(t, 8, f.s.DirectionalLight(sun).Shadow().Texture().Width())

	lamp := f.s.CreateEntity("lamp")
	require.NoError(t, f.s.AddPointLight(lamp, light.NewPoint()))
	require.NoError(t, f.r.SetShadowCasting(f.s, lamp, true))
	f.render(t)
	assert.Equal(t, planes+6, f.r.Stats().ShadowPasses)
	assert.Contains(t, f.dev.PassLog(), "shadow_point_5")

	require.NoError(t, f.r.SetShadowCasting(f.s, sun, false))
	require.NoError(t, f.r.SetShadowCasting(f.s, lamp, false))
	f.render(t)
	assert.Zero(t, f.r.Stats().ShadowPasses)

	floor := f.s.CreateEntity("not a light")
	assert.ErrorIs(t, f.r.SetShadowCasting(f.s, floor, true), ErrNotALight)
}

// lighting copies the accumulated lighting, indexed [y][x].
func (f *fixture) lighting(t *testing.T) [testSize][testSize]mgl32.Vec3 {
	t.Helper()
	var out [testSize][testSize]mgl32.Vec3
	lit := f.r.LightingTexture()
	for y := range testSize {
		for x := range testSize {
			out[y][x] = f.texel(t, lit, x, y).Color.Vec3()
		}
	}
	return out
}

// shadowedTexels counts texels at least 0.3 darker in after than in before.
func shadowedTexels(before, after [testSize][testSize]mgl32.Vec3, x0, x1 int) int {
	n := 0
	for y := range testSize {
		for x := x0; x <= x1; x++ {
			if before[y][x][0]-after[y][x][0] > 0.3 {
				n++
			}
		}
	}
	return n
}

func TestDirectionalShadowDarkensOccludedFloor(t *testing.T) {
	f := newFixture(t, func(s *settings.Settings) { s.Shadow.Resolution = 128 })
	f.addMesh(t, "floor", model.Plane(20), material.New())
	box := f.addMesh(t, "box", model.Cube(), material.New())
	require.NoError(t, f.s.Tree().SetLocalPosition(box, mgl32.Vec3{0, 1, 0}))

	// The sun travels down and towards +x, so the box shadows the floor on its +x side.
	sun := f.s.CreateEntity("sun")
	front := mgl32.Vec3{1, -1, 0}.Normalize()
	require.NoError(t, f.s.Tree().SetLocalRotation(sun, mgl32.QuatBetweenVectors(mgl32.Vec3{0, 0, -1}, front)))
	require.NoError(t, f.s.AddDirectionalLight(sun, light.NewDirectional()))

	f.render(t)
	unshadowed := f.lighting(t)
	require.NoError(t, f.r.SetShadowCasting(f.s, sun, true))
	f.render(t)
	shadowed := f.lighting(t)

	assert.Positive(t, shadowedTexels(unshadowed, shadowed, 9, testSize-1), "floor past the box is darkened")
	for y := range testSize {
		for x := 0; x <= 6; x++ {
			assert.True(t, common.Vec3Near(unshadowed[y][x], shadowed[y][x], 1e-2), "texel %d,%d on the lit side changed", x, y)
		}
	}

	f.store.Update(func(s *settings.Settings) { s.Shadow.Bias = 0.01 })
	f.render(t)
	assert.InDelta(t, 0.01, f.s.DirectionalLight(sun).Shadow().Bias(), 1e-9, "bias changes reallocate the cascades")
}

func TestPointShadowDarkensOccludedFloor(t *testing.T) {
	f := newFixture(t, func(s *settings.Settings) { s.Shadow.Resolution = 128 })
	f.addMesh(t, "floor", model.Plane(20), material.New())
	box := f.addMesh(t, "box", model.Cube(), material.New())
	require.NoError(t, f.s.Tree().SetLocalPosition(box, mgl32.Vec3{0, 1.5, 0}))

	// The lamp sits above the box, whose shadow on the floor is a square of half size 1.5 around the origin.
	lamp := f.s.CreateEntity("lamp")
	require.NoError(t, f.s.Tree().SetLocalPosition(lamp, mgl32.Vec3{0, 3, 0}))
	require.NoError(t, f.s.AddPointLight(lamp, light.NewPoint()))

	f.render(t)
	unshadowed := f.lighting(t)
	require.NoError(t, f.r.SetShadowCasting(f.s, lamp, true))
	f.render(t)
	shadowed := f.lighting(t)

	assert.Positive(t, shadowedTexels(unshadowed, shadowed, 0, testSize-1), "floor around the box is darkened")
	for _, c := range [][2]int{{0, 0}, {testSize - 1, 0}, {0, testSize - 1}, {testSize - 1, testSize - 1}} {
		x, y := c[0], c[1]
		assert.True(t, common.Vec3Near(unshadowed[y][x], shadowed[y][x], 1e-2), "corner %d,%d changed", x, y)
	}
}

func TestShadowMapsFollowResolutionSetting(t *testing.T) {
	f := newFixture(t, nil)
	sun := f.addSun(t, light.NewDirectional())
	require.NoError(t, f.r.SetShadowCasting(f.s, sun, true))
	f.render(t)

	f.store.Update(func(s *settings.Settings) { s.Shadow.Resolution = 4 })
	f.render(t)
	assert.Equal(t, 4, f.s.DirectionalLight(sun).Shadow().Texture().Width())
}

func TestResizeReallocatesTargets(t *testing.T) {
	f := newFixture(t, nil)
	f.render(t)
	live := f.dev.LiveTextures()

	require.NoError(t, f.r.Resize(32, 24))
	for i := range geometryBufferCount {
		tex := f.r.GBufferTexture(GeometryBufferType(i))
		assert.Equal(t, 32, tex.Width(), GeometryBufferType(i).String())
		assert.Equal(t, 24, tex.Height(), GeometryBufferType(i).String())
	}
	assert.Equal(t, 32, f.r.LightingTexture().Width())
	assert.Equal(t, 24, f.r.FinalTexture().Height())
	assert.Equal(t, live, f.dev.LiveTextures())

	require.NoError(t, f.r.Resize(0, 10))
	w, h := f.r.Size()
	assert.Equal(t, 32, w)
	assert.Equal(t, 24, h)
}

func TestResizeEventAppliesBeforeNextFrame(t *testing.T) {
	f := newFixture(t, nil)
	f.s.PublishResize(40, 20)
	f.render(t)

	w, h := f.r.Size()
	assert.Equal(t, 40, w)
	assert.Equal(t, 20, h)
	assert.Equal(t, 40, f.r.FinalTexture().Width())
	assert.InDelta(t, 2, f.s.Camera().Aspect(), 1e-6)
}

type resizingPass struct {
	r   Renderer
	err error
}

func (p *resizingPass) Name() string                          { return "resizing" }
func (p *resizingPass) Init(*RenderContext) error             { return nil }
func (p *resizingPass) Resize(*RenderContext, int, int) error { return nil }
func (p *resizingPass) Release()                              {}
func (p *resizingPass) Render(*RenderContext) error {
	p.err = p.r.Resize(64, 64)
	return nil
}

func TestResizeRejectedInsideFrame(t *testing.T) {
	pass := &resizingPass{}
	f := newFixture(t, nil, WithPass(pass))
	pass.r = f.r
	f.render(t)

	assert.ErrorIs(t, pass.err, ErrResizeInFrame)
	w, _ := f.r.Size()
	assert.Equal(t, testSize, w)
	assert.Equal(t, "resizing", f.r.Passes()[len(f.r.Passes())-1].Name())
}

func TestSettingsChangesApplyAtFrameStart(t *testing.T) {
	f := newFixture(t, nil)
	f.render(t)
	assert.Contains(t, f.dev.PassLog(), "ssao_disabled")

	f.store.Update(func(s *settings.Settings) {
		s.SSAO.State = true
		s.SSAO.KernelSize = 8
		s.Renderer.MSAA = 4
		s.Bloom.State = true
		s.Bloom.Levels = 3
	})
	f.render(t)

	log := f.dev.PassLog()
	assert.Contains(t, log, "ssao")
	assert.Contains(t, log, "ssao_blur")
	assert.Contains(t, log, "resolve:gbuffer_position_ms")
	assert.Contains(t, log, "resolve:gbuffer_entity_id_ms")
	for _, label := range []string{"bloom_down_0", "bloom_down_1", "bloom_down_2", "bloom_up_1", "bloom_up_0"} {
		assert.Contains(t, log, label)
	}
	assert.Less(t, slices.Index(log, "bloom_up_1"), slices.Index(log, "bloom_up_0"))
	assert.Len(t, f.r.SSAOKernel(), 8)
	assert.True(t, f.r.Stats().Bloom)
	assert.Equal(t, 1, f.r.GBufferTexture(Position).Samples())
}

func TestExposureTransitionsAreTweened(t *testing.T) {
	f := newFixture(t, nil)
	f.render(t)
	assert.InDelta(t, 1, f.r.Exposure(), 1e-6)

	f.store.Update(func(s *settings.Settings) {
		s.Tonemap.Exposure = 2
		s.Tonemap.ExposureSeconds = 0.5
	})
	f.render(t)
	mid := f.r.Exposure()
	assert.Greater(t, mid, float32(1))
	assert.Less(t, mid, float32(2))

	for range 5 {
		f.render(t)
	}
	assert.InDelta(t, 2, f.r.Exposure(), 1e-6)

	f.r.SetExposure(3, 0)
	assert.InDelta(t, 3, f.r.Exposure(), 1e-6)
}

func TestSpriteBatchGroupsTextureRuns(t *testing.T) {
	f := newFixture(t, nil)
	atlas, err := solidTexture(f.dev, "atlas", device.FormatRGBA8Unorm, mgl32.Vec4{0, 1, 0, 1})
	require.NoError(t, err)
	defer atlas.Release()

	batch := f.r.Sprites()
	assert.ErrorIs(t, batch.Draw(Sprite{}), ErrBatchState)
	assert.ErrorIs(t, batch.End(), ErrBatchState)

	require.NoError(t, batch.Begin())
	assert.ErrorIs(t, batch.Begin(), ErrBatchState)
	red := Sprite{Position: mgl32.Vec2{0, 0}, Size: mgl32.Vec2{4, 4}, Color: mgl32.Vec4{1, 0, 0, 1}}
	green := Sprite{Position: mgl32.Vec2{12, 12}, Size: mgl32.Vec2{4, 4}, Color: mgl32.Vec4{1, 1, 1, 1}, Texture: atlas}
	for _, s := range []Sprite{red, red, green, green, green, red} {
		require.NoError(t, batch.Draw(s))
	}
	require.NoError(t, batch.End())
	f.render(t)

	stats := f.r.Stats()
	assert.Equal(t, 6, stats.Sprites)
	assert.Equal(t, 3, stats.SpriteRuns)
	log := f.dev.PassLog()
	assert.Equal(t, "sprite", log[len(log)-1])

	final := f.r.FinalTexture()
	topLeft := f.texel(t, final, 1, testSize-2).Color
	assert.InDelta(t, 1, topLeft[0], 1e-2)
	assert.InDelta(t, 0, topLeft[1], 1e-2)
	bottomRight := f.texel(t, final, testSize-2, 1).Color
	assert.InDelta(t, 1, bottomRight[1], 1e-2)
	middle := f.texel(t, final, 8, 8).Color
	assert.InDelta(t, 0, middle[0], 1e-2)
}

func TestGenerateKernelHemisphere(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	const n = 64
	kernel := GenerateKernel(n, rng)
	require.Len(t, kernel, n)

	var nearSum, farSum float32
	for i, k := range kernel {
		scale := common.Lerp(0.1, 1, float32(i*i)/float32(n*n))
		assert.GreaterOrEqual(t, k[2], float32(0), "sample %d below the hemisphere", i)
		assert.LessOrEqual(t, k.Len(), scale+1e-5, "sample %d too long", i)
		if i < n/4 {
			nearSum += k.Len()
		} else if i >= 3*n/4 {
			farSum += k.Len()
		}
	}
	assert.Less(t, nearSum, farSum, "samples cluster near the origin")
}

func TestGenerateNoiseRotatesAroundZ(t *testing.T) {
	noise := GenerateNoise(rand.New(rand.NewPCG(1, 2)))
	require.Len(t, noise, NoiseSize*NoiseSize)
	for _, v := range noise {
		assert.Zero(t, v[2])
		assert.LessOrEqual(t, v[0], float32(1))
		assert.GreaterOrEqual(t, v[0], float32(-1))
	}
}

func TestGeometryBufferFormats(t *testing.T) {
	assert.Equal(t, device.FormatRGBA16Float, Position.Format())
	assert.Equal(t, device.FormatRGBA16Float, Normal.Format())
	assert.Equal(t, device.FormatRGBA8Unorm, Albedo.Format())
	assert.Equal(t, device.FormatRGBA8Unorm, Ambient.Format())
	assert.Equal(t, device.FormatRGBA8Unorm, Emissive.Format())
	assert.Equal(t, device.FormatR32Uint, EntityID.Format())
	assert.Equal(t, device.FormatRGBA8Unorm, GeometryBufferType(42).Format())
}

func TestReleaseFreesEveryTarget(t *testing.T) {
	dev := soft.NewDevice()
	r := NewRenderer(dev)
	require.NoError(t, r.Init(8, 8))
	assert.Positive(t, dev.LiveTextures())
	r.Release()
	assert.Zero(t, dev.LiveTextures())
}
