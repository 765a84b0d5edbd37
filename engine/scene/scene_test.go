package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/resource"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

func newScene(t *testing.T, options ...SceneBuilderOption) Scene {
	t.Helper()
	s := NewScene("test", camera.NewCamera(), options...)
	t.Cleanup(s.Close)
	return s
}

func cubeHandle(t *testing.T, d soft.SoftDevice, name string) resource.Handle[model.Mesh] {
	t.Helper()
	m, err := model.NewMesh(d, name, model.Cube())
	require.NoError(t, err)
	return resource.NewHandle(resource.HashString(name), m)
}

func smallShadows() light.ShadowConfig {
	cfg := light.DefaultShadowConfig()
	cfg.Resolution = 8
	return cfg
}

func TestNewScenePanicsWithoutCamera(t *testing.T) {
	assert.PanicsWithValue(t, "scene: NewScene requires a non-nil Camera", func() {
		NewScene("broken", nil)
	})
}

func TestCreateEntityAssignsPickIDs(t *testing.T) {
	s := newScene(t)
	a := s.CreateEntity("a")
	b := s.CreateEntity("b")

	assert.True(t, s.Valid(a))
	assert.True(t, s.Tree().Valid(a))
	assert.Equal(t, "b", s.EntityName(b))
	assert.NotEqual(t, s.PickID(a), s.PickID(b))

	got, ok := s.EntityByPickID(s.PickID(b))
	require.True(t, ok)
	assert.Equal(t, b, got)

	_, ok = s.EntityByPickID(NullPickID)
	assert.False(t, ok)
}

func TestPickIDsWrapPastLiveEntities(t *testing.T) {
	s := newScene(t)
	first := s.CreateEntity("first")
	require.Equal(t, uint32(0), s.PickID(first))

	s.(*scene).nextPickID = NullPickID - 1
	last := s.CreateEntity("last")
	assert.Equal(t, uint32(NullPickID-1), s.PickID(last))

	wrapped := s.CreateEntity("wrapped")
	assert.Equal(t, uint32(1), s.PickID(wrapped), "id 0 is still held by first")

	got, ok := s.EntityByPickID(0)
	require.True(t, ok)
	assert.Equal(t, first, got)
	got, ok = s.EntityByPickID(1)
	require.True(t, ok)
	assert.Equal(t, wrapped, got)
}

func TestDestroyEntityReleasesResources(t *testing.T) {
	d := soft.NewDevice()
	s := newScene(t)
	parent := s.CreateEntity("parent")
	child := s.CreateEntity("child")
	require.True(t, s.Tree().AddChild(parent, child))

	h := cubeHandle(t, d, "cube")
	mesh := h.Get()
	require.NoError(t, s.SetMesh(parent, h))

	dir := light.NewDirectional()
	require.NoError(t, dir.SetCastShadow(d, smallShadows(), true))
	require.NoError(t, s.AddDirectionalLight(parent, dir))
	require.Equal(t, 1, d.LiveTextures())

	id := s.PickID(parent)
	require.NoError(t, s.DestroyEntity(parent))

	assert.False(t, s.Valid(parent))
	assert.Nil(t, mesh.GPU())
	assert.Equal(t, 0, d.LiveTextures())
	_, ok := s.EntityByPickID(id)
	assert.False(t, ok)

	tr, err := s.Tree().Get(child)
	require.NoError(t, err)
	assert.Equal(t, donburi.Null, tr.Parent())

	assert.ErrorIs(t, s.DestroyEntity(parent), ErrNoEntity)
	assert.ErrorIs(t, s.SetMesh(donburi.Null, resource.Handle[model.Mesh]{}), ErrNoEntity)
}

func TestSetMeshReleasesPreviousHandle(t *testing.T) {
	d := soft.NewDevice()
	s := newScene(t)
	e := s.CreateEntity("e")

	first := cubeHandle(t, d, "first")
	firstMesh := first.Get()
	require.NoError(t, s.SetMesh(e, first))
	require.NoError(t, s.SetMesh(e, cubeHandle(t, d, "second")))
	assert.Nil(t, firstMesh.GPU())

	count := 0
	s.EachMesh(func(_ donburi.Entity, _ *transform.Transform, m *Mesh, mat *Material) {
		count++
		assert.Equal(t, "second", m.Handle.Get().Name())
		assert.Nil(t, mat)
	})
	assert.Equal(t, 1, count)
}

func TestLightViews(t *testing.T) {
	s := newScene(t)
	sun := s.CreateEntity("sun")
	bulb := s.CreateEntity("bulb")
	require.NoError(t, s.AddDirectionalLight(sun, light.NewDirectional()))
	require.NoError(t, s.AddPointLight(bulb, light.NewPoint()))
	require.NoError(t, s.Tree().SetWorldPosition(bulb, mgl32.Vec3{1, 2, 3}))

	assert.Equal(t, 2, s.LightCount())
	assert.NotNil(t, s.DirectionalLight(sun))
	assert.Nil(t, s.PointLight(sun))

	var positions []mgl32.Vec3
	s.EachPointLight(func(e donburi.Entity, tr *transform.Transform, l *light.Point) {
		assert.Equal(t, bulb, e)
		positions = append(positions, tr.WorldPosition())
	})
	assert.Equal(t, []mgl32.Vec3{{1, 2, 3}}, positions)

	directional := 0
	s.EachDirectionalLight(func(donburi.Entity, *transform.Transform, *light.Directional) { directional++ })
	assert.Equal(t, 1, directional)
}

func TestCollectDrawsCullsOutsideFrustum(t *testing.T) {
	d := soft.NewDevice()
	s := newScene(t, WithCullChunk(1), WithCullWorkers(2))

	front := s.CreateEntity("front")
	require.NoError(t, s.SetMesh(front, cubeHandle(t, d, "front")))
	require.NoError(t, s.SetMaterial(front, material.New(material.WithAlbedo(mgl32.Vec3{1, 0, 0}))))

	behind := s.CreateEntity("behind")
	require.NoError(t, s.SetMesh(behind, cubeHandle(t, d, "behind")))
	require.NoError(t, s.Tree().SetWorldPosition(behind, mgl32.Vec3{0, 0, 50}))

	// an empty handle is skipped rather than drawn
	empty := s.CreateEntity("empty")
	require.NoError(t, s.SetMesh(empty, resource.Handle[model.Mesh]{}))

	all := s.CollectDraws(nil)
	assert.Len(t, all, 2)

	f := common.ExtractFrustumFromMatrix(s.Camera().ViewProjection())
	draws := s.CollectDraws(&f)
	require.Len(t, draws, 1)
	assert.Equal(t, front, draws[0].Entity)
	assert.Equal(t, s.PickID(front), draws[0].PickID)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, draws[0].Material.Albedo)
}

func TestResizeEventsAreDeliveredOnProcess(t *testing.T) {
	s := newScene(t)
	var got []ResizeEvent
	s.OnResize(func(e ResizeEvent) { got = append(got, e) })

	s.PublishResize(800, 600)
	assert.Empty(t, got)
	s.ProcessEvents()
	assert.Equal(t, []ResizeEvent{{Width: 800, Height: 600}}, got)
}

func TestCameraAndBackground(t *testing.T) {
	s := newScene(t, WithBackground(mgl32.Vec3{0.1, 0.2, 0.3}))
	assert.Equal(t, mgl32.Vec3{0.1, 0.2, 0.3}, s.Background())

	cam := camera.NewCamera(camera.WithFov(1))
	s.SetCamera(cam)
	assert.Same(t, cam, s.Camera())
}

func TestCloseReleasesEverything(t *testing.T) {
	d := soft.NewDevice()
	s := NewScene("closing", camera.NewCamera())
	e := s.CreateEntity("bulb")
	p := light.NewPoint()
	require.NoError(t, p.SetCastShadow(d, smallShadows(), true))
	require.NoError(t, s.AddPointLight(e, p))
	require.Equal(t, 1, d.LiveTextures())

	s.Close()
	assert.Equal(t, 0, d.LiveTextures())
	assert.False(t, s.Valid(e))
}
