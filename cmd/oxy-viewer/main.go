// Command oxy-viewer opens a window on a small lit scene rendered by the deferred renderer.
//
// Controls: WASD orbit, Q/E or the wheel zoom, right drag orbits, middle drag pans, left click picks the entity under the
// cursor and highlights it. B toggles bloom, O toggles SSAO, L toggles the sun's shadows, X cycles the
// exposure and P toggles the profiler. Escape quits.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/loader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/resource"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/settings"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

func main() {
	var (
		settingsPath = flag.String("settings", "", "TOML settings file, watched for changes")
		texturePath  = flag.String("texture", "", "image used as the albedo texture of the cubes")
		uncapped     = flag.Bool("uncapped", false, "present without vsync")
		profile      = flag.Bool("profile", false, "log frame statistics every second")
		debug        = flag.Bool("debug", false, "log per-frame diagnostics")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*settingsPath, *texturePath, *uncapped, *profile); err != nil {
		common.Logger().Error("oxy-viewer", "err", err)
		os.Exit(1)
	}
}

func run(settingsPath, texturePath string, uncapped, profile bool) error {
	store := settings.NewStore(settings.WithPath(settingsPath))
	if settingsPath != "" {
		if err := store.Load(); err != nil {
			return err
		}
	}

	win := window.NewWindow(
		window.WithTitle("oxy-deferred viewer"),
		window.WithSize(1280, 720),
	)
	mode := gpu.PresentModeVSync
	if uncapped {
		mode = gpu.PresentModeUncapped
	}
	eng, err := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithSettings(store),
		engine.WithPresentMode(mode),
		engine.WithProfiling(profile, time.Second),
		engine.WithTickRate(60),
	)
	if err != nil {
		return err
	}
	defer eng.Release()

	ctrl := camera.NewCameraController(
		camera.WithOrbit(14, 0.6, 0.45),
		camera.WithTarget(mgl32.Vec3{0, 1, 0}),
		camera.WithRadiusBounds(3, 60),
		camera.WithSpeeds(0.03, 0.005, 1, 0.02),
	)
	cam := camera.NewCamera(
		camera.WithFov(float32(45.0*math.Pi/180.0)),
		camera.WithAspect(float32(win.Width())/float32(win.Height())),
		camera.WithNear(0.1),
		camera.WithFar(200),
		camera.WithController(ctrl),
	)
	sc := scene.NewScene("viewer", cam, scene.WithBackground(mgl32.Vec3{0.02, 0.02, 0.03}))
	defer sc.Close()

	var albedo resource.Handle[material.Texture]
	if texturePath != "" {
		ld := loader.NewLoader(eng.Device())
		defer ld.Close()
		if albedo, err = ld.Texture(texturePath); err != nil {
			return err
		}
		defer albedo.Release()
	}

	v := &viewer{eng: eng, scene: sc, ctrl: ctrl, materials: make(map[donburi.Entity]material.Material), held: make(map[uint32]bool)}
	if err := v.build(albedo); err != nil {
		return err
	}
	v.bindInput()

	overlay := eng.Renderer().Sprites()
	if err := overlay.Begin(); err != nil {
		return err
	}
	_ = overlay.Draw(renderer.Sprite{Position: mgl32.Vec2{12, 12}, Size: mgl32.Vec2{16, 16}, Color: mgl32.Vec4{1, 0.8, 0.2, 0.9}})
	if err := overlay.End(); err != nil {
		return err
	}

	v.profiling = profile
	eng.SetScene(sc)
	eng.SetTickCallback(v.tick)
	return eng.Run()
}

type viewer struct {
	eng   engine.Engine
	scene scene.Scene
	ctrl  camera.CameraController

	// materials holds the unhighlighted material of every mesh entity. The scene owns their textures.
	materials map[donburi.Entity]material.Material
	sun       donburi.Entity
	picked    donburi.Entity

	held      map[uint32]bool
	profiling bool
	// dragging is the held drag button; MouseButtonLeft means none, since left clicks pick.
	dragging  window.MouseButton
	lastX     int32
	lastY     int32
	exposure  int
}

func (v *viewer) mesh(name string, data device.MeshData) (resource.Handle[model.Mesh], error) {
	m, err := model.NewMesh(v.eng.Device(), name, data)
	if err != nil {
		return resource.Handle[model.Mesh]{}, err
	}
	return resource.NewHandle(resource.HashString(name), m), nil
}

func (v *viewer) add(name string, mesh resource.Handle[model.Mesh], mat material.Material, pos mgl32.Vec3) (donburi.Entity, error) {
	e := v.scene.CreateEntity(name)
	if err := v.scene.Tree().SetLocalPosition(e, pos); err != nil {
		return e, err
	}
	if err := v.scene.SetMesh(e, mesh.Clone()); err != nil {
		return e, err
	}
	if err := v.scene.SetMaterial(e, mat); err != nil {
		return e, err
	}
	v.materials[e] = mat
	return e, nil
}

// build fills the scene: a floor, a ring of cubes, an emissive sphere, a shadowed sun and two point lights.
func (v *viewer) build(albedo resource.Handle[material.Texture]) error {
	floor, err := v.mesh("floor", model.Plane(40))
	if err != nil {
		return err
	}
	defer floor.Release()
	cube, err := v.mesh("cube", model.Cube())
	if err != nil {
		return err
	}
	defer cube.Release()
	sphere, err := v.mesh("sphere", model.Sphere(24, 16))
	if err != nil {
		return err
	}
	defer sphere.Release()

	if _, err := v.add("floor", floor, material.New(material.WithName("floor"), material.WithAlbedo(mgl32.Vec3{0.6, 0.6, 0.6})), mgl32.Vec3{}); err != nil {
		return err
	}
	for i := range 8 {
		angle := float64(i) / 8 * 2 * math.Pi
		pos := mgl32.Vec3{float32(5 * math.Cos(angle)), 0.5, float32(5 * math.Sin(angle))}
		opts := []material.MaterialBuilderOption{
			material.WithName(fmt.Sprintf("cube-%d", i)),
			material.WithAlbedo(hue(float32(i) / 8)),
		}
		if albedo.Valid() {
			opts = append(opts, material.WithAlbedoTexture(albedo.Clone()))
		}
		if _, err := v.add(fmt.Sprintf("cube-%d", i), cube, material.New(opts...), pos); err != nil {
			return err
		}
	}
	glow := material.New(material.WithName("lamp"), material.WithAlbedo(mgl32.Vec3{1, 0.9, 0.6}), material.WithEmissive(mgl32.Vec3{1, 0.8, 0.4}))
	if _, err := v.add("lamp", sphere, glow, mgl32.Vec3{0, 1.5, 0}); err != nil {
		return err
	}

	v.sun = v.scene.CreateEntity("sun")
	if err := v.scene.Tree().SetLocalRotation(v.sun, mgl32.QuatRotate(-mgl32.DegToRad(55), mgl32.Vec3{1, 0, 0.3}.Normalize())); err != nil {
		return err
	}
	if err := v.scene.AddDirectionalLight(v.sun, light.NewDirectional(
		light.WithDirectionalColors(mgl32.Vec3{0.05, 0.05, 0.06}, mgl32.Vec3{0.9, 0.85, 0.8}, mgl32.Vec3{1, 1, 1}),
	)); err != nil {
		return err
	}
	if err := v.eng.Renderer().SetShadowCasting(v.scene, v.sun, true); err != nil {
		return err
	}

	for i, c := range []mgl32.Vec3{{1, 0.3, 0.2}, {0.2, 0.4, 1}} {
		e := v.scene.CreateEntity(fmt.Sprintf("point-%d", i))
		if err := v.scene.Tree().SetLocalPosition(e, mgl32.Vec3{float32(6*i - 3), 2.5, 2}); err != nil {
			return err
		}
		if err := v.scene.AddPointLight(e, light.NewPoint(
			light.WithPointColors(mgl32.Vec3{}, c, c),
			light.WithAttenuation(1, 0.14, 0.07),
		)); err != nil {
			return err
		}
	}
	return nil
}

func (v *viewer) bindInput() {
	win := v.eng.Window()
	win.SetKeyDownCallback(func(key uint32) {
		if !v.held[key] {
			v.toggle(key)
		}
		v.held[key] = true
	})
	win.SetKeyUpCallback(func(key uint32) {
		delete(v.held, key)
	})
	win.SetScrollCallback(func(delta float32) {
		v.ctrl.Zoom(delta)
	})
	win.SetMouseDownCallback(func(button window.MouseButton, x, y int32) {
		switch button {
		case window.MouseButtonLeft:
			v.pick(int(x), int(y))
		case window.MouseButtonRight, window.MouseButtonMiddle:
			v.dragging, v.lastX, v.lastY = button, x, y
		}
	})
	win.SetMouseUpCallback(func(button window.MouseButton, _, _ int32) {
		if button == v.dragging {
			v.dragging = window.MouseButtonLeft
		}
	})
	win.SetMouseMoveCallback(func(x, y int32) {
		dx, dy := float32(x-v.lastX), float32(y-v.lastY)
		v.lastX, v.lastY = x, y
		switch v.dragging {
		case window.MouseButtonRight:
			v.ctrl.Orbit(dx, dy)
		case window.MouseButtonMiddle:
			v.ctrl.Pan(-dx, dy)
		}
	})
}

// tick applies held orbit keys.
func (v *viewer) tick(float32) {
	var azimuth, elevation, zoom float32
	axis := func(neg, pos uint32) float32 {
		var d float32
		if v.held[neg] {
			d--
		}
		if v.held[pos] {
			d++
		}
		return d
	}
	azimuth = axis(common.KeyA, common.KeyD)
	elevation = axis(common.KeyS, common.KeyW)
	zoom = axis(common.KeyQ, common.KeyE)
	if azimuth != 0 || elevation != 0 {
		v.ctrl.Step(azimuth, elevation)
	}
	if zoom != 0 {
		v.ctrl.Zoom(zoom * 0.1)
	}
}

var exposures = []float32{1, 2, 0.5}

func (v *viewer) toggle(key uint32) {
	r := v.eng.Renderer()
	switch key {
	case common.KeyB:
		v.eng.Settings().Update(func(s *settings.Settings) { s.Bloom.State = !s.Bloom.State })
	case common.KeyO:
		v.eng.Settings().Update(func(s *settings.Settings) { s.SSAO.State = !s.SSAO.State })
	case common.KeyL:
		sun := v.scene.DirectionalLight(v.sun)
		if sun == nil {
			return
		}
		if err := r.SetShadowCasting(v.scene, v.sun, !sun.CastShadow()); err != nil {
			common.Logger().Warn("toggle shadows", "err", err)
		}
	case common.KeyX:
		v.exposure = (v.exposure + 1) % len(exposures)
		r.SetExposure(exposures[v.exposure], v.eng.Settings().Get().Tonemap.ExposureSeconds)
	case common.KeyEsc:
		v.eng.Quit()
	case common.KeyP:
		v.profiling = !v.profiling
		if v.profiling {
			v.eng.EnableProfiler()
		} else {
			v.eng.DisableProfiler()
		}
	}
}

// setMaterial replaces the material of e with a copy holding its own texture reference.
func (v *viewer) setMaterial(e donburi.Entity, mat material.Material) {
	mat.AlbedoTexture = mat.AlbedoTexture.Clone()
	if err := v.scene.SetMaterial(e, mat); err != nil {
		common.Logger().Warn("set material", "entity", v.scene.EntityName(e), "err", err)
	}
}

// pick highlights the entity under the cursor and restores the previous one.
func (v *viewer) pick(x, y int) {
	e, ok, err := v.eng.Renderer().PickEntity(x, y)
	if err != nil {
		common.Logger().Warn("pick failed", "x", x, "y", y, "err", err)
		return
	}
	if prev, had := v.materials[v.picked]; had && v.picked != e {
		v.setMaterial(v.picked, prev)
	}
	if !ok {
		common.Logger().Info("picked nothing", "x", x, "y", y)
		v.picked = donburi.Null
		return
	}
	common.Logger().Info("picked", "x", x, "y", y, "entity", v.scene.EntityName(e), "pick_id", v.scene.PickID(e))
	v.picked = e
	if mat, had := v.materials[e]; had {
		mat.Emissive = mat.Emissive.Add(mgl32.Vec3{0.25, 0.25, 0.25})
		v.setMaterial(e, mat)
	}
}

// hue returns a saturated color for h in [0, 1).
func hue(h float32) mgl32.Vec3 {
	c := func(offset float32) float32 {
		x := float32(math.Abs(math.Mod(float64(h*6+offset), 6)-3)) - 1
		return mgl32.Clamp(x, 0.1, 1)
	}
	return mgl32.Vec3{c(0), c(4), c(2)}
}
