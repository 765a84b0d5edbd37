package scene

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/resource"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// ErrNoEntity is returned when an entity handle is null, destroyed, or was not created by the scene.
var ErrNoEntity = errors.New("scene: entity does not exist")

// Draw is one visible mesh instance collected for the G-buffer and shadow passes.
// Mesh and Material borrow the scene's references and are valid until the entity changes.
type Draw struct {
	Entity   donburi.Entity
	Mesh     *model.Mesh
	Material material.Material
	World    mgl32.Mat4
	PickID   uint32
}

// Scene is the ECS world the renderer draws: entities with transforms, meshes, materials and lights,
// plus the active camera.
//
// Entity methods, views and events belong to the render thread. Camera and background accessors are
// safe for concurrent use.
type Scene interface {
	// Name retrieves the scene name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// World returns the underlying ECS world.
	World() donburi.World

	// Tree returns the transform hierarchy of the world.
	Tree() transform.Tree

	// CreateEntity creates an entity with an identity transform, a name and a fresh pick id.
	//
	// Parameters:
	//   - name: a label for logs and pick results
	//
	// Returns:
	//   - donburi.Entity: the new entity
	CreateEntity(name string) donburi.Entity

	// DestroyEntity detaches the entity from the hierarchy, releases its mesh, texture and shadow maps,
	// then removes it from the world. Its children become roots.
	//
	// Parameters:
	//   - e: the entity to destroy
	//
	// Returns:
	//   - error: ErrNoEntity if e is not a live scene entity
	DestroyEntity(e donburi.Entity) error

	// Valid reports whether e is a live scene entity.
	Valid(e donburi.Entity) bool

	// EntityName returns the name given at creation, or "" for an invalid entity.
	EntityName(e donburi.Entity) string

	// PickID returns the id e writes into the entity id target, or NullPickID for an invalid entity.
	PickID(e donburi.Entity) uint32

	// EntityByPickID resolves a value read from the entity id target.
	//
	// Parameters:
	//   - id: the pick id
	//
	// Returns:
	//   - donburi.Entity: the entity
	//   - bool: false for NullPickID or an id whose entity was destroyed
	EntityByPickID(id uint32) (donburi.Entity, bool)

	// SetMesh makes e drawable. The scene takes ownership of h and releases the previous handle.
	//
	// Parameters:
	//   - e: the entity
	//   - h: the mesh reference
	//
	// Returns:
	//   - error: ErrNoEntity if e is not a live scene entity
	SetMesh(e donburi.Entity, h resource.Handle[model.Mesh]) error

	// SetMaterial replaces the material of e, releasing the previous material's texture reference.
	//
	// Parameters:
	//   - e: the entity
	//   - m: the material; the scene takes ownership of its texture handle
	//
	// Returns:
	//   - error: ErrNoEntity if e is not a live scene entity
	SetMaterial(e donburi.Entity, m material.Material) error

	// AddDirectionalLight attaches a directional light to e. The light travels along e's front axis.
	// Adding a light to an entity that already has one replaces it.
	AddDirectionalLight(e donburi.Entity, l light.Directional) error

	// AddPointLight attaches a point or spot light to e, positioned by e's transform.
	AddPointLight(e donburi.Entity, l light.Point) error

	// DirectionalLight returns the directional light of e, or nil.
	DirectionalLight(e donburi.Entity) *light.Directional

	// PointLight returns the point light of e, or nil.
	PointLight(e donburi.Entity) *light.Point

	// EachMesh visits every drawable entity in registry order. mat is nil when the entity has no material.
	EachMesh(fn func(e donburi.Entity, t *transform.Transform, m *Mesh, mat *Material))

	// EachDirectionalLight visits every directional light in registry order.
	EachDirectionalLight(fn func(e donburi.Entity, t *transform.Transform, l *light.Directional))

	// EachPointLight visits every point light in registry order.
	EachPointLight(fn func(e donburi.Entity, t *transform.Transform, l *light.Point))

	// LightCount returns the number of directional and point lights.
	LightCount() int

	// CollectDraws gathers every drawable entity whose bounds intersect frustum. A nil frustum keeps
	// every draw. Entities whose mesh handle is empty are skipped with a warning.
	//
	// Parameters:
	//   - frustum: the culling volume, or nil
	//
	// Returns:
	//   - []Draw: the visible draws in registry order; the slice is reused by the next call
	CollectDraws(frustum *common.Frustum) []Draw

	// Camera retrieves the active camera.
	Camera() camera.Camera

	// SetCamera replaces the active camera.
	SetCamera(cam camera.Camera)

	// Background returns the color of texels no geometry covers.
	Background() mgl32.Vec3

	// SetBackground sets the color of texels no geometry covers.
	SetBackground(color mgl32.Vec3)

	// PublishResize queues a resize event, delivered by the next ProcessEvents call.
	PublishResize(width, height int)

	// OnResize subscribes fn to resize events.
	OnResize(fn func(ResizeEvent))

	// ProcessEvents delivers every queued event synchronously.
	ProcessEvents()

	// Close destroys every entity and stops the scene's workers.
	Close()
}

type scene struct {
	mu *sync.RWMutex

	name       string
	cam        camera.Camera
	background mgl32.Vec3

	world donburi.World
	tree  transform.Tree

	nextPickID uint32
	byPickID   map[uint32]donburi.Entity

	meshQuery        *donburi.Query
	directionalQuery *donburi.Query
	pointQuery       *donburi.Query

	// draws and visible are reused across frames to avoid per-frame allocations.
	draws   []Draw
	visible []bool

	// cullPool runs the bounds tests of CollectDraws. Workers persist across frames.
	cullPool    worker.DynamicWorkerPool
	cullWorkers int
	cullChunk   int
}

var _ Scene = &scene{}

// NewScene creates an empty scene viewed through cam. cam is required and NewScene panics if it is nil.
//
// Parameters:
//   - name: the scene name
//   - cam: the active camera
//   - options: functional options
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, cam camera.Camera, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	world := donburi.NewWorld()
	s := &scene{
		mu:               &sync.RWMutex{},
		name:             name,
		cam:              cam,
		world:            world,
		tree:             transform.NewTree(world),
		byPickID:         make(map[uint32]donburi.Entity),
		meshQuery:        donburi.NewQuery(filter.Contains(transform.Component, MeshComponent)),
		directionalQuery: donburi.NewQuery(filter.Contains(transform.Component, light.DirectionalComponent)),
		pointQuery:       donburi.NewQuery(filter.Contains(transform.Component, light.PointComponent)),
		cullWorkers:      max(runtime.NumCPU()-1, 1),
		cullChunk:        256,
	}
	for _, option := range options {
		option(s)
	}
	s.cullPool = worker.NewDynamicWorkerPool(s.cullWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) World() donburi.World {
	return s.world
}

func (s *scene) Tree() transform.Tree {
	return s.tree
}

func (s *scene) CreateEntity(name string) donburi.Entity {
	e := s.world.Create(NameComponent, PickComponent)
	entry := s.world.Entry(e)
	NameComponent.SetValue(entry, Name{Value: name})
	id := s.allocPickID()
	PickComponent.SetValue(entry, Pick{ID: id})
	s.byPickID[id] = e
	// Attach cannot fail on an entity created just above.
	_ = s.tree.Attach(e)
	return e
}

// allocPickID returns the next pick id not held by a live entity. Ids wrap before NullPickID.
func (s *scene) allocPickID() uint32 {
	for {
		id := s.nextPickID
		s.nextPickID++
		if s.nextPickID == NullPickID {
			s.nextPickID = 0
		}
		if _, used := s.byPickID[id]; !used {
			return id
		}
	}
}

func (s *scene) entry(e donburi.Entity) (*donburi.Entry, error) {
	if e == donburi.Null || !s.world.Valid(e) {
		return nil, fmt.Errorf("%w: %v", ErrNoEntity, e)
	}
	entry := s.world.Entry(e)
	if !entry.HasComponent(PickComponent) {
		return nil, fmt.Errorf("%w: %v has no pick id", ErrNoEntity, e)
	}
	return entry, nil
}

func (s *scene) DestroyEntity(e donburi.Entity) error {
	entry, err := s.entry(e)
	if err != nil {
		return err
	}
	s.releaseEntity(entry)
	delete(s.byPickID, PickComponent.Get(entry).ID)
	if err := s.tree.Detach(e); err != nil && !errors.Is(err, transform.ErrInvalidNode) {
		return err
	}
	s.world.Remove(e)
	return nil
}

// releaseEntity frees the external resources the entity's components own.
func (s *scene) releaseEntity(entry *donburi.Entry) {
	if entry.HasComponent(MeshComponent) {
		MeshComponent.Get(entry).Handle.Release()
	}
	if entry.HasComponent(MaterialComponent) {
		MaterialComponent.Get(entry).Release()
	}
	if entry.HasComponent(light.DirectionalComponent) {
		_ = light.DirectionalComponent.Get(entry).SetCastShadow(nil, light.ShadowConfig{}, false)
	}
	if entry.HasComponent(light.PointComponent) {
		_ = light.PointComponent.Get(entry).SetCastShadow(nil, light.ShadowConfig{}, false)
	}
}

func (s *scene) Valid(e donburi.Entity) bool {
	_, err := s.entry(e)
	return err == nil
}

func (s *scene) EntityName(e donburi.Entity) string {
	entry, err := s.entry(e)
	if err != nil {
		return ""
	}
	return NameComponent.Get(entry).Value
}

func (s *scene) PickID(e donburi.Entity) uint32 {
	entry, err := s.entry(e)
	if err != nil {
		return NullPickID
	}
	return PickComponent.Get(entry).ID
}

func (s *scene) EntityByPickID(id uint32) (donburi.Entity, bool) {
	if id == NullPickID {
		return donburi.Null, false
	}
	e, ok := s.byPickID[id]
	if !ok || !s.world.Valid(e) {
		return donburi.Null, false
	}
	return e, true
}

func (s *scene) SetMesh(e donburi.Entity, h resource.Handle[model.Mesh]) error {
	entry, err := s.entry(e)
	if err != nil {
		return err
	}
	if entry.HasComponent(MeshComponent) {
		c := MeshComponent.Get(entry)
		c.Handle.Release()
		c.Handle = h
		return nil
	}
	donburi.Add(entry, MeshComponent, &Mesh{Handle: h})
	return nil
}

func (s *scene) SetMaterial(e donburi.Entity, m material.Material) error {
	entry, err := s.entry(e)
	if err != nil {
		return err
	}
	if entry.HasComponent(MaterialComponent) {
		c := MaterialComponent.Get(entry)
		c.Release()
		c.Material = m
		return nil
	}
	donburi.Add(entry, MaterialComponent, &Material{Material: m})
	return nil
}

func (s *scene) AddDirectionalLight(e donburi.Entity, l light.Directional) error {
	entry, err := s.entry(e)
	if err != nil {
		return err
	}
	if entry.HasComponent(light.DirectionalComponent) {
		old := light.DirectionalComponent.Get(entry)
		_ = old.SetCastShadow(nil, light.ShadowConfig{}, false)
		*old = l
		return nil
	}
	donburi.Add(entry, light.DirectionalComponent, &l)
	return nil
}

func (s *scene) AddPointLight(e donburi.Entity, l light.Point) error {
	entry, err := s.entry(e)
	if err != nil {
		return err
	}
	if entry.HasComponent(light.PointComponent) {
		old := light.PointComponent.Get(entry)
		_ = old.SetCastShadow(nil, light.ShadowConfig{}, false)
		*old = l
		return nil
	}
	donburi.Add(entry, light.PointComponent, &l)
	return nil
}

func (s *scene) DirectionalLight(e donburi.Entity) *light.Directional {
	entry, err := s.entry(e)
	if err != nil || !entry.HasComponent(light.DirectionalComponent) {
		return nil
	}
	return light.DirectionalComponent.Get(entry)
}

func (s *scene) PointLight(e donburi.Entity) *light.Point {
	entry, err := s.entry(e)
	if err != nil || !entry.HasComponent(light.PointComponent) {
		return nil
	}
	return light.PointComponent.Get(entry)
}

func (s *scene) EachMesh(fn func(e donburi.Entity, t *transform.Transform, m *Mesh, mat *Material)) {
	s.meshQuery.Each(s.world, func(entry *donburi.Entry) {
		var mat *Material
		if entry.HasComponent(MaterialComponent) {
			mat = MaterialComponent.Get(entry)
		}
		fn(entry.Entity(), transform.Component.Get(entry), MeshComponent.Get(entry), mat)
	})
}

func (s *scene) EachDirectionalLight(fn func(e donburi.Entity, t *transform.Transform, l *light.Directional)) {
	s.directionalQuery.Each(s.world, func(entry *donburi.Entry) {
		fn(entry.Entity(), transform.Component.Get(entry), light.DirectionalComponent.Get(entry))
	})
}

func (s *scene) EachPointLight(fn func(e donburi.Entity, t *transform.Transform, l *light.Point)) {
	s.pointQuery.Each(s.world, func(entry *donburi.Entry) {
		fn(entry.Entity(), transform.Component.Get(entry), light.PointComponent.Get(entry))
	})
}

func (s *scene) LightCount() int {
	return s.directionalQuery.Count(s.world) + s.pointQuery.Count(s.world)
}

func (s *scene) CollectDraws(frustum *common.Frustum) []Draw {
	defaultMaterial := material.New()
	s.draws = s.draws[:0]
	s.EachMesh(func(e donburi.Entity, t *transform.Transform, m *Mesh, mat *Material) {
		mesh := m.Handle.Get()
		if mesh == nil || mesh.GPU() == nil {
			common.Logger().Warn("scene: skipping entity without mesh", "entity", s.EntityName(e))
			return
		}
		d := Draw{Entity: e, Mesh: mesh, Material: defaultMaterial, World: t.WorldMatrix(), PickID: s.PickID(e)}
		if mat != nil {
			d.Material = mat.Material
		}
		s.draws = append(s.draws, d)
	})
	if frustum == nil || len(s.draws) == 0 {
		return s.draws
	}

	n := len(s.draws)
	if cap(s.visible) < n {
		s.visible = make([]bool, n)
	}
	s.visible = s.visible[:n]

	// Bounds tests fan out over the pool; the WaitGroup is the per-frame barrier.
	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < n; start += s.cullChunk {
		end := min(start+s.cullChunk, n)
		wg.Add(1)
		s.cullPool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				for i := start; i < end; i++ {
					b := s.draws[i].Mesh.Bounds().Transformed(s.draws[i].World)
					s.visible[i] = frustum.ContainsSphere(b.Center, b.Radius)
				}
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()

	kept := s.draws[:0]
	for i, d := range s.draws {
		if s.visible[i] {
			kept = append(kept, d)
		}
	}
	s.draws = kept
	return s.draws
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Background() mgl32.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.background
}

func (s *scene) SetBackground(color mgl32.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = color
}

func (s *scene) PublishResize(width, height int) {
	ResizeEventType.Publish(s.world, ResizeEvent{Width: width, Height: height})
}

func (s *scene) OnResize(fn func(ResizeEvent)) {
	ResizeEventType.Subscribe(s.world, func(_ donburi.World, event ResizeEvent) {
		fn(event)
	})
}

func (s *scene) ProcessEvents() {
	ResizeEventType.ProcessEvents(s.world)
}

func (s *scene) Close() {
	var live []donburi.Entity
	donburi.NewQuery(filter.Contains(PickComponent)).Each(s.world, func(entry *donburi.Entry) {
		live = append(live, entry.Entity())
	})
	for _, e := range live {
		_ = s.DestroyEntity(e)
	}
	s.cullPool.Stop()
}
