package scene

import (
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/engine/model"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/resource"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// NullPickID is the entity id cleared into the G-buffer where no geometry was drawn.
const NullPickID uint32 = math.MaxUint32

// Name labels an entity in logs and pick results.
type Name struct {
	Value string
}

// Pick is the id an entity writes into the G-buffer entity id target.
type Pick struct {
	ID uint32
}

// Mesh references the geometry an entity draws. The component owns its handle.
type Mesh struct {
	Handle resource.Handle[model.Mesh]
}

// Material is the surface an entity's mesh is shaded with. The component owns the material's texture handle.
type Material struct {
	material.Material
}

// ResizeEvent reports a new framebuffer size in pixels.
type ResizeEvent struct {
	Width  int
	Height int
}

var (
	// NameComponent is attached to every entity created by a Scene.
	NameComponent = donburi.NewComponentType[Name]()
	// PickComponent is attached to every entity created by a Scene.
	PickComponent = donburi.NewComponentType[Pick]()
	// MeshComponent marks an entity as drawable.
	MeshComponent = donburi.NewComponentType[Mesh]()
	// MaterialComponent is optional on drawable entities; without it the default material is used.
	MaterialComponent = donburi.NewComponentType[Material]()

	// ResizeEventType carries framebuffer size changes through the scene's world.
	ResizeEventType = events.NewEventType[ResizeEvent]()
)
