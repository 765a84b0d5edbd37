package transform

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

// ErrInvalidNode is returned when a handle refers to an entity that was destroyed or never carried a transform.
var ErrInvalidNode = errors.New("transform: no such node")

// Component is the ECS component type holding a Transform value.
var Component = donburi.NewComponentType[Transform]()

// Transform is the local and world position/rotation/scale of one node plus its relations.
// Parent and children are non-owning entity handles resolved through the world; a destroyed
// relative is skipped rather than dereferenced.
//
// World position, rotation and scale are derived as
//
//	worldPos   = parent.worldPos + parent.worldRot * (parent.worldScale ∘ localPos)
//	worldRot   = parent.worldRot * localRot
//	worldScale = parent.worldScale ∘ localScale
//
// which equals parent.WorldMatrix() * LocalMatrix() whenever the parent scale is uniform.
type Transform struct {
	localPosition mgl32.Vec3
	localRotation mgl32.Quat
	localScale    mgl32.Vec3

	worldPosition mgl32.Vec3
	worldRotation mgl32.Quat
	worldScale    mgl32.Vec3

	parent   donburi.Entity
	children []donburi.Entity
}

// Identity returns a root transform at the origin with unit scale.
func Identity() Transform {
	return Transform{
		localRotation: mgl32.QuatIdent(),
		localScale:    mgl32.Vec3{1, 1, 1},
		worldRotation: mgl32.QuatIdent(),
		worldScale:    mgl32.Vec3{1, 1, 1},
		parent:        donburi.Null,
	}
}

func (t Transform) LocalPosition() mgl32.Vec3 { return t.localPosition }
func (t Transform) LocalRotation() mgl32.Quat { return t.localRotation }
func (t Transform) LocalScale() mgl32.Vec3    { return t.localScale }
func (t Transform) WorldPosition() mgl32.Vec3 { return t.worldPosition }
func (t Transform) WorldRotation() mgl32.Quat { return t.worldRotation }
func (t Transform) WorldScale() mgl32.Vec3    { return t.worldScale }

// Parent returns the parent entity, or donburi.Null for a root.
func (t Transform) Parent() donburi.Entity { return t.parent }

// Children returns a copy of the child entity list.
func (t Transform) Children() []donburi.Entity {
	out := make([]donburi.Entity, len(t.children))
	copy(out, t.children)
	return out
}

// LocalMatrix returns T * R * S built from the local components.
func (t Transform) LocalMatrix() mgl32.Mat4 {
	return common.TRS(t.localPosition, t.localRotation, t.localScale)
}

// WorldMatrix returns T * R * S built from the world components.
func (t Transform) WorldMatrix() mgl32.Mat4 {
	return common.TRS(t.worldPosition, t.worldRotation, t.worldScale)
}

// Front returns the world-space forward axis (-Z rotated by the world rotation).
func (t Transform) Front() mgl32.Vec3 {
	return t.worldRotation.Rotate(mgl32.Vec3{0, 0, -1}).Normalize()
}

// deriveWorld recomputes the world components from the parent's world state and this node's local state.
func (t *Transform) deriveWorld(parent *Transform) {
	if parent == nil {
		t.worldPosition = t.localPosition
		t.worldRotation = t.localRotation
		t.worldScale = t.localScale
		return
	}
	scaled := common.MulVec3(parent.worldScale, t.localPosition)
	t.worldPosition = parent.worldPosition.Add(parent.worldRotation.Rotate(scaled))
	t.worldRotation = parent.worldRotation.Mul(t.localRotation).Normalize()
	t.worldScale = common.MulVec3(parent.worldScale, t.localScale)
}

// deriveLocal recomputes the local components from this node's world state and the parent's world state.
func (t *Transform) deriveLocal(parent *Transform) {
	if parent == nil {
		t.localPosition = t.worldPosition
		t.localRotation = t.worldRotation
		t.localScale = t.worldScale
		return
	}
	inv := parent.worldRotation.Inverse()
	delta := inv.Rotate(t.worldPosition.Sub(parent.worldPosition))
	t.localPosition = common.DivVec3(delta, parent.worldScale)
	t.localRotation = inv.Mul(t.worldRotation).Normalize()
	t.localScale = common.DivVec3(t.worldScale, parent.worldScale)
}

func (t *Transform) removeChild(child donburi.Entity) bool {
	for i, c := range t.children {
		if c == child {
			t.children = append(t.children[:i], t.children[i+1:]...)
			return true
		}
	}
	return false
}
