package transform

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/yohamta/donburi"
)

// Tree is the transform hierarchy of one ECS world.
// Every setter propagates eagerly: when it returns, the world state of every live descendant is
// consistent with the new value. Reparenting is the one exception, see AddChild.
type Tree interface {
	// Attach gives an entity an identity root transform. Attaching twice is a no-op.
	//
	// Parameters:
	//   - e: the entity to attach to
	//
	// Returns:
	//   - error: ErrInvalidNode if the entity is not alive
	Attach(e donburi.Entity) error

	// Detach removes the node from its parent and orphans its children, leaving every relation
	// that pointed at it cleared. Call it before destroying the entity.
	//
	// Parameters:
	//   - e: the node to detach
	//
	// Returns:
	//   - error: ErrInvalidNode if the entity has no transform
	Detach(e donburi.Entity) error

	// Valid reports whether e is alive and carries a transform.
	Valid(e donburi.Entity) bool

	// Get returns a snapshot of the node's transform.
	//
	// Parameters:
	//   - e: the node to read
	//
	// Returns:
	//   - Transform: the current value
	//   - error: ErrInvalidNode if the entity has no transform
	Get(e donburi.Entity) (Transform, error)

	SetLocalPosition(e donburi.Entity, p mgl32.Vec3) error
	SetLocalRotation(e donburi.Entity, r mgl32.Quat) error
	SetLocalScale(e donburi.Entity, s mgl32.Vec3) error
	SetWorldPosition(e donburi.Entity, p mgl32.Vec3) error
	SetWorldRotation(e donburi.Entity, r mgl32.Quat) error
	SetWorldScale(e donburi.Entity, s mgl32.Vec3) error

	// SetLocal replaces all three local components at once and propagates once.
	SetLocal(e donburi.Entity, p mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) error

	// AddChild makes child a child of parent. Only the relation changes: neither node's local or
	// world state is recomputed, so callers follow up with an explicit setter.
	// A null, dead, self or ancestor child is rejected with a warning.
	//
	// Parameters:
	//   - parent: the new parent
	//   - child: the node to adopt
	//
	// Returns:
	//   - bool: true if the relation was created
	AddChild(parent, child donburi.Entity) bool

	// RemoveChild breaks the relation between parent and child without recomputing either node.
	//
	// Returns:
	//   - bool: true if child was a child of parent
	RemoveChild(parent, child donburi.Entity) bool
}

type tree struct {
	world donburi.World
	warn  func(msg string, args ...any)
}

var _ Tree = &tree{}

// NewTree creates a Tree over the given world.
//
// Parameters:
//   - world: the ECS world holding the transform components
//   - options: functional options
//
// Returns:
//   - Tree: the transform hierarchy
func NewTree(world donburi.World, options ...TreeBuilderOption) Tree {
	t := &tree{
		world: world,
		warn: func(msg string, args ...any) {
			common.Logger().Warn(msg, args...)
		},
	}
	for _, option := range options {
		option(t)
	}
	return t
}

func (t *tree) node(e donburi.Entity) *Transform {
	if e == donburi.Null || !t.world.Valid(e) {
		return nil
	}
	entry := t.world.Entry(e)
	if !entry.HasComponent(Component) {
		return nil
	}
	return Component.Get(entry)
}

func (t *tree) Attach(e donburi.Entity) error {
	if e == donburi.Null || !t.world.Valid(e) {
		return ErrInvalidNode
	}
	entry := t.world.Entry(e)
	if entry.HasComponent(Component) {
		return nil
	}
	value := Identity()
	donburi.Add(entry, Component, &value)
	return nil
}

func (t *tree) Detach(e donburi.Entity) error {
	n := t.node(e)
	if n == nil {
		return ErrInvalidNode
	}
	if p := t.node(n.parent); p != nil {
		p.removeChild(e)
	}
	for _, c := range n.children {
		if cn := t.node(c); cn != nil {
			cn.parent = donburi.Null
		}
	}
	n.parent = donburi.Null
	n.children = nil
	return nil
}

func (t *tree) Valid(e donburi.Entity) bool {
	return t.node(e) != nil
}

func (t *tree) Get(e donburi.Entity) (Transform, error) {
	n := t.node(e)
	if n == nil {
		return Transform{}, ErrInvalidNode
	}
	return *n, nil
}

func (t *tree) SetLocalPosition(e donburi.Entity, p mgl32.Vec3) error {
	return t.mutateLocal(e, func(n *Transform) { n.localPosition = p })
}

func (t *tree) SetLocalRotation(e donburi.Entity, r mgl32.Quat) error {
	return t.mutateLocal(e, func(n *Transform) { n.localRotation = r.Normalize() })
}

func (t *tree) SetLocalScale(e donburi.Entity, s mgl32.Vec3) error {
	return t.mutateLocal(e, func(n *Transform) { n.localScale = s })
}

func (t *tree) SetLocal(e donburi.Entity, p mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) error {
	return t.mutateLocal(e, func(n *Transform) {
		n.localPosition = p
		n.localRotation = r.Normalize()
		n.localScale = s
	})
}

func (t *tree) SetWorldPosition(e donburi.Entity, p mgl32.Vec3) error {
	return t.mutateWorld(e, func(n *Transform) { n.worldPosition = p })
}

func (t *tree) SetWorldRotation(e donburi.Entity, r mgl32.Quat) error {
	return t.mutateWorld(e, func(n *Transform) { n.worldRotation = r.Normalize() })
}

func (t *tree) SetWorldScale(e donburi.Entity, s mgl32.Vec3) error {
	return t.mutateWorld(e, func(n *Transform) { n.worldScale = s })
}

func (t *tree) AddChild(parent, child donburi.Entity) bool {
	if child == donburi.Null {
		t.warn("transform: ignoring null child", "parent", parent)
		return false
	}
	if parent == child {
		t.warn("transform: a node cannot be its own child", "entity", child)
		return false
	}
	pn, cn := t.node(parent), t.node(child)
	if pn == nil || cn == nil {
		t.warn("transform: AddChild on a node without a transform", "parent", parent, "child", child)
		return false
	}
	for a := pn.parent; a != donburi.Null; {
		if a == child {
			t.warn("transform: reparenting would create a cycle", "parent", parent, "child", child)
			return false
		}
		an := t.node(a)
		if an == nil {
			break
		}
		a = an.parent
	}
	if cn.parent == parent {
		return true
	}
	if old := t.node(cn.parent); old != nil {
		old.removeChild(child)
	}
	cn.parent = parent
	pn.children = append(pn.children, child)
	return true
}

func (t *tree) RemoveChild(parent, child donburi.Entity) bool {
	pn := t.node(parent)
	if pn == nil || !pn.removeChild(child) {
		return false
	}
	if cn := t.node(child); cn != nil {
		cn.parent = donburi.Null
	}
	return true
}

func (t *tree) mutateLocal(e donburi.Entity, fn func(*Transform)) error {
	n := t.node(e)
	if n == nil {
		return fmt.Errorf("set local transform of %v: %w", e, ErrInvalidNode)
	}
	fn(n)
	n.deriveWorld(t.node(n.parent))
	t.propagate(n)
	return nil
}

func (t *tree) mutateWorld(e donburi.Entity, fn func(*Transform)) error {
	n := t.node(e)
	if n == nil {
		return fmt.Errorf("set world transform of %v: %w", e, ErrInvalidNode)
	}
	fn(n)
	n.deriveLocal(t.node(n.parent))
	t.propagate(n)
	return nil
}

// propagate pushes n's world state to every descendant, pre-order, so each child reads an already
// updated parent.
func (t *tree) propagate(n *Transform) {
	for _, c := range n.children {
		cn := t.node(c)
		if cn == nil {
			continue
		}
		cn.deriveWorld(n)
		t.propagate(cn)
	}
}
