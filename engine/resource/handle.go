package resource

import (
	"sync/atomic"
)

// Releaser is implemented by resources that hold external state (GPU textures, buffers) which
// must be freed when the last reference goes away.
type Releaser interface {
	Release()
}

type cell[T any] struct {
	value *T
	id    ID
	refs  atomic.Int64
}

// Handle is a reference-counted pointer to a cached resource, tagged with the ID it was inserted
// under. The zero value is an empty handle.
//
// Every handle obtained from a Cache or from Clone owns one reference and must be released exactly
// once. When the last reference is released the resource's Release method runs, if it has one.
type Handle[T any] struct {
	c *cell[T]
}

// NewHandle wraps a resource that no cache owns, such as generated geometry. The returned handle
// holds the only reference.
func NewHandle[T any](id ID, value *T) Handle[T] {
	c := &cell[T]{value: value, id: id}
	c.refs.Store(1)
	return Handle[T]{c: c}
}

// Valid reports whether the handle points at a resource.
func (h Handle[T]) Valid() bool {
	return h.c != nil && h.c.refs.Load() > 0
}

// Get returns the resource, or nil for an empty handle.
func (h Handle[T]) Get() *T {
	if !h.Valid() {
		return nil
	}
	return h.c.value
}

// ID returns the identifier the resource was cached under, or 0 for an empty handle.
func (h Handle[T]) ID() ID {
	if h.c == nil {
		return 0
	}
	return h.c.id
}

// Refs returns the number of outstanding references, including the cache's own.
func (h Handle[T]) Refs() int64 {
	if h.c == nil {
		return 0
	}
	return h.c.refs.Load()
}

// Clone returns a new reference to the same resource. Cloning an empty handle yields an empty handle.
func (h Handle[T]) Clone() Handle[T] {
	if !h.Valid() {
		return Handle[T]{}
	}
	h.c.refs.Add(1)
	return h
}

// Release drops this reference. The resource is freed when the count reaches zero.
func (h Handle[T]) Release() {
	if h.c == nil {
		return
	}
	if h.c.refs.Add(-1) == 0 {
		if r, ok := any(h.c.value).(Releaser); ok {
			r.Release()
		}
	}
}

// Same reports whether two handles point at the same resource.
func (h Handle[T]) Same(other Handle[T]) bool {
	return h.c != nil && h.c == other.c
}
