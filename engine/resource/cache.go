package resource

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"golang.org/x/sync/singleflight"
)

// ErrEmptyResource is returned when a loader reports success but produces no resource.
var ErrEmptyResource = errors.New("resource: loader produced an empty resource")

// Loader constructs a resource from its load arguments.
type Loader[T, A any] func(args A) (*T, error)

// Cache maps resource IDs to shared, reference-counted resources.
//
// For any ID at most one load is ever materialized while the entry is cached: concurrent Load
// calls for the same ID share a single loader invocation. Failed or empty loads are never
// memoized, so the next Load retries from scratch.
type Cache[T, A any] interface {
	// Load returns the cached resource for id, invoking the loader with args only if id is not cached.
	// The caller owns the returned handle and must Release it.
	//
	// Parameters:
	//   - id: the resource identifier
	//   - args: loader arguments, ignored when id is already cached
	//
	// Returns:
	//   - Handle[T]: a new reference to the resource
	//   - error: the loader's error, or ErrEmptyResource
	Load(id ID, args A) (Handle[T], error)

	// Get returns a new reference to the cached resource, or an empty handle. It never loads.
	Get(id ID) Handle[T]

	// Contains reports whether id is cached.
	Contains(id ID) bool

	// Discard removes id from the cache. Handles already held by callers keep the resource alive.
	//
	// Returns:
	//   - bool: true if id was cached
	Discard(id ID) bool

	// Reload discards id and loads it again with args. It is not atomic with respect to other callers.
	Reload(id ID, args A) (Handle[T], error)

	// Len returns the number of cached entries.
	Len() int

	// Clear discards every entry.
	Clear()
}

type cache[T, A any] struct {
	name    string
	loader  Loader[T, A]
	mu      *sync.Mutex
	group   *singleflight.Group
	entries map[ID]Handle[T]
}

var _ Cache[int, string] = &cache[int, string]{}

// NewCache creates an empty cache backed by loader.
//
// Parameters:
//   - name: a label used in log messages (e.g. "textures")
//   - loader: constructs a resource from its arguments
//
// Returns:
//   - Cache[T, A]: the cache
func NewCache[T, A any](name string, loader Loader[T, A]) Cache[T, A] {
	return &cache[T, A]{
		name:    name,
		loader:  loader,
		mu:      &sync.Mutex{},
		group:   &singleflight.Group{},
		entries: make(map[ID]Handle[T]),
	}
}

func groupKey(id ID) string {
	return strconv.FormatUint(uint64(id), 16)
}

func (c *cache[T, A]) Load(id ID, args A) (Handle[T], error) {
	if h := c.Get(id); h.Valid() {
		return h, nil
	}

	v, err, _ := c.group.Do(groupKey(id), func() (any, error) {
		c.mu.Lock()
		if h, ok := c.entries[id]; ok {
			c.mu.Unlock()
			return h, nil
		}
		c.mu.Unlock()

		value, err := c.loader(args)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, ErrEmptyResource
		}

		h := NewHandle(id, value)
		c.mu.Lock()
		c.entries[id] = h
		c.mu.Unlock()
		common.Logger().Debug("resource loaded", "cache", c.name, "id", id)
		return h, nil
	})
	if err != nil {
		common.Logger().Warn("resource load failed", "cache", c.name, "id", id, "error", err)
		return Handle[T]{}, fmt.Errorf("load %s resource %x: %w", c.name, uint64(id), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	h := v.(Handle[T])
	if !h.Valid() {
		// Discarded and released between the load and this caller.
		return Handle[T]{}, fmt.Errorf("load %s resource %x: %w", c.name, uint64(id), ErrEmptyResource)
	}
	return h.Clone(), nil
}

func (c *cache[T, A]) Get(id ID) Handle[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.entries[id]
	if !ok {
		return Handle[T]{}
	}
	return h.Clone()
}

func (c *cache[T, A]) Contains(id ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

func (c *cache[T, A]) Discard(id ID) bool {
	c.group.Forget(groupKey(id))
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.entries[id]
	if !ok {
		return false
	}
	delete(c.entries, id)
	h.Release()
	return true
}

func (c *cache[T, A]) Reload(id ID, args A) (Handle[T], error) {
	c.Discard(id)
	return c.Load(id, args)
}

func (c *cache[T, A]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cache[T, A]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, h := range c.entries {
		delete(c.entries, id)
		h.Release()
	}
}
