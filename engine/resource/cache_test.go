package resource

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type texture struct {
	path     string
	released *atomic.Int32
}

func (t *texture) Release() {
	t.released.Add(1)
}

type countingLoader struct {
	calls    atomic.Int32
	released atomic.Int32
	gate     chan struct{}
}

func (l *countingLoader) load(path string) (*texture, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	switch path {
	case "":
		return nil, nil
	case "missing.png":
		return nil, errors.New("file not found")
	}
	return &texture{path: path, released: &l.released}, nil
}

func TestLoadInvokesLoaderOnce(t *testing.T) {
	l := &countingLoader{}
	c := NewCache[texture, string]("textures", l.load)
	id := HashPath("assets/brick.png")

	var handles []Handle[texture]
	for range 5 {
		h, err := c.Load(id, "assets/brick.png")
		require.NoError(t, err)
		handles = append(handles, h)
	}

	assert.Equal(t, int32(1), l.calls.Load())
	for _, h := range handles[1:] {
		assert.True(t, handles[0].Same(h))
		assert.Same(t, handles[0].Get(), h.Get())
	}
	assert.Equal(t, id, handles[0].ID())
	assert.Equal(t, int64(6), handles[0].Refs(), "five callers plus the cache")
}

func TestConcurrentLoadSharesOneInvocation(t *testing.T) {
	l := &countingLoader{gate: make(chan struct{})}
	c := NewCache[texture, string]("textures", l.load)
	id := HashString("shared")

	const callers = 16
	var wg sync.WaitGroup
	results := make([]Handle[texture], callers)
	started := make(chan struct{}, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started <- struct{}{}
			h, err := c.Load(id, "shared.png")
			assert.NoError(t, err)
			results[i] = h
		}(i)
	}
	for range callers {
		<-started
	}
	close(l.gate)
	wg.Wait()

	for _, h := range results {
		assert.Same(t, results[0].Get(), h.Get())
	}
	// Late arrivals hit the cached entry; a caller that raced past the fast path joins the flight.
	assert.Equal(t, int32(1), l.calls.Load())
}

func TestFailedLoadsAreRetried(t *testing.T) {
	l := &countingLoader{}
	c := NewCache[texture, string]("textures", l.load)
	id := HashString("brick")

	h, err := c.Load(id, "")
	assert.ErrorIs(t, err, ErrEmptyResource)
	assert.False(t, h.Valid())
	assert.False(t, c.Contains(id))

	_, err = c.Load(id, "missing.png")
	assert.Error(t, err)
	assert.False(t, c.Contains(id))

	h, err = c.Load(id, "brick.png")
	require.NoError(t, err)
	assert.Equal(t, "brick.png", h.Get().path)
	assert.Equal(t, int32(3), l.calls.Load())
}

func TestGetNeverLoads(t *testing.T) {
	l := &countingLoader{}
	c := NewCache[texture, string]("textures", l.load)

	h := c.Get(HashString("nothing"))
	assert.False(t, h.Valid())
	assert.Nil(t, h.Get())
	assert.Zero(t, l.calls.Load())
}

func TestDiscardKeepsOutstandingHandlesAlive(t *testing.T) {
	l := &countingLoader{}
	c := NewCache[texture, string]("textures", l.load)
	id := HashString("a")

	h, err := c.Load(id, "a.png")
	require.NoError(t, err)
	assert.True(t, c.Discard(id))
	assert.False(t, c.Discard(id))
	assert.False(t, c.Contains(id))

	assert.True(t, h.Valid())
	assert.Equal(t, "a.png", h.Get().path)
	assert.Zero(t, l.released.Load())

	h.Release()
	assert.Equal(t, int32(1), l.released.Load())
	assert.False(t, h.Valid())
}

func TestReloadProducesFreshResource(t *testing.T) {
	l := &countingLoader{}
	c := NewCache[texture, string]("textures", l.load)
	id := HashString("a")

	first, err := c.Load(id, "a.png")
	require.NoError(t, err)
	second, err := c.Reload(id, "a.png")
	require.NoError(t, err)

	assert.False(t, first.Same(second))
	assert.Equal(t, int32(2), l.calls.Load())
	assert.Equal(t, 1, c.Len())

	first.Release()
	assert.Equal(t, int32(1), l.released.Load())
	c.Clear()
	assert.Equal(t, int32(1), l.released.Load(), "second is still held")
	second.Release()
	assert.Equal(t, int32(2), l.released.Load())
}

func TestHashPathCleansPaths(t *testing.T) {
	assert.Equal(t, HashPath("textures/a.png"), HashPath("textures/../textures/./a.png"))
	assert.NotEqual(t, HashPath("textures/a.png"), HashPath("textures/b.png"))
}
