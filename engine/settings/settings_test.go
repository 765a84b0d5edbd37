package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingFileLoadsDefaults(t *testing.T) {
	s, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestDecodeKeepsDefaultsForMissingKeys(t *testing.T) {
	s, err := Decode([]byte("[ssao]\nradius = 1.5\npower = 3\n\n[renderer]\nmsaa = 1\n"))
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), s.SSAO.Radius)
	assert.Equal(t, 3, s.SSAO.Power)
	assert.Equal(t, 1, s.Renderer.MSAA)
	assert.True(t, s.SSAO.State)
	assert.Equal(t, Defaults().Bloom, s.Bloom)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := Decode([]byte("[ssao\nradius = "))
	assert.Error(t, err)
}

func TestNormalizedReplacesInvalidValues(t *testing.T) {
	s := Defaults()
	s.SSAO.Power = 0
	s.SSAO.KernelSize = 500
	s.Renderer.MSAA = 3
	s.Shadow.CascadePlanes = []float32{10, 5, 20}
	s.Tonemap.Gamma = -1

	n := s.Normalized()
	d := Defaults()
	assert.Equal(t, d.SSAO.Power, n.SSAO.Power)
	assert.Equal(t, d.SSAO.KernelSize, n.SSAO.KernelSize)
	assert.Equal(t, d.Renderer.MSAA, n.Renderer.MSAA)
	assert.Equal(t, d.Shadow.CascadePlanes, n.Shadow.CascadePlanes)
	assert.Equal(t, d.Tonemap.Gamma, n.Tonemap.Gamma)
	// The receiver is untouched.
	assert.Equal(t, []float32{10, 5, 20}, s.Shadow.CascadePlanes)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy.toml")
	st := NewStore(WithPath(path))
	st.Update(func(s *Settings) {
		s.Bloom.State = false
		s.Shadow.CascadePlanes = []float32{1, 100, 500, 1000}
	})
	require.NoError(t, st.Save())

	other := NewStore(WithPath(path))
	require.NoError(t, other.Load())
	assert.Equal(t, st.Get(), other.Get())
}

func TestKeyedAccess(t *testing.T) {
	st := NewStore()
	assert.True(t, st.Bool("ssao.state"))
	assert.Equal(t, float32(0.5), st.Float("ssao.radius"))
	assert.Equal(t, 2, st.Int("ssao.power"))
	assert.Equal(t, []float32{10, 50, 200, 1000}, st.Floats("shadow.cascade_planes"))
	assert.Equal(t, float32(0), st.Float("nope.radius"))

	require.NoError(t, st.SetValue("ssao.state", false))
	require.NoError(t, st.SetValue("ssao.radius", 2.0))
	require.NoError(t, st.SetValue("shadow.cascade_planes", []float32{1, 2}))
	assert.False(t, st.Get().SSAO.State)
	assert.Equal(t, float32(2), st.Get().SSAO.Radius)
	assert.Equal(t, []float32{1, 2}, st.Get().Shadow.CascadePlanes)

	assert.ErrorContains(t, st.SetValue("ssao.colour", 1), "unknown key")
	assert.Error(t, st.SetValue("ssao.state", "yes"))
}

func TestGetReturnsCopies(t *testing.T) {
	st := NewStore()
	s := st.Get()
	s.Shadow.CascadePlanes[0] = 99
	assert.Equal(t, float32(10), st.Get().Shadow.CascadePlanes[0])
}

func TestWatchStagesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy.toml")
	require.NoError(t, SaveFile(path, Defaults()))
	st := NewStore(WithPath(path))
	require.NoError(t, st.Load())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan Settings, 4)
	require.NoError(t, st.Watch(ctx, func(s Settings) { changed <- s }))

	_, ok := st.Poll()
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("[tonemap]\nexposure = 2.5\n"), 0o644))
	// Truncation and the write may arrive as separate events.
	deadline := time.After(5 * time.Second)
	for seen := false; !seen; {
		select {
		case s := <-changed:
			seen = s.Tonemap.Exposure == 2.5
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}

	polled, ok := st.Poll()
	require.True(t, ok)
	assert.Equal(t, float32(2.5), polled.Tonemap.Exposure)
	_, ok = st.Poll()
	assert.False(t, ok)
}

func TestWatchRequiresPath(t *testing.T) {
	assert.Error(t, NewStore().Watch(context.Background(), nil))
}
