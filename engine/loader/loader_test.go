package loader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int, c color.RGBA) *fstest.MapFile {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &fstest.MapFile{Data: buf.Bytes()}
}

func newTestLoader(t *testing.T, files fstest.MapFS) (Loader, soft.SoftDevice) {
	t.Helper()
	dev := soft.NewDevice()
	l := NewLoader(dev, WithFS(files), WithWorkers(4))
	t.Cleanup(l.Close)
	return l, dev
}

func TestTextureIsCachedByPath(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	l, dev := newTestLoader(t, fstest.MapFS{"textures/red.png": solidPNG(t, 4, 2, red)})

	a, err := l.Texture("textures/red.png")
	require.NoError(t, err)
	defer a.Release()
	b, err := l.Texture("textures/../textures/red.png")
	require.NoError(t, err)
	defer b.Release()

	assert.True(t, a.Same(b))
	assert.Equal(t, 1, dev.Stats().Textures)
	assert.Equal(t, 1, l.Len())

	tex := a.Get().Texture
	assert.Equal(t, 4, tex.Width())
	assert.Equal(t, 2, tex.Height())
	assert.Equal(t, device.FormatRGBA8Unorm, tex.Format())
	texel, err := dev.ReadTexel(tex, 0, 3, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1, texel.Color[0], 1e-6)
	assert.InDelta(t, 0, texel.Color[1], 1e-6)
}

func TestMissingFileIsReportedAndRetried(t *testing.T) {
	files := fstest.MapFS{}
	l, _ := newTestLoader(t, files)

	_, err := l.Texture("late.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFile)
	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "late.png", fe.Path)
	assert.Zero(t, l.Len())

	files["late.png"] = solidPNG(t, 1, 1, color.RGBA{G: 255, A: 255})
	h, err := l.Texture("late.png")
	require.NoError(t, err)
	h.Release()
}

func TestNonImageFileIsRejected(t *testing.T) {
	l, dev := newTestLoader(t, fstest.MapFS{"notes.txt": {Data: []byte("not an image at all")}})

	_, err := l.Texture("notes.txt")
	assert.ErrorIs(t, err, ErrFile)
	assert.Zero(t, dev.Stats().Textures)
}

func TestTexturesLoadsInParallel(t *testing.T) {
	files := fstest.MapFS{}
	var paths []string
	for i := range 6 {
		name := fmt.Sprintf("t%d.png", i)
		files[name] = solidPNG(t, 2, 2, color.RGBA{R: uint8(i * 40), A: 255})
		paths = append(paths, name, name)
	}
	l, dev := newTestLoader(t, files)

	handles, err := l.Textures(paths...)
	require.NoError(t, err)
	require.Len(t, handles, len(paths))
	for i := 0; i < len(handles); i += 2 {
		assert.True(t, handles[i].Same(handles[i+1]))
	}
	assert.Equal(t, 6, dev.Stats().Textures)
	for _, h := range handles {
		h.Release()
	}
}

func TestTexturesReleasesOnFailure(t *testing.T) {
	l, dev := newTestLoader(t, fstest.MapFS{
		"a.png": solidPNG(t, 1, 1, color.RGBA{A: 255}),
		"b.png": solidPNG(t, 1, 1, color.RGBA{A: 255}),
	})

	handles, err := l.Textures("a.png", "missing.png", "b.png")
	require.Error(t, err)
	assert.Nil(t, handles)
	var fe *FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "missing.png", fe.Path)

	l.Close()
	assert.Zero(t, dev.LiveTextures())
}

func TestSkyboxResizesMismatchedFaces(t *testing.T) {
	files := fstest.MapFS{}
	var faces [6]string
	for i := range faces {
		faces[i] = fmt.Sprintf("sky/%d.png", i)
		size := 4
		if i == 3 {
			size = 8
		}
		files[faces[i]] = solidPNG(t, size, size, color.RGBA{B: uint8(40 * i), A: 255})
	}
	l, dev := newTestLoader(t, files)

	h, err := l.Skybox(faces)
	require.NoError(t, err)
	defer h.Release()

	tex := h.Get().Texture
	assert.True(t, tex.Cube())
	assert.Equal(t, 6, tex.Layers())
	assert.Equal(t, 4, tex.Width())
	texel, err := dev.ReadTexel(tex, 3, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 120.0/255, texel.Color[2], 0.01)

	again, err := l.Skybox(faces)
	require.NoError(t, err)
	defer again.Release()
	assert.True(t, h.Same(again))
}

func TestSkyboxFailsWhenAFaceIsMissing(t *testing.T) {
	l, dev := newTestLoader(t, fstest.MapFS{"only.png": solidPNG(t, 2, 2, color.RGBA{A: 255})})

	_, err := l.Skybox([6]string{"only.png", "only.png", "only.png", "only.png", "only.png", "gone.png"})
	assert.ErrorIs(t, err, ErrFile)
	assert.Zero(t, dev.Stats().Textures)
}

func TestCloseReleasesCachedTextures(t *testing.T) {
	dev := soft.NewDevice()
	l := NewLoader(dev, WithFS(fstest.MapFS{"a.png": solidPNG(t, 1, 1, color.RGBA{A: 255})}))

	h, err := l.Texture("a.png")
	require.NoError(t, err)
	assert.True(t, l.Discard("a.png"))
	assert.Equal(t, 1, dev.LiveTextures())

	h.Release()
	assert.Zero(t, dev.LiveTextures())
	l.Close()
}
