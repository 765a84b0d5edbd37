package loader

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/resource"
	"github.com/anthonynsimon/bild/transform"
)

// Loader decodes image files into device textures and caches them by path.
// Every returned handle must be released by the caller. The cache keeps its own reference
// until the entry is discarded or the Loader is closed.
//
// Uploads are serialized with each other but not with rendering, so load between frames.
type Loader interface {
	// Texture loads an RGBA8 texture from path, or returns the cached one.
	//
	// Parameters:
	//   - path: the image file
	//
	// Returns:
	//   - resource.Handle[material.Texture]: a new reference to the texture
	//   - error: a *FileError matching ErrFile if the file cannot be read or decoded
	Texture(path string) (resource.Handle[material.Texture], error)

	// Textures loads several textures, decoding them in parallel.
	// On failure every texture loaded by the call is released again.
	//
	// Parameters:
	//   - paths: the image files
	//
	// Returns:
	//   - []resource.Handle[material.Texture]: one handle per path, in order
	//   - error: the joined errors of every path that failed
	Textures(paths ...string) ([]resource.Handle[material.Texture], error)

	// Skybox loads a cube texture from six faces ordered +X, -X, +Y, -Y, +Z, -Z.
	// Faces whose size differs from the first are resized to match it.
	//
	// Parameters:
	//   - faces: the face image files
	//
	// Returns:
	//   - resource.Handle[material.Texture]: a new reference to the cube texture
	//   - error: the joined errors of every face that failed
	Skybox(faces [6]string) (resource.Handle[material.Texture], error)

	// Discard drops the cache entry of a texture path. Outstanding handles stay valid.
	Discard(path string) bool

	// Len returns the number of cached textures and skyboxes.
	Len() int

	// Close drops every cache entry and stops the decode workers. Calling it again does nothing.
	Close()
}

type loader struct {
	dev  device.Device
	fsys fs.FS

	// upload serializes device calls, which must not run concurrently.
	upload *sync.Mutex

	workers int
	pool    worker.DynamicWorkerPool
	closing sync.Once

	textures resource.Cache[material.Texture, string]
	skyboxes resource.Cache[material.Texture, [6]string]
}

var _ Loader = &loader{}

// NewLoader creates a Loader that uploads into dev.
//
// Parameters:
//   - dev: the device textures are created on
//   - options: optional configuration
//
// Returns:
//   - Loader: the new loader
func NewLoader(dev device.Device, options ...LoaderBuilderOption) Loader {
	l := &loader{
		dev:     dev,
		upload:  &sync.Mutex{},
		workers: max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(l)
	}
	l.pool = worker.NewDynamicWorkerPool(l.workers, 256, 1*time.Second)
	l.textures = resource.NewCache("textures", l.loadTexture)
	l.skyboxes = resource.NewCache("skyboxes", l.loadSkybox)
	return l
}

func (l *loader) Texture(path string) (resource.Handle[material.Texture], error) {
	return l.textures.Load(resource.HashPath(path), path)
}

func (l *loader) Textures(paths ...string) ([]resource.Handle[material.Texture], error) {
	handles := make([]resource.Handle[material.Texture], len(paths))
	err := l.parallel(len(paths), func(i int) error {
		h, err := l.Texture(paths[i])
		handles[i] = h
		return err
	})
	if err != nil {
		for _, h := range handles {
			h.Release()
		}
		return nil, err
	}
	return handles, nil
}

func (l *loader) Skybox(faces [6]string) (resource.Handle[material.Texture], error) {
	return l.skyboxes.Load(skyboxID(faces), faces)
}

func (l *loader) Discard(path string) bool {
	return l.textures.Discard(resource.HashPath(path))
}

func (l *loader) Len() int {
	return l.textures.Len() + l.skyboxes.Len()
}

func (l *loader) Close() {
	l.closing.Do(func() {
		l.pool.Stop()
		l.textures.Clear()
		l.skyboxes.Clear()
	})
}

func skyboxID(faces [6]string) resource.ID {
	cleaned := make([]string, len(faces))
	for i, f := range faces {
		cleaned[i] = filepath.ToSlash(filepath.Clean(f))
	}
	return resource.HashString("skybox:" + strings.Join(cleaned, "\n"))
}

// parallel runs do for every index on the worker pool and waits for all of them.
func (l *loader) parallel(n int, do func(i int) error) error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		l.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				errs[i] = do(i)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (l *loader) read(path string) ([]byte, error) {
	if l.fsys != nil {
		return fs.ReadFile(l.fsys, filepath.ToSlash(filepath.Clean(path)))
	}
	return os.ReadFile(path)
}

// decode reads and decodes one image file.
func (l *loader) decode(path string) (image.Image, error) {
	data, err := l.read(path)
	if err != nil {
		return nil, fileError(path, err)
	}
	tex := &common.ImportedTexture{Name: path, Path: path, Data: data}
	img, err := tex.Image()
	if err != nil {
		return nil, fileError(path, err)
	}
	common.Logger().Debug("image decoded", "path", path, "mime", tex.MimeType, "width", tex.Width, "height", tex.Height)
	return img, nil
}

func (l *loader) loadTexture(path string) (*material.Texture, error) {
	img, err := l.decode(path)
	if err != nil {
		return nil, err
	}
	staging := common.ImageToStaging(img)

	l.upload.Lock()
	defer l.upload.Unlock()
	tex, err := l.dev.CreateTexture(device.TextureDescriptor{
		Label:  path,
		Width:  int(staging.Width),
		Height: int(staging.Height),
		Format: device.FormatRGBA8Unorm,
	})
	if err != nil {
		return nil, fmt.Errorf("loader: create texture %s: %w", path, err)
	}
	if err := l.dev.WriteTexture(tex, 0, staging.Pixels); err != nil {
		tex.Release()
		return nil, fmt.Errorf("loader: write texture %s: %w", path, err)
	}
	return &material.Texture{Texture: tex}, nil
}

func (l *loader) loadSkybox(faces [6]string) (*material.Texture, error) {
	var images [6]image.Image
	if err := l.parallel(len(faces), func(i int) error {
		img, err := l.decode(faces[i])
		images[i] = img
		return err
	}); err != nil {
		return nil, err
	}

	w, h := images[0].Bounds().Dx(), images[0].Bounds().Dy()
	tex, err := func() (device.Texture, error) {
		l.upload.Lock()
		defer l.upload.Unlock()
		return l.dev.CreateTexture(device.TextureDescriptor{
			Label:  "skybox:" + faces[0],
			Width:  w,
			Height: h,
			Cube:   true,
			Format: device.FormatRGBA8Unorm,
		})
	}()
	if err != nil {
		return nil, fmt.Errorf("loader: create skybox: %w", err)
	}

	for i, img := range images {
		if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
			common.Logger().Warn("skybox face resized", "path", faces[i], "from", b.Size(), "to", image.Pt(w, h))
			img = transform.Resize(img, w, h, transform.Linear)
		}
		staging := common.ImageToStaging(img)
		l.upload.Lock()
		err := l.dev.WriteTexture(tex, i, staging.Pixels)
		l.upload.Unlock()
		if err != nil {
			tex.Release()
			return nil, fmt.Errorf("loader: write skybox face %s: %w", faces[i], err)
		}
	}
	return &material.Texture{Texture: tex}, nil
}
