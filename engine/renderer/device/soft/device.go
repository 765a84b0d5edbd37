package soft

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
)

// Stats counts the work submitted to the device since creation.
type Stats struct {
	Frames      int
	Passes      int
	Draws       int
	Fullscreens int
	Resolves    int
	Textures    int
}

// SoftDevice is a CPU rasterizer implementing device.Device. Every program must implement Shader.
// It evaluates coverage at texel centers only, so all samples of a multisampled texel are equal.
type SoftDevice interface {
	device.Device

	// Stats returns the submission counters.
	Stats() Stats

	// PassLog returns the labels of every pass begun in the last completed frame, in order.
	PassLog() []string

	// Presented returns the texture handed to the last Present call.
	Presented() device.Texture

	// LiveTextures returns the number of textures created and not yet released.
	LiveTextures() int
}

type softDevice struct {
	name      string
	pipelines map[string]device.Pipeline
	textures  map[*texture]struct{}

	inFrame   bool
	passLog   []string
	lastLog   []string
	presented device.Texture
	stats     Stats
}

var _ SoftDevice = &softDevice{}

// NewDevice creates a software device.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - SoftDevice: the device
func NewDevice(options ...DeviceBuilderOption) SoftDevice {
	d := &softDevice{
		name:      "soft",
		pipelines: make(map[string]device.Pipeline),
		textures:  make(map[*texture]struct{}),
	}
	for _, option := range options {
		option(d)
	}
	common.Logger().Info("device created", "backend", d.name)
	return d
}

func (d *softDevice) Name() string {
	return d.name
}

func (d *softDevice) Stats() Stats {
	return d.stats
}

func (d *softDevice) PassLog() []string {
	return append([]string(nil), d.lastLog...)
}

func (d *softDevice) Presented() device.Texture {
	return d.presented
}

func (d *softDevice) LiveTextures() int {
	return len(d.textures)
}

func (d *softDevice) CreateTexture(desc device.TextureDescriptor) (device.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("create texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	t := newTexture(desc)
	d.textures[t] = struct{}{}
	d.stats.Textures++
	return &trackedTexture{texture: t, owner: d}, nil
}

// trackedTexture removes itself from the live set when released.
type trackedTexture struct {
	*texture
	owner *softDevice
}

func (t *trackedTexture) Release() {
	delete(t.owner.textures, t.texture)
	t.texture.Release()
}

func unwrap(t device.Texture) (*texture, error) {
	switch v := t.(type) {
	case *trackedTexture:
		if v.released {
			return nil, fmt.Errorf("texture %q used after release", v.desc.Label)
		}
		return v.texture, nil
	case *texture:
		return v, nil
	case nil:
		return nil, fmt.Errorf("nil texture")
	default:
		return nil, fmt.Errorf("texture %q was not created by the soft device", t.Label())
	}
}

func (d *softDevice) WriteTexture(tex device.Texture, layer int, data []byte) error {
	t, err := unwrap(tex)
	if err != nil {
		return err
	}
	bpt := t.desc.Format.BytesPerTexel()
	if want := t.desc.Width * t.desc.Height * bpt; len(data) != want {
		return fmt.Errorf("write texture %q: got %d bytes, want %d: %w", t.desc.Label, len(data), want, device.ErrFormatMismatch)
	}
	if layer < 0 || layer >= t.desc.Layers {
		return fmt.Errorf("write texture %q layer %d: %w", t.desc.Label, layer, device.ErrOutOfBounds)
	}
	for y := 0; y < t.desc.Height; y++ {
		for x := 0; x < t.desc.Width; x++ {
			off := (y*t.desc.Width + x) * bpt
			c, u := decode(t.desc.Format, data[off:off+bpt])
			for s := 0; s < t.desc.Samples; s++ {
				if t.u != nil {
					t.setUint(layer, x, y, s, u)
				} else {
					t.setColor(layer, x, y, s, c)
				}
			}
		}
	}
	return nil
}

func (d *softDevice) CreateMesh(label string, data device.MeshData) (device.Mesh, error) {
	for _, i := range data.Indices {
		if int(i) >= len(data.Vertices) {
			return nil, fmt.Errorf("create mesh %q: index %d out of range", label, i)
		}
	}
	return &mesh{label: label, data: data}, nil
}

func (d *softDevice) RegisterPipeline(p device.Pipeline) error {
	if _, ok := p.Program().(Shader); !ok {
		return fmt.Errorf("register pipeline %q: program %q has no CPU implementation", p.Key(), p.Program().Key())
	}
	d.pipelines[p.Key()] = p
	return nil
}

func (d *softDevice) HasPipeline(key string) bool {
	_, ok := d.pipelines[key]
	return ok
}

func (d *softDevice) BeginFrame() error {
	if d.inFrame {
		return device.ErrFrameInProgress
	}
	d.inFrame = true
	d.passLog = d.passLog[:0]
	return nil
}

func (d *softDevice) BeginPass(desc device.PassDescriptor) (device.Pass, error) {
	if !d.inFrame {
		return nil, device.ErrNoFrame
	}
	p := &pass{device: d, label: desc.Label, bindings: newBindings()}
	width, height, samples := -1, -1, -1
	check := func(t *texture) error {
		if width < 0 {
			width, height, samples = t.desc.Width, t.desc.Height, t.desc.Samples
			return nil
		}
		if t.desc.Width != width || t.desc.Height != height || t.desc.Samples != samples {
			return fmt.Errorf("pass %q: attachment %q is %dx%dx%d, want %dx%dx%d: %w",
				desc.Label, t.desc.Label, t.desc.Width, t.desc.Height, t.desc.Samples, width, height, samples, device.ErrFormatMismatch)
		}
		return nil
	}

	for _, a := range desc.Color {
		t, err := unwrap(a.Texture)
		if err != nil {
			return nil, fmt.Errorf("pass %q: %w", desc.Label, err)
		}
		if err := check(t); err != nil {
			return nil, err
		}
		if a.Load == device.LoadOpClear {
			t.fillLayer(a.Layer, a.Clear, a.ClearUint)
		}
		p.colors = append(p.colors, target{tex: t, layer: a.Layer})
	}
	if desc.Depth != nil {
		t, err := unwrap(desc.Depth.Texture)
		if err != nil {
			return nil, fmt.Errorf("pass %q: %w", desc.Label, err)
		}
		if err := check(t); err != nil {
			return nil, err
		}
		if desc.Depth.Load == device.LoadOpClear {
			t.fillLayer(desc.Depth.Layer, [4]float32{desc.Depth.Clear}, 0)
		}
		p.depth = &target{tex: t, layer: desc.Depth.Layer}
	}
	if width < 0 {
		return nil, fmt.Errorf("pass %q has no attachments", desc.Label)
	}
	p.width, p.height, p.samples = width, height, samples

	d.passLog = append(d.passLog, desc.Label)
	d.stats.Passes++
	return p, nil
}

func (d *softDevice) Resolve(srcTex, dstTex device.Texture) error {
	if !d.inFrame {
		return device.ErrNoFrame
	}
	src, err := unwrap(srcTex)
	if err != nil {
		return err
	}
	dst, err := unwrap(dstTex)
	if err != nil {
		return err
	}
	if src.desc.Format != dst.desc.Format || src.desc.Width != dst.desc.Width || src.desc.Height != dst.desc.Height || dst.desc.Samples != 1 {
		return fmt.Errorf("resolve %q into %q: %w", src.desc.Label, dst.desc.Label, device.ErrFormatMismatch)
	}
	for y := 0; y < src.desc.Height; y++ {
		for x := 0; x < src.desc.Width; x++ {
			if src.u != nil {
				dst.setUint(0, x, y, 0, src.u[src.index(0, x, y, 0)])
				continue
			}
			var sum [4]float32
			for s := 0; s < src.desc.Samples; s++ {
				c := src.color(0, x, y, s)
				for i := range sum {
					sum[i] += c[i]
				}
			}
			n := float32(src.desc.Samples)
			dst.setColor(0, x, y, 0, [4]float32{sum[0] / n, sum[1] / n, sum[2] / n, sum[3] / n})
		}
	}
	d.passLog = append(d.passLog, "resolve:"+src.desc.Label)
	d.stats.Resolves++
	return nil
}

func (d *softDevice) Present(tex device.Texture) error {
	if _, err := unwrap(tex); err != nil {
		return err
	}
	d.presented = tex
	return nil
}

func (d *softDevice) EndFrame() error {
	if !d.inFrame {
		return device.ErrNoFrame
	}
	d.inFrame = false
	d.lastLog = append(d.lastLog[:0], d.passLog...)
	d.stats.Frames++
	return nil
}

func (d *softDevice) ReadTexel(tex device.Texture, layer, x, y int) (device.Texel, error) {
	if d.inFrame {
		return device.Texel{}, device.ErrFrameInProgress
	}
	t, err := unwrap(tex)
	if err != nil {
		return device.Texel{}, err
	}
	if x < 0 || y < 0 || x >= t.desc.Width || y >= t.desc.Height || layer < 0 || layer >= t.desc.Layers {
		return device.Texel{}, fmt.Errorf("read %q at (%d, %d): %w", t.desc.Label, x, y, device.ErrOutOfBounds)
	}
	row := t.desc.Height - 1 - y
	if t.u != nil {
		return device.Texel{Uint: t.u[t.index(layer, x, row, 0)]}, nil
	}
	return device.Texel{Color: t.color(layer, x, row, 0)}, nil
}

func (d *softDevice) Release() {
	for t := range d.textures {
		t.Release()
	}
	clear(d.textures)
	clear(d.pipelines)
}
