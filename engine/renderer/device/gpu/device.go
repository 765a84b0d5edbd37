// Package gpu implements device.Device on WebGPU.
package gpu

import (
	"fmt"
	"maps"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how presented frames are delivered to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank, capping the frame rate to the monitor's
	// refresh rate.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents immediately. May tear.
	PresentModeUncapped
)

func (m PresentMode) wgpu() wgpu.PresentMode {
	if m == PresentModeVSync {
		return wgpu.PresentModeFifo
	}
	return wgpu.PresentModeImmediate
}

// Stats counts the work submitted since the device was created.
type Stats struct {
	Frames int
	Passes int
	Draws  int
}

// GPUDevice is a WebGPU device. Without a surface it renders offscreen and Present does nothing.
type GPUDevice interface {
	device.Device

	// ConfigureSurface sizes the presentation surface. It must be called before the first Present
	// and whenever the window is resized.
	//
	// Parameters:
	//   - width, height: the surface size in pixels
	//
	// Returns:
	//   - error: an error if the device has no surface or the surface reports no formats
	ConfigureSurface(width, height int) error

	// SetPresentMode changes the present mode, taking effect at the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// Stats returns the submission counters.
	Stats() Stats
}

type gpuDevice struct {
	mu *sync.Mutex

	name          string
	forceFallback bool
	validate      bool
	presentMode   PresentMode

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	dev      *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	surfaceWidth  int
	surfaceHeight int

	pipelines map[string]*pipelineState
	textures  map[*texture]struct{}
	uniforms  *uniformPool

	// Frame state.
	encoder      *wgpu.CommandEncoder
	groups       []*wgpu.BindGroup
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	stats Stats
}

var _ GPUDevice = &gpuDevice{}

// NewDevice requests an adapter and device compatible with surface. A nil surface descriptor creates
// an offscreen device.
//
// Parameters:
//   - surface: the window surface descriptor, or nil
//   - options: functional options
//
// Returns:
//   - GPUDevice: the device
//   - error: an error if no adapter or device could be acquired
func NewDevice(surface *wgpu.SurfaceDescriptor, options ...DeviceBuilderOption) (GPUDevice, error) {
	runtime.LockOSThread()
	d := &gpuDevice{
		mu:          &sync.Mutex{},
		name:        "wgpu",
		validate:    true,
		presentMode: PresentModeUncapped,
		pipelines:   make(map[string]*pipelineState),
		textures:    make(map[*texture]struct{}),
		uniforms:    newUniformPool(),
	}
	for _, option := range options {
		option(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	if surface != nil {
		d.surface = d.instance.CreateSurface(surface)
	}
	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("gpu: request adapter: %w", err)
	}
	d.adapter = adapter

	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          d.name,
		RequiredLimits: &wgpu.RequiredLimits{Limits: wgpu.DefaultLimits()},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("gpu: request device: %w", err)
	}
	d.dev = dev
	d.queue = dev.GetQueue()

	if err := d.registerInternal(resolveUintPipeline()); err != nil {
		d.Release()
		return nil, err
	}
	common.Logger().Info("device created", "backend", d.name, "surface", d.surface != nil)
	return d, nil
}

func (d *gpuDevice) Name() string {
	return d.name
}

func (d *gpuDevice) Stats() Stats {
	return d.stats
}

func (d *gpuDevice) SetPresentMode(mode PresentMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentMode = mode
}

func (d *gpuDevice) ConfigureSurface(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface == nil {
		return fmt.Errorf("gpu: device has no surface")
	}
	if width <= 0 || height <= 0 {
		return nil
	}
	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 {
		return fmt.Errorf("gpu: surface reports no formats")
	}
	format := pickSurfaceFormat(capabilities.Formats)
	d.surface.Configure(d.adapter, d.dev, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode.wgpu(),
		AlphaMode:   capabilities.AlphaModes[0],
	})
	d.surfaceWidth, d.surfaceHeight = width, height
	if format != d.surfaceFormat || d.pipelines[keyPresent] == nil {
		d.surfaceFormat = format
		if err := d.registerInternal(presentPipeline()); err != nil {
			return err
		}
	}
	common.Logger().Debug("surface configured", "width", width, "height", height, "format", format)
	return nil
}

// pickSurfaceFormat prefers a linear 8-bit format, since the final texture is already gamma encoded.
func pickSurfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			return f
		}
	}
	return formats[0]
}

func (d *gpuDevice) CreateTexture(desc device.TextureDescriptor) (device.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("gpu: create texture %q: invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	t, err := d.newTexture(desc)
	if err != nil {
		return nil, err
	}
	d.textures[t] = struct{}{}
	return t, nil
}

func (d *gpuDevice) forget(t *texture) {
	delete(d.textures, t)
}

func (d *gpuDevice) WriteTexture(tex device.Texture, layer int, data []byte) error {
	t, err := unwrap(tex)
	if err != nil {
		return err
	}
	if t.desc.Samples != 1 {
		return fmt.Errorf("gpu: write %q: multisampled: %w", t.desc.Label, device.ErrFormatMismatch)
	}
	if layer < 0 || layer >= t.desc.Layers {
		return fmt.Errorf("gpu: write %q: no layer %d", t.desc.Label, layer)
	}
	row := t.desc.Width * t.desc.Format.BytesPerTexel()
	if len(data) != row*t.desc.Height {
		return fmt.Errorf("gpu: write %q: %d bytes, want %d: %w", t.desc.Label, len(data), row*t.desc.Height, device.ErrFormatMismatch)
	}
	if t.desc.Format.IsDepth() {
		value, ok := uniformDepth(data)
		if !ok {
			return fmt.Errorf("gpu: write %q: depth textures take a single repeated value: %w", t.desc.Label, device.ErrFormatMismatch)
		}
		return d.clearDepth(t, layer, value)
	}
	return d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{Z: uint32(layer)},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			BytesPerRow:  uint32(row),
			RowsPerImage: uint32(t.desc.Height),
		},
		&wgpu.Extent3D{
			Width:              uint32(t.desc.Width),
			Height:             uint32(t.desc.Height),
			DepthOrArrayLayers: 1,
		},
	)
}

func (d *gpuDevice) CreateMesh(label string, data device.MeshData) (device.Mesh, error) {
	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return nil, fmt.Errorf("gpu: mesh %q is empty", label)
	}
	m := &mesh{label: label, vcount: len(data.Vertices), icount: len(data.Indices)}
	upload := func(suffix string, usage wgpu.BufferUsage, bytes []byte) (*wgpu.Buffer, error) {
		buf, err := d.dev.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label + suffix,
			Size:  uint64(len(bytes)),
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		if err := d.queue.WriteBuffer(buf, 0, bytes); err != nil {
			buf.Release()
			return nil, err
		}
		return buf, nil
	}
	var err error
	if m.vertices, err = upload(" Vertex Buffer", wgpu.BufferUsageVertex, data.VertexBytes()); err != nil {
		return nil, fmt.Errorf("gpu: mesh %q: %w", label, err)
	}
	if m.indices, err = upload(" Index Buffer", wgpu.BufferUsageIndex, data.IndexBytes()); err != nil {
		m.Release()
		return nil, fmt.Errorf("gpu: mesh %q: %w", label, err)
	}
	return m, nil
}

func (d *gpuDevice) RegisterPipeline(p device.Pipeline) error {
	s, err := d.compile(p)
	if err != nil {
		return err
	}
	if old := d.pipelines[p.Key()]; old != nil {
		old.release()
	}
	d.pipelines[p.Key()] = s
	return nil
}

func (d *gpuDevice) registerInternal(p device.Pipeline) error {
	validate := d.validate
	d.validate = false
	defer func() { d.validate = validate }()
	return d.RegisterPipeline(p)
}

func (d *gpuDevice) HasPipeline(key string) bool {
	_, ok := d.pipelines[key]
	return ok
}

func (d *gpuDevice) BeginFrame() error {
	if d.encoder != nil {
		return device.ErrFrameInProgress
	}
	encoder, err := d.dev.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: begin frame: %w", err)
	}
	d.encoder = encoder
	return nil
}

func (d *gpuDevice) BeginPass(desc device.PassDescriptor) (device.Pass, error) {
	if d.encoder == nil {
		return nil, device.ErrNoFrame
	}
	p, err := d.beginPass(desc)
	if err != nil {
		return nil, err
	}
	d.stats.Passes++
	return p, nil
}

func (d *gpuDevice) Resolve(src, dst device.Texture) error {
	if d.encoder == nil {
		return device.ErrNoFrame
	}
	s, err := unwrap(src)
	if err != nil {
		return err
	}
	t, err := unwrap(dst)
	if err != nil {
		return err
	}
	if s.desc.Samples < 2 || t.desc.Samples != 1 || s.desc.Format != t.desc.Format ||
		s.desc.Width != t.desc.Width || s.desc.Height != t.desc.Height || s.desc.Format.IsDepth() {
		return fmt.Errorf("gpu: resolve %q into %q: %w", s.desc.Label, t.desc.Label, device.ErrFormatMismatch)
	}

	label := "resolve:" + s.desc.Label
	if s.desc.Format.IsUint() {
		p, err := d.BeginPass(device.PassDescriptor{
			Label: label,
			Color: []device.ColorAttachment{{Texture: dst, Load: device.LoadOpClear}},
		})
		if err != nil {
			return err
		}
		if err := p.SetPipeline(keyResolveUint); err != nil {
			_ = p.End()
			return err
		}
		p.SetTexture(0, src)
		if err := p.DrawFullscreen(); err != nil {
			_ = p.End()
			return err
		}
		return p.End()
	}

	// An empty pass whose resolve target is dst.
	pass := d.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:          s.layerViews[0],
			ResolveTarget: t.layerViews[0],
			LoadOp:        wgpu.LoadOpLoad,
			StoreOp:       wgpu.StoreOpStore,
		}},
	})
	err = pass.End()
	pass.Release()
	d.stats.Passes++
	return err
}

func (d *gpuDevice) Present(tex device.Texture) error {
	if d.encoder == nil {
		return device.ErrNoFrame
	}
	if d.surface == nil || d.surfaceWidth == 0 {
		return nil
	}
	if d.frameSurface != nil {
		return fmt.Errorf("gpu: frame already presented")
	}
	src, err := unwrap(tex)
	if err != nil {
		return err
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("gpu: acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("gpu: surface view: %w", err)
	}
	d.frameSurface, d.frameView = surfaceTexture, view

	pass := d.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "present",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	defer pass.Release()
	state := d.pipelines[keyPresent]
	binds := bindings{}
	binds.reset(state.pipeline.Program().Layout())
	binds.textures[0] = src
	group, err := binds.group(d.dev, state.bgl, "present")
	if err != nil {
		_ = pass.End()
		return err
	}
	d.groups = append(d.groups, group)
	pass.SetPipeline(state.render)
	pass.SetBindGroup(0, group, nil)
	pass.Draw(3, 1, 0, 0)
	d.stats.Passes++
	return pass.End()
}

func (d *gpuDevice) EndFrame() error {
	if d.encoder == nil {
		return device.ErrNoFrame
	}
	defer d.endFrame()

	commandBuffer, err := d.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("gpu: finish frame: %w", err)
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	if d.frameSurface != nil {
		d.surface.Present()
	}
	d.stats.Frames++
	return nil
}

// endFrame releases the per-frame resources whether or not the frame was submitted.
func (d *gpuDevice) endFrame() {
	d.encoder.Release()
	d.encoder = nil
	for _, g := range d.groups {
		g.Release()
	}
	d.groups = d.groups[:0]
	d.uniforms.recycle()
	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	if d.frameSurface != nil {
		d.frameSurface.Release()
		d.frameSurface = nil
	}
}

func (d *gpuDevice) Release() {
	if d.encoder != nil {
		d.endFrame()
	}
	for _, t := range slices.Collect(maps.Keys(d.textures)) {
		t.Release()
	}
	for key, s := range d.pipelines {
		s.release()
		delete(d.pipelines, key)
	}
	d.uniforms.release()
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.dev != nil {
		d.dev.Release()
		d.dev = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
