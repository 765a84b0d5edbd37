package gpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// texture owns a wgpu texture plus the views passes need: one 2D view per layer for attachments,
// and binding views created on first use.
type texture struct {
	desc   device.TextureDescriptor
	format wgpu.TextureFormat
	owner  *gpuDevice

	tex        *wgpu.Texture
	layerViews []*wgpu.TextureView
	arrayView  *wgpu.TextureView

	released bool
}

var _ device.Texture = &texture{}

func (d *gpuDevice) newTexture(desc device.TextureDescriptor) (*texture, error) {
	desc = desc.Normalized()
	format, err := textureFormat(desc.Format)
	if err != nil {
		return nil, err
	}
	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	if desc.Samples == 1 {
		usage |= wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst
	}
	tex, err := d.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: uint32(desc.Layers),
		},
		MipLevelCount: 1,
		SampleCount:   uint32(desc.Samples),
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create texture %q: %w", desc.Label, err)
	}
	t := &texture{desc: desc, format: format, owner: d, tex: tex}
	for layer := range desc.Layers {
		view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("%s_layer_%d", desc.Label, layer),
			Format:          format,
			Dimension:       wgpu.TextureViewDimension2D,
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(layer),
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			t.destroy()
			return nil, fmt.Errorf("gpu: create view of %q: %w", desc.Label, err)
		}
		t.layerViews = append(t.layerViews, view)
	}
	return t, nil
}

// view returns the view a binding of kind reads.
func (t *texture) view(kind device.BindingKind) (*wgpu.TextureView, error) {
	if kind != device.BindingTextureArray && kind != device.BindingDepthArray {
		return t.layerViews[0], nil
	}
	if t.arrayView == nil {
		view, err := t.tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           t.desc.Label + "_array",
			Format:          t.format,
			Dimension:       wgpu.TextureViewDimension2DArray,
			MipLevelCount:   1,
			ArrayLayerCount: uint32(t.desc.Layers),
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			return nil, fmt.Errorf("gpu: create array view of %q: %w", t.desc.Label, err)
		}
		t.arrayView = view
	}
	return t.arrayView, nil
}

func (t *texture) layerView(layer int) (*wgpu.TextureView, error) {
	if layer < 0 || layer >= len(t.layerViews) {
		return nil, fmt.Errorf("gpu: %q has no layer %d", t.desc.Label, layer)
	}
	return t.layerViews[layer], nil
}

func (t *texture) Label() string                { return t.desc.Label }
func (t *texture) Width() int                   { return t.desc.Width }
func (t *texture) Height() int                  { return t.desc.Height }
func (t *texture) Layers() int                  { return t.desc.Layers }
func (t *texture) Cube() bool                   { return t.desc.Cube }
func (t *texture) Format() device.TextureFormat { return t.desc.Format }
func (t *texture) Samples() int                 { return t.desc.Samples }

func (t *texture) Release() {
	if t.released {
		return
	}
	t.owner.forget(t)
	t.destroy()
}

func (t *texture) destroy() {
	t.released = true
	for _, v := range t.layerViews {
		v.Release()
	}
	t.layerViews = nil
	if t.arrayView != nil {
		t.arrayView.Release()
		t.arrayView = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

func unwrap(t device.Texture) (*texture, error) {
	gt, ok := t.(*texture)
	if !ok || gt == nil {
		return nil, fmt.Errorf("gpu: texture %T was not created by this device", t)
	}
	if gt.released {
		return nil, fmt.Errorf("gpu: texture %q used after release", gt.desc.Label)
	}
	return gt, nil
}

type mesh struct {
	label    string
	vertices *wgpu.Buffer
	indices  *wgpu.Buffer
	vcount   int
	icount   int
}

var _ device.Mesh = &mesh{}

func (m *mesh) Label() string    { return m.label }
func (m *mesh) VertexCount() int { return m.vcount }
func (m *mesh) IndexCount() int  { return m.icount }

func (m *mesh) Release() {
	if m.vertices != nil {
		m.vertices.Release()
		m.vertices = nil
	}
	if m.indices != nil {
		m.indices.Release()
		m.indices = nil
	}
}
