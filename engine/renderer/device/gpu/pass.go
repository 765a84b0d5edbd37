package gpu

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

var errPassEnded = errors.New("gpu: pass already ended")

type pass struct {
	d       *gpuDevice
	label   string
	enc     *wgpu.RenderPassEncoder
	samples int
	colors  int

	state *pipelineState
	binds bindings
	// err holds a failed SetUniforms until the next draw reports it.
	err   error
	ended bool
}

var _ device.Pass = &pass{}

// beginPass validates desc and opens a render pass on the frame encoder.
func (d *gpuDevice) beginPass(desc device.PassDescriptor) (*pass, error) {
	if len(desc.Color) == 0 && desc.Depth == nil {
		return nil, fmt.Errorf("gpu: pass %q has no attachments: %w", desc.Label, device.ErrFormatMismatch)
	}
	width, height, samples := -1, -1, -1
	check := func(t *texture) error {
		if width < 0 {
			width, height, samples = t.desc.Width, t.desc.Height, t.desc.Samples
			return nil
		}
		if t.desc.Width != width || t.desc.Height != height || t.desc.Samples != samples {
			return fmt.Errorf("gpu: pass %q: %q is %dx%d@%d, want %dx%d@%d: %w", desc.Label,
				t.desc.Label, t.desc.Width, t.desc.Height, t.desc.Samples, width, height, samples, device.ErrFormatMismatch)
		}
		return nil
	}

	rp := &wgpu.RenderPassDescriptor{Label: desc.Label}
	for _, c := range desc.Color {
		t, err := unwrap(c.Texture)
		if err != nil {
			return nil, err
		}
		if err := check(t); err != nil {
			return nil, err
		}
		view, err := t.layerView(c.Layer)
		if err != nil {
			return nil, err
		}
		clearValue := clearColor(c.Clear)
		if t.desc.Format.IsUint() {
			clearValue = wgpu.Color{R: float64(c.ClearUint)}
		}
		rp.ColorAttachments = append(rp.ColorAttachments, wgpu.RenderPassColorAttachment{
			View:       view,
			LoadOp:     loadOp(c.Load),
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clearValue,
		})
	}
	if desc.Depth != nil {
		t, err := unwrap(desc.Depth.Texture)
		if err != nil {
			return nil, err
		}
		if !t.desc.Format.IsDepth() {
			return nil, fmt.Errorf("gpu: pass %q: %q is not a depth texture: %w", desc.Label, t.desc.Label, device.ErrFormatMismatch)
		}
		if err := check(t); err != nil {
			return nil, err
		}
		view, err := t.layerView(desc.Depth.Layer)
		if err != nil {
			return nil, err
		}
		rp.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            view,
			DepthLoadOp:     loadOp(desc.Depth.Load),
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: desc.Depth.Clear,
		}
	}

	return &pass{
		d:       d,
		label:   desc.Label,
		enc:     d.encoder.BeginRenderPass(rp),
		samples: samples,
		colors:  len(desc.Color),
	}, nil
}

func (p *pass) SetPipeline(key string) error {
	if p.ended {
		return errPassEnded
	}
	s, ok := p.d.pipelines[key]
	if !ok {
		return fmt.Errorf("gpu: %q: %w", key, device.ErrPipelineNotFound)
	}
	if len(s.pipeline.ColorFormats()) != p.colors || max(s.pipeline.Samples(), 1) != p.samples {
		return fmt.Errorf("gpu: pipeline %q does not match pass %q: %w", key, p.label, device.ErrFormatMismatch)
	}
	p.state = s
	p.binds.reset(s.pipeline.Program().Layout())
	p.err = nil
	p.enc.SetPipeline(s.render)
	return nil
}

func (p *pass) SetUniforms(binding int, u device.Uniforms) {
	if p.state == nil || binding < 0 || binding >= len(p.binds.layout) {
		return
	}
	buf, err := p.d.uniforms.acquire(p.d.dev, p.d.queue, u.Marshal(), p.binds.layout[binding].Size)
	if err != nil {
		p.err = err
		return
	}
	p.binds.buffers[binding] = buf
}

func (p *pass) SetTexture(binding int, t device.Texture) {
	if p.state == nil || binding < 0 || binding >= len(p.binds.layout) {
		return
	}
	if t == nil {
		delete(p.binds.textures, binding)
		return
	}
	gt, err := unwrap(t)
	if err != nil {
		p.err = err
		return
	}
	p.binds.textures[binding] = gt
}

// bind sets bind group 0 from the current bindings.
func (p *pass) bind() error {
	if p.ended {
		return errPassEnded
	}
	if p.state == nil {
		return fmt.Errorf("gpu: pass %q: draw without a pipeline", p.label)
	}
	if p.err != nil {
		return p.err
	}
	group, err := p.binds.group(p.d.dev, p.state.bgl, p.label)
	if err != nil {
		return err
	}
	p.d.groups = append(p.d.groups, group)
	p.enc.SetBindGroup(0, group, nil)
	return nil
}

func (p *pass) DrawMesh(m device.Mesh) error {
	gm, ok := m.(*mesh)
	if !ok || gm.vertices == nil {
		return fmt.Errorf("gpu: pass %q: mesh %T was not created by this device or was released", p.label, m)
	}
	if p.state != nil && !p.state.pipeline.MeshInput() {
		return fmt.Errorf("gpu: pass %q: pipeline %q takes no mesh", p.label, p.state.pipeline.Key())
	}
	if err := p.bind(); err != nil {
		return err
	}
	p.enc.SetVertexBuffer(0, gm.vertices, 0, wgpu.WholeSize)
	p.enc.SetIndexBuffer(gm.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	p.enc.DrawIndexed(uint32(gm.icount), 1, 0, 0, 0)
	p.d.stats.Draws++
	return nil
}

func (p *pass) DrawFullscreen() error {
	if p.state != nil && p.state.pipeline.MeshInput() {
		return fmt.Errorf("gpu: pass %q: pipeline %q needs a mesh", p.label, p.state.pipeline.Key())
	}
	if err := p.bind(); err != nil {
		return err
	}
	p.enc.Draw(3, 1, 0, 0)
	p.d.stats.Draws++
	return nil
}

func (p *pass) End() error {
	if p.ended {
		return errPassEnded
	}
	p.ended = true
	err := p.enc.End()
	p.enc.Release()
	return err
}
