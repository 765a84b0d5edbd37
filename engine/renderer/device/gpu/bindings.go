package gpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// minUniformSize is the smallest uniform buffer the pool allocates.
const minUniformSize = 256

// uniformPool hands out uniform buffers for the frame being recorded. Every SetUniforms call gets its
// own buffer so later writes never alias earlier draws. Buffers return to the pool once the frame
// is submitted.
type uniformPool struct {
	free map[uint64][]*wgpu.Buffer
	used map[uint64][]*wgpu.Buffer
}

func newUniformPool() *uniformPool {
	return &uniformPool{
		free: make(map[uint64][]*wgpu.Buffer),
		used: make(map[uint64][]*wgpu.Buffer),
	}
}

// uniformClass rounds n up to the pool's power-of-two size class.
func uniformClass(n int) uint64 {
	size := uint64(minUniformSize)
	for size < uint64(n) {
		size <<= 1
	}
	return size
}

// acquire returns a buffer of at least max(len(data), size) bytes holding data.
func (p *uniformPool) acquire(dev *wgpu.Device, queue *wgpu.Queue, data []byte, size int) (*wgpu.Buffer, error) {
	class := uniformClass(max(len(data), size))
	var buf *wgpu.Buffer
	if free := p.free[class]; len(free) > 0 {
		buf = free[len(free)-1]
		p.free[class] = free[:len(free)-1]
	} else {
		var err error
		buf, err = dev.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("uniform_%d", class),
			Size:  class,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("gpu: create uniform buffer: %w", err)
		}
	}
	p.used[class] = append(p.used[class], buf)
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		return nil, fmt.Errorf("gpu: write uniform buffer: %w", err)
	}
	return buf, nil
}

// recycle makes every buffer handed out since the last recycle available again.
func (p *uniformPool) recycle() {
	for class, bufs := range p.used {
		p.free[class] = append(p.free[class], bufs...)
		p.used[class] = bufs[:0]
	}
}

func (p *uniformPool) release() {
	p.recycle()
	for class, bufs := range p.free {
		for _, b := range bufs {
			b.Release()
		}
		delete(p.free, class)
	}
}

// bindings collects the resources of bind group 0 between draws.
type bindings struct {
	layout   device.Layout
	buffers  map[int]*wgpu.Buffer
	textures map[int]*texture
}

func (b *bindings) reset(layout device.Layout) {
	b.layout = layout
	b.buffers = make(map[int]*wgpu.Buffer, len(layout))
	b.textures = make(map[int]*texture, len(layout))
}

// group builds a bind group from the current resources. Every slot of the layout must be set.
func (b *bindings) group(dev *wgpu.Device, bgl *wgpu.BindGroupLayout, label string) (*wgpu.BindGroup, error) {
	entries := make([]wgpu.BindGroupEntry, len(b.layout))
	for i, slot := range b.layout {
		entries[i].Binding = uint32(i)
		if slot.Kind == device.BindingUniform {
			buf, ok := b.buffers[i]
			if !ok {
				return nil, fmt.Errorf("gpu: %s: uniform %q not set", label, slot.Name)
			}
			entries[i].Buffer = buf
			entries[i].Size = wgpu.WholeSize
			continue
		}
		tex, ok := b.textures[i]
		if !ok {
			return nil, fmt.Errorf("gpu: %s: texture %q not set", label, slot.Name)
		}
		view, err := tex.view(slot.Kind)
		if err != nil {
			return nil, err
		}
		entries[i].TextureView = view
	}
	group, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  bgl,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: %s: create bind group: %w", label, err)
	}
	return group, nil
}
