package gpu

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

func (d *gpuDevice) ReadTexel(tex device.Texture, layer, x, y int) (device.Texel, error) {
	if d.encoder != nil {
		return device.Texel{}, device.ErrFrameInProgress
	}
	t, err := unwrap(tex)
	if err != nil {
		return device.Texel{}, err
	}
	if x < 0 || y < 0 || x >= t.desc.Width || y >= t.desc.Height || layer < 0 || layer >= t.desc.Layers {
		return device.Texel{}, device.ErrOutOfBounds
	}
	if t.desc.Samples != 1 {
		return device.Texel{}, fmt.Errorf("gpu: read %q: multisampled: %w", t.desc.Label, device.ErrFormatMismatch)
	}

	size := uint64(alignedRow(1, t.desc.Format))
	staging, err := d.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "readback",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return device.Texel{}, fmt.Errorf("gpu: readback buffer: %w", err)
	}
	defer staging.Release()

	aspect := wgpu.TextureAspectAll
	if t.desc.Format.IsDepth() {
		aspect = wgpu.TextureAspectDepthOnly
	}
	encoder, err := d.dev.CreateCommandEncoder(nil)
	if err != nil {
		return device.Texel{}, fmt.Errorf("gpu: readback encoder: %w", err)
	}
	defer encoder.Release()
	// Texel rows are stored top row first.
	err = encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture: t.tex,
			Origin:  wgpu.Origin3D{X: uint32(x), Y: uint32(t.desc.Height - 1 - y), Z: uint32(layer)},
			Aspect:  aspect,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{BytesPerRow: uint32(size), RowsPerImage: 1},
		},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return device.Texel{}, fmt.Errorf("gpu: readback copy: %w", err)
	}
	commands, err := encoder.Finish(nil)
	if err != nil {
		return device.Texel{}, fmt.Errorf("gpu: readback finish: %w", err)
	}
	d.queue.Submit(commands)
	commands.Release()

	var (
		status wgpu.BufferMapAsyncStatus
		mapped bool
	)
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status, mapped = s, true
	}); err != nil {
		return device.Texel{}, fmt.Errorf("gpu: readback map: %w", err)
	}
	d.dev.Poll(true, nil)
	if !mapped || status != wgpu.BufferMapAsyncStatusSuccess {
		return device.Texel{}, fmt.Errorf("gpu: readback map status %v", status)
	}
	defer staging.Unmap()
	return decodeTexel(t.desc.Format, staging.GetMappedRange(0, uint(t.desc.Format.BytesPerTexel())))
}

// clearDepth fills one layer of a depth texture with value. Depth formats cannot be copy targets,
// so WriteTexture clears them with a render pass instead.
func (d *gpuDevice) clearDepth(t *texture, layer int, value float32) error {
	view, err := t.layerView(layer)
	if err != nil {
		return err
	}
	encoder, err := d.dev.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: clear depth encoder: %w", err)
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "clear:" + t.desc.Label,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: value,
		},
	})
	err = pass.End()
	pass.Release()
	if err != nil {
		return fmt.Errorf("gpu: clear depth: %w", err)
	}
	commands, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("gpu: clear depth finish: %w", err)
	}
	d.queue.Submit(commands)
	commands.Release()
	return nil
}

// uniformDepth returns the value of depth data whose texels are all equal.
func uniformDepth(data []byte) (float32, bool) {
	if len(data) < 4 || len(data)%4 != 0 {
		return 0, false
	}
	first := data[:4]
	for i := 4; i < len(data); i += 4 {
		if !bytes.Equal(first, data[i:i+4]) {
			return 0, false
		}
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(first)), true
}
