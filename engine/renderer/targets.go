package renderer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

// createTarget allocates a render target of one layer.
func createTarget(dev device.Device, label string, width, height int, format device.TextureFormat, samples int) (device.Texture, error) {
	tex, err := dev.CreateTexture(device.TextureDescriptor{
		Label:   label,
		Width:   max(width, 1),
		Height:  max(height, 1),
		Format:  format,
		Samples: samples,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: create %s: %w", label, err)
	}
	return tex, nil
}

// releaseTextures releases every non-nil texture and clears the references.
func releaseTextures(textures ...*device.Texture) {
	for _, t := range textures {
		if *t != nil {
			(*t).Release()
			*t = nil
		}
	}
}

// solidTexture creates a 1x1 texture holding one value. Depth formats take the red channel as depth.
func solidTexture(dev device.Device, label string, format device.TextureFormat, color mgl32.Vec4) (device.Texture, error) {
	tex, err := createTarget(dev, label, 1, 1, format, 1)
	if err != nil {
		return nil, err
	}
	var data []byte
	switch format {
	case device.FormatRGBA8Unorm:
		data = []byte{unorm(color[0]), unorm(color[1]), unorm(color[2]), unorm(color[3])}
	case device.FormatR8Unorm:
		data = []byte{unorm(color[0])}
	case device.FormatDepth32Float:
		data = binary.LittleEndian.AppendUint32(nil, math.Float32bits(color[0]))
	default:
		tex.Release()
		return nil, fmt.Errorf("renderer: solid %s texture: %w", format, device.ErrFormatMismatch)
	}
	if err := dev.WriteTexture(tex, 0, data); err != nil {
		tex.Release()
		return nil, fmt.Errorf("renderer: write %s: %w", label, err)
	}
	return tex, nil
}

func unorm(v float32) byte {
	return byte(max(0, min(1, v))*255 + 0.5)
}

// fullscreenPass draws one full-screen triangle with the pipeline key into dst. bind sets the
// uniforms and textures after the pipeline is selected.
func fullscreenPass(dev device.Device, label string, dst device.Texture, load device.LoadOp, clear mgl32.Vec4, key string, bind func(device.Pass)) error {
	p, err := dev.BeginPass(device.PassDescriptor{
		Label: label,
		Color: []device.ColorAttachment{{Texture: dst, Load: load, Clear: clear}},
	})
	if err != nil {
		return fmt.Errorf("renderer: begin %s: %w", label, err)
	}
	if err := p.SetPipeline(key); err != nil {
		_ = p.End()
		return err
	}
	if bind != nil {
		bind(p)
	}
	if err := p.DrawFullscreen(); err != nil {
		_ = p.End()
		return fmt.Errorf("renderer: draw %s: %w", label, err)
	}
	return p.End()
}

// clearPass clears dst without drawing.
func clearPass(dev device.Device, label string, dst device.Texture, clear mgl32.Vec4) error {
	p, err := dev.BeginPass(device.PassDescriptor{
		Label: label,
		Color: []device.ColorAttachment{{Texture: dst, Load: device.LoadOpClear, Clear: clear}},
	})
	if err != nil {
		return fmt.Errorf("renderer: begin %s: %w", label, err)
	}
	return p.End()
}
