package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/settings"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowConfig derives the shadow map configuration from the settings.
//
// Parameters:
//   - s: the settings
//
// Returns:
//   - light.ShadowConfig: the configuration new shadow maps are allocated with
func ShadowConfig(s settings.Settings) light.ShadowConfig {
	return light.ShadowConfig{
		Resolution: s.Shadow.Resolution,
		Planes:     append([]float32(nil), s.Shadow.CascadePlanes...),
		Bias:       s.Shadow.Bias,
		PointBias:  s.Shadow.PointBias,
		PointFar:   s.Shadow.PointFar,
	}
}

// shadowRenderer draws the depth maps of shadow-casting lights. WebGPU has no geometry stage, so every
// cascade layer and cube face gets its own depth-only pass. Maps are re-rendered every frame.
type shadowRenderer struct {
	cascade *shader.ShadowCascadeProgram
	point   *shader.ShadowPointProgram

	passes int
}

func newShadowRenderer() *shadowRenderer {
	return &shadowRenderer{
		cascade: shader.NewShadowCascadeProgram(),
		point:   shader.NewShadowPointProgram(),
	}
}

func (s *shadowRenderer) init(dev device.Device) error {
	if err := dev.RegisterPipeline(device.NewPipeline(shader.KeyShadowCascade, s.cascade,
		device.WithDepthTarget(device.FormatDepth32Float),
		device.WithCullMode(device.CullFront),
		device.WithDepthBias(2, 2),
	)); err != nil {
		return err
	}
	return dev.RegisterPipeline(device.NewPipeline(shader.KeyShadowPoint, s.point,
		device.WithDepthTarget(device.FormatDepth32Float),
		device.WithCullMode(device.CullFront),
	))
}

// renderDirectional renders every cascade of a directional light after fitting its matrices to the camera.
func (s *shadowRenderer) renderDirectional(ctx *RenderContext, d *light.Directional, front mgl32.Vec3, casters []scene.Draw) error {
	shadow := d.Shadow()
	matrices := shadow.ComputeCascadeLightMatrix(front, ctx.Camera)
	for layer, viewProj := range matrices {
		label := fmt.Sprintf("shadow_cascade_%d", layer)
		err := s.depthPass(ctx, label, shadow.Texture(), layer, shader.KeyShadowCascade, casters, func(p device.Pass, world mgl32.Mat4) {
			p.SetUniforms(shader.ShadowUniformBinding, &shader.ShadowUniform{LightViewProj: viewProj, Model: world})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// renderPoint renders the six cube faces of a point light.
func (s *shadowRenderer) renderPoint(ctx *RenderContext, p *light.Point, position mgl32.Vec3, casters []scene.Draw) error {
	shadow := p.Shadow()
	faces := shadow.GetProjectionMatrix(position)
	for face, viewProj := range faces {
		label := fmt.Sprintf("shadow_point_%d", face)
		err := s.depthPass(ctx, label, shadow.Texture(), face, shader.KeyShadowPoint, casters, func(pass device.Pass, world mgl32.Mat4) {
			pass.SetUniforms(shader.ShadowUniformBinding, &shader.PointShadowUniform{
				FaceViewProj:  viewProj,
				Model:         world,
				LightPosition: position,
				Far:           shadow.Far(),
			})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *shadowRenderer) depthPass(ctx *RenderContext, label string, target device.Texture, layer int, key string, casters []scene.Draw, bind func(device.Pass, mgl32.Mat4)) error {
	p, err := ctx.Device.BeginPass(device.PassDescriptor{
		Label: label,
		Depth: &device.DepthAttachment{Texture: target, Layer: layer, Load: device.LoadOpClear, Clear: 1},
	})
	if err != nil {
		return fmt.Errorf("renderer: begin %s: %w", label, err)
	}
	s.passes++
	if err := p.SetPipeline(key); err != nil {
		_ = p.End()
		return err
	}
	for i := range casters {
		bind(p, casters[i].World)
		if err := p.DrawMesh(casters[i].Mesh.GPU()); err != nil {
			common.Logger().Warn("renderer: skipping draw", "pass", label, "entity", ctx.Scene.EntityName(casters[i].Entity), "err", err)
		}
	}
	return p.End()
}
