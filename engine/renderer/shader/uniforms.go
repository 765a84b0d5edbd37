package shader

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxKernelSize is the largest SSAO kernel the ssao program accepts.
	MaxKernelSize = 64
	// MaxCascades is the largest cascade count the directional light program accepts.
	MaxCascades = 8
)

var (
	_ device.Uniforms = &CameraUniform{}
	_ device.Uniforms = &ObjectUniform{}
	_ device.Uniforms = &ShadowUniform{}
	_ device.Uniforms = &PointShadowUniform{}
	_ device.Uniforms = &SSAOUniform{}
	_ device.Uniforms = &DirectionalLightUniform{}
	_ device.Uniforms = &PointLightUniform{}
	_ device.Uniforms = &BloomUniform{}
	_ device.Uniforms = &TonemapUniform{}
	_ device.Uniforms = &SpriteUniform{}
)

func flag(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// CameraUniform is the per-frame camera block of the G-buffer pass.
type CameraUniform struct {
	ViewProj mgl32.Mat4
	View     mgl32.Mat4
	Position mgl32.Vec3
}

func (u *CameraUniform) Size() int { return 144 }

func (u *CameraUniform) Marshal() []byte {
	return common.NewPacker(u.Size()).Mat4(u.ViewProj).Mat4(u.View).Vec3(u.Position, 1).Bytes()
}

// ObjectUniform is the per-draw block of the G-buffer pass: model matrices, material and pick id.
type ObjectUniform struct {
	Model            mgl32.Mat4
	Normal           mgl32.Mat4
	Albedo           mgl32.Vec3
	Ambient          mgl32.Vec3
	Emissive         mgl32.Vec3
	SpecularStrength float32
	Shininess        float32
	EntityID         uint32
}

func (u *ObjectUniform) Size() int { return 208 }

func (u *ObjectUniform) Marshal() []byte {
	p := common.NewPacker(u.Size())
	p.Mat4(u.Model).Mat4(u.Normal)
	p.Vec3(u.Albedo, 1).Vec3(u.Ambient, 1)
	p.F32(u.SpecularStrength).F32(u.Shininess).F32(0).F32(0)
	p.Vec3(u.Emissive, 1)
	p.U32(u.EntityID).U32(0).U32(0).U32(0)
	return p.Bytes()
}

// ShadowUniform is the per-draw block of a cascade depth pass.
type ShadowUniform struct {
	LightViewProj mgl32.Mat4
	Model         mgl32.Mat4
}

func (u *ShadowUniform) Size() int { return 128 }

func (u *ShadowUniform) Marshal() []byte {
	return common.NewPacker(u.Size()).Mat4(u.LightViewProj).Mat4(u.Model).Bytes()
}

// PointShadowUniform is the per-draw block of one cube face depth pass.
type PointShadowUniform struct {
	FaceViewProj  mgl32.Mat4
	Model         mgl32.Mat4
	LightPosition mgl32.Vec3
	Far           float32
}

func (u *PointShadowUniform) Size() int { return 144 }

func (u *PointShadowUniform) Marshal() []byte {
	return common.NewPacker(u.Size()).Mat4(u.FaceViewProj).Mat4(u.Model).Vec3(u.LightPosition, u.Far).Bytes()
}

// SSAOUniform carries the occlusion tunables and the sample kernel. Samples past MaxKernelSize are ignored.
type SSAOUniform struct {
	Projection mgl32.Mat4
	View       mgl32.Mat4
	Radius     float32
	Bias       float32
	Power      float32
	Kernel     []mgl32.Vec3
}

func (u *SSAOUniform) Size() int { return 1168 }

// KernelSize returns the number of kernel samples the shader evaluates.
func (u *SSAOUniform) KernelSize() int {
	return min(len(u.Kernel), MaxKernelSize)
}

func (u *SSAOUniform) Marshal() []byte {
	p := common.NewPacker(u.Size())
	p.Mat4(u.Projection).Mat4(u.View)
	p.F32(u.Radius).F32(u.Bias).F32(u.Power).F32(float32(u.KernelSize()))
	for i := range MaxKernelSize {
		var k mgl32.Vec3
		if i < len(u.Kernel) {
			k = u.Kernel[i]
		}
		p.Vec3(k, 0)
	}
	return p.Bytes()
}

// DirectionalLightUniform is the per-light block of the directional lighting pass.
// Planes[i] is the far view distance of cascade i.
type DirectionalLightUniform struct {
	View          mgl32.Mat4
	ViewPosition  mgl32.Vec3
	Direction     mgl32.Vec3
	Ambient       mgl32.Vec3
	Diffuse       mgl32.Vec3
	Specular      mgl32.Vec3
	CastShadow    bool
	Bias          float32
	Planes        []float32
	LightViewProj []mgl32.Mat4
}

func (u *DirectionalLightUniform) Size() int { return 704 }

// CascadeCount returns the number of cascades the shader selects from.
func (u *DirectionalLightUniform) CascadeCount() int {
	return min(len(u.LightViewProj), MaxCascades)
}

// Plane returns the far distance of cascade i, zero past the configured planes.
func (u *DirectionalLightUniform) Plane(i int) float32 {
	if i < 0 || i >= len(u.Planes) || i >= MaxCascades {
		return 0
	}
	return u.Planes[i]
}

func (u *DirectionalLightUniform) Marshal() []byte {
	p := common.NewPacker(u.Size())
	p.Mat4(u.View)
	p.Vec3(u.ViewPosition, 1).Vec3(u.Direction, 0)
	p.Vec3(u.Ambient, 1).Vec3(u.Diffuse, 1).Vec3(u.Specular, 1)
	p.F32(flag(u.CastShadow)).F32(float32(u.CascadeCount())).F32(u.Bias).F32(0)
	for i := range MaxCascades {
		p.F32(u.Plane(i))
	}
	for i := range MaxCascades {
		m := mgl32.Ident4()
		if i < len(u.LightViewProj) {
			m = u.LightViewProj[i]
		}
		p.Mat4(m)
	}
	return p.Bytes()
}

// PointLightUniform is the per-light block of the point lighting pass. A point light becomes a
// spot light when Spot is set; CosInner and CosOuter are the cosines of the cutoff angles.
type PointLightUniform struct {
	ViewPosition  mgl32.Vec3
	Position      mgl32.Vec3
	Far           float32
	SpotDirection mgl32.Vec3
	Spot          bool
	CosInner      float32
	CosOuter      float32
	Ambient       mgl32.Vec3
	Diffuse       mgl32.Vec3
	Specular      mgl32.Vec3
	Constant      float32
	Linear        float32
	Quadratic     float32
	CastShadow    bool
	Bias          float32
	FaceViewProj  [6]mgl32.Mat4
}

func (u *PointLightUniform) Size() int { return 512 }

func (u *PointLightUniform) Marshal() []byte {
	p := common.NewPacker(u.Size())
	p.Vec3(u.ViewPosition, 1).Vec3(u.Position, u.Far).Vec3(u.SpotDirection, flag(u.Spot))
	p.Vec3(u.Ambient, 1).Vec3(u.Diffuse, 1).Vec3(u.Specular, 1)
	p.F32(u.Constant).F32(u.Linear).F32(u.Quadratic).F32(0)
	p.F32(u.CosInner).F32(u.CosOuter).F32(flag(u.CastShadow)).F32(u.Bias)
	for _, m := range u.FaceViewProj {
		p.Mat4(m)
	}
	return p.Bytes()
}

// BloomUniform configures one downsample step. The threshold only applies on the first pass.
type BloomUniform struct {
	Threshold float32
	Knee      float32
	FirstPass bool
}

func (u *BloomUniform) Size() int { return 16 }

func (u *BloomUniform) Marshal() []byte {
	return common.NewPacker(u.Size()).F32(u.Threshold).F32(u.Knee).F32(flag(u.FirstPass)).F32(0).Bytes()
}

// TonemapUniform configures the final exposure and gamma mapping.
type TonemapUniform struct {
	Exposure      float32
	Gamma         float32
	BloomStrength float32
	Bloom         bool
}

func (u *TonemapUniform) Size() int { return 16 }

func (u *TonemapUniform) Marshal() []byte {
	return common.NewPacker(u.Size()).F32(u.Exposure).F32(u.Gamma).F32(u.BloomStrength).F32(flag(u.Bloom)).Bytes()
}

// SpriteUniform holds the pixel-space projection of the overlay.
type SpriteUniform struct {
	Projection mgl32.Mat4
}

func (u *SpriteUniform) Size() int { return 64 }

func (u *SpriteUniform) Marshal() []byte {
	return common.NewPacker(u.Size()).Mat4(u.Projection).Bytes()
}
