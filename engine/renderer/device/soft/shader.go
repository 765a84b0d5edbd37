package soft

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxVaryings is the number of vec4 values a vertex stage can pass to the fragment stage.
const MaxVaryings = 4

// MaxTargets is the number of color targets a fragment stage can write.
const MaxTargets = 8

// Varyings are the perspective-correct interpolated vertex outputs.
type Varyings [MaxVaryings]mgl32.Vec4

// Fragment is the input of one fragment stage invocation.
type Fragment struct {
	// Coord is the framebuffer coordinate of the texel center, origin top-left (matches @builtin(position)).
	Coord mgl32.Vec2
	// Depth is the interpolated clip depth in [0, 1]; zero for full-screen draws.
	Depth    float32
	Varyings Varyings
}

// FragmentOutput holds the values written to each color target.
type FragmentOutput struct {
	Color [MaxTargets]mgl32.Vec4
	Uint  [MaxTargets]uint32
	// Depth replaces the interpolated depth when WriteDepth is set (@builtin(frag_depth)).
	Depth      float32
	WriteDepth bool
}

// Shader is the CPU implementation of a device.Program. Programs registered with the software
// device must implement it.
type Shader interface {
	// Vertex transforms one vertex into clip space.
	Vertex(b *Bindings, v device.Vertex) (mgl32.Vec4, Varyings)
	// Fragment shades one fragment. Returning false discards it.
	Fragment(b *Bindings, f Fragment) (FragmentOutput, bool)
}

// Bindings exposes the resources bound to a pass to the CPU shader stages.
type Bindings struct {
	uniforms map[int]device.Uniforms
	textures map[int]*texture
}

func newBindings() *Bindings {
	return &Bindings{uniforms: map[int]device.Uniforms{}, textures: map[int]*texture{}}
}

// Uniform returns the uniform value bound at binding, or nil.
func (b *Bindings) Uniform(binding int) device.Uniforms {
	return b.uniforms[binding]
}

// Size returns the size of the texture bound at binding, or zero.
func (b *Bindings) Size(binding int) (int, int) {
	t := b.textures[binding]
	if t == nil {
		return 0, 0
	}
	return t.desc.Width, t.desc.Height
}

// Load reads texel (x, y) of layer from the texture at binding, sample 0. Coordinates use the
// framebuffer convention (origin top-left) and are clamped to the texture like textureLoad
// callers are expected to do. An unbound slot reads as zero.
func (b *Bindings) Load(binding, x, y, layer int) mgl32.Vec4 {
	return b.LoadSample(binding, x, y, layer, 0)
}

// LoadSample reads one sample of a multisampled texture.
func (b *Bindings) LoadSample(binding, x, y, layer, sample int) mgl32.Vec4 {
	t := b.textures[binding]
	if t == nil {
		return mgl32.Vec4{}
	}
	x, y = t.clamp(x, y)
	return t.color(layer, x, y, sample)
}

// LoadUint reads an R32Uint texel, sample s.
func (b *Bindings) LoadUint(binding, x, y, sample int) uint32 {
	t := b.textures[binding]
	if t == nil || t.u == nil {
		return 0
	}
	x, y = t.clamp(x, y)
	return t.u[t.index(0, x, y, sample)]
}

// LoadUV reads the texel under normalized coordinates uv (origin top-left) with nearest filtering
// and repeat addressing.
func (b *Bindings) LoadUV(binding int, uv mgl32.Vec2, layer int) mgl32.Vec4 {
	t := b.textures[binding]
	if t == nil {
		return mgl32.Vec4{}
	}
	u := uv[0] - math32.Floor(uv[0])
	v := uv[1] - math32.Floor(uv[1])
	return b.Load(binding, int(u*float32(t.desc.Width)), int(v*float32(t.desc.Height)), layer)
}
