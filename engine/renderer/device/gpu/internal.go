package gpu

import "github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"

// formatSurface stands for the surface format in pipelines the device builds for itself.
const formatSurface device.TextureFormat = -1

const (
	keyPresent     = "gpu_present"
	keyResolveUint = "gpu_resolve_uint"
)

const fullscreenVertex = `
struct FullscreenOut {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> FullscreenOut {
    var out: FullscreenOut;
    let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
    out.position = vec4<f32>(uv.x * 2.0 - 1.0, 1.0 - uv.y * 2.0, 0.0, 1.0);
    out.uv = uv;
    return out;
}
`

// presentSource stretches the final texture over the surface.
const presentSource = fullscreenVertex + `
@group(0) @binding(0) var source: texture_2d<f32>;

@fragment
fn fs_main(in: FullscreenOut) -> @location(0) vec4<f32> {
    let size = vec2<f32>(textureDimensions(source));
    let texel = vec2<i32>(clamp(in.uv * size, vec2<f32>(0.0), size - vec2<f32>(1.0)));
    return textureLoad(source, texel, 0);
}
`

// resolveUintSource copies sample 0, since integer targets cannot be resolved by the hardware.
const resolveUintSource = fullscreenVertex + `
@group(0) @binding(0) var source: texture_multisampled_2d<u32>;

@fragment
fn fs_main(in: FullscreenOut) -> @location(0) vec4<u32> {
    let v = textureLoad(source, vec2<i32>(floor(in.position.xy)), 0).r;
    return vec4<u32>(v, 0u, 0u, 0u);
}
`

// internalProgram is a program owned by the device rather than the renderer.
type internalProgram struct {
	key    string
	source string
	layout device.Layout
}

var _ device.Program = &internalProgram{}

func (p *internalProgram) Key() string           { return p.key }
func (p *internalProgram) Source() string        { return p.source }
func (p *internalProgram) Layout() device.Layout { return p.layout }

func presentPipeline() device.Pipeline {
	return device.NewPipeline(keyPresent,
		&internalProgram{key: keyPresent, source: presentSource, layout: device.Layout{{Name: "source", Kind: device.BindingTexture}}},
		device.WithFullscreen(),
		device.WithColorTargets(formatSurface),
	)
}

func resolveUintPipeline() device.Pipeline {
	return device.NewPipeline(keyResolveUint,
		&internalProgram{key: keyResolveUint, source: resolveUintSource, layout: device.Layout{{Name: "source", Kind: device.BindingMultisampledUintTexture}}},
		device.WithFullscreen(),
		device.WithColorTargets(device.FormatR32Uint),
	)
}
