package shader

import (
	"embed"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/naga"
)

//go:embed assets/*.wgsl
var programFS embed.FS

// Program keys. Each names the WGSL asset the program is built from.
const (
	KeyGBuffer          = "gbuffer"
	KeyShadowCascade    = "shadow_cascade"
	KeyShadowPoint      = "shadow_point"
	KeySSAO             = "ssao"
	KeySSAOBlur         = "ssao_blur"
	KeyLightDirectional = "light_directional"
	KeyLightPoint       = "light_point"
	KeyEmissive         = "emissive"
	KeyBloomDown        = "bloom_down"
	KeyBloomUp          = "bloom_up"
	KeyTonemap          = "tonemap"
	KeySprite           = "sprite"
)

var sharedPreProcessor = sync.OnceValue(func() PreProcessor { return NewPreProcessor() })

// program is the device.Program shared by every concrete program. Concrete programs embed it and
// add the CPU stages used by the software device.
type program struct {
	key    string
	source string
	layout device.Layout
}

func (p *program) Key() string {
	return p.key
}

func (p *program) Source() string {
	return p.source
}

func (p *program) Layout() device.Layout {
	return p.layout
}

// Vertex is the CPU vertex stage of full-screen programs, which never run it.
func (p *program) Vertex(*soft.Bindings, device.Vertex) (mgl32.Vec4, soft.Varyings) {
	return mgl32.Vec4{}, soft.Varyings{}
}

// build loads and preprocesses the asset named key, then checks the result against layout.
func build(key string, layout device.Layout, pp PreProcessor) (program, error) {
	raw, err := programFS.ReadFile("assets/" + key + ".wgsl")
	if err != nil {
		return program{}, fmt.Errorf("shader %q: %w", key, err)
	}
	source, err := pp.Process(string(raw), layout)
	if err != nil {
		return program{}, fmt.Errorf("shader %q: %w", key, err)
	}

	if vs, fs := entryPoints(source); vs != "vs_main" || fs != "fs_main" {
		return program{}, fmt.Errorf("shader %q: entry points are %q/%q, want vs_main/fs_main", key, vs, fs)
	}
	declared := declaredBindings(source)
	if len(declared) != len(layout) {
		return program{}, fmt.Errorf("shader %q: declares %d bindings, layout has %d", key, len(declared), len(layout))
	}
	sizes := StructSizes(source)
	for i, b := range layout {
		if declared[i] != b.Name {
			return program{}, fmt.Errorf("shader %q: binding %d is %q, layout names %q", key, i, declared[i], b.Name)
		}
		if b.Kind != device.BindingUniform {
			continue
		}
		if got := sizes[b.Type]; got != b.Size {
			return program{}, fmt.Errorf("shader %q: struct %s is %d bytes, layout expects %d", key, b.Type, got, b.Size)
		}
	}
	return program{key: key, source: source, layout: layout}, nil
}

func mustBuild(key string, layout device.Layout) program {
	p, err := build(key, layout, sharedPreProcessor())
	if err != nil {
		panic(err)
	}
	return p
}

// Validate compiles the program's WGSL with naga.
//
// Parameters:
//   - p: the program to validate
//
// Returns:
//   - error: the compiler diagnostic, or nil
func Validate(p device.Program) error {
	if _, err := naga.Compile(p.Source()); err != nil {
		return fmt.Errorf("shader %q: %w", p.Key(), err)
	}
	return nil
}

// Programs returns one instance of every program the deferred renderer uses.
//
// Returns:
//   - []device.Program: the programs
func Programs() []device.Program {
	return []device.Program{
		NewGBufferProgram(),
		NewShadowCascadeProgram(),
		NewShadowPointProgram(),
		NewSSAOProgram(),
		NewSSAOBlurProgram(),
		NewDirectionalLightProgram(),
		NewPointLightProgram(),
		NewEmissiveProgram(),
		NewBloomDownProgram(),
		NewBloomUpProgram(),
		NewTonemapProgram(),
		NewSpriteProgram(),
	}
}
