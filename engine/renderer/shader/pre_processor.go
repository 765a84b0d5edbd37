// pre_processor.go implements the Oxy WGSL pre-processor. It replaces @oxy:include lines with
// registered WGSL snippets and the @oxy:bindings line with the bind group declarations generated
// from a program's device.Layout, so the Go layout and the WGSL declarations cannot drift apart.
package shader

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
)

//go:embed assets/include/*.wgsl
var includeFS embed.FS

// bindingTypes maps texture binding kinds to their WGSL type.
var bindingTypes = map[device.BindingKind]string{
	device.BindingTexture:                 "texture_2d<f32>",
	device.BindingTextureArray:            "texture_2d_array<f32>",
	device.BindingUintTexture:             "texture_2d<u32>",
	device.BindingMultisampledTexture:     "texture_multisampled_2d<f32>",
	device.BindingMultisampledUintTexture: "texture_multisampled_2d<u32>",
	device.BindingDepthArray:              "texture_depth_2d_array",
}

type preProcessor struct {
	// includes maps snippet names to WGSL source.
	includes map[string]string
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process expands every annotation in source. Each snippet is injected at most once, at its
	// first include; snippets may include other snippets.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//   - layout: the layout used to generate the @oxy:bindings declarations
	//
	// Returns:
	//   - string: the processed WGSL
	//   - error: an error for unknown snippets, malformed annotations or an invalid layout
	Process(source string, layout device.Layout) (string, error)

	// Includes returns the names of every registered snippet.
	//
	// Returns:
	//   - []string: the snippet names
	Includes() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor with the engine's shared snippets registered.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - PreProcessor: the pre-processor
func NewPreProcessor(options ...PreProcessorBuilderOption) PreProcessor {
	pp := &preProcessor{includes: map[string]string{}}
	entries, err := includeFS.ReadDir("assets/include")
	if err != nil {
		panic(fmt.Sprintf("shader: reading embedded includes: %v", err))
	}
	for _, e := range entries {
		src, err := includeFS.ReadFile(path.Join("assets/include", e.Name()))
		if err != nil {
			panic(fmt.Sprintf("shader: reading include %s: %v", e.Name(), err))
		}
		pp.includes[strings.TrimSuffix(e.Name(), ".wgsl")] = string(src)
	}
	for _, option := range options {
		option(pp)
	}
	return pp
}

func (pp *preProcessor) Includes() []string {
	names := make([]string, 0, len(pp.includes))
	for name := range pp.includes {
		names = append(names, name)
	}
	return names
}

func (pp *preProcessor) Process(source string, layout device.Layout) (string, error) {
	return pp.expand(source, layout, &processState{seen: map[string]bool{}}, "")
}

type processState struct {
	seen     map[string]bool
	bindings bool
}

func (pp *preProcessor) expand(source string, layout device.Layout, st *processState, from string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		ann, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", wrapOrigin(from, err)
		}
		if ann == nil {
			out = append(out, line)
			continue
		}

		switch ann.Type {
		case AnnotationTypeInclude:
			if st.seen[ann.Arg] {
				continue
			}
			src, ok := pp.includes[ann.Arg]
			if !ok {
				return "", wrapOrigin(from, fmt.Errorf("line %d: unknown include %q", ann.Line, ann.Arg))
			}
			st.seen[ann.Arg] = true
			expanded, err := pp.expand(src, layout, st, ann.Arg)
			if err != nil {
				return "", err
			}
			out = append(out, strings.TrimRight(expanded, "\n"))
		case AnnotationTypeBindings:
			if st.bindings {
				return "", wrapOrigin(from, fmt.Errorf("line %d: duplicate @oxy bindings annotation", ann.Line))
			}
			st.bindings = true
			decls, err := declareBindings(layout)
			if err != nil {
				return "", err
			}
			out = append(out, decls...)
		}
	}
	return strings.Join(out, "\n"), nil
}

func wrapOrigin(include string, err error) error {
	if include == "" {
		return err
	}
	return fmt.Errorf("include %q: %w", include, err)
}

// declareBindings generates one @group(0) declaration per layout slot.
func declareBindings(layout device.Layout) ([]string, error) {
	decls := make([]string, 0, len(layout))
	for i, b := range layout {
		if b.Name == "" {
			return nil, fmt.Errorf("binding %d has no name", i)
		}
		if b.Kind == device.BindingUniform {
			if b.Type == "" {
				return nil, fmt.Errorf("uniform binding %d (%s) has no WGSL type", i, b.Name)
			}
			decls = append(decls, fmt.Sprintf("@group(0) @binding(%d) var<uniform> %s: %s;", i, b.Name, b.Type))
			continue
		}
		t, ok := bindingTypes[b.Kind]
		if !ok {
			return nil, fmt.Errorf("binding %d (%s) has unknown kind %d", i, b.Name, b.Kind)
		}
		decls = append(decls, fmt.Sprintf("@group(0) @binding(%d) var %s: %s;", i, b.Name, t))
	}
	return decls, nil
}
