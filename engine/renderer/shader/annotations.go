// annotations.go defines the @oxy: annotations understood by the WGSL pre-processor.
// Annotations are single-line WGSL comments; each is replaced by generated WGSL.
package shader

import (
	"fmt"
	"strings"
)

// annotationPrefix marks an Oxy annotation inside a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects a registered WGSL snippet at the annotation site.
	//
	// Syntax: // @oxy:include <name>
	//
	// Example: // @oxy:include fullscreen
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindings generates the group 0 declaration of every binding in the
	// program's layout, in binding order. A source holds at most one.
	//
	// Syntax: // @oxy:bindings
	AnnotationTypeBindings AnnotationType = "bindings"
)

// Annotation is a single parsed @oxy: annotation.
type Annotation struct {
	// Type identifies the annotation.
	Type AnnotationType

	// Arg is the include name, empty for bindings.
	Arg string

	// Line is the 1-based source line, used for error reporting.
	Line int
}

// parseAnnotation parses one source line. A line without the prefix yields (nil, nil).
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{Type: AnnotationTypeInclude, Arg: args[1], Line: lineNum}, nil
	case AnnotationTypeBindings:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy bindings annotation takes no arguments", lineNum)
		}
		return &Annotation{Type: AnnotationTypeBindings, Line: lineNum}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation %q", lineNum, args[0])
	}
}
