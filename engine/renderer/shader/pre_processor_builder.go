package shader

type PreProcessorBuilderOption func(*preProcessor)

// WithInclude registers an additional snippet, replacing a built-in one with the same name.
//
// Parameters:
//   - name: the name used by // @oxy:include
//   - source: the WGSL snippet
//
// Returns:
//   - PreProcessorBuilderOption: a function that registers the snippet
func WithInclude(name, source string) PreProcessorBuilderOption {
	return func(pp *preProcessor) {
		pp.includes[name] = source
	}
}
