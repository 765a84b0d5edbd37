package scene

import "github.com/go-gl/mathgl/mgl32"

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithBackground sets the color of texels no geometry covers.
//
// Parameters:
//   - color: linear RGB
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBackground(color mgl32.Vec3) SceneBuilderOption {
	return func(s *scene) {
		s.background = color
	}
}

// WithCullWorkers sets the number of worker goroutines CollectDraws tests bounds with.
// Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of cull workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCullWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		s.cullWorkers = max(n, 1)
	}
}

// WithCullChunk sets how many draws one cull task tests. Smaller chunks spread small scenes
// over more workers; larger chunks reduce scheduling overhead.
//
// Parameters:
//   - n: draws per task (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCullChunk(n int) SceneBuilderOption {
	return func(s *scene) {
		s.cullChunk = max(n, 1)
	}
}
