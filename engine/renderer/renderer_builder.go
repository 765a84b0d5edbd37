package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/settings"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithSettings sets the store the renderer reads its tunables from. Without it the renderer uses an
// in-memory store holding the defaults.
//
// Parameters:
//   - store: the settings store
//
// Returns:
//   - RendererBuilderOption: a function that applies the settings option to a renderer
func WithSettings(store settings.Store) RendererBuilderOption {
	return func(r *renderer) {
		r.store = store
	}
}

// WithPass appends a pass after the built-in pipeline. Extra passes run in the order they are given.
//
// Parameters:
//   - p: the pass
//
// Returns:
//   - RendererBuilderOption: a function that appends the pass to a renderer
func WithPass(p Pass) RendererBuilderOption {
	return func(r *renderer) {
		r.extra = append(r.extra, p)
	}
}

// WithPresent makes every frame present the final texture on the device's surface.
//
// Parameters:
//   - present: true to present each frame
//
// Returns:
//   - RendererBuilderOption: a function that applies the present option to a renderer
func WithPresent(present bool) RendererBuilderOption {
	return func(r *renderer) {
		r.present = present
	}
}

// WithSeed seeds the random source of the SSAO kernel and noise.
//
// Parameters:
//   - seed: the seed
//
// Returns:
//   - RendererBuilderOption: a function that applies the seed to a renderer
func WithSeed(seed uint64) RendererBuilderOption {
	return func(r *renderer) {
		r.seed = seed
	}
}

// WithClock replaces the clock frame deltas are measured with.
//
// Parameters:
//   - now: returns the current time
//
// Returns:
//   - RendererBuilderOption: a function that applies the clock to a renderer
func WithClock(now func() time.Time) RendererBuilderOption {
	return func(r *renderer) {
		r.now = now
	}
}
