package camera

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
)

// Uniform packs the camera state read by the G-buffer program.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - *shader.CameraUniform: the uniform value
func Uniform(c Camera) *shader.CameraUniform {
	return &shader.CameraUniform{
		ViewProj: c.ViewProjection(),
		View:     c.View(),
		Position: c.Position(),
	}
}
