package material

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// Uniform packs the material with one draw's model matrix and pick id for the G-buffer program.
//
// Parameters:
//   - model: the world matrix of the draw
//   - entityID: the value written to the entity id target
//
// Returns:
//   - *shader.ObjectUniform: the uniform value
func (m *Material) Uniform(model mgl32.Mat4, entityID uint32) *shader.ObjectUniform {
	return &shader.ObjectUniform{
		Model:            model,
		Normal:           common.NormalMatrix(model),
		Albedo:           m.Albedo,
		Ambient:          m.Ambient,
		Emissive:         m.Emissive,
		SpecularStrength: m.Specular,
		Shininess:        m.Shininess,
		EntityID:         entityID,
	}
}
