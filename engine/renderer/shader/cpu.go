package shader

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/soft"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// CPU counterparts of the helpers in assets/include. Each mirrors its WGSL twin.

func texelOf(f soft.Fragment) (int, int) {
	return int(math32.Floor(f.Coord[0])), int(math32.Floor(f.Coord[1]))
}

func ndcTexel(w, h int, ndc mgl32.Vec2) (int, int) {
	u := ndc[0]*0.5 + 0.5
	v := 0.5 - ndc[1]*0.5
	x := int(math32.Floor(u * float32(w)))
	y := int(math32.Floor(v * float32(h)))
	return max(0, min(w-1, x)), max(0, min(h-1, y))
}

func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if l := v.Len(); l > 0 {
		return v.Mul(1 / l)
	}
	return v
}

func reflect(i, n mgl32.Vec3) mgl32.Vec3 {
	return i.Sub(n.Mul(2 * n.Dot(i)))
}

type surface struct {
	covered   bool
	position  mgl32.Vec3
	normal    mgl32.Vec3
	shininess float32
	albedo    mgl32.Vec3
	specular  float32
	ambient   mgl32.Vec3
	occlusion float32
}

func loadSurface(b *soft.Bindings, x, y int) surface {
	position := b.Load(LightGPosition, x, y, 0)
	normal := b.Load(LightGNormal, x, y, 0)
	albedo := b.Load(LightGAlbedo, x, y, 0)
	return surface{
		covered:   position[3] > 0.5,
		position:  position.Vec3(),
		normal:    normalize(normal.Vec3()),
		shininess: normal[3],
		albedo:    albedo.Vec3(),
		specular:  albedo[3],
		ambient:   b.Load(LightGAmbient, x, y, 0).Vec3(),
		occlusion: b.Load(LightSSAO, x, y, 0)[0],
	}
}

// phong returns the ambient term and the shadowable diffuse + specular term.
func phong(s surface, toLight, viewPos, ambient, diffuse, specular mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	nDotL := max(s.normal.Dot(toLight), 0)
	toView := normalize(viewPos.Sub(s.position))
	reflected := reflect(toLight.Mul(-1), s.normal)
	spec := math32.Pow(max(toView.Dot(reflected), 0), max(s.shininess, 1))
	a := common.MulVec3(ambient, s.ambient).Mul(s.occlusion)
	ds := common.MulVec3(diffuse, s.albedo).Mul(nDotL).Add(specular.Mul(spec * s.specular))
	return a, ds
}

// pcf is the 3x3 percentage-closer filter of the shadow map at binding; 1 means fully shadowed.
func pcf(b *soft.Bindings, binding, x, y, layer int, current, bias float32) float32 {
	var shadow float32
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if current-bias > b.Load(binding, x+dx, y+dy, layer)[0] {
				shadow++
			}
		}
	}
	return shadow / 9
}
