package common

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon is the tolerance used when comparing float32 vectors for equality.
const Epsilon = 1e-5

// Perspective creates a right-handed perspective projection matrix that maps view-space depth
// into the WebGPU clip range [0, 1].
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / math32.Tan(fovY/2.0)
	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// Ortho creates a right-handed orthographic projection matrix that maps view-space depth in
// [-near, -far] into the WebGPU clip range [0, 1].
//
// Parameters:
//   - left, right: horizontal extents in view space
//   - bottom, top: vertical extents in view space
//   - near, far: distances along -Z to the clip planes
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Ortho(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	out := mgl32.Ident4()
	out[0] = 2.0 / (right - left)
	out[5] = 2.0 / (top - bottom)
	out[10] = -1.0 / (far - near)
	out[12] = -(right + left) / (right - left)
	out[13] = -(top + bottom) / (top - bottom)
	out[14] = -near / (far - near)
	return out
}

// LookAt creates a right-handed view matrix looking from eye toward center. When up is
// (nearly) parallel to the viewing direction a perpendicular fallback axis is chosen so the
// result is never degenerate.
//
// Parameters:
//   - eye: the viewer position in world space
//   - center: the point being looked at
//   - up: the preferred up vector
//
// Returns:
//   - mgl32.Mat4: the world-to-view matrix
func LookAt(eye, center, up mgl32.Vec3) mgl32.Mat4 {
	dir := center.Sub(eye)
	if dir.Len() < Epsilon {
		dir = mgl32.Vec3{0, 0, -1}
	}
	dir = dir.Normalize()
	if math32.Abs(dir.Dot(up.Normalize())) > 0.999 {
		up = mgl32.Vec3{1, 0, 0}
		if math32.Abs(dir[0]) > 0.9 {
			up = mgl32.Vec3{0, 0, 1}
		}
	}
	return mgl32.LookAtV(eye, eye.Add(dir), up)
}

// FrustumCorners returns the 8 world-space corners of the frustum described by the inverse of a
// view-projection matrix. The near face (clip z = 0) comes first, in the order
// (-1,-1), (1,-1), (1,1), (-1,1), followed by the far face (clip z = 1) in the same order.
//
// Parameters:
//   - invViewProj: the inverse of projection * view
//
// Returns:
//   - [8]mgl32.Vec3: the world-space corners
func FrustumCorners(invViewProj mgl32.Mat4) [8]mgl32.Vec3 {
	var corners [8]mgl32.Vec3
	xy := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for z := 0; z < 2; z++ {
		for i, c := range xy {
			p := invViewProj.Mul4x1(mgl32.Vec4{c[0], c[1], float32(z), 1})
			corners[z*4+i] = p.Vec3().Mul(1 / p.W())
		}
	}
	return corners
}

// Centroid returns the arithmetic mean of the provided points.
func Centroid(points []mgl32.Vec3) mgl32.Vec3 {
	var c mgl32.Vec3
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c = c.Add(p)
	}
	return c.Mul(1 / float32(len(points)))
}

// NormalMatrix returns the inverse-transpose of the upper 3x3 of a model matrix, widened back to
// a Mat4 so it can share the 16-float uniform layout.
func NormalMatrix(model mgl32.Mat4) mgl32.Mat4 {
	n := model.Mat3().Inv().Transpose()
	return n.Mat4()
}

// TRS composes a model matrix from translation, rotation and scale (T * R * S).
func TRS(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(position[0], position[1], position[2])
	r := rotation.Normalize().Mat4()
	s := mgl32.Scale3D(scale[0], scale[1], scale[2])
	return t.Mul4(r).Mul4(s)
}

// Lerp linearly interpolates between a and b by t.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// Clamp limits v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

// Vec3Near reports whether two vectors match component-wise within tolerance.
func Vec3Near(a, b mgl32.Vec3, tolerance float32) bool {
	for i := range 3 {
		if math32.Abs(a[i]-b[i]) > tolerance {
			return false
		}
	}
	return true
}

// DivVec3 divides a by b component-wise, treating a zero divisor component as 1.
func DivVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := range 3 {
		d := b[i]
		if d == 0 {
			d = 1
		}
		out[i] = a[i] / d
	}
	return out
}

// MulVec3 multiplies a and b component-wise.
func MulVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
