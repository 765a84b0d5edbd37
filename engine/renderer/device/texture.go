package device

import (
	"github.com/go-gl/mathgl/mgl32"
)

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	// Label names the texture in debug output.
	Label string
	// Width and Height are the size of each layer in texels.
	Width, Height int
	// Layers is the array layer count. Zero is treated as one.
	Layers int
	// Cube marks a six-layer texture whose layers are the cube faces +X, -X, +Y, -Y, +Z, -Z.
	Cube bool
	// Format is the texel format.
	Format TextureFormat
	// Samples is the multisample count. Zero is treated as one.
	Samples int
}

// Normalized returns the descriptor with zero counts replaced by their defaults.
func (d TextureDescriptor) Normalized() TextureDescriptor {
	if d.Layers < 1 {
		d.Layers = 1
	}
	if d.Cube {
		d.Layers = 6
	}
	if d.Samples < 1 {
		d.Samples = 1
	}
	return d
}

// Texture is a device-owned image. Texel space has its origin at the bottom-left corner.
type Texture interface {
	Label() string
	Width() int
	Height() int
	Layers() int
	Cube() bool
	Format() TextureFormat
	Samples() int
	// Release frees the device memory. Using the texture afterwards is an error.
	Release()
}

// Texel is one texel read back from a texture. Color holds float and normalized formats
// (single-channel formats fill only the red channel); Uint holds R32Uint values.
type Texel struct {
	Color mgl32.Vec4
	Uint  uint32
}
