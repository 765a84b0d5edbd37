package device

import "fmt"

// TextureFormat is the storage format of a texture. Only the formats the deferred pipeline needs are modelled.
type TextureFormat int

const (
	// FormatRGBA8Unorm stores four 8-bit normalized channels (albedo, ambient, emissive, final color).
	FormatRGBA8Unorm TextureFormat = iota
	// FormatRGBA16Float stores four 16-bit float channels (position, normal, lighting, bloom).
	FormatRGBA16Float
	// FormatRGBA32Float stores four 32-bit float channels (SSAO noise).
	FormatRGBA32Float
	// FormatR8Unorm stores one 8-bit normalized channel (SSAO occlusion).
	FormatR8Unorm
	// FormatR32Uint stores one 32-bit unsigned integer channel (entity ids).
	FormatR32Uint
	// FormatDepth32Float stores 32-bit float depth.
	FormatDepth32Float
)

func (f TextureFormat) String() string {
	switch f {
	case FormatRGBA8Unorm:
		return "rgba8unorm"
	case FormatRGBA16Float:
		return "rgba16float"
	case FormatRGBA32Float:
		return "rgba32float"
	case FormatR8Unorm:
		return "r8unorm"
	case FormatR32Uint:
		return "r32uint"
	case FormatDepth32Float:
		return "depth32float"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// IsDepth reports whether the format is a depth format.
func (f TextureFormat) IsDepth() bool {
	return f == FormatDepth32Float
}

// IsUint reports whether the format stores unsigned integers.
func (f TextureFormat) IsUint() bool {
	return f == FormatR32Uint
}

// Channels returns the number of color channels, 1 for depth.
func (f TextureFormat) Channels() int {
	switch f {
	case FormatR8Unorm, FormatR32Uint, FormatDepth32Float:
		return 1
	default:
		return 4
	}
}

// BytesPerTexel returns the size of one texel in bytes.
func (f TextureFormat) BytesPerTexel() int {
	switch f {
	case FormatRGBA8Unorm, FormatR32Uint, FormatDepth32Float:
		return 4
	case FormatRGBA16Float:
		return 8
	case FormatRGBA32Float:
		return 16
	case FormatR8Unorm:
		return 1
	default:
		return 4
	}
}
