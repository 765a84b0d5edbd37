package device

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrPipelineNotFound is returned when a pass selects a pipeline that was never registered.
	ErrPipelineNotFound = errors.New("device: pipeline not registered")
	// ErrOutOfBounds is returned when a texel coordinate lies outside the texture.
	ErrOutOfBounds = errors.New("device: texel out of bounds")
	// ErrNoFrame is returned when frame-scoped work is issued outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("device: no frame in progress")
	// ErrFrameInProgress is returned when work that must not overlap a frame is issued inside one.
	ErrFrameInProgress = errors.New("device: frame in progress")
	// ErrFormatMismatch is returned when textures or pipelines disagree on formats or sizes.
	ErrFormatMismatch = errors.New("device: format mismatch")
)

// LoadOp selects what happens to an attachment's previous contents when a pass begins.
type LoadOp int

const (
	LoadOpClear LoadOp = iota
	LoadOpLoad
)

// ColorAttachment binds one layer of a color texture as a render target.
type ColorAttachment struct {
	Texture Texture
	Layer   int
	Load    LoadOp
	// Clear is used by float and normalized formats.
	Clear mgl32.Vec4
	// ClearUint is used by R32Uint targets.
	ClearUint uint32
}

// DepthAttachment binds one layer of a depth texture as the depth target.
type DepthAttachment struct {
	Texture Texture
	Layer   int
	Load    LoadOp
	Clear   float32
}

// PassDescriptor describes the targets of a render pass. All attachments must share one size and sample count.
type PassDescriptor struct {
	Label string
	Color []ColorAttachment
	Depth *DepthAttachment
}

// Pass records draws into the targets of one PassDescriptor.
type Pass interface {
	// SetPipeline selects the registered pipeline for subsequent draws and clears all bindings.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - error: ErrPipelineNotFound if the key was never registered
	SetPipeline(key string) error

	// SetUniforms uploads u into the uniform slot at binding. The value is captured immediately,
	// so reusing u for the next draw does not affect earlier draws.
	SetUniforms(binding int, u Uniforms)

	// SetTexture binds t to the texture slot at binding.
	SetTexture(binding int, t Texture)

	// DrawMesh draws an indexed mesh with the current pipeline and bindings.
	DrawMesh(m Mesh) error

	// DrawFullscreen covers every target texel once with the current full-screen pipeline.
	DrawFullscreen() error

	// End finishes recording. The pass cannot be used afterwards.
	End() error
}

// Device is the graphics device the renderer draws with. All methods are called from the render thread.
type Device interface {
	// Name identifies the backend in logs.
	Name() string

	// CreateTexture allocates a texture. Contents are undefined until cleared or written.
	//
	// Parameters:
	//   - desc: the texture description
	//
	// Returns:
	//   - Texture: the new texture
	//   - error: an error if the description is invalid
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// WriteTexture replaces one layer of a single-sample texture with tightly packed rows, top row first.
	//
	// Parameters:
	//   - tex: the destination
	//   - layer: the array layer
	//   - data: Width*Height*BytesPerTexel bytes
	//
	// Returns:
	//   - error: an error if the data does not match the texture
	WriteTexture(tex Texture, layer int, data []byte) error

	// CreateMesh uploads geometry.
	//
	// Parameters:
	//   - label: a debug name
	//   - data: the vertices and indices
	//
	// Returns:
	//   - Mesh: the device mesh
	//   - error: an error if the upload fails
	CreateMesh(label string, data MeshData) (Mesh, error)

	// RegisterPipeline compiles a pipeline so passes can select it by key. Registering a key twice replaces it.
	//
	// Parameters:
	//   - p: the pipeline
	//
	// Returns:
	//   - error: a compilation error
	RegisterPipeline(p Pipeline) error

	// HasPipeline reports whether key was registered.
	HasPipeline(key string) bool

	// BeginFrame starts recording a frame.
	BeginFrame() error

	// BeginPass starts a render pass inside the current frame.
	//
	// Parameters:
	//   - desc: the targets of the pass
	//
	// Returns:
	//   - Pass: the pass recorder
	//   - error: ErrNoFrame outside a frame, ErrFormatMismatch for inconsistent targets
	BeginPass(desc PassDescriptor) (Pass, error)

	// Resolve copies a multisampled texture into a single-sample texture of the same size and format.
	// Float and normalized formats average their samples; integer formats take sample 0.
	//
	// Parameters:
	//   - src: the multisampled source
	//   - dst: the single-sample destination
	//
	// Returns:
	//   - error: ErrFormatMismatch if the textures are incompatible
	Resolve(src, dst Texture) error

	// Present shows tex on the device's surface, if it has one.
	Present(tex Texture) error

	// EndFrame submits the recorded frame.
	EndFrame() error

	// ReadTexel reads back one texel of a single-sample texture. (0, 0) is the bottom-left texel.
	// It must not be called while a frame is being recorded.
	//
	// Parameters:
	//   - tex: the texture to read
	//   - layer: the array layer
	//   - x, y: the texel coordinate
	//
	// Returns:
	//   - Texel: the value
	//   - error: ErrOutOfBounds or ErrFrameInProgress
	ReadTexel(tex Texture, layer, x, y int) (Texel, error)

	// Release frees every device resource.
	Release()
}
