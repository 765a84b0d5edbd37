package device

// BindingKind identifies the resource type expected at a binding slot.
type BindingKind int

const (
	// BindingUniform is a uniform buffer filled through Pass.SetUniforms.
	BindingUniform BindingKind = iota
	// BindingTexture is a float texture_2d read with textureLoad.
	BindingTexture
	// BindingTextureArray is a float texture_2d_array read with textureLoad.
	BindingTextureArray
	// BindingUintTexture is a texture_2d<u32>.
	BindingUintTexture
	// BindingMultisampledTexture is a texture_multisampled_2d<f32>.
	BindingMultisampledTexture
	// BindingMultisampledUintTexture is a texture_multisampled_2d<u32>.
	BindingMultisampledUintTexture
	// BindingDepthArray is a texture_depth_2d_array (cascades and cube faces).
	BindingDepthArray
)

// Binding describes one slot of a program's single bind group. The slot index is the binding number.
type Binding struct {
	Name string
	Kind BindingKind
	// Size is the uniform buffer size in bytes, ignored for textures.
	Size int
	// Type is the WGSL struct name of a uniform binding.
	Type string
}

// Layout is the ordered binding list of a program.
type Layout []Binding

// Program is a shader program: WGSL source with a vs_main and fs_main entry point plus its binding layout.
type Program interface {
	// Key uniquely identifies the program.
	Key() string
	// Source returns the preprocessed WGSL source.
	Source() string
	// Layout returns the bind group 0 layout.
	Layout() Layout
}

// Uniforms is a value that can be uploaded into a uniform binding.
type Uniforms interface {
	// Size returns the packed size in bytes.
	Size() int
	// Marshal packs the value following WGSL uniform layout rules.
	Marshal() []byte
}
