package device

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// BlendMode selects how fragment output combines with the target.
type BlendMode int

const (
	// BlendReplace overwrites the target.
	BlendReplace BlendMode = iota
	// BlendAdditive adds source to destination (one, one).
	BlendAdditive
	// BlendAlpha composites with source alpha (srcAlpha, oneMinusSrcAlpha).
	BlendAlpha
)

// Pipeline is a program plus the fixed-function state it is rasterized with.
type Pipeline interface {
	// Key returns the unique key for this pipeline, used by Pass.SetPipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	Key() string

	// Program returns the shader program.
	//
	// Returns:
	//   - Program: the program executed by this pipeline
	Program() Program

	// ColorFormats returns the format of every color target, in attachment order.
	//
	// Returns:
	//   - []TextureFormat: the color target formats
	ColorFormats() []TextureFormat

	// DepthFormat returns the depth target format and whether the pipeline has one.
	//
	// Returns:
	//   - TextureFormat: the depth format
	//   - bool: true if the pipeline renders with a depth attachment
	DepthFormat() (TextureFormat, bool)

	// Samples returns the multisample count of the targets.
	//
	// Returns:
	//   - int: the sample count
	Samples() int

	// MeshInput reports whether draws consume mesh vertex buffers. Full-screen pipelines do not.
	//
	// Returns:
	//   - bool: true for mesh pipelines
	MeshInput() bool

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled, false otherwise
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// DepthBias returns the constant and slope-scaled depth bias.
	//
	// Returns:
	//   - int32: the constant depth bias
	//   - float32: the slope scale
	DepthBias() (int32, float32)

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - CullMode: the cull mode
	CullMode() CullMode

	// Blend returns the blend mode applied to every color target.
	//
	// Returns:
	//   - BlendMode: the blend mode
	Blend() BlendMode
}

type pipeline struct {
	key     string
	program Program

	colorFormats []TextureFormat
	depthFormat  TextureFormat
	hasDepth     bool
	samples      int
	meshInput    bool

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthBias           int32
	depthBiasSlopeScale float32
	cullMode            CullMode
	blend               BlendMode
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a pipeline for program. By default it is a single-sample mesh pipeline
// with depth test and write enabled, no culling and replace blending.
//
// Parameters:
//   - key: the unique key for this pipeline
//   - program: the shader program
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the configured pipeline
func NewPipeline(key string, program Program, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		key:               key,
		program:           program,
		samples:           1,
		meshInput:         true,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		cullMode:          CullNone,
		blend:             BlendReplace,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Key() string {
	return p.key
}

func (p *pipeline) Program() Program {
	return p.program
}

func (p *pipeline) ColorFormats() []TextureFormat {
	return p.colorFormats
}

func (p *pipeline) DepthFormat() (TextureFormat, bool) {
	return p.depthFormat, p.hasDepth
}

func (p *pipeline) Samples() int {
	return p.samples
}

func (p *pipeline) MeshInput() bool {
	return p.meshInput
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthBias() (int32, float32) {
	return p.depthBias, p.depthBiasSlopeScale
}

func (p *pipeline) CullMode() CullMode {
	return p.cullMode
}

func (p *pipeline) Blend() BlendMode {
	return p.blend
}
