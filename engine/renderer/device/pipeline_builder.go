package device

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithColorTargets sets the color target formats in attachment order.
//
// Parameters:
//   - formats: one format per color attachment
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color targets for this pipeline
func WithColorTargets(formats ...TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorFormats = append([]TextureFormat(nil), formats...)
	}
}

// WithDepthTarget gives the pipeline a depth attachment of the given format.
//
// Parameters:
//   - format: the depth format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth target for this pipeline
func WithDepthTarget(format TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthFormat = format
		p.hasDepth = true
	}
}

// WithSamples sets the multisample count of the targets.
//
// Parameters:
//   - samples: the sample count (1 disables multisampling)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the sample count for this pipeline
func WithSamples(samples int) PipelineBuilderOption {
	return func(p *pipeline) {
		if samples > 0 {
			p.samples = samples
		}
	}
}

// WithFullscreen marks the pipeline as a full-screen pass: no vertex buffers, no depth.
//
// Returns:
//   - PipelineBuilderOption: a function that configures a full-screen pipeline
func WithFullscreen() PipelineBuilderOption {
	return func(p *pipeline) {
		p.meshInput = false
		p.hasDepth = false
		p.depthTestEnabled = false
		p.depthWriteEnabled = false
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthBias sets the depth bias parameters for this pipeline.
//
// Parameters:
//   - bias: the constant depth bias to apply
//   - slopeScale: the slope scale depth bias to apply
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth bias parameters for this pipeline
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthBias = bias
		p.depthBiasSlopeScale = slopeScale
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithBlend sets the blend mode for this pipeline.
//
// Parameters:
//   - mode: the blend mode applied to every color target
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend mode for this pipeline
func WithBlend(mode BlendMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blend = mode
	}
}
