package gpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipelineState is a compiled device.Pipeline.
type pipelineState struct {
	pipeline device.Pipeline
	module   *wgpu.ShaderModule
	bgl      *wgpu.BindGroupLayout
	layout   *wgpu.PipelineLayout
	render   *wgpu.RenderPipeline
}

func (s *pipelineState) release() {
	if s.render != nil {
		s.render.Release()
	}
	if s.layout != nil {
		s.layout.Release()
	}
	if s.bgl != nil {
		s.bgl.Release()
	}
	if s.module != nil {
		s.module.Release()
	}
}

// compile creates the shader module, the single bind group layout and the render pipeline of p.
func (d *gpuDevice) compile(p device.Pipeline) (*pipelineState, error) {
	prog := p.Program()
	if d.validate {
		if err := shader.Validate(prog); err != nil {
			common.Logger().Warn("gpu: naga rejected program, deferring to the driver", "program", prog.Key(), "err", err)
		}
	}

	s := &pipelineState{pipeline: p}
	fail := func(stage string, err error) (*pipelineState, error) {
		s.release()
		return nil, fmt.Errorf("gpu: pipeline %q: %s: %w", p.Key(), stage, err)
	}

	var err error
	s.module, err = d.dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          prog.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: prog.Source()},
	})
	if err != nil {
		return fail("shader module", err)
	}
	s.bgl, err = d.dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   prog.Key(),
		Entries: layoutEntries(prog.Layout()),
	})
	if err != nil {
		return fail("bind group layout", err)
	}
	s.layout, err = d.dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.Key(),
		BindGroupLayouts: []*wgpu.BindGroupLayout{s.bgl},
	})
	if err != nil {
		return fail("pipeline layout", err)
	}

	var buffers []wgpu.VertexBufferLayout
	if p.MeshInput() {
		buffers = []wgpu.VertexBufferLayout{vertexLayout()}
	}
	targets := make([]wgpu.ColorTargetState, 0, len(p.ColorFormats()))
	for _, f := range p.ColorFormats() {
		format, err := d.targetFormat(f)
		if err != nil {
			return fail("color target", err)
		}
		targets = append(targets, wgpu.ColorTargetState{
			Format:    format,
			Blend:     blendState(p.Blend(), f),
			WriteMask: wgpu.ColorWriteMaskAll,
		})
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.Key() + " Render Pipeline",
		Layout: s.layout,
		Vertex: wgpu.VertexState{
			Module:     s.module,
			EntryPoint: "vs_main",
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     s.module,
			EntryPoint: "fs_main",
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(p.CullMode()),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(max(p.Samples(), 1)),
			Mask:  0xFFFFFFFF,
		},
	}
	if f, ok := p.DepthFormat(); ok {
		format, err := textureFormat(f)
		if err != nil {
			return fail("depth target", err)
		}
		compare := wgpu.CompareFunctionLess
		if !p.DepthTestEnabled() {
			compare = wgpu.CompareFunctionAlways
		}
		bias, slope := p.DepthBias()
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:              format,
			DepthWriteEnabled:   p.DepthWriteEnabled(),
			DepthCompare:        compare,
			DepthBias:           bias,
			DepthBiasSlopeScale: slope,
			StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	s.render, err = d.dev.CreateRenderPipeline(desc)
	if err != nil {
		return fail("render pipeline", err)
	}
	return s, nil
}

// targetFormat maps a color target format. formatSurface selects the configured surface format.
func (d *gpuDevice) targetFormat(f device.TextureFormat) (wgpu.TextureFormat, error) {
	if f == formatSurface {
		return d.surfaceFormat, nil
	}
	return textureFormat(f)
}
