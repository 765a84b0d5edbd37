package soft

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type target struct {
	tex   *texture
	layer int
}

type pass struct {
	device   *softDevice
	label    string
	colors   []target
	depth    *target
	width    int
	height   int
	samples  int
	pipeline device.Pipeline
	shader   Shader
	bindings *Bindings
	ended    bool
}

var _ device.Pass = &pass{}

func (p *pass) SetPipeline(key string) error {
	pl, ok := p.device.pipelines[key]
	if !ok {
		return fmt.Errorf("pass %q: %w: %s", p.label, device.ErrPipelineNotFound, key)
	}
	p.pipeline = pl
	p.shader = pl.Program().(Shader)
	p.bindings = newBindings()
	return nil
}

func (p *pass) SetUniforms(binding int, u device.Uniforms) {
	p.bindings.uniforms[binding] = u
}

func (p *pass) SetTexture(binding int, t device.Texture) {
	tex, err := unwrap(t)
	if err != nil {
		delete(p.bindings.textures, binding)
		return
	}
	p.bindings.textures[binding] = tex
}

func (p *pass) ready() error {
	if p.ended {
		return fmt.Errorf("pass %q already ended", p.label)
	}
	if p.pipeline == nil {
		return fmt.Errorf("pass %q: no pipeline set", p.label)
	}
	return nil
}

func (p *pass) End() error {
	if p.ended {
		return fmt.Errorf("pass %q already ended", p.label)
	}
	p.ended = true
	return nil
}

func (p *pass) DrawFullscreen() error {
	if err := p.ready(); err != nil {
		return err
	}
	if p.pipeline.MeshInput() {
		return fmt.Errorf("pass %q: pipeline %q expects mesh input", p.label, p.pipeline.Key())
	}
	w, h := float32(p.width), float32(p.height)
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			f := Fragment{Coord: mgl32.Vec2{float32(x) + 0.5, float32(y) + 0.5}}
			f.Varyings[0] = mgl32.Vec4{f.Coord[0] / w, f.Coord[1] / h, 0, 0}
			out, keep := p.shader.Fragment(p.bindings, f)
			if !keep {
				continue
			}
			p.write(x, y, out)
		}
	}
	p.device.stats.Fullscreens++
	return nil
}

type clipVertex struct {
	pos mgl32.Vec4
	v   Varyings
}

func (p *pass) DrawMesh(m device.Mesh) error {
	if err := p.ready(); err != nil {
		return err
	}
	sm, ok := m.(*mesh)
	if !ok {
		return fmt.Errorf("pass %q: mesh %q was not created by the soft device", p.label, m.Label())
	}
	if !p.pipeline.MeshInput() {
		return fmt.Errorf("pass %q: pipeline %q is full-screen", p.label, p.pipeline.Key())
	}

	verts := make([]clipVertex, len(sm.data.Vertices))
	for i, v := range sm.data.Vertices {
		verts[i].pos, verts[i].v = p.shader.Vertex(p.bindings, v)
	}
	idx := sm.data.Indices
	for i := 0; i+2 < len(idx); i += 3 {
		poly := clipNear([]clipVertex{verts[idx[i]], verts[idx[i+1]], verts[idx[i+2]]})
		for j := 1; j+1 < len(poly); j++ {
			p.triangle(poly[0], poly[j], poly[j+1])
		}
	}
	p.device.stats.Draws++
	return nil
}

// clipNear clips a polygon against the WebGPU near plane z >= 0 (Sutherland-Hodgman).
func clipNear(in []clipVertex) []clipVertex {
	out := make([]clipVertex, 0, len(in)+2)
	for i := range in {
		a, b := in[i], in[(i+1)%len(in)]
		aIn, bIn := a.pos[2] >= 0, b.pos[2] >= 0
		if aIn {
			out = append(out, a)
		}
		if aIn != bIn {
			t := a.pos[2] / (a.pos[2] - b.pos[2])
			out = append(out, lerpVertex(a, b, t))
		}
	}
	return out
}

func lerpVertex(a, b clipVertex, t float32) clipVertex {
	var c clipVertex
	c.pos = a.pos.Add(b.pos.Sub(a.pos).Mul(t))
	for i := range c.v {
		c.v[i] = a.v[i].Add(b.v[i].Sub(a.v[i]).Mul(t))
	}
	return c
}

type screenVertex struct {
	x, y, z float32
	invW    float32
	v       Varyings
}

func (p *pass) toScreen(c clipVertex) screenVertex {
	invW := 1 / c.pos[3]
	nx, ny, nz := c.pos[0]*invW, c.pos[1]*invW, c.pos[2]*invW
	return screenVertex{
		x:    (nx*0.5 + 0.5) * float32(p.width),
		y:    (0.5 - ny*0.5) * float32(p.height),
		z:    nz,
		invW: invW,
		v:    c.v,
	}
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func (p *pass) triangle(c0, c1, c2 clipVertex) {
	s0, s1, s2 := p.toScreen(c0), p.toScreen(c1), p.toScreen(c2)

	// Screen space has y pointing down, so a counter-clockwise (front) triangle has negative area here.
	area := edge(s0.x, s0.y, s1.x, s1.y, s2.x, s2.y)
	if area == 0 {
		return
	}
	front := area < 0
	switch p.pipeline.CullMode() {
	case device.CullFront:
		if front {
			return
		}
	case device.CullBack:
		if !front {
			return
		}
	}

	minX := max(0, int(math32.Floor(min(s0.x, s1.x, s2.x))))
	maxX := min(p.width-1, int(math32.Ceil(max(s0.x, s1.x, s2.x))))
	minY := max(0, int(math32.Floor(min(s0.y, s1.y, s2.y))))
	maxY := min(p.height-1, int(math32.Ceil(max(s0.y, s1.y, s2.y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5
			b0 := edge(s1.x, s1.y, s2.x, s2.y, px, py) / area
			b1 := edge(s2.x, s2.y, s0.x, s0.y, px, py) / area
			b2 := edge(s0.x, s0.y, s1.x, s1.y, px, py) / area
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}
			z := b0*s0.z + b1*s1.z + b2*s2.z
			if z < 0 || z > 1 {
				continue
			}

			w0, w1, w2 := b0*s0.invW, b1*s1.invW, b2*s2.invW
			norm := 1 / (w0 + w1 + w2)
			f := Fragment{Coord: mgl32.Vec2{px, py}, Depth: z}
			for i := range f.Varyings {
				f.Varyings[i] = s0.v[i].Mul(w0 * norm).Add(s1.v[i].Mul(w1 * norm)).Add(s2.v[i].Mul(w2 * norm))
			}
			p.shade(x, y, f)
		}
	}
}

func (p *pass) shade(x, y int, f Fragment) {
	out, keep := p.shader.Fragment(p.bindings, f)
	if !keep {
		return
	}
	depth := f.Depth
	if out.WriteDepth {
		depth = out.Depth
	}
	if p.depth != nil {
		if p.pipeline.DepthTestEnabled() && depth >= p.depth.tex.color(p.depth.layer, x, y, 0)[0] {
			return
		}
		if p.pipeline.DepthWriteEnabled() {
			for s := 0; s < p.samples; s++ {
				p.depth.tex.setColor(p.depth.layer, x, y, s, mgl32.Vec4{depth})
			}
		}
	}
	p.write(x, y, out)
}

func (p *pass) write(x, y int, out FragmentOutput) {
	for i, t := range p.colors {
		if i >= MaxTargets {
			break
		}
		for s := 0; s < p.samples; s++ {
			if t.tex.u != nil {
				t.tex.setUint(t.layer, x, y, s, out.Uint[i])
				continue
			}
			src := out.Color[i]
			switch p.pipeline.Blend() {
			case device.BlendAdditive:
				src = t.tex.color(t.layer, x, y, s).Add(src)
			case device.BlendAlpha:
				dst := t.tex.color(t.layer, x, y, s)
				a := src[3]
				src = mgl32.Vec4{
					src[0]*a + dst[0]*(1-a),
					src[1]*a + dst[1]*(1-a),
					src[2]*a + dst[2]*(1-a),
					a + dst[3]*(1-a),
				}
			}
			t.tex.setColor(t.layer, x, y, s, src)
		}
	}
}
