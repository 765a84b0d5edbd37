package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrBatchState is returned when Batch calls are made out of Begin/Draw/End order.
var ErrBatchState = errors.New("renderer: sprite batch used out of order")

// Sprite is one textured quad in window pixels, origin at the top-left corner.
type Sprite struct {
	Position mgl32.Vec2
	Size     mgl32.Vec2
	// UV is the texture rectangle as (u0, v0, u1, v1). The zero value maps the whole texture.
	UV    mgl32.Vec4
	Color mgl32.Vec4
	// Texture is sampled with UV; nil draws a solid quad of Color.
	Texture device.Texture
}

// Batch collects sprites for the overlay drawn over the final image.
type Batch interface {
	// Begin discards the sprites of the previous batch and starts collecting.
	//
	// Returns:
	//   - error: ErrBatchState if a batch is already open
	Begin() error

	// Draw queues a sprite. Sprites are drawn in submission order.
	//
	// Returns:
	//   - error: ErrBatchState outside Begin/End
	Draw(s Sprite) error

	// End closes the batch. The sprites are drawn by every following frame until the next Begin.
	//
	// Returns:
	//   - error: ErrBatchState if no batch is open
	End() error

	// Len returns the number of queued sprites.
	Len() int
}

type spriteRun struct {
	texture device.Texture
	mesh    device.Mesh
}

type spritePass struct {
	tonemap *tonemapPass
	program *shader.SpriteProgram
	white   device.Texture

	open    bool
	sprites []Sprite
	runs    []spriteRun
	dirty   bool
}

var (
	_ Pass  = &spritePass{}
	_ Batch = &spritePass{}
)

func newSpritePass(tonemap *tonemapPass) *spritePass {
	return &spritePass{tonemap: tonemap, program: shader.NewSpriteProgram()}
}

func (s *spritePass) Name() string {
	return "sprite"
}

func (s *spritePass) Init(ctx *RenderContext) error {
	if err := ctx.Device.RegisterPipeline(device.NewPipeline(shader.KeySprite, s.program,
		device.WithColorTargets(device.FormatRGBA8Unorm),
		device.WithDepthTestEnabled(false),
		device.WithDepthWriteEnabled(false),
		device.WithBlend(device.BlendAlpha),
	)); err != nil {
		return err
	}
	white, err := solidTexture(ctx.Device, "sprite_white", device.FormatRGBA8Unorm, mgl32.Vec4{1, 1, 1, 1})
	if err != nil {
		return err
	}
	s.white = white
	return nil
}

func (s *spritePass) Resize(*RenderContext, int, int) error {
	return nil
}

func (s *spritePass) Begin() error {
	if s.open {
		return ErrBatchState
	}
	s.open = true
	s.sprites = s.sprites[:0]
	s.dirty = true
	return nil
}

func (s *spritePass) Draw(sprite Sprite) error {
	if !s.open {
		return ErrBatchState
	}
	if sprite.UV == (mgl32.Vec4{}) {
		sprite.UV = mgl32.Vec4{0, 0, 1, 1}
	}
	s.sprites = append(s.sprites, sprite)
	return nil
}

func (s *spritePass) End() error {
	if !s.open {
		return ErrBatchState
	}
	s.open = false
	return nil
}

func (s *spritePass) Len() int {
	return len(s.sprites)
}

// Runs returns the number of draws the current batch needs: one per run of sprites sharing a texture.
func (s *spritePass) Runs() int {
	return len(s.runs)
}

// build turns the closed batch into one mesh per texture run.
func (s *spritePass) build(dev device.Device) error {
	s.releaseRuns()
	for start := 0; start < len(s.sprites); {
		tex := s.sprites[start].Texture
		end := start + 1
		for end < len(s.sprites) && s.sprites[end].Texture == tex {
			end++
		}
		mesh, err := dev.CreateMesh(fmt.Sprintf("sprites_%d", len(s.runs)), quads(s.sprites[start:end]))
		if err != nil {
			return fmt.Errorf("renderer: build sprite batch: %w", err)
		}
		if tex == nil {
			tex = s.white
		}
		s.runs = append(s.runs, spriteRun{texture: tex, mesh: mesh})
		start = end
	}
	s.dirty = false
	return nil
}

func quads(sprites []Sprite) device.MeshData {
	data := device.MeshData{
		Vertices: make([]device.Vertex, 0, len(sprites)*4),
		Indices:  make([]uint32, 0, len(sprites)*6),
	}
	for _, sp := range sprites {
		x0, y0 := sp.Position[0], sp.Position[1]
		x1, y1 := x0+sp.Size[0], y0+sp.Size[1]
		base := uint32(len(data.Vertices))
		data.Vertices = append(data.Vertices,
			device.Vertex{Position: mgl32.Vec3{x0, y0, 0}, UV: mgl32.Vec2{sp.UV[0], sp.UV[1]}, Color: sp.Color},
			device.Vertex{Position: mgl32.Vec3{x1, y0, 0}, UV: mgl32.Vec2{sp.UV[2], sp.UV[1]}, Color: sp.Color},
			device.Vertex{Position: mgl32.Vec3{x1, y1, 0}, UV: mgl32.Vec2{sp.UV[2], sp.UV[3]}, Color: sp.Color},
			device.Vertex{Position: mgl32.Vec3{x0, y1, 0}, UV: mgl32.Vec2{sp.UV[0], sp.UV[3]}, Color: sp.Color},
		)
		data.Indices = append(data.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return data
}

func (s *spritePass) Render(ctx *RenderContext) error {
	if s.open {
		common.Logger().Warn("renderer: sprite batch still open, drawing the previous one")
	} else if s.dirty {
		if err := s.build(ctx.Device); err != nil {
			return err
		}
	}
	if len(s.runs) == 0 {
		return nil
	}

	p, err := ctx.Device.BeginPass(device.PassDescriptor{
		Label: "sprite",
		Color: []device.ColorAttachment{{Texture: s.tonemap.Final(), Load: device.LoadOpLoad}},
	})
	if err != nil {
		return fmt.Errorf("renderer: begin sprite: %w", err)
	}
	if err := p.SetPipeline(shader.KeySprite); err != nil {
		_ = p.End()
		return err
	}
	width, height := float32(ctx.Frame.Width), float32(ctx.Frame.Height)
	p.SetUniforms(shader.SpriteUniformBinding, &shader.SpriteUniform{Projection: common.Ortho(0, width, height, 0, -1, 1)})
	for _, run := range s.runs {
		p.SetTexture(shader.SpriteTexture, run.texture)
		if err := p.DrawMesh(run.mesh); err != nil {
			common.Logger().Warn("renderer: skipping draw", "pass", "sprite", "err", err)
		}
	}
	return p.End()
}

func (s *spritePass) releaseRuns() {
	for _, run := range s.runs {
		run.mesh.Release()
	}
	s.runs = s.runs[:0]
}

func (s *spritePass) Release() {
	s.releaseRuns()
	releaseTextures(&s.white)
}
