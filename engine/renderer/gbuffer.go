package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// GeometryBufferType indexes the G-buffer attachments.
type GeometryBufferType int

const (
	Position GeometryBufferType = GeometryBufferType(shader.TargetPosition)
	Normal   GeometryBufferType = GeometryBufferType(shader.TargetNormal)
	Albedo   GeometryBufferType = GeometryBufferType(shader.TargetAlbedo)
	Ambient  GeometryBufferType = GeometryBufferType(shader.TargetAmbient)
	Emissive GeometryBufferType = GeometryBufferType(shader.TargetEmissive)
	EntityID GeometryBufferType = GeometryBufferType(shader.TargetEntityID)

	geometryBufferCount = 6
)

func (t GeometryBufferType) String() string {
	switch t {
	case Position:
		return "position"
	case Normal:
		return "normal"
	case Albedo:
		return "albedo"
	case Ambient:
		return "ambient"
	case Emissive:
		return "emissive"
	case EntityID:
		return "entity_id"
	default:
		return fmt.Sprintf("gbuffer(%d)", int(t))
	}
}

// Format returns the storage format of an attachment. RGB attachments are stored in four-channel formats.
// Unknown types fall back to RGBA8Unorm with a warning.
func (t GeometryBufferType) Format() device.TextureFormat {
	switch t {
	case Position, Normal:
		return device.FormatRGBA16Float
	case Albedo, Ambient, Emissive:
		return device.FormatRGBA8Unorm
	case EntityID:
		return device.FormatR32Uint
	default:
		common.Logger().Warn("renderer: unknown gbuffer attachment, using rgba8unorm", "attachment", t.String())
		return device.FormatRGBA8Unorm
	}
}

func gbufferFormats() []device.TextureFormat {
	formats := make([]device.TextureFormat, geometryBufferCount)
	for i := range formats {
		formats[i] = GeometryBufferType(i).Format()
	}
	return formats
}

// gbufferPass rasterizes every visible mesh into the attachments at the configured sample count and
// resolves them into single-sample textures the later passes read.
type gbufferPass struct {
	program *shader.GBufferProgram

	samples int
	width   int
	height  int

	multisampled [geometryBufferCount]device.Texture
	resolved     [geometryBufferCount]device.Texture
	depth        device.Texture
	white        device.Texture

	drawn int
}

var _ Pass = &gbufferPass{}

func newGBufferPass() *gbufferPass {
	return &gbufferPass{program: shader.NewGBufferProgram()}
}

func (g *gbufferPass) Name() string {
	return "gbuffer"
}

func (g *gbufferPass) Init(ctx *RenderContext) error {
	white, err := solidTexture(ctx.Device, "white_texel", device.FormatRGBA8Unorm, mgl32.Vec4{1, 1, 1, 1})
	if err != nil {
		return err
	}
	g.white = white
	g.samples = ctx.Settings.Renderer.MSAA
	if err := g.register(ctx.Device); err != nil {
		return err
	}
	return g.allocate(ctx.Device, ctx.Frame.Width, ctx.Frame.Height)
}

func (g *gbufferPass) register(dev device.Device) error {
	return dev.RegisterPipeline(device.NewPipeline(shader.KeyGBuffer, g.program,
		device.WithColorTargets(gbufferFormats()...),
		device.WithDepthTarget(device.FormatDepth32Float),
		device.WithSamples(g.samples),
		device.WithCullMode(device.CullBack),
	))
}

func (g *gbufferPass) allocate(dev device.Device, width, height int) error {
	g.releaseTargets()
	g.width, g.height = width, height
	for i := range geometryBufferCount {
		t := GeometryBufferType(i)
		tex, err := createTarget(dev, "gbuffer_"+t.String(), width, height, t.Format(), 1)
		if err != nil {
			return err
		}
		g.resolved[i] = tex
		if g.samples > 1 {
			ms, err := createTarget(dev, "gbuffer_"+t.String()+"_ms", width, height, t.Format(), g.samples)
			if err != nil {
				return err
			}
			g.multisampled[i] = ms
		}
	}
	depth, err := createTarget(dev, "gbuffer_depth", width, height, device.FormatDepth32Float, g.samples)
	if err != nil {
		return err
	}
	g.depth = depth
	return nil
}

func (g *gbufferPass) Resize(ctx *RenderContext, width, height int) error {
	return g.allocate(ctx.Device, width, height)
}

// sync follows a sample count change from the settings.
func (g *gbufferPass) sync(ctx *RenderContext) error {
	if ctx.Settings.Renderer.MSAA == g.samples {
		return nil
	}
	common.Logger().Info("renderer: msaa changed", "from", g.samples, "to", ctx.Settings.Renderer.MSAA)
	g.samples = ctx.Settings.Renderer.MSAA
	if err := g.register(ctx.Device); err != nil {
		return err
	}
	return g.allocate(ctx.Device, g.width, g.height)
}

func (g *gbufferPass) Render(ctx *RenderContext) error {
	if err := g.sync(ctx); err != nil {
		return err
	}

	targets := g.resolved
	if g.samples > 1 {
		targets = g.multisampled
	}
	colors := make([]device.ColorAttachment, geometryBufferCount)
	for i, tex := range targets {
		colors[i] = device.ColorAttachment{Texture: tex, Load: device.LoadOpClear}
	}
	colors[EntityID].ClearUint = scene.NullPickID

	p, err := ctx.Device.BeginPass(device.PassDescriptor{
		Label: "gbuffer",
		Color: colors,
		Depth: &device.DepthAttachment{Texture: g.depth, Load: device.LoadOpClear, Clear: 1},
	})
	if err != nil {
		return fmt.Errorf("renderer: begin gbuffer: %w", err)
	}
	if err := p.SetPipeline(shader.KeyGBuffer); err != nil {
		_ = p.End()
		return err
	}
	p.SetUniforms(shader.GBufferCamera, camera.Uniform(ctx.Camera))

	frustum := common.ExtractFrustumFromMatrix(ctx.Camera.ViewProjection())
	draws := ctx.Scene.CollectDraws(&frustum)
	g.drawn = 0
	for i := range draws {
		d := &draws[i]
		albedo := d.Material.Texture()
		if albedo == nil {
			albedo = g.white
		}
		p.SetUniforms(shader.GBufferObject, d.Material.Uniform(d.World, d.PickID))
		p.SetTexture(shader.GBufferAlbedoMap, albedo)
		if err := p.DrawMesh(d.Mesh.GPU()); err != nil {
			common.Logger().Warn("renderer: skipping draw", "pass", "gbuffer", "entity", ctx.Scene.EntityName(d.Entity), "err", err)
			continue
		}
		g.drawn++
	}
	if err := p.End(); err != nil {
		return err
	}

	if g.samples > 1 {
		for i := range geometryBufferCount {
			if err := ctx.Device.Resolve(g.multisampled[i], g.resolved[i]); err != nil {
				return fmt.Errorf("renderer: resolve %s: %w", GeometryBufferType(i), err)
			}
		}
	}
	return nil
}

// Texture returns the single-sample attachment of type t.
func (g *gbufferPass) Texture(t GeometryBufferType) device.Texture {
	return g.resolved[t]
}

// ReadEntityID reads the pick id under a window-space position whose origin is the top-left corner
// of the viewport.
//
// Parameters:
//   - dev: the device, outside a frame
//   - x, y: the position relative to the viewport origin
//
// Returns:
//   - uint32: the pick id, or scene.NullPickID when nothing was drawn there or the position is outside
//   - error: a readback error
func (g *gbufferPass) ReadEntityID(dev device.Device, x, y int) (uint32, error) {
	tex := g.resolved[EntityID]
	if tex == nil || x < 0 || y < 0 || x >= tex.Width() || y >= tex.Height() {
		return scene.NullPickID, nil
	}
	texel, err := dev.ReadTexel(tex, 0, x, tex.Height()-1-y)
	if err != nil {
		return scene.NullPickID, fmt.Errorf("renderer: read entity id: %w", err)
	}
	return texel.Uint, nil
}

func (g *gbufferPass) releaseTargets() {
	for i := range geometryBufferCount {
		releaseTextures(&g.multisampled[i], &g.resolved[i])
	}
	releaseTextures(&g.depth)
}

func (g *gbufferPass) Release() {
	g.releaseTargets()
	releaseTextures(&g.white)
}
