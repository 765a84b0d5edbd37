// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// ImportedTexture represents an image source that has not been decoded yet.
// Either Data holds the raw encoded bytes or Path points at a file on disk.
type ImportedTexture struct {
	// Name is an identifier for this texture (e.g., "albedo", "skybox_px").
	Name string

	// Path is the file path for external textures (empty for in-memory data).
	Path string

	// Data contains raw encoded image bytes.
	Data []byte

	// MimeType is the sniffed image format (e.g., "image/png"), populated by Decode.
	MimeType string

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int
}

// Decode decodes the texture to raw RGBA pixel data.
// Supports PNG, JPEG, BMP, TIFF and WebP.
//
// Returns:
//   - *TextureStagingData: raw RGBA pixel data (4 bytes per pixel, row-major, top row first)
//   - error: error if reading or decoding fails
func (t *ImportedTexture) Decode() (*TextureStagingData, error) {
	img, err := t.Image()
	if err != nil {
		return nil, err
	}
	return ImageToStaging(img), nil
}

// Image decodes the texture without converting it. Uses either embedded Data bytes or loads from
// Path on disk. The content type is sniffed from the magic bytes first so that non-image files are
// rejected before the decoders run.
//
// Returns:
//   - image.Image: the decoded image
//   - error: error if reading or decoding fails
func (t *ImportedTexture) Image() (image.Image, error) {
	if t == nil {
		return nil, fmt.Errorf("texture is nil")
	}

	data := t.Data
	if len(data) == 0 {
		if t.Path == "" {
			return nil, fmt.Errorf("texture has neither data nor path")
		}
		raw, err := os.ReadFile(t.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read texture file %s: %w", t.Path, err)
		}
		data = raw
	}

	kind, err := filetype.Match(data)
	if err != nil || !filetype.IsImage(data) {
		return nil, fmt.Errorf("texture %q is not a recognised image", Coalesce(t.Path, t.Name))
	}
	t.MimeType = kind.MIME.Value

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture %q: %w", Coalesce(t.Path, t.Name), err)
	}
	t.Width = img.Bounds().Dx()
	t.Height = img.Bounds().Dy()
	return img, nil
}

// ImageToStaging converts any image into tightly packed RGBA staging data.
func ImageToStaging(img image.Image) *TextureStagingData {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return &TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
}
