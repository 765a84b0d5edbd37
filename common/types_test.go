package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSniffsAndConvertsToRGBA(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	img.SetGray(2, 1, color.Gray{Y: 200})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	tex := &ImportedTexture{Name: "gray", Data: buf.Bytes()}
	staging, err := tex.Decode()
	require.NoError(t, err)
	assert.Equal(t, "image/png", tex.MimeType)
	assert.Equal(t, 3, tex.Width)
	assert.Equal(t, 2, tex.Height)
	require.Len(t, staging.Pixels, 3*2*4)
	last := staging.Pixels[len(staging.Pixels)-4:]
	assert.Equal(t, []byte{200, 200, 200, 255}, last)
}

func TestDecodeRejectsNonImages(t *testing.T) {
	_, err := (&ImportedTexture{Name: "notes", Data: []byte("plain text")}).Decode()
	assert.Error(t, err)

	_, err = (&ImportedTexture{Name: "empty"}).Decode()
	assert.Error(t, err)

	var nilTexture *ImportedTexture
	_, err = nilTexture.Image()
	assert.Error(t, err)
}
