package imagepipe

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7 % 256), G: uint8(y * 13 % 256), B: uint8((x + y) % 256), A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeTestJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestValidateMagicAcceptsKnownSignatures(t *testing.T) {
	assert.NoError(t, ValidateMagic(encodeTestJPEG(t, testImage(8, 8))))
	assert.NoError(t, ValidateMagic(encodePNG(t, testImage(8, 8))))

	webpHeader := append([]byte("RIFF"), 0x24, 0x00, 0x00, 0x00)
	webpHeader = append(webpHeader, []byte("WEBPVP8 ")...)
	assert.NoError(t, ValidateMagic(webpHeader))
}

func TestValidateMagicRejectsOtherBytes(t *testing.T) {
	cases := map[string][]byte{
		"text":            []byte("hello, this is not an image"),
		"empty":           {},
		"truncated jpeg":  {0xff},
		"gif":             []byte("GIF89a...."),
		"riff non-webp":   []byte("RIFF\x24\x00\x00\x00WAVEfmt "),
		"short riff":      []byte("RIFFWEBP"),
		"mislabeled html": []byte("<html><body>img</body></html>"),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateMagic(data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupportedImageFormat)
			assert.EqualError(t, err, "Unsupported image format")
		})
	}
}
