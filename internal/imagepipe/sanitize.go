package imagepipe

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/fathima-sithara/media-pipeline/internal/media"
)

// Variant is an encoded derivative ready for upload. Suffix and Ext feed
// the sibling-key derivation off the asset's base key.
type Variant struct {
	Kind        media.RenditionKind
	Suffix      string
	Ext         string
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// SanitizeOptions control variant geometry and encoder quality.
type SanitizeOptions struct {
	DerivativeWidth int
	ThumbSize       int
	JPEGQuality     int
	WebPQuality     float32
}

// Sanitize decodes the raw bytes with EXIF orientation applied, then
// re-encodes three variants: a canonical JPEG (metadata stripped), a
// width-capped webp derivative and a small webp thumbnail. The decoded
// image is returned for further derivation (mosaic).
func Sanitize(raw []byte, o SanitizeOptions) (*image.NRGBA, []Variant, error) {
	src, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}
	img := imaging.Clone(src)

	original, err := encodeJPEG(img, o.JPEGQuality)
	if err != nil {
		return nil, nil, err
	}

	derived := img
	if derived.Bounds().Dx() > o.DerivativeWidth {
		derived = imaging.Resize(img, o.DerivativeWidth, 0, imaging.Lanczos)
	}
	derivedBytes, err := encodeWebP(derived, o.WebPQuality)
	if err != nil {
		return nil, nil, err
	}

	thumb := imaging.Fit(img, o.ThumbSize, o.ThumbSize, imaging.Lanczos)
	thumbBytes, err := encodeWebP(thumb, o.WebPQuality)
	if err != nil {
		return nil, nil, err
	}

	variants := []Variant{
		{
			Kind: media.RenditionKindImageOriginal, Suffix: "original", Ext: "jpg",
			ContentType: "image/jpeg", Data: original,
			Width: img.Bounds().Dx(), Height: img.Bounds().Dy(),
		},
		{
			Kind: media.RenditionKindImage1080W, Suffix: "1080w", Ext: "webp",
			ContentType: "image/webp", Data: derivedBytes,
			Width: derived.Bounds().Dx(), Height: derived.Bounds().Dy(),
		},
		{
			Kind: media.RenditionKindImageThumb, Suffix: "thumb", Ext: "webp",
			ContentType: "image/webp", Data: thumbBytes,
			Width: thumb.Bounds().Dx(), Height: thumb.Bounds().Dy(),
		},
	}
	return img, variants, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality float32) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}
