package imagepipe

import (
	"bytes"
	"errors"
)

// ErrUnsupportedImageFormat rejects bytes whose signature is not JPEG,
// PNG or WEBP before any decoder touches them. Content-type headers are
// caller-supplied and lie; the first bytes do not.
var ErrUnsupportedImageFormat = errors.New("Unsupported image format")

var (
	sigJPEG = []byte{0xff, 0xd8}
	sigPNG  = []byte("\x89PNG")
	sigRIFF = []byte("RIFF")
	sigWEBP = []byte("WEBP")
)

// ValidateMagic inspects the leading bytes against the supported
// signatures.
func ValidateMagic(b []byte) error {
	if bytes.HasPrefix(b, sigJPEG) {
		return nil
	}
	if bytes.HasPrefix(b, sigPNG) {
		return nil
	}
	if len(b) >= 12 && bytes.HasPrefix(b, sigRIFF) && bytes.Equal(b[8:12], sigWEBP) {
		return nil
	}
	return ErrUnsupportedImageFormat
}
