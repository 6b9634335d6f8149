package utils

import (
	"github.com/fathima-sithara/media-pipeline/internal/media"
)

// UploadFileSpec is one declared file in a presign request.
type UploadFileSpec struct {
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
	Ext         string `json:"ext"`
}

// content-type -> allowed extensions, per kind family. Anything outside
// these tables is rejected before a key is ever generated.
var imagePairs = map[string]map[string]bool{
	"image/jpeg": {"jpg": true, "jpeg": true},
	"image/png":  {"png": true},
	"image/webp": {"webp": true},
}

var videoPairs = map[string]map[string]bool{
	"video/mp4":  {"mp4": true},
	"video/webm": {"webm": true},
}

var imageKinds = map[media.AssetKind]bool{
	media.AssetKindOGP:       true,
	media.AssetKindThumbnail: true,
	media.AssetKindImages:    true,
}

var videoKinds = map[media.AssetKind]bool{
	media.AssetKindMainVideo:   true,
	media.AssetKindSampleVideo: true,
}

// ValidateImageUploadSpecs checks kinds against the image endpoint's
// allowed set, rejects duplicate single-valued kinds, and enforces the
// content-type/extension whitelist. Returns the parsed kinds in request
// order.
func ValidateImageUploadSpecs(files []UploadFileSpec) ([]media.AssetKind, error) {
	return validateSpecs(files, imageKinds, imagePairs)
}

// ValidateVideoUploadSpecs is the video endpoint's counterpart.
func ValidateVideoUploadSpecs(files []UploadFileSpec) ([]media.AssetKind, error) {
	return validateSpecs(files, videoKinds, videoPairs)
}

// ValidateImagePair checks a single content-type/extension pair against
// the image whitelist; used by the account and identity endpoints where
// the kind is free-form.
func ValidateImagePair(contentType, ext string) error {
	exts, ok := imagePairs[contentType]
	if !ok {
		return Validationf("unsupported content type: %s", contentType)
	}
	if !exts[ext] {
		return Validationf("extension %s not allowed for %s", ext, contentType)
	}
	return nil
}

// ValidateVideoContentType checks a bare content type against the video
// whitelist; the multipart ingest path carries no extension.
func ValidateVideoContentType(contentType string) error {
	if _, ok := videoPairs[contentType]; !ok {
		return Validationf("unsupported content type: %s", contentType)
	}
	return nil
}

func validateSpecs(files []UploadFileSpec, allowed map[media.AssetKind]bool, pairs map[string]map[string]bool) ([]media.AssetKind, error) {
	if len(files) == 0 {
		return nil, Validationf("no files declared")
	}
	kinds := make([]media.AssetKind, 0, len(files))
	seen := make(map[media.AssetKind]bool)
	for _, f := range files {
		kind, err := media.ParseAssetKind(f.Kind)
		if err != nil || !allowed[kind] {
			return nil, Validationf("unsupported kind: %s", f.Kind)
		}
		if seen[kind] && !kind.MultiValued() {
			return nil, Validationf("duplicated kind: %s", f.Kind)
		}
		seen[kind] = true

		exts, ok := pairs[f.ContentType]
		if !ok {
			return nil, Validationf("unsupported content type: %s", f.ContentType)
		}
		if !exts[f.Ext] {
			return nil, Validationf("extension %s not allowed for %s", f.Ext, f.ContentType)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
