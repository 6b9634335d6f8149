package imagepipe

import (
	"image"

	"github.com/disintegration/imaging"
)

// Region is a caller-specified rectangle to pixelate, in source pixels.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// effectiveBlockSize clamps the requested block so the frame's long edge
// always spans at least minBlocks blocks; a block is never under 1px.
// One rule for whole-frame and region mosaics, so output is a pure
// function of input image, block size and region list.
func effectiveBlockSize(w, h, requested, minBlocks int) int {
	long := w
	if h > long {
		long = h
	}
	b := requested
	if minBlocks > 0 {
		if limit := long / minBlocks; limit < b {
			b = limit
		}
	}
	if b < 1 {
		b = 1
	}
	return b
}

// Pixelate downsamples the whole frame to a block-count grid and scales
// back up with nearest-neighbour. The result is irreversible: each block
// holds only the box-filtered average of its source pixels.
func Pixelate(img image.Image, blockSize, minBlocks int) *image.NRGBA {
	bounds := img.Bounds()
	b := effectiveBlockSize(bounds.Dx(), bounds.Dy(), blockSize, minBlocks)
	return pixelateBlock(img, b)
}

// PixelateRegions pixelates only the given rectangles, leaving the rest
// of the frame untouched. The block size derives from the full frame so
// every region shows the same granularity.
func PixelateRegions(img image.Image, blockSize, minBlocks int, regions []Region) *image.NRGBA {
	bounds := img.Bounds()
	b := effectiveBlockSize(bounds.Dx(), bounds.Dy(), blockSize, minBlocks)

	out := imaging.Clone(img)
	for _, r := range regions {
		rect := image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H).Intersect(out.Bounds())
		if rect.Empty() {
			continue
		}
		patch := pixelateBlock(imaging.Crop(out, rect), b)
		out = imaging.Paste(out, patch, rect.Min)
	}
	return out
}

func pixelateBlock(img image.Image, b int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	bw := (w + b - 1) / b
	bh := (h + b - 1) / b
	down := imaging.Resize(img, bw, bh, imaging.Box)
	return imaging.Resize(down, w, h, imaging.NearestNeighbor)
}

// MosaicThumb scales a mosaic down without re-smoothing the blocks away.
func MosaicThumb(mosaic image.Image, size int) *image.NRGBA {
	return imaging.Fit(mosaic, size, size, imaging.NearestNeighbor)
}
