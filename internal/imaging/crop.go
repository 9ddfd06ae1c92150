package imaging

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// PixelsPerMM is the fixed board resolution: one grid cell is 0.25 mm wide,
// comfortably below a 0.4 mm nozzle line width.
const PixelsPerMM = 4.0

// MaxBoardMm is the largest accepted board side. It keeps the grid within
// 4000 cells per side.
const MaxBoardMm = 1000.0

// BoardResolution converts a physical board footprint into grid dimensions.
//
// Each dimension is rounded to the nearest whole pixel and is at least 1.
// Sides above MaxBoardMm are rejected.
func BoardResolution(widthMm, heightMm float64) (int, int, error) {
	if !(widthMm > 0) || !(heightMm > 0) {
		return 0, 0, fmt.Errorf("board size must be positive, got %gx%g mm", widthMm, heightMm)
	}
	if widthMm > MaxBoardMm || heightMm > MaxBoardMm {
		return 0, 0, fmt.Errorf("board size %gx%g mm exceeds %g mm per side", widthMm, heightMm, MaxBoardMm)
	}
	w := max(1, int(math.Round(widthMm*PixelsPerMM)))
	h := max(1, int(math.Round(heightMm*PixelsPerMM)))
	return w, h, nil
}

// FitToBoard center-crops img to the board aspect ratio and resamples it to
// exactly width x height pixels.
//
// The interactive crop UI is not part of this package; a centered crop is the
// non-interactive equivalent of accepting the default crop box.
func FitToBoard(img image.Image, width, height int) (*image.NRGBA, error) {
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos), nil
}

// Smooth applies a Gaussian blur of the given radius to knock down sensor noise
// and dithering before clustering. A radius of 0 or less returns img unchanged.
func Smooth(img image.Image, radius float64) image.Image {
	if radius <= 0 {
		return img
	}
	return blur.Gaussian(img, radius)
}

// Thumbnail scales img down to fit within size x size pixels, preserving aspect
// ratio. Nearest-neighbor sampling keeps palette renders free of blended colors.
func Thumbnail(img image.Image, size int) *image.NRGBA {
	if size <= 0 {
		size = 256
	}
	return imaging.Fit(img, size, size, imaging.NearestNeighbor)
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
