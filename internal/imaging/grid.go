package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
)

// IndexGrid is a row-major grid of palette indices, one per board pixel.
//
// Values are always in [0, PaletteSize). The grid is treated as immutable once
// produced: cleanup passes and the relief builder read it and build new values.
type IndexGrid struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Cells  []uint8 `json:"-"`
}

// NewIndexGrid allocates a zero-filled grid (every cell references index 0).
func NewIndexGrid(width, height int) *IndexGrid {
	return &IndexGrid{
		Width:  width,
		Height: height,
		Cells:  make([]uint8, width*height),
	}
}

// At returns the palette index at (x, y).
func (g *IndexGrid) At(x, y int) uint8 {
	return g.Cells[y*g.Width+x]
}

// Set stores the palette index at (x, y).
func (g *IndexGrid) Set(x, y int, v uint8) {
	g.Cells[y*g.Width+x] = v
}

// InBounds reports whether (x, y) is a valid cell.
func (g *IndexGrid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Clone returns a deep copy of the grid.
func (g *IndexGrid) Clone() *IndexGrid {
	out := &IndexGrid{Width: g.Width, Height: g.Height, Cells: make([]uint8, len(g.Cells))}
	copy(out.Cells, g.Cells)
	return out
}

// Counts returns how many cells reference each palette index.
func (g *IndexGrid) Counts() [PaletteSize]int {
	var counts [PaletteSize]int
	for _, v := range g.Cells {
		counts[v]++
	}
	return counts
}

// Validate checks the grid shape and that every cell references a palette entry.
func (g *IndexGrid) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("invalid grid size %dx%d", g.Width, g.Height)
	}
	if len(g.Cells) != g.Width*g.Height {
		return fmt.Errorf("grid has %d cells, want %d", len(g.Cells), g.Width*g.Height)
	}
	for i, v := range g.Cells {
		if int(v) >= PaletteSize {
			return fmt.Errorf("cell (%d,%d) references palette index %d", i%g.Width, i/g.Width, v)
		}
	}
	return nil
}

// Render paints the grid with its palette, one image pixel per cell.
func (g *IndexGrid) Render(p Palette) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	for i, v := range g.Cells {
		c := p[v]
		off := i * 4
		img.Pix[off] = c.R
		img.Pix[off+1] = c.G
		img.Pix[off+2] = c.B
		img.Pix[off+3] = 255
	}
	return img
}

// PreviewResult contains a rendered index grid encoded as base64 PNG.
type PreviewResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Preview size limits.
const (
	MaxPreviewScale = 64
	MaxPreviewSide  = 4096
)

// RenderPreview renders the grid with its palette and upscales it by an integer
// factor so individual cells stay crisp.
//
// The scale is clamped to [1, MaxPreviewScale] and lowered further so neither
// side exceeds MaxPreviewSide. A grid already larger than that renders 1:1.
func RenderPreview(g *IndexGrid, p Palette, scale int) (*PreviewResult, error) {
	scale = min(scale, MaxPreviewScale, MaxPreviewSide/max(g.Width, g.Height, 1))
	scale = max(scale, 1)
	var img image.Image = g.Render(p)
	if scale > 1 {
		img = transform.Resize(img, g.Width*scale, g.Height*scale, transform.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return &PreviewResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
