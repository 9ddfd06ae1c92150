package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
)

// PaletteSize is the fixed number of filament colors in a relief.
const PaletteSize = 4

// Luminance thresholds (0-1) below/above which a color counts as near-black or
// near-white. Filament sets almost always include both, so the quantizer rewards
// picking them.
const (
	DarkLuminance  = 0.15
	LightLuminance = 0.85
)

// RGBColor represents an opaque RGB color with 8-bit components.
//
// Each component ranges from 0 to 255, where:
//   - 0 represents no intensity (black for all components)
//   - 255 represents full intensity (white for all components)
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// Palette is an ordered set of exactly PaletteSize colors. Index 0 is the most
// frequent color and becomes the base layer of the relief.
type Palette [PaletteSize]RGBColor

// RGBFromColor converts any color.Color into an RGBColor, dropping alpha.
//
// The color is first converted to non-premultiplied form so that
// semi-transparent source pixels keep their stored RGB bytes instead of being
// darkened by premultiplication.
func RGBFromColor(c color.Color) RGBColor {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGBColor{R: n.R, G: n.G, B: n.B}
}

// Hex returns the color as "#RRGGBB".
func (c RGBColor) Hex() string {
	return strings.ToUpper(c.colorful().Hex())
}

// HexDigits returns the color as "RRGGBB" without the leading '#', the form used
// in file and object names.
func (c RGBColor) HexDigits() string {
	return c.Hex()[1:]
}

// RGBA returns the color as an opaque color.RGBA.
func (c RGBColor) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// DistSq returns the squared Euclidean distance between two colors in 8-bit RGB
// space.
func (c RGBColor) DistSq(o RGBColor) int {
	dr := int(c.R) - int(o.R)
	dg := int(c.G) - int(o.G)
	db := int(c.B) - int(o.B)
	return dr*dr + dg*dg + db*db
}

// Saturation returns the HSV saturation (max-min)/max over normalized RGB, or 0
// for black.
func (c RGBColor) Saturation() float64 {
	_, s, _ := c.colorful().Hsv()
	return s
}

// Luminance returns the ITU-R BT.601 luma of the color in the range 0-1.
func (c RGBColor) Luminance() float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255.0
}

// IsExtreme reports whether the color is near-black or near-white.
func (c RGBColor) IsExtreme() bool {
	l := c.Luminance()
	return l < DarkLuminance || l > LightLuminance
}

func (c RGBColor) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// Hex returns every palette entry as "#RRGGBB", in palette order.
func (p Palette) Hex() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = c.Hex()
	}
	return out
}

// ColorFrequency represents a color and its share of an image.
type ColorFrequency struct {
	Hex        string   `json:"hex"`        // Hex color "#RRGGBB"
	Percentage float64  `json:"percentage"` // Share of the image (0-100)
	RGB        RGBColor `json:"rgb"`        // RGB components
}

// DominantColorsResult contains the most prominent colors in an image.
//
// Colors are sorted by weight in descending order (most prominent first).
type DominantColorsResult struct {
	Colors []ColorFrequency `json:"colors"`
}

// DominantColors extracts up to count prominent colors from an image.
//
// This is a quick look at what the artwork contains before committing to a
// quantization run; it does not influence the relief palette. Extraction is
// delegated to dominantcolor, which clusters a downscaled copy of the image, so
// the returned colors are approximate.
func DominantColors(img image.Image, count int) (*DominantColorsResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	found := dominantcolor.FindWeight(img, count)
	colors := make([]ColorFrequency, 0, len(found))
	for _, c := range found {
		rgb := RGBColor{R: c.RGBA.R, G: c.RGBA.G, B: c.RGBA.B}
		colors = append(colors, ColorFrequency{
			Hex:        rgb.Hex(),
			Percentage: c.Weight * 100,
			RGB:        rgb,
		})
	}

	return &DominantColorsResult{Colors: colors}, nil
}
