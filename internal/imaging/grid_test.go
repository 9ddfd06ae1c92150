package imaging

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"testing"
)

func testPalette() Palette {
	return Palette{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}, {255, 255, 255}}
}

func TestNewIndexGrid(t *testing.T) {
	g := NewIndexGrid(5, 3)
	if g.Width != 5 || g.Height != 3 {
		t.Fatalf("size: got %dx%d, want 5x3", g.Width, g.Height)
	}
	if len(g.Cells) != 15 {
		t.Fatalf("cells: got %d, want 15", len(g.Cells))
	}
	counts := g.Counts()
	if counts[0] != 15 {
		t.Errorf("a new grid should reference index 0 everywhere, counts=%v", counts)
	}
}

func TestIndexGrid_SetAtClone(t *testing.T) {
	g := NewIndexGrid(4, 4)
	g.Set(2, 1, 3)
	if g.At(2, 1) != 3 {
		t.Errorf("At(2,1): got %d, want 3", g.At(2, 1))
	}
	if g.Cells[1*4+2] != 3 {
		t.Error("grid should be row-major")
	}

	c := g.Clone()
	c.Set(2, 1, 0)
	if g.At(2, 1) != 3 {
		t.Error("Clone should not share storage with the original")
	}
}

func TestIndexGrid_InBounds(t *testing.T) {
	g := NewIndexGrid(3, 2)
	tests := []struct {
		x, y int
		want bool
	}{
		{0, 0, true},
		{2, 1, true},
		{-1, 0, false},
		{0, -1, false},
		{3, 0, false},
		{0, 2, false},
	}
	for _, tt := range tests {
		if got := g.InBounds(tt.x, tt.y); got != tt.want {
			t.Errorf("InBounds(%d,%d): got %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestIndexGrid_Validate(t *testing.T) {
	g := NewIndexGrid(2, 2)
	if err := g.Validate(); err != nil {
		t.Fatalf("valid grid rejected: %v", err)
	}

	g.Cells[3] = PaletteSize
	if err := g.Validate(); err == nil {
		t.Error("out-of-range index should fail validation")
	}

	short := &IndexGrid{Width: 2, Height: 2, Cells: make([]uint8, 3)}
	if err := short.Validate(); err == nil {
		t.Error("short cell slice should fail validation")
	}

	empty := &IndexGrid{}
	if err := empty.Validate(); err == nil {
		t.Error("zero-size grid should fail validation")
	}
}

func TestIndexGrid_Render(t *testing.T) {
	g := NewIndexGrid(2, 2)
	g.Set(1, 0, 1)
	g.Set(0, 1, 2)
	g.Set(1, 1, 3)

	img := g.Render(testPalette())
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("render size: got %v", img.Bounds())
	}

	tests := []struct {
		x, y int
		want RGBColor
	}{
		{0, 0, RGBColor{255, 0, 0}},
		{1, 0, RGBColor{0, 255, 0}},
		{0, 1, RGBColor{0, 0, 255}},
		{1, 1, RGBColor{255, 255, 255}},
	}
	for _, tt := range tests {
		got := RGBFromColor(img.At(tt.x, tt.y))
		if got != tt.want {
			t.Errorf("pixel (%d,%d): got %s, want %s", tt.x, tt.y, got.Hex(), tt.want.Hex())
		}
	}
}

func TestRenderPreview(t *testing.T) {
	g := NewIndexGrid(3, 2)
	g.Set(2, 1, 2)

	result, err := RenderPreview(g, testPalette(), 4)
	if err != nil {
		t.Fatalf("RenderPreview failed: %v", err)
	}
	if result.Width != 12 || result.Height != 8 {
		t.Errorf("size: got %dx%d, want 12x8", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s", result.MimeType)
	}

	raw, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid png: %v", err)
	}
	// Bottom-right block stays a crisp blue cell after upscaling.
	if got := RGBFromColor(img.At(11, 7)); got != (RGBColor{0, 0, 255}) {
		t.Errorf("upscaled cell: got %s, want #0000FF", got.Hex())
	}
	if got := RGBFromColor(img.At(7, 7)); got != (RGBColor{255, 0, 0}) {
		t.Errorf("neighbouring cell: got %s, want #FF0000", got.Hex())
	}
}

func TestRenderPreview_ScaleClamped(t *testing.T) {
	g := NewIndexGrid(3, 2)
	result, err := RenderPreview(g, testPalette(), 0)
	if err != nil {
		t.Fatalf("RenderPreview failed: %v", err)
	}
	if result.Width != 3 || result.Height != 2 {
		t.Errorf("scale 0 should render 1:1, got %dx%d", result.Width, result.Height)
	}
}

func TestRenderPreview_ScaleCapped(t *testing.T) {
	tests := []struct {
		name         string
		w, h, scale  int
		wantW, wantH int
	}{
		{"scale cap", 2, 1, 100000, 2 * MaxPreviewScale, MaxPreviewScale},
		{"side cap", 200, 100, 50, 200 * 20, 100 * 20},
		{"grid over side cap", MaxPreviewSide + 4, 1, 3, MaxPreviewSide + 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := RenderPreview(NewIndexGrid(tt.w, tt.h), testPalette(), tt.scale)
			if err != nil {
				t.Fatalf("RenderPreview failed: %v", err)
			}
			if result.Width != tt.wantW || result.Height != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", result.Width, result.Height, tt.wantW, tt.wantH)
			}
		})
	}
}
