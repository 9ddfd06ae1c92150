// Package relief turns a cleaned palette index grid into a stack of per-color
// occupancy masks, each with the z-range its solid occupies.
//
// Layers are stacked bottom-up in palette order. Palette index 0 (the most
// common color) starts at z=0 and also carries the base plate thickness; every
// following index starts where the previous one ends:
//
//	index 0: [0, base+h0)
//	index i: [top(i-1), top(i-1)+h(i))
//
// When Settings.IsTactile is false every layer uses LayerHeights[0], which gives
// a relief with four equal bands.
package relief

import (
	"fmt"

	"github.com/ironsheep/relief-tools-mcp/internal/imaging"
)

// Settings holds the physical parameters of a relief export.
type Settings struct {
	// BaseHeight is the extra thickness (mm) added under the first layer.
	BaseHeight float64 `yaml:"base_height" json:"base_height"`

	// LayerHeights is the extrusion height (mm) of each palette index.
	LayerHeights [imaging.PaletteSize]float64 `yaml:"layer_heights" json:"layer_heights"`

	// IsTactile keeps the individual layer heights. When false all heights are
	// forced to LayerHeights[0].
	IsTactile bool `yaml:"tactile" json:"tactile"`

	// WidthMm and HeightMm are the board footprint. They set the grid
	// resolution and the physical size of one grid cell.
	WidthMm  float64 `yaml:"width_mm" json:"width_mm"`
	HeightMm float64 `yaml:"height_mm" json:"height_mm"`
}

// DefaultSettings returns a 100x100 mm tactile relief with a 0.8 mm base.
func DefaultSettings() Settings {
	return Settings{
		BaseHeight:   0.8,
		LayerHeights: [imaging.PaletteSize]float64{0.6, 0.8, 1.0, 1.2},
		IsTactile:    true,
		WidthMm:      100,
		HeightMm:     100,
	}
}

// Validate checks that every dimension is positive.
func (s Settings) Validate() error {
	if !(s.BaseHeight > 0) {
		return fmt.Errorf("base height must be positive, got %g", s.BaseHeight)
	}
	for i, h := range s.LayerHeights {
		if !(h > 0) {
			return fmt.Errorf("layer height %d must be positive, got %g", i, h)
		}
	}
	if !(s.WidthMm > 0) || !(s.HeightMm > 0) {
		return fmt.Errorf("board size must be positive, got %gx%g mm", s.WidthMm, s.HeightMm)
	}
	return nil
}

// Effective returns the settings actually used for geometry: in flat mode every
// layer height is replaced by LayerHeights[0].
func (s Settings) Effective() Settings {
	if s.IsTactile {
		return s
	}
	for i := range s.LayerHeights {
		s.LayerHeights[i] = s.LayerHeights[0]
	}
	return s
}

// ZRange is a half-open interval [Min, Max) in millimetres.
type ZRange struct {
	Min float64 `json:"z_min"`
	Max float64 `json:"z_max"`
}

// Thickness returns Max - Min.
func (r ZRange) Thickness() float64 {
	return r.Max - r.Min
}

// ZRanges computes the z-range of every palette index for s (after flat-mode
// forcing).
func ZRanges(s Settings) [imaging.PaletteSize]ZRange {
	s = s.Effective()
	var out [imaging.PaletteSize]ZRange
	top := 0.0
	for i, h := range s.LayerHeights {
		if i == 0 {
			h += s.BaseHeight
		}
		out[i] = ZRange{Min: top, Max: top + h}
		top += h
	}
	return out
}

// Mask marks the grid cells occupied by one palette color.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
	Count  int
}

// At reports whether (x, y) is occupied. Out-of-bounds cells are unoccupied.
func (m *Mask) At(x, y int) bool {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return false
	}
	return m.Bits[y*m.Width+x]
}

// Empty reports whether no cell is occupied.
func (m *Mask) Empty() bool {
	return m.Count == 0
}

// MaskOf builds the occupancy mask of palette index idx.
func MaskOf(grid *imaging.IndexGrid, idx uint8) *Mask {
	m := &Mask{Width: grid.Width, Height: grid.Height, Bits: make([]bool, len(grid.Cells))}
	for i, v := range grid.Cells {
		if v == idx {
			m.Bits[i] = true
			m.Count++
		}
	}
	return m
}

// Layer is one color's solid before meshing.
type Layer struct {
	Index int              `json:"index"`
	Color imaging.RGBColor `json:"color"`
	Mask  *Mask            `json:"-"`
	Z     ZRange           `json:"z"`
}

// Name returns the deterministic layer name "layer_<index>_<RRGGBB>" used for
// STL file names and 3MF object names.
func (l Layer) Name() string {
	return fmt.Sprintf("layer_%d_%s", l.Index, l.Color.HexDigits())
}

// Stack is the full relief: one layer per palette index plus the physical size
// of a grid cell.
type Stack struct {
	Layers     [imaging.PaletteSize]Layer
	CellWidth  float64
	CellHeight float64
	Settings   Settings
}

// Build derives the layer stack for grid and palette under settings.
//
// The stack is rebuilt for every export; it holds no reference to mutable
// state besides the masks it allocates.
func Build(grid *imaging.IndexGrid, palette imaging.Palette, settings Settings) (*Stack, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	eff := settings.Effective()
	ranges := ZRanges(eff)
	st := &Stack{
		CellWidth:  eff.WidthMm / float64(grid.Width),
		CellHeight: eff.HeightMm / float64(grid.Height),
		Settings:   eff,
	}
	for i := range st.Layers {
		st.Layers[i] = Layer{
			Index: i,
			Color: palette[i],
			Mask:  MaskOf(grid, uint8(i)),
			Z:     ranges[i],
		}
	}
	return st, nil
}

// Occupied returns the layers with at least one occupied cell, in palette order.
func (s *Stack) Occupied() []Layer {
	out := make([]Layer, 0, len(s.Layers))
	for _, l := range s.Layers {
		if !l.Mask.Empty() {
			out = append(out, l)
		}
	}
	return out
}

// TotalHeight returns the top of the highest layer.
func (s *Stack) TotalHeight() float64 {
	return s.Layers[len(s.Layers)-1].Z.Max
}
