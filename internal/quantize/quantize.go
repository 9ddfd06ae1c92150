package quantize

import (
	"fmt"
	"image"
	"math/rand/v2"
	"slices"

	"go.uber.org/zap"

	"github.com/ironsheep/relief-tools-mcp/internal/imaging"
)

// Default tuning values.
const (
	DefaultMaxIterations    = 10
	DefaultSaturationWeight = 2000.0
	DefaultExtremeWeight    = 1000.0
)

// Options controls a quantization run. The zero value is usable: defaults are
// filled in and an unseeded random source is created.
type Options struct {
	// MaxIterations caps the Lloyd refinement rounds. Default: 10.
	MaxIterations int

	// Source drives K-Means++ seeding. Nil means a fresh, randomly seeded PCG
	// source, so repeated runs may differ.
	Source rand.Source

	// SaturationWeight scales the saturation reward when picking each cluster's
	// representative pixel. Default: 2000.
	SaturationWeight float64

	// ExtremeWeight is the reward for near-black/near-white representatives.
	// Default: 1000.
	ExtremeWeight float64

	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Source == nil {
		o.Source = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if o.SaturationWeight == 0 {
		o.SaturationWeight = DefaultSaturationWeight
	}
	if o.ExtremeWeight == 0 {
		o.ExtremeWeight = DefaultExtremeWeight
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Result is the output of Quantize. Every slice and array is in palette order.
type Result struct {
	// Palette holds the representative color of each cluster.
	Palette imaging.Palette `json:"-"`

	// Grid holds one palette index per source pixel.
	Grid *imaging.IndexGrid `json:"-"`

	// Centroids are the cluster means the representatives were picked against.
	Centroids imaging.Palette `json:"-"`

	// Counts is the number of pixels assigned to each palette entry.
	Counts [imaging.PaletteSize]int `json:"counts"`

	// Iterations is the number of Lloyd rounds that ran.
	Iterations int `json:"iterations"`

	// Degenerate lists palette indices whose cluster ended with no pixels.
	Degenerate []int `json:"degenerate,omitempty"`
}

// Quantize clusters the pixels of img into imaging.PaletteSize colors.
//
// Returns imaging.ErrEmptyImage if img has no pixels. The grid has the same
// dimensions as img's bounds.
func Quantize(img image.Image, opts Options) (*Result, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, imaging.ErrEmptyImage
	}
	opts = opts.withDefaults()
	log := opts.Logger

	pixels := samplePixels(img)
	k := imaging.PaletteSize

	centroids := seedCentroids(pixels, k, opts.Source)
	log.Debug("seeded centroids", zap.Strings("centroids", hexList(centroids)))

	labels, counts, rounds := lloyd(pixels, centroids, opts.MaxIterations)
	log.Debug("clustering converged",
		zap.Int("rounds", rounds),
		zap.Ints("counts", counts))

	reps := representatives(pixels, labels, centroids, opts.SaturationWeight, opts.ExtremeWeight)

	// Most populous cluster first; stable so equal populations keep seed order.
	order := []int{0, 1, 2, 3}
	slices.SortStableFunc(order, func(a, b int) int {
		return counts[b] - counts[a]
	})
	var remap [imaging.PaletteSize]uint8
	res := &Result{Iterations: rounds}
	for newIdx, oldIdx := range order {
		remap[oldIdx] = uint8(newIdx)
		res.Palette[newIdx] = reps[oldIdx]
		res.Centroids[newIdx] = centroids[oldIdx]
		res.Counts[newIdx] = counts[oldIdx]
		if counts[oldIdx] == 0 {
			res.Degenerate = append(res.Degenerate, newIdx)
		}
	}

	grid := imaging.NewIndexGrid(bounds.Dx(), bounds.Dy())
	for i, l := range labels {
		grid.Cells[i] = remap[l]
	}
	res.Grid = grid

	if len(res.Degenerate) > 0 {
		log.Warn("clusters ended without pixels",
			zap.Ints("indices", res.Degenerate),
			zap.Int("pixels", len(pixels)))
	}
	log.Debug("quantized",
		zap.Strings("palette", res.Palette.Hex()),
		zap.Ints("counts", res.Counts[:]))

	return res, nil
}

// samplePixels flattens img into row-major RGB triples, dropping alpha.
func samplePixels(img image.Image) []imaging.RGBColor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pixels := make([]imaging.RGBColor, 0, w*h)

	if n, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			row := n.Pix[n.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < w; x++ {
				pixels = append(pixels, imaging.RGBColor{R: row[x*4], G: row[x*4+1], B: row[x*4+2]})
			}
		}
		return pixels
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			pixels = append(pixels, imaging.RGBFromColor(img.At(x, y)))
		}
	}
	return pixels
}

func hexList(colors []imaging.RGBColor) []string {
	out := make([]string, len(colors))
	for i, c := range colors {
		out[i] = c.Hex()
	}
	return out
}

// String summarizes the result for logs and CLI output.
func (r *Result) String() string {
	return fmt.Sprintf("palette=%v counts=%v iterations=%d", r.Palette.Hex(), r.Counts, r.Iterations)
}
