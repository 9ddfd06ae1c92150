// Package despeckle removes isolated pixels from a palette index grid by local
// majority vote.
//
// A pixel with fewer than MinSupport same-colored pixels among its 8 neighbors
// is "weakly supported". It is switched to the most common neighboring color,
// but only when at least Quorum neighbors agree on that color. Every pass reads
// the previous pass's grid and writes a fresh one, so the result does not depend
// on scan order.
package despeckle

import (
	"github.com/ironsheep/relief-tools-mcp/internal/imaging"
)

const (
	// DefaultIterations is the number of passes Clean runs by default.
	DefaultIterations = 2

	// MinSupport is the number of same-colored neighbors a pixel needs to be
	// left alone.
	MinSupport = 2

	// Quorum is the number of neighbors the majority color needs before a weakly
	// supported pixel is switched to it.
	Quorum = 3
)

var neighborOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Clean runs the given number of passes over grid and returns the cleaned grid.
// The input grid is never modified. Zero or negative iterations return a copy.
func Clean(grid *imaging.IndexGrid, iterations int) *imaging.IndexGrid {
	cur := grid.Clone()
	for range iterations {
		cur, _ = Pass(cur)
	}
	return cur
}

// UntilStable runs passes until one changes nothing or maxIterations is
// reached. It returns the cleaned grid and the number of passes run.
func UntilStable(grid *imaging.IndexGrid, maxIterations int) (*imaging.IndexGrid, int) {
	cur := grid.Clone()
	for i := range maxIterations {
		next, changed := Pass(cur)
		cur = next
		if changed == 0 {
			return cur, i + 1
		}
	}
	return cur, maxIterations
}

// Pass runs one majority-vote pass. src is read-only; the returned grid is new.
// The second return value is the number of pixels that changed.
func Pass(src *imaging.IndexGrid) (*imaging.IndexGrid, int) {
	dst := src.Clone()
	changed := 0
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			own := src.At(x, y)
			var votes [imaging.PaletteSize]int
			for _, off := range neighborOffsets {
				nx, ny := x+off[0], y+off[1]
				if !src.InBounds(nx, ny) {
					continue
				}
				votes[src.At(nx, ny)]++
			}
			if votes[own] >= MinSupport {
				continue
			}

			majority := own
			best := 0
			for c, n := range votes {
				if n > best {
					best = n
					majority = uint8(c)
				}
			}
			if best >= Quorum && majority != own {
				dst.Set(x, y, majority)
				changed++
			}
		}
	}
	return dst, changed
}
