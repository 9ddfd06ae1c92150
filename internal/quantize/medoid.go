package quantize

import (
	"math"

	"github.com/ironsheep/relief-tools-mcp/internal/imaging"
)

// representativeScore is lower for better representatives: close to the
// centroid, saturated, or near-black/near-white.
func representativeScore(p, centroid imaging.RGBColor, satWeight, extremeWeight float64) float64 {
	score := float64(p.DistSq(centroid)) - p.Saturation()*satWeight
	if p.IsExtreme() {
		score -= extremeWeight
	}
	return score
}

// representatives picks one real pixel per cluster. A cluster without pixels is
// represented by its centroid.
func representatives(pixels []imaging.RGBColor, labels []uint8, centroids []imaging.RGBColor, satWeight, extremeWeight float64) []imaging.RGBColor {
	reps := make([]imaging.RGBColor, len(centroids))
	copy(reps, centroids)

	best := make([]float64, len(centroids))
	for j := range best {
		best[j] = math.Inf(1)
	}

	// Scores depend only on the color, so each distinct color per cluster is
	// scored once.
	seen := make(map[imaging.RGBColor]struct{})
	for i, p := range pixels {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		j := labels[i]
		if s := representativeScore(p, centroids[j], satWeight, extremeWeight); s < best[j] {
			best[j] = s
			reps[j] = p
		}
	}
	return reps
}
