package quantize

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/ironsheep/relief-tools-mcp/internal/imaging"
)

// seedCentroids picks k initial centroids with K-Means++ weighting.
func seedCentroids(pixels []imaging.RGBColor, k int, src rand.Source) []imaging.RGBColor {
	rng := rand.New(src)
	centroids := make([]imaging.RGBColor, 0, k)
	centroids = append(centroids, pixels[rng.IntN(len(pixels))])

	weights := make([]float64, len(pixels))
	for i, p := range pixels {
		weights[i] = float64(p.DistSq(centroids[0]))
	}

	for len(centroids) < k {
		next, ok := sampleuv.NewWeighted(weights, src).Take()
		if !ok {
			// Every pixel coincides with a chosen centroid: nothing is farther
			// than anything else, so any pixel will do.
			next = rng.IntN(len(pixels))
		}
		c := pixels[next]
		centroids = append(centroids, c)

		for i, p := range pixels {
			if d := float64(p.DistSq(c)); d < weights[i] {
				weights[i] = d
			}
		}
	}
	return centroids
}

// nearest returns the index of the centroid closest to p. Ties go to the lower
// index.
func nearest(p imaging.RGBColor, centroids []imaging.RGBColor) int {
	best := 0
	bestDist := p.DistSq(centroids[0])
	for j := 1; j < len(centroids); j++ {
		if d := p.DistSq(centroids[j]); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// assign labels every pixel with its nearest centroid and returns the cluster
// populations.
func assign(pixels []imaging.RGBColor, centroids []imaging.RGBColor, labels []uint8) []int {
	counts := make([]int, len(centroids))
	for i, p := range pixels {
		j := nearest(p, centroids)
		labels[i] = uint8(j)
		counts[j]++
	}
	return counts
}

// recenter moves each centroid to the rounded mean of its members and reports
// whether any centroid changed. Clusters without members keep their centroid.
func recenter(pixels []imaging.RGBColor, labels []uint8, centroids []imaging.RGBColor) bool {
	k := len(centroids)
	sumR := make([]float64, k)
	sumG := make([]float64, k)
	sumB := make([]float64, k)
	counts := make([]int, k)
	for i, p := range pixels {
		j := labels[i]
		sumR[j] += float64(p.R)
		sumG[j] += float64(p.G)
		sumB[j] += float64(p.B)
		counts[j]++
	}

	moved := false
	for j := range k {
		if counts[j] == 0 {
			continue
		}
		n := float64(counts[j])
		c := imaging.RGBColor{
			R: uint8(math.Round(sumR[j] / n)),
			G: uint8(math.Round(sumG[j] / n)),
			B: uint8(math.Round(sumB[j] / n)),
		}
		if c != centroids[j] {
			centroids[j] = c
			moved = true
		}
	}
	return moved
}

// lloyd refines centroids in place for at most maxIter rounds and returns the
// final labels, the populations and the number of rounds run. The labels
// always belong to the returned centroids: when the cap stops refinement
// while centroids are still moving, pixels are assigned once more.
func lloyd(pixels []imaging.RGBColor, centroids []imaging.RGBColor, maxIter int) ([]uint8, []int, int) {
	labels := make([]uint8, len(pixels))
	var counts []int
	rounds := 0
	moved := false
	for rounds < maxIter {
		rounds++
		counts = assign(pixels, centroids, labels)
		if moved = recenter(pixels, labels, centroids); !moved {
			break
		}
	}
	if moved {
		counts = assign(pixels, centroids, labels)
	}
	return labels, counts, rounds
}
