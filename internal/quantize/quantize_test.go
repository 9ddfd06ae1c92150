package quantize

import (
	"errors"
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/relief-tools-mcp/internal/imaging"
)

// createSolidImage creates an in-memory image filled with one color
func createSolidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createBandImage creates a 20x10 image: top half red (100 px), then green
// (50 px), blue (30 px) and white (20 px) along the bottom half.
func createBandImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			var c color.RGBA
			switch {
			case y < 5:
				c = color.RGBA{220, 30, 30, 255}
			case x < 10:
				c = color.RGBA{30, 200, 40, 255}
			case x < 16:
				c = color.RGBA{20, 40, 210, 255}
			default:
				c = color.RGBA{250, 250, 250, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// createNoiseImage creates an image of random colors from a fixed seed
func createNoiseImage(width, height int, seed uint64) *image.NRGBA {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(r.IntN(256))
		img.Pix[i+1] = uint8(r.IntN(256))
		img.Pix[i+2] = uint8(r.IntN(256))
		img.Pix[i+3] = 255
	}
	return img
}

func seeded() rand.Source {
	return rand.NewPCG(1, 2)
}

func TestQuantize_SolidRed(t *testing.T) {
	img := createSolidImage(2, 2, color.RGBA{255, 0, 0, 255})

	res, err := Quantize(img, Options{Source: seeded()})
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}

	if res.Palette[0] != (imaging.RGBColor{R: 255}) {
		t.Errorf("palette[0]: got %s, want #FF0000", res.Palette[0].Hex())
	}
	if diff := cmp.Diff([]uint8{0, 0, 0, 0}, res.Grid.Cells); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
	if res.Counts != [4]int{4, 0, 0, 0} {
		t.Errorf("counts: got %v", res.Counts)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, res.Degenerate); diff != "" {
		t.Errorf("degenerate clusters (-want +got):\n%s", diff)
	}
}

func TestQuantize_FrequencyOrder(t *testing.T) {
	res, err := Quantize(createBandImage(), Options{Source: seeded()})
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}

	want := imaging.Palette{
		{R: 220, G: 30, B: 30},
		{R: 30, G: 200, B: 40},
		{R: 20, G: 40, B: 210},
		{R: 250, G: 250, B: 250},
	}
	if diff := cmp.Diff(want, res.Palette); diff != "" {
		t.Errorf("palette (-want +got):\n%s", diff)
	}
	if res.Counts != [4]int{100, 50, 30, 20} {
		t.Errorf("counts: got %v, want [100 50 30 20]", res.Counts)
	}
	if len(res.Degenerate) != 0 {
		t.Errorf("no cluster should be empty, got %v", res.Degenerate)
	}

	tests := []struct {
		x, y int
		want uint8
	}{
		{0, 0, 0},
		{19, 4, 0},
		{0, 9, 1},
		{12, 7, 2},
		{19, 9, 3},
	}
	for _, tt := range tests {
		if got := res.Grid.At(tt.x, tt.y); got != tt.want {
			t.Errorf("grid(%d,%d): got %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestQuantize_Invariants(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"noise", createNoiseImage(40, 30, 7)},
		{"bands", createBandImage()},
		{"solid", createSolidImage(5, 5, color.Black)},
		{"offset bounds", createNoiseImage(12, 9, 3).SubImage(image.Rect(2, 3, 10, 9))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Quantize(tt.img, Options{Source: seeded()})
			if err != nil {
				t.Fatalf("Quantize failed: %v", err)
			}
			b := tt.img.Bounds()
			if res.Grid.Width != b.Dx() || res.Grid.Height != b.Dy() {
				t.Fatalf("grid size %dx%d, want %dx%d", res.Grid.Width, res.Grid.Height, b.Dx(), b.Dy())
			}
			if err := res.Grid.Validate(); err != nil {
				t.Errorf("grid invalid: %v", err)
			}

			total := 0
			for _, c := range res.Counts {
				total += c
			}
			if total != b.Dx()*b.Dy() {
				t.Errorf("counts sum to %d, want %d", total, b.Dx()*b.Dy())
			}
			if res.Grid.Counts() != res.Counts {
				t.Errorf("grid counts %v disagree with result counts %v", res.Grid.Counts(), res.Counts)
			}
			for i := 1; i < len(res.Counts); i++ {
				if res.Counts[i] > res.Counts[i-1] {
					t.Errorf("counts not descending: %v", res.Counts)
				}
			}
			if res.Iterations < 1 || res.Iterations > DefaultMaxIterations {
				t.Errorf("iterations out of range: %d", res.Iterations)
			}
		})
	}
}

func TestQuantize_Deterministic(t *testing.T) {
	img := createNoiseImage(32, 32, 42)

	a, err := Quantize(img, Options{Source: rand.NewPCG(9, 9)})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	b, err := Quantize(img, Options{Source: rand.NewPCG(9, 9)})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if diff := cmp.Diff(a.Palette, b.Palette); diff != "" {
		t.Errorf("palette differs between seeded runs:\n%s", diff)
	}
	if diff := cmp.Diff(a.Grid.Cells, b.Grid.Cells); diff != "" {
		t.Errorf("grid differs between seeded runs:\n%s", diff)
	}
}

func TestQuantize_EmptyImage(t *testing.T) {
	_, err := Quantize(image.NewRGBA(image.Rectangle{}), Options{})
	if !errors.Is(err, imaging.ErrEmptyImage) {
		t.Errorf("got %v, want ErrEmptyImage", err)
	}
}

func TestQuantize_UnseededStillValid(t *testing.T) {
	res, err := Quantize(createBandImage(), Options{})
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}
	if err := res.Grid.Validate(); err != nil {
		t.Errorf("grid invalid: %v", err)
	}
}

func TestRepresentatives_PreferSaturated(t *testing.T) {
	// One cluster: dull reds around the mean plus a more vivid red a little
	// farther away. The vivid pixel wins despite the larger distance.
	pixels := []imaging.RGBColor{
		{R: 170, G: 110, B: 110},
		{R: 165, G: 105, B: 105},
		{R: 180, G: 90, B: 90},
	}
	labels := []uint8{0, 0, 0}
	centroids := []imaging.RGBColor{{R: 170, G: 100, B: 100}}

	reps := representatives(pixels, labels, centroids, DefaultSaturationWeight, DefaultExtremeWeight)
	if reps[0] != pixels[2] {
		t.Errorf("representative: got %s, want %s", reps[0].Hex(), pixels[2].Hex())
	}

	// Without any saturation reward the closest pixel wins.
	reps = representatives(pixels, labels, centroids, 0, 0)
	if reps[0] != pixels[1] {
		t.Errorf("unweighted representative: got %s, want %s", reps[0].Hex(), pixels[1].Hex())
	}
}

func TestRepresentatives_ExtremeBonus(t *testing.T) {
	// Two equally distant grays; the near-black one gets the extreme bonus.
	pixels := []imaging.RGBColor{
		{R: 70, G: 70, B: 70},
		{R: 20, G: 20, B: 20},
	}
	centroids := []imaging.RGBColor{{R: 45, G: 45, B: 45}}
	reps := representatives(pixels, []uint8{0, 0}, centroids, DefaultSaturationWeight, DefaultExtremeWeight)
	if reps[0] != pixels[1] {
		t.Errorf("representative: got %s, want %s", reps[0].Hex(), pixels[1].Hex())
	}
}

func TestRepresentatives_EmptyClusterKeepsCentroid(t *testing.T) {
	pixels := []imaging.RGBColor{{R: 1, G: 2, B: 3}}
	centroids := []imaging.RGBColor{{R: 1, G: 2, B: 3}, {R: 90, G: 90, B: 90}}
	reps := representatives(pixels, []uint8{0}, centroids, DefaultSaturationWeight, DefaultExtremeWeight)
	if reps[1] != centroids[1] {
		t.Errorf("empty cluster: got %s, want centroid %s", reps[1].Hex(), centroids[1].Hex())
	}
}

func TestSeedCentroids_SpreadsDistinctColors(t *testing.T) {
	pixels := []imaging.RGBColor{
		{R: 255}, {R: 255}, {R: 255},
		{G: 255},
		{B: 255},
		{R: 255, G: 255, B: 255},
	}
	centroids := seedCentroids(pixels, 4, seeded())
	seen := map[imaging.RGBColor]bool{}
	for _, c := range centroids {
		if seen[c] {
			t.Errorf("centroid %s picked twice", c.Hex())
		}
		seen[c] = true
	}
}

func TestLloyd_StopsWhenStable(t *testing.T) {
	pixels := []imaging.RGBColor{{R: 10}, {R: 12}, {B: 200}, {B: 202}}
	centroids := []imaging.RGBColor{{R: 10}, {B: 200}}
	labels, counts, rounds := lloyd(pixels, centroids, 10)

	if diff := cmp.Diff([]uint8{0, 0, 1, 1}, labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 2}, counts); diff != "" {
		t.Errorf("counts (-want +got):\n%s", diff)
	}
	if centroids[0] != (imaging.RGBColor{R: 11}) || centroids[1] != (imaging.RGBColor{B: 201}) {
		t.Errorf("centroids: got %v", centroids)
	}
	if rounds != 2 {
		t.Errorf("rounds: got %d, want 2 (one move, one confirmation)", rounds)
	}
}

func TestLloyd_CapReassignsToFinalCentroids(t *testing.T) {
	pixels := []imaging.RGBColor{{R: 0}, {R: 2}, {R: 4}, {R: 55}, {R: 100}}
	centroids := []imaging.RGBColor{{R: 0}, {R: 4}}
	labels, counts, rounds := lloyd(pixels, centroids, 1)

	if rounds != 1 {
		t.Fatalf("rounds: got %d, want 1", rounds)
	}
	if centroids[0] != (imaging.RGBColor{R: 1}) || centroids[1] != (imaging.RGBColor{R: 53}) {
		t.Fatalf("centroids: got %v", centroids)
	}
	for i, p := range pixels {
		if want := uint8(nearest(p, centroids)); labels[i] != want {
			t.Errorf("pixel %s: label %d, nearest centroid %d", p.Hex(), labels[i], want)
		}
	}
	if diff := cmp.Diff([]int{3, 2}, counts); diff != "" {
		t.Errorf("counts (-want +got):\n%s", diff)
	}
}
