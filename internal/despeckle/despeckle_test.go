package despeckle

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/relief-tools-mcp/internal/imaging"
)

// gridFromRows builds a grid from rows of palette indices
func gridFromRows(rows ...[]uint8) *imaging.IndexGrid {
	g := imaging.NewIndexGrid(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, v := range row {
			g.Set(x, y, v)
		}
	}
	return g
}

// createBlockGrid creates a 10x10 grid, left half 0 and right half 2
func createBlockGrid() *imaging.IndexGrid {
	g := imaging.NewIndexGrid(10, 10)
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			g.Set(x, y, 2)
		}
	}
	return g
}

func TestPass_RemovesIsolatedPixel(t *testing.T) {
	g := gridFromRows(
		[]uint8{0, 0, 0, 0, 0},
		[]uint8{0, 0, 0, 0, 0},
		[]uint8{0, 0, 1, 0, 0},
		[]uint8{0, 0, 0, 0, 0},
		[]uint8{0, 0, 0, 0, 0},
	)

	out, changed := Pass(g)
	if changed != 1 {
		t.Errorf("changed: got %d, want 1", changed)
	}
	if out.At(2, 2) != 0 {
		t.Errorf("speckle survived: got %d", out.At(2, 2))
	}
	if g.At(2, 2) != 1 {
		t.Error("Pass modified its input")
	}
}

func TestPass_CornerPixelReachesQuorum(t *testing.T) {
	g := gridFromRows(
		[]uint8{3, 1, 1},
		[]uint8{1, 1, 1},
		[]uint8{1, 1, 1},
	)
	out, _ := Pass(g)
	if out.At(0, 0) != 1 {
		t.Errorf("corner pixel with 3 agreeing neighbors should flip, got %d", out.At(0, 0))
	}
}

func TestPass_NoQuorumLeavesPixel(t *testing.T) {
	// Top-middle pixel has neighbors 0,1,2,0,1: weak support but no color
	// reaches the quorum of 3.
	g := gridFromRows(
		[]uint8{0, 3, 1},
		[]uint8{2, 0, 1},
		[]uint8{2, 2, 2},
	)
	out, _ := Pass(g)
	if out.At(1, 0) != 3 {
		t.Errorf("pixel without quorum should be unchanged, got %d", out.At(1, 0))
	}
}

func TestPass_SupportedPixelUntouched(t *testing.T) {
	// The 1 at (2,2) has exactly two same-colored neighbors.
	g := gridFromRows(
		[]uint8{0, 0, 0, 0, 0},
		[]uint8{0, 1, 0, 0, 0},
		[]uint8{0, 0, 1, 0, 0},
		[]uint8{0, 0, 0, 1, 0},
		[]uint8{0, 0, 0, 0, 0},
	)
	out, _ := Pass(g)
	if out.At(2, 2) != 1 {
		t.Error("pixel with two same-colored neighbors should keep its color")
	}
	if out.At(1, 1) != 0 || out.At(3, 3) != 0 {
		t.Error("diagonal endpoints have one neighbor each and should flip")
	}
}

func TestPass_ReadsPreviousGridOnly(t *testing.T) {
	// A one-pixel line across the grid. Only the endpoints are weakly supported
	// in the source grid; a scan that read its own writes would erase the whole
	// line in a single pass.
	g := imaging.NewIndexGrid(10, 5)
	for x := 0; x < 10; x++ {
		g.Set(x, 2, 1)
	}

	out, changed := Pass(g)
	if changed != 2 {
		t.Errorf("changed: got %d, want 2", changed)
	}
	if out.At(0, 2) != 0 || out.At(9, 2) != 0 {
		t.Error("line endpoints should flip")
	}
	for x := 1; x < 9; x++ {
		if out.At(x, 2) != 1 {
			t.Errorf("line pixel %d erased in the same pass", x)
		}
	}
}

func TestClean_BlocksWithSpeckles(t *testing.T) {
	want := createBlockGrid()

	g := createBlockGrid()
	g.Set(2, 2, 1)
	g.Set(2, 7, 3)
	g.Set(7, 3, 1)
	g.Set(8, 8, 0)

	out := Clean(g, DefaultIterations)
	if diff := cmp.Diff(want.Cells, out.Cells); diff != "" {
		t.Errorf("cleaned grid (-want +got):\n%s", diff)
	}
	if g.At(2, 2) != 1 {
		t.Error("Clean modified its input")
	}

	// A clean grid is a fixed point.
	again, changed := Pass(out)
	if changed != 0 {
		t.Errorf("second cleanup changed %d pixels", changed)
	}
	if diff := cmp.Diff(out.Cells, again.Cells); diff != "" {
		t.Errorf("cleanup not idempotent:\n%s", diff)
	}
}

func TestClean_ZeroIterations(t *testing.T) {
	g := createBlockGrid()
	g.Set(2, 2, 1)
	out := Clean(g, 0)
	if out == g {
		t.Error("Clean should return a copy")
	}
	if diff := cmp.Diff(g.Cells, out.Cells); diff != "" {
		t.Errorf("zero iterations changed the grid:\n%s", diff)
	}
}

func TestUntilStable(t *testing.T) {
	g := imaging.NewIndexGrid(10, 5)
	for x := 0; x < 10; x++ {
		g.Set(x, 2, 1)
	}

	// The line erodes two pixels per pass from its ends until it is gone.
	out, passes := UntilStable(g, 20)
	if passes >= 20 {
		t.Fatalf("did not reach a fixed point in %d passes", passes)
	}
	if got := out.Counts()[1]; got != 0 {
		t.Errorf("line should be fully eroded, %d pixels remain", got)
	}
	if _, changed := Pass(out); changed != 0 {
		t.Errorf("result is not a fixed point: %d pixels changed", changed)
	}
}

func TestUntilStable_Cap(t *testing.T) {
	g := imaging.NewIndexGrid(10, 5)
	for x := 0; x < 10; x++ {
		g.Set(x, 2, 1)
	}
	out, passes := UntilStable(g, 1)
	if passes != 1 {
		t.Errorf("passes: got %d, want 1", passes)
	}
	if got := out.Counts()[1]; got != 8 {
		t.Errorf("after one pass 8 line pixels remain, got %d", got)
	}
}
