// Package mesh converts an occupancy mask and a z-range into a closed triangle
// mesh made of axis-aligned cell boxes.
//
// Every occupied cell contributes a top quad, a bottom quad and a wall quad on
// each side whose neighbor is unoccupied or outside the grid. Quads are split
// into two triangles wound counter-clockwise when seen from outside the solid.
// Corner coordinates are computed from integer cell indices, so neighboring
// faces share bit-identical vertices.
//
// Grid rows run top to bottom while +y points up, so row r spans
// y in [(H-1-r)*h, (H-r)*h] and the image reads upright when viewed from +z.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironsheep/relief-tools-mcp/internal/relief"
)

// ErrInvalidGeometry is returned when the cell size or z-range cannot produce
// a solid.
var ErrInvalidGeometry = errors.New("invalid mesh geometry")

// Vec3 is a point or direction in millimetres.
type Vec3 = r3.Vec

// Triangle is three vertices in counter-clockwise order seen from outside.
type Triangle struct {
	V [3]Vec3
}

// Normal returns the unit normal implied by the winding order. Degenerate
// triangles get the zero vector.
func (t Triangle) Normal() Vec3 {
	n := r3.Cross(r3.Sub(t.V[1], t.V[0]), r3.Sub(t.V[2], t.V[0]))
	if r3.Norm(n) == 0 {
		return Vec3{}
	}
	return r3.Unit(n)
}

// Mesh is an unordered list of triangles.
type Mesh struct {
	Triangles []Triangle
}

// Len returns the number of triangles.
func (m *Mesh) Len() int {
	return len(m.Triangles)
}

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool {
	return len(m.Triangles) == 0
}

func (m *Mesh) addQuad(a, b, c, d Vec3) {
	m.Triangles = append(m.Triangles,
		Triangle{V: [3]Vec3{a, b, c}},
		Triangle{V: [3]Vec3{a, c, d}},
	)
}

// Build meshes mask as a solid spanning [zMin, zMax]. cellWidth and cellHeight
// are the physical size of one grid cell along x and y.
//
// An all-false mask yields an empty mesh and no error.
func Build(mask *relief.Mask, zMin, zMax, cellWidth, cellHeight float64) (*Mesh, error) {
	if mask == nil {
		return nil, fmt.Errorf("%w: nil mask", ErrInvalidGeometry)
	}
	if mask.Width <= 0 || mask.Height <= 0 || len(mask.Bits) != mask.Width*mask.Height {
		return nil, fmt.Errorf("%w: mask %dx%d with %d cells", ErrInvalidGeometry, mask.Width, mask.Height, len(mask.Bits))
	}
	if !(cellWidth > 0) || !(cellHeight > 0) {
		return nil, fmt.Errorf("%w: cell size %gx%g", ErrInvalidGeometry, cellWidth, cellHeight)
	}
	if !(zMax > zMin) {
		return nil, fmt.Errorf("%w: z-range [%g, %g)", ErrInvalidGeometry, zMin, zMax)
	}

	m := &Mesh{}
	h := mask.Height
	for row := 0; row < h; row++ {
		for col := 0; col < mask.Width; col++ {
			if !mask.At(col, row) {
				continue
			}
			x0 := float64(col) * cellWidth
			x1 := float64(col+1) * cellWidth
			y0 := float64(h-1-row) * cellHeight
			y1 := float64(h-row) * cellHeight

			// Top and bottom.
			m.addQuad(Vec3{x0, y0, zMax}, Vec3{x1, y0, zMax}, Vec3{x1, y1, zMax}, Vec3{x0, y1, zMax})
			m.addQuad(Vec3{x0, y0, zMin}, Vec3{x0, y1, zMin}, Vec3{x1, y1, zMin}, Vec3{x1, y0, zMin})

			if !mask.At(col-1, row) { // west
				m.addQuad(Vec3{x0, y0, zMin}, Vec3{x0, y0, zMax}, Vec3{x0, y1, zMax}, Vec3{x0, y1, zMin})
			}
			if !mask.At(col+1, row) { // east
				m.addQuad(Vec3{x1, y0, zMin}, Vec3{x1, y1, zMin}, Vec3{x1, y1, zMax}, Vec3{x1, y0, zMax})
			}
			if !mask.At(col, row+1) { // south, lower y
				m.addQuad(Vec3{x0, y0, zMin}, Vec3{x1, y0, zMin}, Vec3{x1, y0, zMax}, Vec3{x0, y0, zMax})
			}
			if !mask.At(col, row-1) { // north, higher y
				m.addQuad(Vec3{x0, y1, zMin}, Vec3{x0, y1, zMax}, Vec3{x1, y1, zMax}, Vec3{x1, y1, zMin})
			}
		}
	}
	return m, nil
}

type edge struct {
	a, b Vec3
}

func less(a, b Vec3) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

func undirected(a, b Vec3) edge {
	if less(b, a) {
		a, b = b, a
	}
	return edge{a, b}
}

func (m *Mesh) edgeUses() map[edge]int {
	uses := make(map[edge]int, len(m.Triangles)*3/2)
	for _, t := range m.Triangles {
		for i := range 3 {
			uses[undirected(t.V[i], t.V[(i+1)%3])]++
		}
	}
	return uses
}

// OpenEdges returns the number of undirected edges not shared by exactly two
// triangles. A closed mesh without pinch points returns 0. Cells that touch
// only at a corner share a vertical edge between four triangles; those edges
// are counted here too.
func (m *Mesh) OpenEdges() int {
	n := 0
	for _, c := range m.edgeUses() {
		if c != 2 {
			n++
		}
	}
	return n
}

// Volume returns the signed volume enclosed by the mesh. It is positive when
// the triangles are wound outward.
func (m *Mesh) Volume() float64 {
	v := 0.0
	for _, t := range m.Triangles {
		v += r3.Dot(t.V[0], r3.Cross(t.V[1], t.V[2]))
	}
	return v / 6
}

// Bounds returns the axis-aligned bounding box of the mesh. Both corners are
// zero for an empty mesh.
func (m *Mesh) Bounds() (lo, hi Vec3) {
	if m.Empty() {
		return Vec3{}, Vec3{}
	}
	lo = m.Triangles[0].V[0]
	hi = lo
	for _, t := range m.Triangles {
		for _, v := range t.V {
			lo = Vec3{math.Min(lo.X, v.X), math.Min(lo.Y, v.Y), math.Min(lo.Z, v.Z)}
			hi = Vec3{math.Max(hi.X, v.X), math.Max(hi.Y, v.Y), math.Max(hi.Z, v.Z)}
		}
	}
	return lo, hi
}

// Indexed returns the distinct vertices of the mesh in first-seen order and
// the vertex indices of each triangle.
func (m *Mesh) Indexed() ([]Vec3, [][3]int) {
	index := make(map[Vec3]int)
	var verts []Vec3
	tris := make([][3]int, len(m.Triangles))
	for i, t := range m.Triangles {
		for j, v := range t.V {
			idx, ok := index[v]
			if !ok {
				idx = len(verts)
				index[v] = idx
				verts = append(verts, v)
			}
			tris[i][j] = idx
		}
	}
	return verts, tris
}
