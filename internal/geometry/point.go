// Package geometry provides the planar primitives used by document detection
// and rectification: points, quadrilaterals and polygon helpers.
package geometry

import (
	"fmt"
	"math"
	"sort"
)

// Point represents a 2D point with floating point pixel coordinates.
type Point struct {
	X, Y float64
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func (p Point) String() string {
	return fmt.Sprintf("(%.1f,%.1f)", p.X, p.Y)
}

// Quad is a quadrilateral in canonical order:
// top-left, top-right, bottom-right, bottom-left.
type Quad [4]Point

// Corner indices into a Quad.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// TopLeft returns the top-left corner.
func (q Quad) TopLeft() Point { return q[TopLeft] }

// TopRight returns the top-right corner.
func (q Quad) TopRight() Point { return q[TopRight] }

// BottomRight returns the bottom-right corner.
func (q Quad) BottomRight() Point { return q[BottomRight] }

// BottomLeft returns the bottom-left corner.
func (q Quad) BottomLeft() Point { return q[BottomLeft] }

// Points returns the corners as a slice in canonical order.
func (q Quad) Points() []Point {
	return []Point{q[0], q[1], q[2], q[3]}
}

func (q Quad) String() string {
	return fmt.Sprintf("%s;%s;%s;%s", q[0], q[1], q[2], q[3])
}

// RectQuad returns the quad covering a w×h rectangle anchored at the origin.
func RectQuad(w, h float64) Quad {
	return Quad{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

// OrderCorners arranges four points as top-left, top-right, bottom-right,
// bottom-left: the two smallest y values form the top pair, the rest the
// bottom pair, and each pair is ordered by x.
func OrderCorners(pts [4]Point) Quad {
	sorted := pts
	sort.SliceStable(sorted[:], func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	top := [2]Point{sorted[0], sorted[1]}
	bottom := [2]Point{sorted[2], sorted[3]}
	if top[1].X < top[0].X {
		top[0], top[1] = top[1], top[0]
	}
	if bottom[1].X < bottom[0].X {
		bottom[0], bottom[1] = bottom[1], bottom[0]
	}
	return Quad{top[0], top[1], bottom[1], bottom[0]}
}

// cross returns the z component of (a-o)×(b-o). Positive values mean a
// counter-clockwise turn in a y-up frame.
func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// perpendicularDistance is the distance from p to the infinite line through a
// and b, or to a when the line is degenerate.
func perpendicularDistance(p, a, b Point) float64 {
	vx, vy := b.X-a.X, b.Y-a.Y
	den := math.Hypot(vx, vy)
	if den == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(vy*p.X-vx*p.Y+b.X*a.Y-b.Y*a.X) / den
}
