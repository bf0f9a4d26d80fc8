package geometry

import (
	"math"
	"sort"
)

// ConvexHull computes the convex hull of pts with a Graham scan. The pivot is
// the point with the smallest y (smallest x on ties); the remaining points are
// visited in order of polar angle around it and popped while the last three
// points do not make a strict left turn. Inputs with fewer than three points
// are returned as a copy.
func ConvexHull(pts []Point) []Point {
	if len(pts) < 3 {
		return append([]Point(nil), pts...)
	}

	p := append([]Point(nil), pts...)
	pivotIdx := 0
	for i := 1; i < len(p); i++ {
		if p[i].Y < p[pivotIdx].Y || (p[i].Y == p[pivotIdx].Y && p[i].X < p[pivotIdx].X) {
			pivotIdx = i
		}
	}
	p[0], p[pivotIdx] = p[pivotIdx], p[0]
	pivot := p[0]

	type polar struct {
		pt    Point
		angle float64
	}
	rest := make([]polar, 0, len(p)-1)
	for _, q := range p[1:] {
		rest = append(rest, polar{q, math.Atan2(q.Y-pivot.Y, q.X-pivot.X)})
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].angle < rest[j].angle })

	stack := make([]Point, 0, len(p))
	stack = append(stack, pivot)
	for _, r := range rest {
		for len(stack) > 1 && cross(stack[len(stack)-2], stack[len(stack)-1], r.pt) <= 0 {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, r.pt)
	}
	return stack
}

// IsConvex reports whether the closed polygon pts turns in one direction only.
// Collinear vertices are tolerated.
func IsConvex(pts []Point) bool {
	n := len(pts)
	if n < 3 {
		return true
	}
	sign := 0
	for i := 0; i < n; i++ {
		c := cross(pts[i], pts[(i+1)%n], pts[(i+2)%n])
		switch {
		case c > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case c < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		}
	}
	return true
}
