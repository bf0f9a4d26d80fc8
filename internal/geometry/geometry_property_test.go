package geometry

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genPoint() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-500, 500),
		gen.Float64Range(-500, 500),
	).Map(func(vals []interface{}) Point {
		return Point{X: vals[0].(float64), Y: vals[1].(float64)}
	})
}

func genPoints(n int) gopter.Gen {
	return gen.SliceOfN(n, genPoint())
}

func containsPoint(pts []Point, p Point) bool {
	for _, q := range pts {
		if q == p {
			return true
		}
	}
	return false
}

func TestConvexHull_ContainsExtremePoints(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("hull keeps min/max x and y points", prop.ForAll(
		func(points []Point) bool {
			hull := ConvexHull(points)
			minX, maxX, minY, maxY := points[0], points[0], points[0], points[0]
			for _, p := range points[1:] {
				if p.X < minX.X {
					minX = p
				}
				if p.X > maxX.X {
					maxX = p
				}
				if p.Y < minY.Y {
					minY = p
				}
				if p.Y > maxY.Y {
					maxY = p
				}
			}
			for _, e := range []Point{minX, maxX, minY, maxY} {
				if !containsPoint(hull, e) {
					return false
				}
			}
			return true
		},
		genPoints(25),
	))

	properties.TestingRun(t)
}

func TestConvexHull_IsConvex(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every turn of the hull has the same sign", prop.ForAll(
		func(points []Point) bool {
			hull := ConvexHull(points)
			if len(hull) < 3 {
				return true
			}
			for i := range hull {
				a, b, c := hull[i], hull[(i+1)%len(hull)], hull[(i+2)%len(hull)]
				if cross(a, b, c) <= 0 {
					return false
				}
			}
			return true
		},
		genPoints(30),
	))

	properties.Property("all input points lie inside or on the hull", prop.ForAll(
		func(points []Point) bool {
			hull := ConvexHull(points)
			if len(hull) < 3 {
				return true
			}
			for _, p := range points {
				for i := range hull {
					if cross(hull[i], hull[(i+1)%len(hull)], p) < -1e-6 {
						return false
					}
				}
			}
			return true
		},
		genPoints(30),
	))

	properties.TestingRun(t)
}

// simplifyRecursive is the textbook recursive Douglas-Peucker used as an oracle.
func simplifyRecursive(pts []Point, epsilon float64) []Point {
	if len(pts) <= 2 {
		return append([]Point(nil), pts...)
	}
	first, last := pts[0], pts[len(pts)-1]
	maxDist, idx := 0.0, 0
	for i := 1; i < len(pts)-1; i++ {
		if d := perpendicularDistance(pts[i], first, last); d > maxDist {
			maxDist, idx = d, i
		}
	}
	if maxDist > epsilon {
		left := simplifyRecursive(pts[:idx+1], epsilon)
		right := simplifyRecursive(pts[idx:], epsilon)
		return append(left[:len(left)-1], right...)
	}
	return []Point{first, last}
}

func TestSimplifyPolygon_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("matches the recursive formulation", prop.ForAll(
		func(points []Point, epsilon float64) bool {
			got := SimplifyPolygon(points, epsilon)
			want := simplifyRecursive(points, epsilon)
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		genPoints(40),
		gen.Float64Range(0.5, 80),
	))

	properties.Property("output is an ordered subsequence keeping both endpoints", prop.ForAll(
		func(points []Point, epsilon float64) bool {
			got := SimplifyPolygon(points, epsilon)
			if got[0] != points[0] || got[len(got)-1] != points[len(points)-1] {
				return false
			}
			j := 0
			for _, p := range points {
				if j < len(got) && p == got[j] {
					j++
				}
			}
			return j == len(got)
		},
		genPoints(40),
		gen.Float64Range(0.5, 80),
	))

	properties.TestingRun(t)
}

func TestOrderCorners_Ordering(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("top-left above bottom-left, pairs sorted by x", prop.ForAll(
		func(points []Point) bool {
			q := OrderCorners([4]Point{points[0], points[1], points[2], points[3]})
			return q.TopLeft().Y <= q.BottomLeft().Y &&
				q.TopRight().Y <= q.BottomRight().Y &&
				q.TopLeft().X <= q.TopRight().X &&
				q.BottomLeft().X <= q.BottomRight().X
		},
		genPoints(4),
	))

	properties.TestingRun(t)
}
