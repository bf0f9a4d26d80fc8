package geometry

// SimplifyPolygon reduces an open polyline with the Douglas-Peucker algorithm.
// A point is kept when its perpendicular distance from the chord of its
// enclosing range exceeds epsilon; the first and last points are always kept.
//
// Ranges are processed from an explicit stack, so deeply nested splits (for
// example long runs of nearly collinear points) never grow the call stack.
func SimplifyPolygon(pts []Point, epsilon float64) []Point {
	n := len(pts)
	if n <= 2 {
		return append([]Point(nil), pts...)
	}

	keep := make([]bool, n)
	keep[0] = true
	keep[n-1] = true

	type span struct{ start, end int }
	stack := []span{{0, n - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.end <= s.start+1 {
			continue
		}

		maxDist := 0.0
		index := 0
		a, b := pts[s.start], pts[s.end]
		for i := s.start + 1; i < s.end; i++ {
			if d := perpendicularDistance(pts[i], a, b); d > maxDist {
				maxDist = d
				index = i
			}
		}
		if maxDist > epsilon {
			keep[index] = true
			stack = append(stack, span{index, s.end}, span{s.start, index})
		}
	}

	out := make([]Point, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}
