package detector

import (
	"math"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/imgbuf"
)

const (
	// BoundaryMarginRatio is the fraction of min(width, height) excluded at
	// every image border when collecting boundary points.
	BoundaryMarginRatio = 0.02

	boundaryStride = 2
)

// BoundaryPoints samples the thresholded edge map on a stride-2 grid and
// returns every pixel that is on (edge > threshold) and touches at least one
// off pixel among its 8 neighbors. Neighbors outside the image are ignored.
func BoundaryPoints(edges *imgbuf.LuminanceMap, threshold int) []geometry.Point {
	w, h := edges.Width, edges.Height
	t := float32(threshold)
	on := func(x, y int) bool { return edges.Data[y*w+x] > t }

	margin := int(math.Floor(float64(min(w, h)) * BoundaryMarginRatio))
	var points []geometry.Point
	for y := margin; y < h-margin; y += boundaryStride {
		for x := margin; x < w-margin; x += boundaryStride {
			if !on(x, y) {
				continue
			}
			if touchesOff(x, y, w, h, on) {
				points = append(points, geometry.Point{X: float64(x), Y: float64(y)})
			}
		}
	}
	return points
}

func touchesOff(x, y, w, h int, on func(x, y int) bool) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			if !on(nx, ny) {
				return true
			}
		}
	}
	return false
}
