package detector

import (
	"math"

	"github.com/MeKo-Tech/docscan/internal/geometry"
)

// DefaultInsetRatio is the fraction of min(width, height) the fallback
// rectangle is inset from each image edge.
const DefaultInsetRatio = 0.05

// DefaultCorners returns the fallback quad: the image rectangle inset by
// floor(min(w, h) * DefaultInsetRatio) on every side.
func DefaultCorners(width, height int) geometry.Quad {
	m := math.Floor(float64(min(width, height)) * DefaultInsetRatio)
	w, h := float64(width), float64(height)
	return geometry.Quad{
		{X: m, Y: m},
		{X: w - m, Y: m},
		{X: w - m, Y: h - m},
		{X: m, Y: h - m},
	}
}

// SelectCorners reduces candidate points to four ordered corners. Exactly
// four points are used as given. With more, each image corner in the order
// (0,0), (W,0), (W,H), (0,H) greedily claims the nearest unclaimed point. The
// second return value is false when the selection was not possible and the
// default corners were returned instead.
func SelectCorners(points []geometry.Point, width, height int) (geometry.Quad, bool) {
	picked, ok := bestQuadrilateral(points, width, height)
	if !ok {
		return DefaultCorners(width, height), false
	}
	return geometry.OrderCorners(picked), true
}

func bestQuadrilateral(points []geometry.Point, width, height int) ([4]geometry.Point, bool) {
	var picked [4]geometry.Point
	switch {
	case len(points) < 4:
		return picked, false
	case len(points) == 4:
		copy(picked[:], points)
		return picked, true
	}

	w, h := float64(width), float64(height)
	imageCorners := [4]geometry.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}

	n := 0
	for _, corner := range imageCorners {
		best, found := geometry.Point{}, false
		minDist := math.Inf(1)
		for _, p := range points {
			// Points are claimed by coordinate, so duplicates count once.
			if claimed(picked[:n], p) {
				continue
			}
			if d := p.Distance(corner); d < minDist {
				minDist, best, found = d, p, true
			}
		}
		if found {
			picked[n] = best
			n++
		}
	}
	return picked, n == 4
}

func claimed(picked []geometry.Point, p geometry.Point) bool {
	for _, q := range picked {
		if q == p {
			return true
		}
	}
	return false
}
