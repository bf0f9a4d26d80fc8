package rectify

import (
	"math"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/imgbuf"
	"github.com/MeKo-Tech/docscan/internal/parallel"
)

// MinOutputSize is the smallest width or height of a flattened page.
const MinOutputSize = 100

// OutputSize derives the flattened page size from q: the width averages the
// top and bottom edges, the height averages the left and right edges, both
// rounded and raised to at least MinOutputSize.
func OutputSize(q geometry.Quad) (int, int) {
	top := q.TopLeft().Distance(q.TopRight())
	bottom := q.BottomLeft().Distance(q.BottomRight())
	left := q.TopLeft().Distance(q.BottomLeft())
	right := q.TopRight().Distance(q.BottomRight())

	w := int(math.Round((top + bottom) / 2))
	h := int(math.Round((left + right) / 2))
	return max(MinOutputSize, w), max(MinOutputSize, h)
}

// Warp pulls every pixel of a w×h output from src through h with bilinear
// interpolation.
func Warp(src *imgbuf.PixelBuffer, h Homography, w, hgt, workers int) *imgbuf.PixelBuffer {
	out := &imgbuf.PixelBuffer{Width: w, Height: hgt, Pix: make([]uint8, w*hgt*4)}
	parallel.Rows(hgt, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			i := y * w * 4
			for x := 0; x < w; x++ {
				sx, sy := h.Apply(float64(x), float64(y))
				bilinearSample(src, sx, sy, out.Pix[i:i+4:i+4])
				i += 4
			}
		}
	})
	return out
}

// bilinearSample writes the interpolated RGBA value at (x, y) into dst.
// Coordinates are clamped to the image so samples never fall outside it.
func bilinearSample(src *imgbuf.PixelBuffer, x, y float64, dst []uint8) {
	w, h := src.Width, src.Height
	x = clamp(x, 0, float64(w-1))
	y = clamp(y, 0, float64(h-1))

	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	fx, fy := x-float64(x0), y-float64(y0)

	i00 := src.Offset(x0, y0)
	i01 := src.Offset(x1, y0)
	i10 := src.Offset(x0, y1)
	i11 := src.Offset(x1, y1)
	for c := 0; c < 4; c++ {
		top := lerp(float64(src.Pix[i00+c]), float64(src.Pix[i01+c]), fx)
		bottom := lerp(float64(src.Pix[i10+c]), float64(src.Pix[i11+c]), fx)
		dst[c] = uint8(math.Round(lerp(top, bottom, fy)))
	}
}

// clamp also maps NaN (a sample behind the projection's horizon) to lo.
func clamp(v, lo, hi float64) float64 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 { return a*(1-t) + b*t }
