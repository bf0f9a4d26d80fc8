package threshold

import (
	"github.com/MeKo-Tech/docscan/internal/imgbuf"
	"github.com/MeKo-Tech/docscan/internal/mempool"
)

// IntegralImage is a summed-area table over luminance:
// Data[y*Width+x] holds the sum of every value in rows 0..y, columns 0..x.
type IntegralImage struct {
	Width  int
	Height int
	Data   []float64
}

// luminance64 computes per-pixel luminance in float64 into a pooled slice.
func luminance64(buf *imgbuf.PixelBuffer) []float64 {
	lum := mempool.GetFloat64(buf.Width * buf.Height)
	for i := range lum {
		p := buf.Pix[i*4 : i*4+3 : i*4+3]
		lum[i] = imgbuf.Luma(p[0], p[1], p[2])
	}
	return lum
}

// NewIntegralImage builds the table from a width×height value slice. Each
// row accumulates its own running sum and adds the row above.
func NewIntegralImage(values []float64, width, height int) *IntegralImage {
	data := mempool.GetFloat64(width * height)
	for y := 0; y < height; y++ {
		rowSum := 0.0
		row := y * width
		for x := 0; x < width; x++ {
			rowSum += values[row+x]
			if y == 0 {
				data[row+x] = rowSum
			} else {
				data[row+x] = rowSum + data[row-width+x]
			}
		}
	}
	return &IntegralImage{Width: width, Height: height, Data: data}
}

// Sum returns the sum over the inclusive rectangle (x1,y1)-(x2,y2) as
// d - b - c + a, where a, b and c are the table entries just outside the
// top-left corner, the top edge and the left edge.
func (ii *IntegralImage) Sum(x1, y1, x2, y2 int) float64 {
	w := ii.Width
	var a, b, c float64
	if x1 > 0 && y1 > 0 {
		a = ii.Data[(y1-1)*w+x1-1]
	}
	if y1 > 0 {
		b = ii.Data[(y1-1)*w+x2]
	}
	if x1 > 0 {
		c = ii.Data[y2*w+x1-1]
	}
	d := ii.Data[y2*w+x2]
	return d - b - c + a
}

// Release returns the table's storage to the pool.
func (ii *IntegralImage) Release() {
	mempool.PutFloat64(ii.Data)
	ii.Data = nil
}
