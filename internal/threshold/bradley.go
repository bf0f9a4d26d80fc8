// Package threshold binarizes flattened pages, either adaptively (Bradley's
// integral-image method) or against a single global level.
package threshold

import (
	"github.com/MeKo-Tech/docscan/internal/imgbuf"
	"github.com/MeKo-Tech/docscan/internal/mempool"
	"github.com/MeKo-Tech/docscan/internal/parallel"
)

// Defaults for adaptive thresholding.
const (
	DefaultBlockSize = 15
	DefaultOffset    = 10
	minBlockSize     = 3
)

// NormalizeBlockSize forces an odd window of at least 3 pixels.
func NormalizeBlockSize(blockSize int) int {
	return max(minBlockSize, blockSize|1)
}

// Bradley returns a black/white copy of buf. A pixel turns white when its
// luminance exceeds mean*(1-offset/100), where mean is the average luminance
// of the blockSize×blockSize window around it clipped to the image. Alpha is
// always opaque.
func Bradley(buf *imgbuf.PixelBuffer, blockSize, offset, workers int) *imgbuf.PixelBuffer {
	w, h := buf.Width, buf.Height
	half := NormalizeBlockSize(blockSize) / 2
	factor := 1 - float64(offset)/100

	lum := luminance64(buf)
	defer mempool.PutFloat64(lum)
	integral := NewIntegralImage(lum, w, h)
	defer integral.Release()

	out := &imgbuf.PixelBuffer{Width: w, Height: h, Pix: make([]uint8, len(buf.Pix))}
	parallel.Rows(h, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			top, bottom := max(0, y-half), min(h-1, y+half)
			for x := 0; x < w; x++ {
				left, right := max(0, x-half), min(w-1, x+half)
				count := float64((right - left + 1) * (bottom - top + 1))
				mean := integral.Sum(left, top, right, bottom) / count

				var v uint8
				if lum[y*w+x] > mean*factor {
					v = 255
				}
				i := (y*w + x) * 4
				out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = v, v, v, 255
			}
		}
	})
	return out
}
