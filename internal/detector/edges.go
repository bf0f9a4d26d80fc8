package detector

import (
	"math"

	"github.com/MeKo-Tech/docscan/internal/imgbuf"
	"github.com/MeKo-Tech/docscan/internal/parallel"
)

// BlurSigma is the Gaussian blur strength applied before edge detection.
const BlurSigma = 2.0

// Luminance converts a pixel buffer into a luminance map.
func Luminance(buf *imgbuf.PixelBuffer) *imgbuf.LuminanceMap {
	lum := imgbuf.NewLuminanceMap(buf.Width, buf.Height)
	for i := range lum.Data {
		p := buf.Pix[i*4 : i*4+3 : i*4+3]
		lum.Data[i] = float32(imgbuf.Luma(p[0], p[1], p[2]))
	}
	return lum
}

// gaussianKernel returns normalized weights exp(-x²/(2σ²)) for a kernel of
// ceil(3σ)*2+1 taps.
func gaussianKernel(sigma float64) []float64 {
	size := int(math.Ceil(sigma*3))*2 + 1
	half := size / 2
	kernel := make([]float64, size)
	sum := 0.0
	for i := range kernel {
		x := float64(i - half)
		kernel[i] = math.Exp(-(x * x) / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// GaussianBlur applies a separable Gaussian blur, horizontal pass first.
// Samples beyond the border are clamped to the nearest edge pixel.
func GaussianBlur(src *imgbuf.LuminanceMap, sigma float64, workers int) *imgbuf.LuminanceMap {
	w, h := src.Width, src.Height
	kernel := gaussianKernel(sigma)
	half := len(kernel) / 2

	tmp := imgbuf.NewLuminanceMap(w, h)
	defer tmp.Release()
	parallel.Rows(h, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := src.Data[y*w : (y+1)*w]
			for x := 0; x < w; x++ {
				sum := 0.0
				for k := -half; k <= half; k++ {
					xx := min(max(x+k, 0), w-1)
					sum += float64(row[xx]) * kernel[k+half]
				}
				tmp.Data[y*w+x] = float32(sum)
			}
		}
	})

	out := imgbuf.NewLuminanceMap(w, h)
	parallel.Rows(h, workers, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				sum := 0.0
				for k := -half; k <= half; k++ {
					yy := min(max(y+k, 0), h-1)
					sum += float64(tmp.Data[yy*w+x]) * kernel[k+half]
				}
				out.Data[y*w+x] = float32(sum)
			}
		}
	})
	return out
}

// Sobel computes the gradient magnitude sqrt(Gx²+Gy²) with 3×3 Sobel kernels.
// Border pixels are left at zero.
func Sobel(src *imgbuf.LuminanceMap, workers int) *imgbuf.LuminanceMap {
	w, h := src.Width, src.Height
	out := imgbuf.NewLuminanceMap(w, h)
	if w < 3 || h < 3 {
		return out
	}
	d := src.Data
	parallel.Rows(h-2, workers, func(r0, r1 int) {
		for y := r0 + 1; y < r1+1; y++ {
			up, mid, down := (y-1)*w, y*w, (y+1)*w
			for x := 1; x < w-1; x++ {
				gx := -float64(d[up+x-1]) + float64(d[up+x+1]) +
					-2*float64(d[mid+x-1]) + 2*float64(d[mid+x+1]) +
					-float64(d[down+x-1]) + float64(d[down+x+1])
				gy := -float64(d[up+x-1]) - 2*float64(d[up+x]) - float64(d[up+x+1]) +
					float64(d[down+x-1]) + 2*float64(d[down+x]) + float64(d[down+x+1])
				out.Data[mid+x] = float32(math.Sqrt(gx*gx + gy*gy))
			}
		}
	})
	return out
}

// EdgeMap runs luminance, blur and Sobel in sequence. Intermediate maps are
// released; the caller owns the returned edge map.
func EdgeMap(buf *imgbuf.PixelBuffer, workers int) *imgbuf.LuminanceMap {
	lum := Luminance(buf)
	defer lum.Release()
	blurred := GaussianBlur(lum, BlurSigma, workers)
	defer blurred.Release()
	return Sobel(blurred, workers)
}
