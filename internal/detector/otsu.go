package detector

import (
	"math"

	"github.com/MeKo-Tech/docscan/internal/imgbuf"
)

const histogramBins = 256

// OtsuThreshold picks the global threshold that maximizes the between-class
// variance of the edge magnitudes. Magnitudes are floored and clamped to
// [0, 255] before binning.
func OtsuThreshold(edges *imgbuf.LuminanceMap) int {
	var hist [histogramBins]int
	for _, v := range edges.Data {
		bin := int(math.Floor(float64(v)))
		hist[min(max(bin, 0), histogramBins-1)]++
	}
	return otsuFromHistogram(hist, len(edges.Data))
}

// otsuFromHistogram evaluates every candidate split of hist. A threshold only
// replaces the current best on a strictly larger variance, so ties keep the
// lowest candidate.
func otsuFromHistogram(hist [histogramBins]int, total int) int {
	sum := 0.0
	for i, n := range hist {
		sum += float64(i * n)
	}

	var sumB, maxVariance float64
	wB, threshold := 0, 0
	for i, n := range hist {
		wB += n
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}

		sumB += float64(i * n)
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		variance := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if variance > maxVariance {
			maxVariance = variance
			threshold = i
		}
	}
	return threshold
}
