package threshold

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNormalizeBlockSize_AlwaysOddAndAtLeastThree(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("normalized block size is odd and >= 3", prop.ForAll(
		func(bs int) bool {
			n := NormalizeBlockSize(bs)
			return n >= 3 && n%2 == 1
		},
		gen.IntRange(-1000, 1000),
	))

	properties.Property("odd sizes of at least 3 are kept", prop.ForAll(
		func(k int) bool {
			bs := 2*k + 1
			return NormalizeBlockSize(bs) == bs
		},
		gen.IntRange(1, 500),
	))

	properties.TestingRun(t)
}

func TestIntegralImage_MatchesBruteForce(t *testing.T) {
	properties := gopter.NewProperties(nil)

	const w, h = 9, 7
	properties.Property("Sum equals the direct rectangle sum", prop.ForAll(
		func(values []float64, x1, y1, dx, dy int) bool {
			x2, y2 := min(x1+dx, w-1), min(y1+dy, h-1)
			ii := NewIntegralImage(values, w, h)
			defer ii.Release()

			want := 0.0
			for y := y1; y <= y2; y++ {
				for x := x1; x <= x2; x++ {
					want += values[y*w+x]
				}
			}
			got := ii.Sum(x1, y1, x2, y2)
			diff := got - want
			return diff < 1e-6 && diff > -1e-6
		},
		gen.SliceOfN(w*h, gen.Float64Range(0, 255)),
		gen.IntRange(0, w-1),
		gen.IntRange(0, h-1),
		gen.IntRange(0, w-1),
		gen.IntRange(0, h-1),
	))

	properties.TestingRun(t)
}
