package detector

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/imgbuf"
	"github.com/MeKo-Tech/docscan/internal/testutil"
)

func mustBuffer(t *testing.T, img image.Image) *imgbuf.PixelBuffer {
	t.Helper()
	buf, err := imgbuf.FromImage(img)
	require.NoError(t, err)
	return buf
}

func assertNear(t *testing.T, want, got geometry.Point, tol float64, name string) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "%s x", name)
	assert.InDelta(t, want.Y, got.Y, tol, "%s y", name)
}

func TestDetect_BlackRectangleOnWhite(t *testing.T) {
	img := testutil.CreateRectangleImage(400, 300, image.Rect(50, 50, 350, 250), color.White, color.Black)

	det, err := DetectCorners(mustBuffer(t, img))
	require.NoError(t, err)
	assert.False(t, det.UsedDefault)
	assert.Greater(t, det.BoundaryPoints, 4)

	const tol = 8.0
	assertNear(t, geometry.Point{X: 50, Y: 50}, det.Corners.TopLeft(), tol, "top-left")
	assertNear(t, geometry.Point{X: 350, Y: 50}, det.Corners.TopRight(), tol, "top-right")
	assertNear(t, geometry.Point{X: 350, Y: 250}, det.Corners.BottomRight(), tol, "bottom-right")
	assertNear(t, geometry.Point{X: 50, Y: 250}, det.Corners.BottomLeft(), tol, "bottom-left")
}

func TestDetect_SkewedDocument(t *testing.T) {
	cfg := testutil.DefaultDocumentConfig()
	img := testutil.GenerateDocumentImage(cfg)

	det, err := New(Config{Workers: 2}).Detect(mustBuffer(t, img))
	require.NoError(t, err)
	for i, want := range cfg.Corners {
		assertNear(t, want, det.Corners[i], 10, "corner")
	}
}

func TestDetect_UniformImageFallsBack(t *testing.T) {
	img := testutil.CreateUniformImage(200, 100, color.Gray{Y: 128})

	det, err := DetectCorners(mustBuffer(t, img))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDetectionFailed))
	assert.True(t, det.UsedDefault)
	assert.Equal(t, 0, det.Threshold)
	assert.Equal(t, 0, det.BoundaryPoints)
	assert.Equal(t, geometry.Quad{{5, 5}, {195, 5}, {195, 95}, {5, 95}}, det.Corners)
}

func TestDefaultCorners(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want geometry.Quad
	}{
		{"landscape", 400, 300, geometry.Quad{{15, 15}, {385, 15}, {385, 285}, {15, 285}}},
		{"portrait", 100, 250, geometry.Quad{{5, 5}, {95, 5}, {95, 245}, {5, 245}}},
		{"tiny", 10, 10, geometry.Quad{{0, 0}, {10, 0}, {10, 10}, {0, 10}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultCorners(tt.w, tt.h))
		})
	}
}

func TestSelectCorners(t *testing.T) {
	t.Run("exactly four points are reordered", func(t *testing.T) {
		pts := []geometry.Point{{90, 80}, {10, 12}, {12, 85}, {95, 10}}
		q, ok := SelectCorners(pts, 100, 100)
		require.True(t, ok)
		assert.Equal(t, geometry.Quad{{10, 12}, {95, 10}, {90, 80}, {12, 85}}, q)
	})

	t.Run("more points pick the nearest to each image corner", func(t *testing.T) {
		pts := []geometry.Point{
			{50, 8}, {8, 9}, {92, 7}, {95, 50}, {90, 93}, {50, 96}, {6, 91}, {5, 50},
		}
		q, ok := SelectCorners(pts, 100, 100)
		require.True(t, ok)
		assert.Equal(t, geometry.Quad{{8, 9}, {92, 7}, {90, 93}, {6, 91}}, q)
	})

	t.Run("too few points fall back", func(t *testing.T) {
		q, ok := SelectCorners([]geometry.Point{{1, 1}, {2, 2}, {3, 3}}, 200, 100)
		assert.False(t, ok)
		assert.Equal(t, DefaultCorners(200, 100), q)
	})

	t.Run("duplicate coordinates are claimed once", func(t *testing.T) {
		pts := []geometry.Point{{1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}}
		q, ok := SelectCorners(pts, 100, 100)
		assert.False(t, ok)
		assert.Equal(t, DefaultCorners(100, 100), q)
	})
}

func TestOtsuFromHistogram_Bimodal(t *testing.T) {
	var hist [histogramBins]int
	total := 0
	for i := range hist {
		a := 1000 * math.Exp(-math.Pow(float64(i-50), 2)/(2*10*10))
		b := 600 * math.Exp(-math.Pow(float64(i-200), 2)/(2*12*12))
		hist[i] = int(a + b)
		total += hist[i]
	}
	th := otsuFromHistogram(hist, total)
	assert.Greater(t, th, 50)
	assert.Less(t, th, 200)
}

func TestOtsuFromHistogram_TieKeepsFirst(t *testing.T) {
	var hist [histogramBins]int
	hist[10] = 5
	hist[20] = 5
	assert.Equal(t, 10, otsuFromHistogram(hist, 10))
}

func TestOtsuFromHistogram_SingleValue(t *testing.T) {
	var hist [histogramBins]int
	hist[0] = 100
	assert.Equal(t, 0, otsuFromHistogram(hist, 100))
}

func TestOtsuThreshold_ClampsMagnitudes(t *testing.T) {
	m := imgbuf.NewLuminanceMap(4, 1)
	defer m.Release()
	copy(m.Data, []float32{-3, 0.7, 900, 1200})
	// Bins: 0, 0, 255, 255.
	assert.Equal(t, 0, OtsuThreshold(m))
}

func TestBoundaryPoints_Block(t *testing.T) {
	m := imgbuf.NewLuminanceMap(20, 20)
	defer m.Release()
	for y := 6; y <= 13; y++ {
		for x := 6; x <= 13; x++ {
			m.Data[y*20+x] = 1
		}
	}

	pts := BoundaryPoints(m, 0)
	want := []geometry.Point{
		{6, 6}, {8, 6}, {10, 6}, {12, 6},
		{6, 8}, {6, 10}, {6, 12},
	}
	assert.Equal(t, want, pts)
}

func TestBoundaryPoints_RespectsMargin(t *testing.T) {
	m := imgbuf.NewLuminanceMap(100, 100)
	defer m.Release()
	m.Data[0] = 10
	m.Data[1*100+1] = 10
	assert.Empty(t, BoundaryPoints(m, 0), "margin of 2px excludes the corner pixels")
}
