package rectify

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/imgbuf"
	"github.com/MeKo-Tech/docscan/internal/testutil"
)

func bufferOf(t *testing.T, w, h int, fill func(x, y int) [4]uint8) *imgbuf.PixelBuffer {
	t.Helper()
	buf, err := imgbuf.New(w, h)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := fill(x, y)
			buf.Set(x, y, c[0], c[1], c[2], c[3])
		}
	}
	return buf
}

func TestOutputSize(t *testing.T) {
	tests := []struct {
		name  string
		quad  geometry.Quad
		wantW int
		wantH int
	}{
		{"axis aligned", geometry.RectQuad(300, 200), 300, 200},
		{"trapezoid averages edges", geometry.Quad{{50, 0}, {250, 0}, {300, 150}, {0, 150}}, 250, 158},
		{"small quads are raised", geometry.RectQuad(40, 20), 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := OutputSize(tt.quad)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestBilinearSample(t *testing.T) {
	src := bufferOf(t, 2, 2, func(x, y int) [4]uint8 {
		return [4]uint8{uint8(100 * x), uint8(100 * y), 50, 255}
	})
	dst := make([]uint8, 4)

	bilinearSample(src, 0.5, 0.5, dst)
	assert.Equal(t, []uint8{50, 50, 50, 255}, dst)

	bilinearSample(src, 0.25, 1, dst)
	assert.Equal(t, []uint8{25, 100, 50, 255}, dst)

	// Out-of-range coordinates clamp to the nearest edge.
	bilinearSample(src, -10, 40, dst)
	assert.Equal(t, []uint8{0, 100, 50, 255}, dst)
	bilinearSample(src, 5, -3, dst)
	assert.Equal(t, []uint8{100, 0, 50, 255}, dst)
}

func TestWarp_IdentityQuadKeepsImage(t *testing.T) {
	// Both edges stay at or above MinOutputSize and x+y stays below 256, so
	// the gradient's blue channel never wraps.
	img := testutil.CreateGradientImage(140, 110)
	src, err := imgbuf.FromImage(img)
	require.NoError(t, err)

	r, err := New(DefaultConfig())
	require.NoError(t, err)
	out, err := r.Flatten(src, geometry.RectQuad(140, 110))
	require.NoError(t, err)

	assert.Equal(t, 140, out.Width)
	assert.Equal(t, 110, out.Height)
	require.Len(t, out.Pix, len(src.Pix))
	for i := range out.Pix {
		assert.InDelta(t, int(src.Pix[i]), int(out.Pix[i]), 4, "byte %d", i)
	}
}

func TestWarp_ExactIdentity(t *testing.T) {
	src := bufferOf(t, 120, 110, func(x, y int) [4]uint8 {
		return [4]uint8{uint8(x), uint8(y), uint8(x ^ y), 255}
	})
	h, err := ComputeHomography(DestinationRect(120, 110), 120, 110)
	require.NoError(t, err)

	out := Warp(src, h, 120, 110, 4)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestWarp_ExtractsSubRegion(t *testing.T) {
	src := bufferOf(t, 300, 300, func(x, y int) [4]uint8 {
		if x >= 100 && x < 200 && y >= 100 && y < 250 {
			return [4]uint8{200, 10, 10, 255}
		}
		return [4]uint8{0, 0, 0, 255}
	})
	r, err := New(Config{Workers: 2})
	require.NoError(t, err)

	out, err := r.Flatten(src, geometry.Quad{{100, 100}, {199, 100}, {199, 249}, {100, 249}})
	require.NoError(t, err)
	assert.Equal(t, 100, out.Width)
	assert.Equal(t, 149, out.Height)

	red, _, _, _ := out.RGBA(50, 70)
	assert.Equal(t, uint8(200), red)
	red, _, _, _ = out.RGBA(0, 0)
	assert.Equal(t, uint8(200), red)
}

func TestFlatten_SingularQuad(t *testing.T) {
	src := bufferOf(t, 10, 10, func(int, int) [4]uint8 { return [4]uint8{1, 2, 3, 255} })
	r, err := New(DefaultConfig())
	require.NoError(t, err)

	out, err := r.Flatten(src, geometry.Quad{})
	require.ErrorIs(t, err, ErrSingularTransform)
	assert.Nil(t, out)
}

func TestNew_InvalidOverlayColor(t *testing.T) {
	_, err := New(Config{OverlayColor: "not-a-color"})
	require.Error(t, err)
}

func TestFlatten_WritesDebugOverlay(t *testing.T) {
	dir := t.TempDir()
	img := testutil.CreateUniformImage(150, 120, color.White)
	src, err := imgbuf.FromImage(img)
	require.NoError(t, err)

	r, err := New(Config{DebugDir: dir, OverlayColor: "#00ff00"})
	require.NoError(t, err)
	_, err = r.Flatten(src, geometry.Quad{{10, 10}, {140, 12}, {138, 110}, {12, 108}})
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "corners_*.png"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	info, err := os.Stat(matches[0])
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestDrawPolygon(t *testing.T) {
	canvas := testutil.CreateUniformImage(20, 20, color.Black)
	drawPolygon(canvas, geometry.RectQuad(10, 10).Points(), color.White, 1)

	white, _ := testutil.CountGray(canvas)
	assert.Equal(t, 40, white)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, canvas.At(10, 5))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, canvas.At(5, 5))
}
