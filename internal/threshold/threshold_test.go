package threshold

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docscan/internal/imgbuf"
	"github.com/MeKo-Tech/docscan/internal/testutil"
)

func bufferFrom(t *testing.T, img image.Image) *imgbuf.PixelBuffer {
	t.Helper()
	buf, err := imgbuf.FromImage(img)
	require.NoError(t, err)
	return buf
}

func uniqueValues(buf *imgbuf.PixelBuffer) map[uint8]int {
	seen := map[uint8]int{}
	for i := 0; i < len(buf.Pix); i += 4 {
		seen[buf.Pix[i]]++
	}
	return seen
}

func TestNormalizeBlockSize(t *testing.T) {
	tests := []struct{ in, want int }{
		{15, 15}, {16, 17}, {2, 3}, {1, 3}, {0, 3}, {-8, 3}, {4, 5}, {31, 31},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeBlockSize(tt.in), "blockSize %d", tt.in)
	}
}

func TestIntegralImage_Sum(t *testing.T) {
	values := []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
	}
	ii := NewIntegralImage(values, 4, 3)
	defer ii.Release()

	assert.Equal(t, 78.0, ii.Data[11], "bottom-right entry is the total")
	assert.Equal(t, 10.0, ii.Data[3], "first row is a prefix sum")

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
		want           float64
	}{
		{"single pixel", 2, 1, 2, 1, 7},
		{"whole image", 0, 0, 3, 2, 78},
		{"interior block", 1, 1, 2, 2, 6 + 7 + 10 + 11},
		{"left column", 0, 0, 0, 2, 15},
		{"top row", 1, 0, 3, 0, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ii.Sum(tt.x1, tt.y1, tt.x2, tt.y2), 1e-9)
		})
	}
}

func TestBradley_UniformGrayIsUniform(t *testing.T) {
	tests := []struct {
		offset int
		want   uint8
	}{
		{offset: 10, want: 255},
		{offset: 50, want: 255},
		{offset: -10, want: 0},
	}
	for _, tt := range tests {
		buf := bufferFrom(t, testutil.CreateUniformImage(64, 48, color.Gray{Y: 140}))
		out := Bradley(buf, DefaultBlockSize, tt.offset, 0)
		assert.Equal(t, map[uint8]int{tt.want: 64 * 48}, uniqueValues(out), "offset %d", tt.offset)
	}
}

func TestBradley_BlackStaysBlack(t *testing.T) {
	buf := bufferFrom(t, testutil.CreateUniformImage(20, 20, color.Black))
	out := Bradley(buf, 15, 10, 1)
	assert.Equal(t, map[uint8]int{0: 400}, uniqueValues(out))
}

func TestBradley_TextOnUnevenLighting(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			// Paper brightness falls from 240 to 120 across the page.
			v := uint8(240 - x*120/199)
			if x%40 >= 18 && x%40 < 22 && y > 30 && y < 70 {
				v /= 3
			}
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	out := Bradley(bufferFrom(t, img), 15, 10, 4)

	r, _, _, a := out.RGBA(5, 50)
	assert.Equal(t, uint8(255), r, "bright paper")
	assert.Equal(t, uint8(255), a)
	r, _, _, _ = out.RGBA(195, 50)
	assert.Equal(t, uint8(255), r, "dim paper is still paper")
	r, _, _, _ = out.RGBA(20, 50)
	assert.Equal(t, uint8(0), r, "stroke on bright paper")
	r, _, _, _ = out.RGBA(180, 50)
	assert.Equal(t, uint8(0), r, "stroke on dim paper")
}

func TestBradley_ForcesOpaqueAlpha(t *testing.T) {
	buf := bufferFrom(t, testutil.CreateUniformImage(8, 8, color.NRGBA{200, 200, 200, 10}))
	out := Bradley(buf, 3, 10, 1)
	for i := 3; i < len(out.Pix); i += 4 {
		assert.Equal(t, uint8(255), out.Pix[i])
	}
	assert.Equal(t, uint8(10), buf.Pix[3], "input is left untouched")
}

func TestGlobal(t *testing.T) {
	img := testutil.CreateRectangleImage(10, 10, image.Rect(0, 0, 5, 10), color.Gray{Y: 200}, color.Gray{Y: 40})
	out := Global(bufferFrom(t, img), DefaultGlobalLevel)

	r, g, b, a := out.RGBA(1, 1)
	assert.Equal(t, [4]uint8{0, 0, 0, 255}, [4]uint8{r, g, b, a})
	r, g, b, a = out.RGBA(8, 8)
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, [4]uint8{r, g, b, a})
	assert.Equal(t, map[uint8]int{0: 50, 255: 50}, uniqueValues(out))
}

func TestGlobal_UsesLuminanceStrictlyAboveLevel(t *testing.T) {
	tests := []struct {
		name  string
		px    [4]uint8
		level uint8
		want  uint8
	}{
		{"green-heavy below level", [4]uint8{30, 200, 0, 255}, 128, 0},
		{"translucent white", [4]uint8{255, 255, 255, 100}, 128, 255},
		{"transparent white", [4]uint8{255, 255, 255, 0}, 128, 255},
		{"gray at level", [4]uint8{128, 128, 128, 255}, 128, 0},
		{"one above level", [4]uint8{129, 129, 129, 255}, 128, 255},
		{"black at level zero", [4]uint8{0, 0, 0, 255}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &imgbuf.PixelBuffer{Width: 3, Height: 2, Pix: make([]uint8, 3*2*4)}
			for i := 0; i < len(buf.Pix); i += 4 {
				copy(buf.Pix[i:i+4], tt.px[:])
			}
			out := Global(buf, tt.level)
			for i := 0; i < len(out.Pix); i += 4 {
				assert.Equal(t, [4]uint8{tt.want, tt.want, tt.want, 255}, [4]uint8(out.Pix[i:i+4]))
			}
		})
	}
}
