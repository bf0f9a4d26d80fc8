package detector

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docscan/internal/imgbuf"
	"github.com/MeKo-Tech/docscan/internal/testutil"
)

func TestGaussianKernel(t *testing.T) {
	k := gaussianKernel(BlurSigma)
	require.Len(t, k, 13)

	sum := 0.0
	for i, v := range k {
		sum += v
		assert.InDelta(t, v, k[len(k)-1-i], 1e-15, "kernel must be symmetric")
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.Greater(t, k[6], k[5])
}

func TestLuminance(t *testing.T) {
	buf, err := imgbuf.FromImage(testutil.CreateUniformImage(3, 2, color.NRGBA{100, 150, 200, 255}))
	require.NoError(t, err)
	lum := Luminance(buf)
	defer lum.Release()

	want := float32(imgbuf.Luma(100, 150, 200))
	for _, v := range lum.Data {
		assert.InDelta(t, want, v, 1e-4)
	}
}

func TestGaussianBlur_PreservesUniform(t *testing.T) {
	m := imgbuf.NewLuminanceMap(30, 20)
	defer m.Release()
	for i := range m.Data {
		m.Data[i] = 77
	}
	out := GaussianBlur(m, BlurSigma, 3)
	defer out.Release()
	for _, v := range out.Data {
		assert.InDelta(t, 77, v, 1e-3)
	}
}

func TestGaussianBlur_SpreadsImpulse(t *testing.T) {
	m := imgbuf.NewLuminanceMap(21, 21)
	defer m.Release()
	m.Data[10*21+10] = 1000
	out := GaussianBlur(m, BlurSigma, 1)
	defer out.Release()

	assert.Less(t, out.At(10, 10), float32(1000))
	assert.Greater(t, out.At(12, 10), float32(0))
	assert.InDelta(t, out.At(12, 10), out.At(10, 12), 1e-3)
	assert.InDelta(t, out.At(8, 10), out.At(12, 10), 1e-3)
}

func TestSobel_VerticalStep(t *testing.T) {
	m := imgbuf.NewLuminanceMap(10, 5)
	defer m.Release()
	for y := 0; y < 5; y++ {
		for x := 5; x < 10; x++ {
			m.Data[y*10+x] = 100
		}
	}
	out := Sobel(m, 2)
	defer out.Release()

	// Border stays zero.
	for x := 0; x < 10; x++ {
		assert.Zero(t, out.At(x, 0))
		assert.Zero(t, out.At(x, 4))
	}
	assert.Zero(t, out.At(0, 2))
	assert.Zero(t, out.At(9, 2))

	// Gx = 4*100 on both sides of the step, nothing elsewhere.
	assert.InDelta(t, 400, out.At(4, 2), 1e-3)
	assert.InDelta(t, 400, out.At(5, 2), 1e-3)
	assert.Zero(t, out.At(2, 2))
	assert.Zero(t, out.At(7, 2))
}

func TestSobel_TinyMap(t *testing.T) {
	m := imgbuf.NewLuminanceMap(2, 2)
	defer m.Release()
	out := Sobel(m, 1)
	defer out.Release()
	assert.Equal(t, []float32{0, 0, 0, 0}, out.Data)
}

func TestEdgeMap_Dimensions(t *testing.T) {
	buf, err := imgbuf.FromImage(testutil.CreateUniformImage(37, 23, color.White))
	require.NoError(t, err)
	edges := EdgeMap(buf, 0)
	defer edges.Release()
	assert.Equal(t, 37, edges.Width)
	assert.Equal(t, 23, edges.Height)
	for _, v := range edges.Data {
		assert.InDelta(t, 0, v, 1e-3)
	}
}
