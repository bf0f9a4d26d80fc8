package imgbuf

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	buf, err := New(3, 2)
	require.NoError(t, err)
	assert.Len(t, buf.Pix, 3*2*4)
	assert.Equal(t, 12, buf.Stride())

	_, err = New(0, 5)
	require.ErrorIs(t, err, ErrMissingDimensions)
	_, err = New(5, -1)
	require.ErrorIs(t, err, ErrMissingDimensions)
}

func TestFromImage_CopiesPixels(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 2, color.RGBA{10, 20, 30, 255})

	buf, err := FromImage(src)
	require.NoError(t, err)
	assert.Equal(t, 4, buf.Width)
	assert.Equal(t, 3, buf.Height)
	r, g, b, a := buf.RGBA(1, 2)
	assert.Equal(t, [4]uint8{10, 20, 30, 255}, [4]uint8{r, g, b, a})

	src.Set(1, 2, color.RGBA{0, 0, 0, 255})
	r, _, _, _ = buf.RGBA(1, 2)
	assert.Equal(t, uint8(10), r, "buffer must not alias the source")
}

func TestFromImage_OffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 8, 7))
	src.Set(5, 5, color.NRGBA{1, 2, 3, 4})
	buf, err := FromImage(src)
	require.NoError(t, err)
	assert.Equal(t, 3, buf.Width)
	assert.Equal(t, 2, buf.Height)
	r, g, b, a := buf.RGBA(0, 0)
	assert.Equal(t, [4]uint8{1, 2, 3, 4}, [4]uint8{r, g, b, a})
}

func TestFromImage_Empty(t *testing.T) {
	_, err := FromImage(nil)
	require.ErrorIs(t, err, ErrMissingDimensions)
	_, err = FromImage(image.NewRGBA(image.Rect(0, 0, 0, 10)))
	require.ErrorIs(t, err, ErrMissingDimensions)
}

func TestFromNRGBA_SubImage(t *testing.T) {
	parent := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	parent.Set(4, 4, color.NRGBA{9, 9, 9, 255})
	sub := parent.SubImage(image.Rect(3, 3, 6, 6)).(*image.NRGBA)

	buf := FromNRGBA(sub)
	assert.Equal(t, 3, buf.Width)
	assert.Len(t, buf.Pix, 3*3*4)
	r, _, _, _ := buf.RGBA(1, 1)
	assert.Equal(t, uint8(9), r)
}

func TestToNRGBA_SharesPixels(t *testing.T) {
	buf, err := New(2, 2)
	require.NoError(t, err)
	img := buf.ToNRGBA()
	img.Set(1, 1, color.NRGBA{5, 6, 7, 8})
	r, g, b, a := buf.RGBA(1, 1)
	assert.Equal(t, [4]uint8{5, 6, 7, 8}, [4]uint8{r, g, b, a})
}

func TestLuma(t *testing.T) {
	assert.InDelta(t, 255.0, Luma(255, 255, 255), 1e-9)
	assert.InDelta(t, 0.299*100, Luma(100, 0, 0), 1e-9)
	assert.InDelta(t, 0.587*100+0.114*50, Luma(0, 100, 50), 1e-9)
}

func TestLuminanceMap_Release(t *testing.T) {
	m := NewLuminanceMap(4, 4)
	require.Len(t, m.Data, 16)
	m.Data[5] = 3
	assert.Equal(t, float32(3), m.At(1, 1))
	m.Release()
	assert.Nil(t, m.Data)

	var nilMap *LuminanceMap
	assert.NotPanics(t, nilMap.Release)
}
