// Package imgbuf defines the raw pixel containers the scanning stages pass
// between each other.
package imgbuf

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/docscan/internal/mempool"
)

// ErrMissingDimensions is returned when an image has no usable width or height.
var ErrMissingDimensions = errors.New("image dimensions are missing")

// Luminance weights for R, G and B.
const (
	LumaR = 0.299
	LumaG = 0.587
	LumaB = 0.114
)

// Luma returns the perceptual luminance of an RGB triple.
func Luma(r, g, b uint8) float64 {
	return LumaR*float64(r) + LumaG*float64(g) + LumaB*float64(b)
}

// PixelBuffer is a width×height RGBA8 image, row-major, with a row stride of
// Width*4. Channels are not premultiplied.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed buffer.
func New(width, height int) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrMissingDimensions, width, height)
	}
	return &PixelBuffer{Width: width, Height: height, Pix: make([]uint8, width*height*4)}, nil
}

// FromImage copies any decoded image into a fresh buffer.
func FromImage(img image.Image) (*PixelBuffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrMissingDimensions)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrMissingDimensions, b.Dx(), b.Dy())
	}
	return FromNRGBA(imaging.Clone(img)), nil
}

// FromNRGBA wraps an NRGBA image without copying when its layout already
// matches; otherwise the rows are compacted into a new buffer.
func FromNRGBA(img *image.NRGBA) *PixelBuffer {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride == w*4 && img.Rect.Min == (image.Point{}) {
		return &PixelBuffer{Width: w, Height: h, Pix: img.Pix[:w*h*4]}
	}
	pix := make([]uint8, w*h*4)
	for y := 0; y < h; y++ {
		src := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(pix[y*w*4:(y+1)*w*4], img.Pix[src:src+w*4])
	}
	return &PixelBuffer{Width: w, Height: h, Pix: pix}
}

// ToNRGBA exposes the buffer as an *image.NRGBA sharing the same pixels.
func (b *PixelBuffer) ToNRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Stride returns the number of bytes per row.
func (b *PixelBuffer) Stride() int { return b.Width * 4 }

// Offset returns the index of the red channel of pixel (x, y).
func (b *PixelBuffer) Offset(x, y int) int { return (y*b.Width + x) * 4 }

// RGBA returns the four channels of pixel (x, y).
func (b *PixelBuffer) RGBA(x, y int) (r, g, bl, a uint8) {
	i := b.Offset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// Set writes the four channels of pixel (x, y).
func (b *PixelBuffer) Set(x, y int, r, g, bl, a uint8) {
	i := b.Offset(x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = r, g, bl, a
}

// Clone returns a deep copy.
func (b *PixelBuffer) Clone() *PixelBuffer {
	return &PixelBuffer{Width: b.Width, Height: b.Height, Pix: append([]uint8(nil), b.Pix...)}
}

// LongEdge returns max(Width, Height).
func (b *PixelBuffer) LongEdge() int { return max(b.Width, b.Height) }

// LuminanceMap holds one floating point intensity per pixel.
type LuminanceMap struct {
	Width  int
	Height int
	Data   []float32
}

// NewLuminanceMap returns a zeroed map backed by a pooled slice.
// Call Release when the map is no longer used.
func NewLuminanceMap(width, height int) *LuminanceMap {
	return &LuminanceMap{Width: width, Height: height, Data: mempool.GetFloat32(width * height)}
}

// At returns the value at (x, y).
func (m *LuminanceMap) At(x, y int) float32 { return m.Data[y*m.Width+x] }

// Release hands the backing slice back to the pool. The map must not be used
// afterwards.
func (m *LuminanceMap) Release() {
	if m == nil {
		return
	}
	mempool.PutFloat32(m.Data)
	m.Data = nil
}
