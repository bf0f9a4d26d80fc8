package testutil

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/docscan/internal/geometry"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common test image sizes.
	SmallSize  = ImageSize{400, 300}
	MediumSize = ImageSize{640, 480}
)

// DocumentConfig describes a synthetic photo of a sheet of paper.
type DocumentConfig struct {
	Size       ImageSize
	Background color.Color
	Paper      color.Color
	Ink        color.Color
	Corners    geometry.Quad // paper outline, need not be axis-aligned
	TextLines  []string      // drawn inside the paper's inner bounding box
}

// DefaultDocumentConfig returns a light, slightly skewed page on a dark desk.
func DefaultDocumentConfig() DocumentConfig {
	return DocumentConfig{
		Size:       MediumSize,
		Background: color.NRGBA{40, 45, 50, 255},
		Paper:      color.NRGBA{235, 235, 230, 255},
		Ink:        color.NRGBA{20, 20, 20, 255},
		Corners: geometry.Quad{
			{X: 120, Y: 70}, {X: 520, Y: 90}, {X: 540, Y: 420}, {X: 100, Y: 400},
		},
		TextLines: []string{"INVOICE 2024-117", "Total due: 42.00", "Thank you"},
	}
}

// GenerateDocumentImage renders the configured document photo.
func GenerateDocumentImage(cfg DocumentConfig) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, cfg.Size.Width, cfg.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)
	FillQuad(img, cfg.Corners, cfg.Paper)

	if len(cfg.TextLines) == 0 {
		return img
	}
	q := cfg.Corners
	inner := image.Rect(
		int(max(q[geometry.TopLeft].X, q[geometry.BottomLeft].X))+20,
		int(max(q[geometry.TopLeft].Y, q[geometry.TopRight].Y))+20,
		int(min(q[geometry.TopRight].X, q[geometry.BottomRight].X))-20,
		int(min(q[geometry.BottomLeft].Y, q[geometry.BottomRight].Y))-20,
	)
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Src: &image.Uniform{cfg.Ink}, Face: face}
	lineHeight := face.Metrics().Height.Ceil() * 2
	for i, line := range cfg.TextLines {
		y := inner.Min.Y + (i+1)*lineHeight
		if y > inner.Max.Y {
			break
		}
		drawer.Dot = fixed.P(inner.Min.X, y)
		drawer.DrawString(line)
	}
	return img
}

// FillQuad paints every pixel whose center lies inside the convex quad q.
func FillQuad(img draw.Image, q geometry.Quad, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if insideConvex(q, float64(x)+0.5, float64(y)+0.5) {
				img.Set(x, y, c)
			}
		}
	}
}

func insideConvex(q geometry.Quad, x, y float64) bool {
	sign := 0
	for i := 0; i < 4; i++ {
		a, b := q[i], q[(i+1)%4]
		c := (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
		switch {
		case c > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case c < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		}
	}
	return true
}

// CreateUniformImage returns a w×h image filled with c.
func CreateUniformImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// CreateRectangleImage returns a w×h image of bg with rect filled by fg.
func CreateRectangleImage(width, height int, rect image.Rectangle, bg, fg color.Color) *image.NRGBA {
	img := CreateUniformImage(width, height, bg)
	draw.Draw(img, rect, &image.Uniform{fg}, image.Point{}, draw.Src)
	return img
}

// CreateGradientImage returns a horizontal RGB gradient, useful for checking
// resampling against known pixel values.
func CreateGradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(width-1, 1)),
				G: uint8(y * 255 / max(height-1, 1)),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

// CountGray returns how many pixels of img are pure white and pure black.
func CountGray(img image.Image) (white, black int) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			switch {
			case r == 0xffff && g == 0xffff && bl == 0xffff:
				white++
			case r == 0 && g == 0 && bl == 0:
				black++
			}
		}
	}
	return white, black
}
