package rectify

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/imgbuf"
)

const overlayThickness = 3

func dumpOverlayPNG(dir string, src *imgbuf.PixelBuffer, q geometry.Quad, col color.Color) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("corners_%d.png", time.Now().UnixNano()))

	canvas := imaging.Clone(src.ToNRGBA())
	drawPolygon(canvas, q.Points(), col, overlayThickness)
	return imaging.Save(canvas, path)
}

// drawPolygon outlines the closed polygon pts.
func drawPolygon(dst draw.Image, pts []geometry.Point, col color.Color, thickness int) {
	if len(pts) < 2 {
		return
	}
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		drawLine(dst,
			image.Pt(int(math.Round(a.X)), int(math.Round(a.Y))),
			image.Pt(int(math.Round(b.X)), int(math.Round(b.Y))),
			col, thickness)
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(dst draw.Image, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	dx, sx := absInt(b.X-x0), 1
	if x0 > b.X {
		sx = -1
	}
	dy, sy := -absInt(b.Y-y0), 1
	if y0 > b.Y {
		sy = -1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == b.X && y0 == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawThickPoint(dst draw.Image, x, y int, col color.Color, thickness int) {
	r := thickness / 2
	bounds := dst.Bounds()
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(bounds) {
				dst.Set(xx, yy, col)
			}
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
