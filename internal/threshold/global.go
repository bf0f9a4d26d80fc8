package threshold

import (
	"github.com/anthonynsimon/bild/parallel"

	"github.com/MeKo-Tech/docscan/internal/imgbuf"
)

// DefaultGlobalLevel is the fixed level used by Global when none is configured.
const DefaultGlobalLevel = 128

// Global binarizes buf against one fixed level: a pixel becomes white when
// its luminance is strictly above level, black otherwise. Input alpha is
// ignored and the output is opaque.
func Global(buf *imgbuf.PixelBuffer, level uint8) *imgbuf.PixelBuffer {
	out := &imgbuf.PixelBuffer{Width: buf.Width, Height: buf.Height, Pix: make([]uint8, len(buf.Pix))}
	cut := float64(level)

	parallel.Line(buf.Height, func(start, end int) {
		for y := start; y < end; y++ {
			row := y * buf.Width * 4
			for x := 0; x < buf.Width; x++ {
				i := row + x*4
				var v uint8
				if imgbuf.Luma(buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2]) > cut {
					v = 255
				}
				out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = v, v, v, 255
			}
		}
	})
	return out
}
