package rectify

import (
	"fmt"
	"image/color"
	"log/slog"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/imgbuf"
)

// Rectifier flattens detected document quads.
type Rectifier struct {
	cfg     Config
	overlay color.Color
}

// New validates cfg and creates a rectifier.
func New(cfg Config) (*Rectifier, error) {
	hex := cfg.OverlayColor
	if hex == "" {
		hex = DefaultOverlayColor
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid overlay color %q: %w", cfg.OverlayColor, err)
	}
	r, g, b := c.RGB255()
	return &Rectifier{cfg: cfg, overlay: color.NRGBA{R: r, G: g, B: b, A: 255}}, nil
}

// Flatten warps the region of src bounded by q into a rectangle sized by
// OutputSize. A degenerate quad yields an error wrapping ErrSingularTransform
// and no image; deciding on a fallback is left to the caller.
func (r *Rectifier) Flatten(src *imgbuf.PixelBuffer, q geometry.Quad) (*imgbuf.PixelBuffer, error) {
	if r.cfg.DebugDir != "" {
		if err := dumpOverlayPNG(r.cfg.DebugDir, src, q, r.overlay); err != nil {
			slog.Warn("failed to write corner overlay", "dir", r.cfg.DebugDir, "error", err)
		}
	}

	w, h := OutputSize(q)
	hm, err := ComputeHomography(q, w, h)
	if err != nil {
		return nil, fmt.Errorf("flatten %s: %w", q, err)
	}
	return Warp(src, hm, w, h, r.cfg.Workers), nil
}
