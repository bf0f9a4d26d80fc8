package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/docscan/internal/codec"
	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/threshold"
)

// Mode selects the output rendition of a scan.
type Mode string

const (
	// ModeBinary produces a black and white page via thresholding.
	ModeBinary Mode = "bw"
	// ModeColor keeps the flattened colors and skips thresholding.
	ModeColor Mode = "color"
)

// ThresholdMethod selects the binarization algorithm for ModeBinary.
type ThresholdMethod string

const (
	ThresholdBradley ThresholdMethod = "bradley"
	ThresholdGlobal  ThresholdMethod = "global"
)

// DefaultMaxOutputSize caps the longer edge of the encoded page.
const DefaultMaxOutputSize = 2048

// Options configures a single scan.
type Options struct {
	BlockSize     int             `json:"block_size"`
	Offset        int             `json:"offset"`
	MaxOutputSize int             `json:"max_output_size"`
	Mode          Mode            `json:"mode"`
	Format        codec.Format    `json:"format"`
	Quality       int             `json:"quality"`
	Threshold     ThresholdMethod `json:"threshold"`
	GlobalLevel   int             `json:"global_level"`

	// Corners, when set, replaces detection. Coordinates are in input image
	// pixels and may be given in any order.
	Corners *[4]geometry.Point `json:"corners,omitempty"`
}

// DefaultOptions returns the default scan options.
func DefaultOptions() Options {
	return Options{
		BlockSize:     threshold.DefaultBlockSize,
		Offset:        threshold.DefaultOffset,
		MaxOutputSize: DefaultMaxOutputSize,
		Mode:          ModeBinary,
		Format:        codec.FormatPNG,
		Quality:       codec.DefaultQuality,
		Threshold:     ThresholdBradley,
		GlobalLevel:   threshold.DefaultGlobalLevel,
	}
}

// ParseMode accepts "bw", "binary", "color" or "colour".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bw", "binary":
		return ModeBinary, nil
	case "color", "colour":
		return ModeColor, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want bw or color)", s)
	}
}

// ParseThresholdMethod accepts "bradley" or "global".
func ParseThresholdMethod(s string) (ThresholdMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bradley", "adaptive":
		return ThresholdBradley, nil
	case "global":
		return ThresholdGlobal, nil
	default:
		return "", fmt.Errorf("unknown threshold method %q (want bradley or global)", s)
	}
}

// ParseCorners parses "x,y;x,y;x,y;x,y".
func ParseCorners(s string) (*[4]geometry.Point, error) {
	parts := strings.Split(strings.TrimSpace(s), ";")
	if len(parts) != 4 {
		return nil, fmt.Errorf("corners: want 4 points separated by ';', got %d", len(parts))
	}
	var pts [4]geometry.Point
	for i, p := range parts {
		var x, y float64
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%g,%g", &x, &y); err != nil {
			return nil, fmt.Errorf("corners: point %d %q: %w", i+1, p, err)
		}
		pts[i] = geometry.Point{X: x, Y: y}
	}
	return &pts, nil
}

// Validate checks option ranges. Zero values for BlockSize, MaxOutputSize
// and Quality mean "use the default" and are accepted.
func (o Options) Validate() error {
	if o.BlockSize < 0 {
		return errors.New("block size must be >= 0")
	}
	if o.Offset < 0 || o.Offset > 100 {
		return fmt.Errorf("offset must be within 0..100, got %d", o.Offset)
	}
	if o.MaxOutputSize < 0 {
		return errors.New("max output size must be >= 0")
	}
	if o.Quality < 0 || o.Quality > 100 {
		return fmt.Errorf("quality must be within 1..100, or 0 for the default, got %d", o.Quality)
	}
	if o.GlobalLevel < 0 || o.GlobalLevel > 255 {
		return fmt.Errorf("global level must be within 0..255, got %d", o.GlobalLevel)
	}
	if _, err := ParseMode(string(o.Mode)); err != nil {
		return err
	}
	if _, err := ParseThresholdMethod(string(o.Threshold)); err != nil {
		return err
	}
	if _, err := codec.ParseFormat(string(o.Format)); err != nil {
		return err
	}
	return nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BlockSize == 0 {
		o.BlockSize = d.BlockSize
	}
	if o.MaxOutputSize == 0 {
		o.MaxOutputSize = d.MaxOutputSize
	}
	if o.Quality == 0 {
		o.Quality = d.Quality
	}
	if o.Mode == "" {
		o.Mode = d.Mode
	}
	if o.Threshold == "" {
		o.Threshold = d.Threshold
	}
	if o.Format == "" {
		o.Format = d.Format
	}
	o.Mode, _ = ParseMode(string(o.Mode))
	o.Threshold, _ = ParseThresholdMethod(string(o.Threshold))
	o.Format, _ = codec.ParseFormat(string(o.Format))
	return o
}
