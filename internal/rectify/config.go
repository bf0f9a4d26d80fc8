// Package rectify flattens a document quadrilateral into an axis-aligned
// page: homography estimation, output sizing and bilinear resampling.
package rectify

// DefaultOverlayColor is the debug overlay line color.
const DefaultOverlayColor = "#ff2d55"

// Config holds configuration for the rectification step.
type Config struct {
	Workers      int    // goroutines for the resampling loop (0 = runtime.NumCPU())
	DebugDir     string // if non-empty, writes a corner overlay PNG per page here
	OverlayColor string // hex color of the overlay outline
}

// DefaultConfig returns sensible defaults for rectification.
func DefaultConfig() Config {
	return Config{
		Workers:      0,
		DebugDir:     "",
		OverlayColor: DefaultOverlayColor,
	}
}
