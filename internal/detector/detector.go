// Package detector locates the four corners of a document in a photo: edge
// map, Otsu binarization, boundary sampling, convex hull, simplification and
// corner selection.
package detector

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/imgbuf"
)

// SimplifyEpsilonRatio scales the image width into the Douglas-Peucker
// tolerance applied to the hull.
const SimplifyEpsilonRatio = 0.02

// ErrDetectionFailed reports that no document outline could be derived from
// the edge map. Detection still yields the default corners alongside it.
var ErrDetectionFailed = errors.New("document detection failed")

// Config holds detector settings.
type Config struct {
	Workers int // goroutines for per-pixel stages (0 = runtime.NumCPU())
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{Workers: 0}
}

// Detection is the outcome of corner detection together with the
// intermediate counts that produced it.
type Detection struct {
	Corners         geometry.Quad
	Threshold       int
	BoundaryPoints  int
	HullPoints      int
	SimplifiedCount int
	UsedDefault     bool
}

// Detector finds document corners.
type Detector struct {
	cfg Config
}

// New creates a detector.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect runs the full detection chain on buf. On failure the returned
// detection carries the default corners and the error wraps
// ErrDetectionFailed.
func (d *Detector) Detect(buf *imgbuf.PixelBuffer) (Detection, error) {
	edges := EdgeMap(buf, d.cfg.Workers)
	defer edges.Release()
	return detectFromEdges(edges)
}

// DetectCorners runs detection with the default configuration.
func DetectCorners(buf *imgbuf.PixelBuffer) (Detection, error) {
	return New(DefaultConfig()).Detect(buf)
}

func detectFromEdges(edges *imgbuf.LuminanceMap) (Detection, error) {
	w, h := edges.Width, edges.Height
	det := Detection{Threshold: OtsuThreshold(edges)}

	fail := func(format string, args ...any) (Detection, error) {
		det.Corners = DefaultCorners(w, h)
		det.UsedDefault = true
		return det, fmt.Errorf("%w: %s", ErrDetectionFailed, fmt.Sprintf(format, args...))
	}

	points := BoundaryPoints(edges, det.Threshold)
	det.BoundaryPoints = len(points)
	if len(points) < 4 {
		return fail("%d boundary points", len(points))
	}

	hull := geometry.ConvexHull(points)
	det.HullPoints = len(hull)
	if len(hull) < 4 {
		return fail("hull has %d points", len(hull))
	}

	simplified := geometry.SimplifyPolygon(hull, float64(w)*SimplifyEpsilonRatio)
	det.SimplifiedCount = len(simplified)
	if len(simplified) < 4 {
		return fail("simplified outline has %d points", len(simplified))
	}

	corners, ok := SelectCorners(simplified, w, h)
	if !ok {
		return fail("no four distinct corner candidates")
	}
	det.Corners = corners
	return det, nil
}
