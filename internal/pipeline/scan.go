package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"time"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/docscan/internal/codec"
	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/imgbuf"
	"github.com/MeKo-Tech/docscan/internal/threshold"
)

// ProcessingCap bounds the longer input edge before geometric work.
const ProcessingCap = 4096

// ErrInvalidOptions wraps option validation failures.
var ErrInvalidOptions = errors.New("invalid scan options")

// Outcome labels passed to Observer.ScanFinished.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Scan runs a scan without cancellation.
func (s *Scanner) Scan(img image.Image, opts Options) (*Result, error) {
	return s.ScanContext(context.Background(), img, opts)
}

// ScanContext detects, flattens and optionally thresholds img. Detection and
// transform failures are recovered and recorded on the result; only missing
// pixel data, invalid options or cancellation fail the scan. ctx is checked
// between stages.
func (s *Scanner) ScanContext(ctx context.Context, img image.Image, opts Options) (*Result, error) {
	start := time.Now()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	opts = opts.withDefaults()

	res, err := s.run(ctx, img, opts)
	elapsed := time.Since(start)
	switch {
	case err != nil:
		s.observer.ScanFinished(opts.Mode, OutcomeError, elapsed)
		return nil, err
	case res.UsedDefaultCorners || res.UsedIdentity:
		s.observer.ScanFinished(opts.Mode, OutcomeFallback, elapsed)
	default:
		s.observer.ScanFinished(opts.Mode, OutcomeOK, elapsed)
	}
	res.Timing.Total = elapsed
	s.logger.Debug("scan completed",
		"input_width", res.InputWidth, "input_height", res.InputHeight,
		"width", res.Width(), "height", res.Height(),
		"mode", opts.Mode, "fallback", res.Fallback(), "elapsed", elapsed)
	return res, nil
}

func (s *Scanner) run(ctx context.Context, img image.Image, opts Options) (*Result, error) {
	res := &Result{Options: opts, ProcessingScale: 1}

	t := time.Now()
	buf, scale, err := loadBuffer(img)
	if err != nil {
		return nil, &StageError{Stage: StageLoaded, Err: err}
	}
	res.InputWidth, res.InputHeight = img.Bounds().Dx(), img.Bounds().Dy()
	res.ProcessingScale = scale
	res.Timing.Load = time.Since(t)
	res.reached(StageLoaded)

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageCornersDetected, Err: err}
	}
	t = time.Now()
	quad := s.corners(buf, opts, res)
	res.Corners = scaleQuad(quad, 1/scale)
	res.Timing.Detect = time.Since(t)
	res.reached(StageCornersDetected)

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageFlattened, Err: err}
	}
	t = time.Now()
	flat, err := s.rectifier.Flatten(buf, quad)
	if err != nil {
		s.logger.Warn("perspective transform failed, using untransformed image",
			"stage", StageFlattened, "error", err, "width", buf.Width, "height", buf.Height)
		s.observer.FallbackTaken("identity")
		res.TransformErr = err
		res.UsedIdentity = true
		flat = buf
	}
	res.Timing.Flatten = time.Since(t)
	res.reached(StageFlattened)

	out := flat
	if opts.Mode == ModeBinary {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: StageThresholded, Err: err}
		}
		t = time.Now()
		if opts.Threshold == ThresholdGlobal {
			out = threshold.Global(flat, uint8(opts.GlobalLevel))
		} else {
			out = threshold.Bradley(flat, opts.BlockSize, opts.Offset, s.workers)
		}
		res.Timing.Threshold = time.Since(t)
		res.reached(StageThresholded)
	}

	t = time.Now()
	res.Image = fitOutput(out, opts.MaxOutputSize)
	res.Timing.Resize = time.Since(t)
	return res, nil
}

func (s *Scanner) corners(buf *imgbuf.PixelBuffer, opts Options, res *Result) geometry.Quad {
	if opts.Corners != nil {
		pts := *opts.Corners
		for i := range pts {
			pts[i] = geometry.Point{X: pts[i].X * res.ProcessingScale, Y: pts[i].Y * res.ProcessingScale}
		}
		res.ManualCorners = true
		return geometry.OrderCorners(pts)
	}

	det, err := s.detector.Detect(buf)
	if err != nil {
		s.logger.Warn("corner detection failed, using default corners",
			"stage", StageCornersDetected, "error", err, "width", buf.Width, "height", buf.Height)
		s.observer.FallbackTaken("default_corners")
		res.DetectionErr = err
		res.UsedDefaultCorners = true
	}
	return det.Corners
}

// loadBuffer converts img into a pixel buffer, downscaling it when its
// longer edge exceeds ProcessingCap. The returned scale maps input
// coordinates into buffer coordinates.
func loadBuffer(img image.Image) (*imgbuf.PixelBuffer, float64, error) {
	if img == nil {
		return nil, 0, imgbuf.ErrMissingDimensions
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, 0, imgbuf.ErrMissingDimensions
	}
	w, h, scale := FitWithin(b.Dx(), b.Dy(), ProcessingCap)
	if scale == 1 {
		buf, err := imgbuf.FromImage(img)
		return buf, 1, err
	}
	return imgbuf.FromNRGBA(imaging.Resize(img, w, h, imaging.Lanczos)), scale, nil
}

func fitOutput(buf *imgbuf.PixelBuffer, limit int) *imgbuf.PixelBuffer {
	w, h, scale := FitWithin(buf.Width, buf.Height, limit)
	if scale == 1 {
		return buf
	}
	return imgbuf.FromNRGBA(imaging.Resize(buf.ToNRGBA(), w, h, imaging.Lanczos))
}

// FitWithin scales (w, h) so the longer edge is at most limit, flooring both
// dimensions. A non-positive limit or an image already within bounds yields
// the input unchanged and a scale of 1.
func FitWithin(w, h, limit int) (int, int, float64) {
	if limit <= 0 || max(w, h) <= limit {
		return w, h, 1
	}
	scale := float64(limit) / float64(max(w, h))
	return max(1, int(math.Floor(float64(w)*scale))), max(1, int(math.Floor(float64(h)*scale))), scale
}

func scaleQuad(q geometry.Quad, f float64) geometry.Quad {
	if f == 1 {
		return q
	}
	for i := range q {
		q[i] = geometry.Point{X: q[i].X * f, Y: q[i].Y * f}
	}
	return q
}

// Encode serializes the result image in the result's format.
func (s *Scanner) Encode(w io.Writer, res *Result) error {
	if res == nil || res.Image == nil {
		return &StageError{Stage: StageEncoded, Err: errors.New("no image to encode")}
	}
	t := time.Now()
	if err := codec.Encode(w, res.Image.ToNRGBA(), res.Options.Format, res.Options.Quality); err != nil {
		return &StageError{Stage: StageEncoded, Err: err}
	}
	res.Timing.Encode = time.Since(t)
	res.reached(StageEncoded)
	return nil
}

// ScanEncoded scans img and writes the encoded page to w.
func (s *Scanner) ScanEncoded(ctx context.Context, img image.Image, opts Options, w io.Writer) (*Result, error) {
	res, err := s.ScanContext(ctx, img, opts)
	if err != nil {
		return nil, err
	}
	if err := s.Encode(w, res); err != nil {
		return res, err
	}
	return res, nil
}
