package pipeline

import (
	"fmt"
	"time"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/imgbuf"
)

// Stage names a step of the scan state machine.
type Stage string

const (
	StageLoaded          Stage = "loaded"
	StageCornersDetected Stage = "corners_detected"
	StageFlattened       Stage = "flattened"
	StageThresholded     Stage = "thresholded"
	StageEncoded         Stage = "encoded"
)

// StageError reports a fatal failure and the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result is the outcome of one scan.
type Result struct {
	Image *imgbuf.PixelBuffer

	InputWidth  int
	InputHeight int
	// ProcessingScale is the factor applied to the input before geometric
	// work; 1 unless the input exceeded ProcessingCap.
	ProcessingScale float64

	// Corners in input image coordinates.
	Corners geometry.Quad

	Stages []Stage

	DetectionErr       error
	UsedDefaultCorners bool
	ManualCorners      bool
	TransformErr       error
	UsedIdentity       bool

	Options Options
	Timing  Timing
}

// Timing records per-stage durations.
type Timing struct {
	Load      time.Duration
	Detect    time.Duration
	Flatten   time.Duration
	Threshold time.Duration
	Resize    time.Duration
	Encode    time.Duration
	Total     time.Duration
}

// Width returns the output width.
func (r *Result) Width() int {
	if r == nil || r.Image == nil {
		return 0
	}
	return r.Image.Width
}

// Height returns the output height.
func (r *Result) Height() int {
	if r == nil || r.Image == nil {
		return 0
	}
	return r.Image.Height
}

// Fallback returns a short label of the fallbacks taken, or "" if none.
func (r *Result) Fallback() string {
	switch {
	case r.UsedDefaultCorners && r.UsedIdentity:
		return "default_corners,identity"
	case r.UsedDefaultCorners:
		return "default_corners"
	case r.UsedIdentity:
		return "identity"
	default:
		return ""
	}
}

func (r *Result) reached(s Stage) {
	r.Stages = append(r.Stages, s)
}

// Report is the JSON shape of a Result.
type Report struct {
	Source       string        `json:"source,omitempty"`
	Output       string        `json:"output,omitempty"`
	InputWidth   int           `json:"input_width"`
	InputHeight  int           `json:"input_height"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	Mode         Mode          `json:"mode"`
	Threshold    string        `json:"threshold,omitempty"`
	Corners      [4][2]float64 `json:"corners"`
	Stages       []Stage       `json:"stages"`
	Fallback     string        `json:"fallback,omitempty"`
	DetectionErr string        `json:"detection_error,omitempty"`
	TransformErr string        `json:"transform_error,omitempty"`
	Error        string        `json:"error,omitempty"`
	Processing   struct {
		DetectNs    int64 `json:"detect_ns"`
		FlattenNs   int64 `json:"flatten_ns"`
		ThresholdNs int64 `json:"threshold_ns"`
		TotalNs     int64 `json:"total_ns"`
	} `json:"processing"`
}

// Report converts r for JSON output.
func (r *Result) Report() Report {
	var rep Report
	if r == nil {
		return rep
	}
	rep.InputWidth, rep.InputHeight = r.InputWidth, r.InputHeight
	rep.Width, rep.Height = r.Width(), r.Height()
	rep.Mode = r.Options.Mode
	if r.Options.Mode == ModeBinary {
		rep.Threshold = string(r.Options.Threshold)
	}
	for i, p := range r.Corners {
		rep.Corners[i] = [2]float64{p.X, p.Y}
	}
	rep.Stages = r.Stages
	rep.Fallback = r.Fallback()
	if r.DetectionErr != nil {
		rep.DetectionErr = r.DetectionErr.Error()
	}
	if r.TransformErr != nil {
		rep.TransformErr = r.TransformErr.Error()
	}
	rep.Processing.DetectNs = r.Timing.Detect.Nanoseconds()
	rep.Processing.FlattenNs = r.Timing.Flatten.Nanoseconds()
	rep.Processing.ThresholdNs = r.Timing.Threshold.Nanoseconds()
	rep.Processing.TotalNs = r.Timing.Total.Nanoseconds()
	return rep
}
