// Package benchmark measures scan latency per stage on synthetic or
// user-supplied document photos.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/MeKo-Tech/docscan/internal/geometry"
	"github.com/MeKo-Tech/docscan/internal/pipeline"
	"github.com/MeKo-Tech/docscan/internal/testutil"
)

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
	}
}

// Case is one image scanned with one set of options.
type Case struct {
	Name    string
	Image   image.Image
	Options pipeline.Options
}

// Result aggregates the iterations of a case.
type Result struct {
	Name       string        `json:"name"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Iterations int           `json:"iterations"`
	Total      time.Duration `json:"total_ns"`
	Min        time.Duration `json:"min_ns"`
	Max        time.Duration `json:"max_ns"`
	Detect     time.Duration `json:"avg_detect_ns"`
	Flatten    time.Duration `json:"avg_flatten_ns"`
	Threshold  time.Duration `json:"avg_threshold_ns"`
	Fallbacks  int           `json:"fallbacks"`
	// AllocatedBytes is the cumulative allocation across all iterations.
	AllocatedBytes uint64 `json:"allocated_bytes"`
	Err            error  `json:"-"`
	Error          string `json:"error,omitempty"`
}

// Average returns the mean wall time per iteration.
func (r Result) Average() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Total / time.Duration(r.Iterations)
}

// Throughput returns input megapixels processed per second.
func (r Result) Throughput() float64 {
	avg := r.Average().Seconds()
	if avg == 0 {
		return 0
	}
	return float64(r.Width*r.Height) / 1e6 / avg
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Err)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, min: %v, max: %v, %.1f MP/s",
		r.Name, r.Iterations, r.Average(), r.Min, r.Max, r.Throughput())
}

// Run scans c iterations times with s.
func Run(ctx context.Context, s *pipeline.Scanner, c Case, iterations int) Result {
	res := Result{Name: c.Name, Min: time.Duration(math.MaxInt64)}
	if c.Image == nil {
		res.Err = errors.New("case has no image")
		res.Error = res.Err.Error()
		return res
	}
	b := c.Image.Bounds()
	res.Width, res.Height = b.Dx(), b.Dy()
	if iterations < 1 {
		iterations = 1
	}

	before := GetMemoryStats()
	for range iterations {
		start := time.Now()
		r, err := s.ScanContext(ctx, c.Image, c.Options)
		elapsed := time.Since(start)
		if err != nil {
			res.Err = fmt.Errorf("iteration %d: %w", res.Iterations+1, err)
			res.Error = res.Err.Error()
			break
		}
		res.Iterations++
		res.Total += elapsed
		res.Min = min(res.Min, elapsed)
		res.Max = max(res.Max, elapsed)
		res.Detect += r.Timing.Detect
		res.Flatten += r.Timing.Flatten
		res.Threshold += r.Timing.Threshold
		if r.Fallback() != "" {
			res.Fallbacks++
		}
	}
	res.AllocatedBytes = GetMemoryStats().TotalAllocBytes - before.TotalAllocBytes

	if res.Iterations == 0 {
		res.Min = 0
		return res
	}
	n := time.Duration(res.Iterations)
	res.Detect /= n
	res.Flatten /= n
	res.Threshold /= n
	return res
}

// RunAll runs every case and stops early if ctx is cancelled.
func RunAll(ctx context.Context, s *pipeline.Scanner, cases []Case, iterations int) []Result {
	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		if ctx.Err() != nil {
			break
		}
		results = append(results, Run(ctx, s, c, iterations))
	}
	return results
}

// Sizes used by SyntheticCases, from phone preview to full-resolution photo.
var Sizes = []testutil.ImageSize{
	{Width: 640, Height: 480},
	{Width: 1600, Height: 1200},
	{Width: 4032, Height: 3024},
}

// SyntheticCases renders a skewed document photo for each size and scans
// it in both output modes.
func SyntheticCases(sizes []testutil.ImageSize) []Case {
	base := testutil.DefaultDocumentConfig()
	var cases []Case
	for _, size := range sizes {
		cfg := base
		cfg.Size = size
		fx := float64(size.Width) / float64(base.Size.Width)
		fy := float64(size.Height) / float64(base.Size.Height)
		for i, p := range base.Corners {
			cfg.Corners[i] = geometry.Point{X: p.X * fx, Y: p.Y * fy}
		}
		img := testutil.GenerateDocumentImage(cfg)
		for _, mode := range []pipeline.Mode{pipeline.ModeBinary, pipeline.ModeColor} {
			opts := pipeline.DefaultOptions()
			opts.Mode = mode
			cases = append(cases, Case{
				Name:    fmt.Sprintf("%dx%d/%s", size.Width, size.Height, mode),
				Image:   img,
				Options: opts,
			})
		}
	}
	return cases
}

// WriteTable prints results as an aligned table.
func WriteTable(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CASE\tITER\tAVG\tMIN\tMAX\tDETECT\tFLATTEN\tTHRESHOLD\tMP/s\tALLOC")
	for _, r := range results {
		if r.Err != nil {
			_, _ = fmt.Fprintf(tw, "%s\tERROR: %v\n", r.Name, r.Err)
			continue
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%v\t%v\t%v\t%v\t%v\t%v\t%.1f\t%d KB\n",
			r.Name, r.Iterations,
			r.Average().Round(time.Microsecond), r.Min.Round(time.Microsecond), r.Max.Round(time.Microsecond),
			r.Detect.Round(time.Microsecond), r.Flatten.Round(time.Microsecond), r.Threshold.Round(time.Microsecond),
			r.Throughput(), r.AllocatedBytes/1024)
	}
	return tw.Flush()
}
