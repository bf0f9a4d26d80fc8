package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/docscan/internal/codec"
	"github.com/MeKo-Tech/docscan/internal/pdf"
	"github.com/MeKo-Tech/docscan/internal/pipeline"
	"github.com/MeKo-Tech/docscan/internal/presets"
	"github.com/MeKo-Tech/docscan/internal/storage"
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan [image|pdf|directory...]",
	Short: "Scan document photos into flat pages",
	Long: `Detect the page in each input, correct its perspective and write the
result as a black and white or color image.

Inputs can be image files, directories of images, or PDFs whose embedded
page images are scanned. By default each result is written next to its
input as <name>_scan.<ext>.

Examples:
  docscan scan receipt.jpg
  docscan scan receipt.jpg -o clean.png
  docscan scan photos/ --output-dir s3://my-bucket/scans --preset receipt
  docscan scan page.jpg --mode color --format jpeg --quality 85
  docscan scan page.jpg --corners "10,12;980,20;990,1400;5,1390"
  docscan scan pages/*.jpg --pdf -o document.pdf --page-size letter
  docscan scan scanned.pdf --pages 1-3 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asPDF, _ := cmd.Flags().GetBool("pdf")
		return runScan(cmd, args, asPDF)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addScanFlags(scanCmd)
	scanCmd.Flags().Bool("pdf", false, "combine all results into a single PDF")
}

// addScanFlags registers the flags shared by scan and pdf.
func addScanFlags(c *cobra.Command) {
	d := pipeline.DefaultOptions()
	f := c.Flags()

	f.String("mode", string(d.Mode), "output mode: bw or color")
	f.Int("block-size", d.BlockSize, "adaptive threshold window in pixels (odd, >= 3)")
	f.Int("offset", d.Offset, "adaptive threshold offset in percent")
	f.Int("max-size", d.MaxOutputSize, "maximum output width or height in pixels")
	f.String("format", string(d.Format), "image format: png or jpeg")
	f.Int("quality", d.Quality, "JPEG quality (1-100)")
	f.String("threshold", string(d.Threshold), "threshold method: bradley or global")
	f.Int("level", d.GlobalLevel, "gray level for --threshold global (0-255)")
	f.String("preset", "", "named threshold preset (document, receipt, photo-text, whiteboard)")
	f.String("corners", "", `manual page corners "x,y;x,y;x,y;x,y" in input pixels`)
	f.String("presets-file", "", "YAML file with additional presets")
	f.Int("workers", 0, "goroutines per image stage (0 = all CPUs)")
	f.Int("jobs", 0, "files scanned concurrently (0 = all CPUs)")

	f.StringP("output", "o", "", "output file or s3://bucket/key (single input, or with --pdf)")
	f.String("output-dir", "", "output directory or s3://bucket/prefix")
	f.String("s3-region", "", "AWS region for s3:// outputs")

	f.String("page-size", string(pdf.PageA4), "PDF page size: a4, letter or original")
	f.Float64("margin", pdf.DefaultMargin, "PDF page margin in points")
	f.String("pages", "", "page range for PDF inputs, e.g. 1-3,5")

	f.String("debug-dir", "", "write corner overlays to this directory")
	f.String("overlay-color", "", "hex color of debug overlays")

	f.Bool("json", false, "print a JSON report instead of a summary")
	f.BoolP("quiet", "q", false, "suppress progress output")
}

// scanRun carries the state of one scan invocation.
type scanRun struct {
	cmd     *cobra.Command
	scanner *pipeline.Scanner
	opts    pipeline.Options
	page    pdf.PageOptions
	inputs  *inputSet
	targets map[string]target

	mu      sync.Mutex
	written map[string]string
}

// target is where one result is stored.
type target struct {
	sink storage.Sink
	name string
}

func runScan(cmd *cobra.Command, args []string, asPDF bool) error {
	cfg := GetConfig()
	logger := slog.Default()

	opts, err := scanOptions(cmd)
	if err != nil {
		return err
	}
	page, err := cfg.PageOptions()
	if err != nil {
		return err
	}

	pages, _ := cmd.Flags().GetString("pages")
	inputs, err := collectInputs(args, pages)
	if err != nil {
		return err
	}
	defer inputs.cleanup()

	pc := cfg.ToPipelineConfig()
	pc.Logger = logger
	scanner, err := pipeline.New(pc)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	run := &scanRun{
		cmd:     cmd,
		scanner: scanner,
		opts:    opts,
		page:    page,
		inputs:  inputs,
		written: make(map[string]string),
	}

	bc := pipeline.BatchConfig{Progress: run.progress(logger)}
	bc.MaxWorkers, _ = cmd.Flags().GetInt("jobs")

	var pdfTarget target
	if asPDF {
		if pdfTarget, err = run.pdfTarget(); err != nil {
			return err
		}
	} else {
		if run.targets, err = run.imageTargets(); err != nil {
			return err
		}
		bc.OnResult = run.store
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, scanErr := scanner.ScanFiles(ctx, inputs.paths(), opts, bc)

	if asPDF {
		loc, err := run.writePDF(ctx, results, pdfTarget)
		if err != nil {
			return err
		}
		for _, fr := range results {
			if fr.Err == nil {
				run.written[fr.Path] = loc
			}
		}
	}

	if err := run.report(results); err != nil {
		return err
	}
	if scanErr != nil {
		return fmt.Errorf("%d of %d input(s) failed: %w", countFailed(results), len(results), scanErr)
	}
	return nil
}

// scanOptions resolves options from the configuration, then applies the
// preset to the threshold parameters that were not set explicitly.
func scanOptions(cmd *cobra.Command) (pipeline.Options, error) {
	cfg := GetConfig()
	opts, err := cfg.ScanOptions()
	if err != nil {
		return opts, err
	}

	if name, _ := cmd.Flags().GetString("preset"); name != "" {
		reg, err := presets.Load(cfg.PresetsFile)
		if err != nil {
			return opts, err
		}
		p, err := reg.Get(name)
		if err != nil {
			return opts, err
		}
		explicit := opts
		p.Apply(&opts)
		if cmd.Flags().Changed("block-size") {
			opts.BlockSize = explicit.BlockSize
		}
		if cmd.Flags().Changed("offset") {
			opts.Offset = explicit.Offset
		}
	}

	if s, _ := cmd.Flags().GetString("corners"); s != "" {
		q, err := pipeline.ParseCorners(s)
		if err != nil {
			return opts, err
		}
		opts.Corners = q
	}

	// An explicit output file name picks the format unless --format is set.
	if out, _ := cmd.Flags().GetString("output"); out != "" && !cmd.Flags().Changed("format") {
		if ext := strings.TrimPrefix(filepath.Ext(out), "."); ext != "" {
			if f, err := codec.ParseFormat(ext); err == nil {
				opts.Format = f
			}
		}
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (r *scanRun) progress(logger *slog.Logger) pipeline.Progress {
	quiet, _ := r.cmd.Flags().GetBool("quiet")
	asJSON, _ := r.cmd.Flags().GetBool("json")
	if len(r.inputs.inputs) > 1 && !quiet && !asJSON {
		return pipeline.NewConsoleProgress(r.cmd.ErrOrStderr())
	}
	return pipeline.NewLogProgress(logger, slog.LevelDebug)
}

// imageTargets decides where each scanned image goes.
func (r *scanRun) imageTargets() (map[string]target, error) {
	output, _ := r.cmd.Flags().GetString("output")
	outputDir, _ := r.cmd.Flags().GetString("output-dir")
	region := GetConfig().Storage.S3.Region
	ext := r.opts.Format.Extension()
	inputs := r.inputs.inputs
	targets := make(map[string]target, len(inputs))

	switch {
	case output != "" && outputDir != "":
		return nil, errors.New("--output and --output-dir are mutually exclusive")

	case output != "":
		if len(inputs) > 1 {
			return nil, fmt.Errorf("--output takes a single input, got %d (use --output-dir or --pdf)", len(inputs))
		}
		loc, err := storage.ParseLocation(output)
		if err != nil {
			return nil, err
		}
		sink, name, err := storage.ForLocation(loc, region)
		if err != nil {
			return nil, err
		}
		targets[inputs[0].Path] = target{sink: sink, name: name}

	case outputDir != "":
		sink, err := dirSink(outputDir, region)
		if err != nil {
			return nil, err
		}
		for _, in := range inputs {
			targets[in.Path] = target{sink: sink, name: in.Name + "_scan" + ext}
		}

	default:
		sinks := make(map[string]storage.Sink)
		for _, in := range inputs {
			sink, ok := sinks[in.Dir]
			if !ok {
				sink = storage.NewFileSink(in.Dir)
				sinks[in.Dir] = sink
			}
			targets[in.Path] = target{sink: sink, name: in.Name + "_scan" + ext}
		}
	}
	return targets, nil
}

// pdfTarget decides where the combined PDF goes.
func (r *scanRun) pdfTarget() (target, error) {
	output, _ := r.cmd.Flags().GetString("output")
	outputDir, _ := r.cmd.Flags().GetString("output-dir")
	region := GetConfig().Storage.S3.Region
	first := r.inputs.inputs[0]

	switch {
	case output != "" && outputDir != "":
		return target{}, errors.New("--output and --output-dir are mutually exclusive")
	case output != "":
		loc, err := storage.ParseLocation(output)
		if err != nil {
			return target{}, err
		}
		sink, name, err := storage.ForLocation(loc, region)
		if err != nil {
			return target{}, err
		}
		return target{sink: sink, name: name}, nil
	case outputDir != "":
		sink, err := dirSink(outputDir, region)
		if err != nil {
			return target{}, err
		}
		return target{sink: sink, name: first.Name + "_scan.pdf"}, nil
	default:
		return target{sink: storage.NewFileSink(first.Dir), name: first.Name + "_scan.pdf"}, nil
	}
}

func dirSink(dir, region string) (storage.Sink, error) {
	loc, err := storage.ParseLocation(dir)
	if err != nil {
		return nil, err
	}
	if !loc.IsS3() {
		return storage.NewFileSink(loc.Path), nil
	}
	return storage.NewS3Sink(storage.S3Config{Region: region, Bucket: loc.Bucket, Prefix: loc.Key})
}

// store encodes and writes one result. It runs on batch workers.
func (r *scanRun) store(ctx context.Context, fr *pipeline.FileResult) error {
	t, ok := r.targets[fr.Path]
	if !ok {
		return fmt.Errorf("no output target for %s", fr.Path)
	}
	var buf bytes.Buffer
	if err := r.scanner.Encode(&buf, fr.Result); err != nil {
		return err
	}
	loc, err := t.sink.Put(ctx, t.name, fr.Result.Options.Format.ContentType(), &buf)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.written[fr.Path] = loc
	r.mu.Unlock()
	return nil
}

// writePDF renders every successful result as one page, in input order.
func (r *scanRun) writePDF(ctx context.Context, results []pipeline.FileResult, t target) (string, error) {
	var pages []image.Image
	for _, fr := range results {
		if fr.Err == nil && fr.Result != nil {
			pages = append(pages, fr.Result.Image.ToNRGBA())
		}
	}
	if len(pages) == 0 {
		return "", errors.New("no pages scanned, PDF not written")
	}
	var buf bytes.Buffer
	if err := pdf.Write(&buf, pages, r.page); err != nil {
		return "", err
	}
	return t.sink.Put(ctx, t.name, "application/pdf", &buf)
}

func (r *scanRun) report(results []pipeline.FileResult) error {
	out := r.cmd.OutOrStdout()
	byPath := make(map[string]scanInput, len(r.inputs.inputs))
	for _, in := range r.inputs.inputs {
		byPath[in.Path] = in
	}

	if asJSON, _ := r.cmd.Flags().GetBool("json"); asJSON {
		reports := make([]pipeline.Report, len(results))
		for i, fr := range results {
			rep := fr.Result.Report()
			rep.Source = byPath[fr.Path].Source
			rep.Output = r.written[fr.Path]
			if fr.Err != nil {
				rep.Error = fr.Err.Error()
			}
			reports[i] = rep
		}
		if len(reports) == 1 {
			return writeJSON(out, reports[0])
		}
		return writeJSON(out, reports)
	}

	quiet, _ := r.cmd.Flags().GetBool("quiet")
	for _, fr := range results {
		src := byPath[fr.Path].Source
		if fr.Err != nil {
			_, _ = fmt.Fprintf(out, "%s: failed: %v\n", src, fr.Err)
			continue
		}
		if quiet {
			continue
		}
		line := fmt.Sprintf("%s -> %s (%dx%d", src, r.written[fr.Path], fr.Result.Width(), fr.Result.Height())
		if fb := fr.Result.Fallback(); fb != "" {
			line += ", fallback: " + fb
		}
		_, _ = fmt.Fprintln(out, line+")")
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func countFailed(results []pipeline.FileResult) int {
	n := 0
	for _, fr := range results {
		if fr.Err != nil {
			n++
		}
	}
	return n
}
