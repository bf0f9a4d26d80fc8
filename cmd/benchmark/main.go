package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/docscan/internal/benchmark"
	"github.com/MeKo-Tech/docscan/internal/codec"
	"github.com/MeKo-Tech/docscan/internal/pipeline"
	"github.com/MeKo-Tech/docscan/internal/testutil"
)

func main() {
	var (
		iterations = flag.Int("iterations", 5, "Number of iterations per case")
		workers    = flag.Int("workers", 0, "Goroutines per image stage (0 = all CPUs)")
		sizes      = flag.String("sizes", "", "Comma-separated synthetic sizes, e.g. 640x480,1600x1200")
		outputFile = flag.String("output", "", "Write results as JSON to this file")
		verbose    = flag.Bool("verbose", false, "Verbose output")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [image...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Benchmark document scans on synthetic photos or the given images.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cases, err := buildCases(*sizes, flag.Args())
	if err != nil {
		slog.Error("Failed to prepare benchmark cases", "error", err)
		os.Exit(1)
	}

	scanner, err := pipeline.NewBuilder().WithWorkers(*workers).WithLogger(logger).Build()
	if err != nil {
		slog.Error("Failed to create scanner", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("docscan benchmark: %d case(s), %d iteration(s) each\n\n", len(cases), *iterations)
	results := benchmark.RunAll(ctx, scanner, cases, *iterations)
	if err := benchmark.WriteTable(os.Stdout, results); err != nil {
		slog.Error("Failed to print results", "error", err)
	}

	if *outputFile != "" {
		if err := saveResultsToFile(*outputFile, results); err != nil {
			slog.Error("Failed to save results", "error", err)
			os.Exit(1)
		}
		fmt.Printf("\nResults saved to: %s\n", *outputFile)
	}

	for _, r := range results {
		if r.Err != nil {
			os.Exit(1)
		}
	}
}

// buildCases scans the given images, or synthetic photos when none are given.
func buildCases(sizeList string, paths []string) ([]benchmark.Case, error) {
	if len(paths) == 0 {
		sizes := benchmark.Sizes
		if sizeList != "" {
			var err error
			if sizes, err = parseSizes(sizeList); err != nil {
				return nil, err
			}
		}
		return benchmark.SyntheticCases(sizes), nil
	}

	cases := make([]benchmark.Case, 0, len(paths))
	for _, p := range paths {
		img, _, err := codec.LoadImage(p)
		if err != nil {
			return nil, err
		}
		cases = append(cases, benchmark.Case{Name: filepath.Base(p), Image: img, Options: pipeline.DefaultOptions()})
	}
	return cases, nil
}

func parseSizes(s string) ([]testutil.ImageSize, error) {
	var sizes []testutil.ImageSize
	for _, part := range strings.Split(s, ",") {
		ws, hs, ok := strings.Cut(strings.TrimSpace(part), "x")
		w, errW := strconv.Atoi(ws)
		h, errH := strconv.Atoi(hs)
		if !ok || errW != nil || errH != nil || w <= 0 || h <= 0 {
			return nil, fmt.Errorf("invalid size %q (want WIDTHxHEIGHT)", part)
		}
		sizes = append(sizes, testutil.ImageSize{Width: w, Height: h})
	}
	return sizes, nil
}

func saveResultsToFile(filename string, results []benchmark.Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o600)
}
