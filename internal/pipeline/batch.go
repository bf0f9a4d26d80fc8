package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/docscan/internal/codec"
)

// BatchConfig holds configuration for multi-file scans.
type BatchConfig struct {
	MaxWorkers int      // concurrent files (0 = runtime.NumCPU())
	Progress   Progress // optional progress reporting

	// OnResult, if set, is called from the worker goroutine once a file has
	// been scanned, typically to encode and store it. An error is recorded
	// on the file's result.
	OnResult func(ctx context.Context, fr *FileResult) error
}

// FileResult is the outcome of scanning one file.
type FileResult struct {
	Path   string
	Meta   codec.Metadata
	Result *Result
	Err    error
}

type fileJob struct {
	index int
	path  string
}

// ScanFiles loads and scans each path with a bounded worker pool. Results
// are returned in input order; the error is the first per-file failure.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string, opts Options, cfg BatchConfig) ([]FileResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files provided")
	}
	if s == nil || s.rectifier == nil {
		return nil, errors.New("scanner not initialized")
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(paths))
	progress := cfg.Progress
	if progress == nil {
		progress = NoProgress{}
	}

	results := make([]FileResult, len(paths))
	jobs := make(chan fileJob)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	progress.Start(len(paths))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				fr := s.scanFile(ctx, job.path, opts, cfg)
				results[job.index] = fr

				mu.Lock()
				done++
				n := done
				mu.Unlock()
				progress.FileDone(n, len(paths), job.path, fr.Err)
			}
		}()
	}

send:
	for i, p := range paths {
		select {
		case jobs <- fileJob{index: i, path: p}:
		case <-ctx.Done():
			break send
		}
	}
	close(jobs)
	wg.Wait()

	failed := 0
	var firstErr error
	for i := range results {
		if results[i].Path == "" {
			results[i] = FileResult{Path: paths[i], Err: ctx.Err()}
		}
		if results[i].Err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("file %s: %w", results[i].Path, results[i].Err)
			}
		}
	}
	progress.Finish(failed)
	return results, firstErr
}

func (s *Scanner) scanFile(ctx context.Context, path string, opts Options, cfg BatchConfig) FileResult {
	fr := FileResult{Path: path}
	if err := ctx.Err(); err != nil {
		fr.Err = err
		return fr
	}
	img, meta, err := codec.LoadImage(path)
	if err != nil {
		fr.Err = &StageError{Stage: StageLoaded, Err: err}
		return fr
	}
	fr.Meta = meta
	fr.Result, fr.Err = s.ScanContext(ctx, img, opts)
	if fr.Err == nil && cfg.OnResult != nil {
		fr.Err = cfg.OnResult(ctx, &fr)
	}
	return fr
}
