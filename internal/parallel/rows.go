// Package parallel splits per-pixel work into row bands processed by a
// small worker pool.
package parallel

import (
	"runtime"
	"sync"
)

// minRowsPerBand keeps bands large enough that scheduling stays cheap
// compared to the per-row work.
const minRowsPerBand = 16

// Workers resolves a requested worker count: values <= 0 mean runtime.NumCPU().
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// rowBand is a half-open range of rows [y0, y1).
type rowBand struct {
	y0, y1 int
}

// Rows calls fn for disjoint row bands covering [0, height) using up to
// workers goroutines and returns once every band is done. fn must only write
// to rows inside its band. Small inputs run on the calling goroutine.
func Rows(height, workers int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	workers = Workers(workers)
	if workers == 1 || height < 2*minRowsPerBand {
		fn(0, height)
		return
	}

	bandSize := (height + workers*4 - 1) / (workers * 4)
	if bandSize < minRowsPerBand {
		bandSize = minRowsPerBand
	}

	jobs := make(chan rowBand, (height+bandSize-1)/bandSize)
	for y := 0; y < height; y += bandSize {
		jobs <- rowBand{y0: y, y1: min(y+bandSize, height)}
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for band := range jobs {
				fn(band.y0, band.y1)
			}
		}()
	}
	wg.Wait()
}
