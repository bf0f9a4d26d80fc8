package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Progress receives batch progress notifications. Implementations must be
// safe for concurrent use; FileDone is called from worker goroutines.
type Progress interface {
	Start(total int)
	FileDone(done, total int, path string, err error)
	Finish(failed int)
}

// NoProgress discards all notifications.
type NoProgress struct{}

func (NoProgress) Start(int)                         {}
func (NoProgress) FileDone(int, int, string, error) {}
func (NoProgress) Finish(int)                        {}

// ConsoleProgress draws a single-line progress bar.
type ConsoleProgress struct {
	mu        sync.Mutex
	w         io.Writer
	width     int
	started   time.Time
	lastDraw  time.Time
	minRedraw time.Duration
}

// NewConsoleProgress writes to w, or stderr if w is nil.
func NewConsoleProgress(w io.Writer) *ConsoleProgress {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgress{w: w, width: 30, minRedraw: 100 * time.Millisecond}
}

func (c *ConsoleProgress) Start(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = time.Now()
	c.lastDraw = time.Time{}
	_, _ = fmt.Fprintf(c.w, "scanning %d file(s)\n", total)
}

func (c *ConsoleProgress) FileDone(done, total int, path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		_, _ = fmt.Fprintf(c.w, "\r%s: %v\n", filepath.Base(path), err)
	}
	now := time.Now()
	if done < total && now.Sub(c.lastDraw) < c.minRedraw {
		return
	}
	c.lastDraw = now

	filled := 0
	if total > 0 {
		filled = c.width * done / total
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", c.width-filled)
	line := fmt.Sprintf("\r[%s] %d/%d", bar, done, total)
	if elapsed := now.Sub(c.started); elapsed > 0 && done > 0 {
		line += fmt.Sprintf(" %.1f/s", float64(done)/elapsed.Seconds())
	}
	_, _ = fmt.Fprint(c.w, line)
}

func (c *ConsoleProgress) Finish(failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\ndone in %v, %d failed\n", time.Since(c.started).Round(time.Millisecond), failed)
}

// LogProgress reports progress through slog.
type LogProgress struct {
	logger  *slog.Logger
	level   slog.Level
	started time.Time
}

// NewLogProgress logs at level through logger, or slog.Default if nil.
func NewLogProgress(logger *slog.Logger, level slog.Level) *LogProgress {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgress{logger: logger, level: level}
}

func (l *LogProgress) Start(total int) {
	l.started = time.Now()
	l.logger.Log(context.Background(), l.level, "batch started", "files", total)
}

func (l *LogProgress) FileDone(done, total int, path string, err error) {
	if err != nil {
		l.logger.Error("scan failed", "file", path, "error", err)
	}
	l.logger.Log(context.Background(), l.level, "file scanned", "file", path, "done", done, "total", total)
}

func (l *LogProgress) Finish(failed int) {
	l.logger.Log(context.Background(), l.level, "batch finished",
		"failed", failed, "elapsed", time.Since(l.started).Round(time.Millisecond))
}
