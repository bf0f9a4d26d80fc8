// Package pipeline sequences document detection, flattening and
// thresholding into a single scan and bounds its resource use.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/docscan/internal/detector"
	"github.com/MeKo-Tech/docscan/internal/parallel"
	"github.com/MeKo-Tech/docscan/internal/rectify"
)

// Config holds configuration for the scanner and its stages.
type Config struct {
	Workers       int // goroutines for per-pixel loops (0 = runtime.NumCPU())
	Detector      detector.Config
	Rectification rectify.Config
	Logger        *slog.Logger
	Observer      Observer
}

// DefaultConfig returns a default scanner config with stage defaults.
func DefaultConfig() Config {
	return Config{
		Detector:      detector.DefaultConfig(),
		Rectification: rectify.DefaultConfig(),
	}
}

// Observer receives scan outcomes, typically to feed metrics.
type Observer interface {
	ScanFinished(mode Mode, outcome string, elapsed time.Duration)
	FallbackTaken(kind string)
}

type nopObserver struct{}

func (nopObserver) ScanFinished(Mode, string, time.Duration) {}
func (nopObserver) FallbackTaken(string)                      {}

// Builder constructs a Scanner with fluent configuration.
type Builder struct {
	cfg Config
}

// NewBuilder creates a builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithWorkers sets the goroutine count for all per-pixel stages.
func (b *Builder) WithWorkers(n int) *Builder {
	if n >= 0 {
		b.cfg.Workers = n
	}
	return b
}

// WithDebugDir enables corner overlay dumps into dir.
func (b *Builder) WithDebugDir(dir string) *Builder {
	b.cfg.Rectification.DebugDir = dir
	return b
}

// WithOverlayColor sets the hex color of debug overlays.
func (b *Builder) WithOverlayColor(hex string) *Builder {
	if hex != "" {
		b.cfg.Rectification.OverlayColor = hex
	}
	return b
}

// WithLogger sets the logger used for fallback warnings.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.cfg.Logger = l
	return b
}

// WithObserver registers a scan observer.
func (b *Builder) WithObserver(o Observer) *Builder {
	b.cfg.Observer = o
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Build creates the scanner.
func (b *Builder) Build() (*Scanner, error) {
	cfg := b.cfg
	workers := parallel.Workers(cfg.Workers)
	if cfg.Detector.Workers == 0 {
		cfg.Detector.Workers = workers
	}
	if cfg.Rectification.Workers == 0 {
		cfg.Rectification.Workers = workers
	}
	rx, err := rectify.New(cfg.Rectification)
	if err != nil {
		return nil, fmt.Errorf("init rectifier: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	obs := cfg.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Scanner{
		cfg:       cfg,
		workers:   workers,
		detector:  detector.New(cfg.Detector),
		rectifier: rx,
		logger:    logger,
		observer:  obs,
	}, nil
}

// Scanner runs scans. It holds only immutable configuration and is safe
// for concurrent use.
type Scanner struct {
	cfg       Config
	workers   int
	detector  *detector.Detector
	rectifier *rectify.Rectifier
	logger    *slog.Logger
	observer  Observer
}

// New builds a scanner from cfg.
func New(cfg Config) (*Scanner, error) {
	return (&Builder{cfg: cfg}).Build()
}

// Config returns the scanner configuration.
func (s *Scanner) Config() Config { return s.cfg }

// Info describes the scanner for diagnostics endpoints.
func (s *Scanner) Info() map[string]any {
	return map[string]any{
		"processing_cap":  ProcessingCap,
		"workers":         s.workers,
		"debug_overlay":   s.cfg.Rectification.DebugDir != "",
		"default_options": DefaultOptions(),
	}
}
