package server

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/docscan/internal/pdf"
	"github.com/MeKo-Tech/docscan/internal/pipeline"
	"github.com/MeKo-Tech/docscan/internal/presets"
)

// scanner is the subset of *pipeline.Scanner the handlers depend on.
type scanner interface {
	ScanContext(ctx context.Context, img image.Image, opts pipeline.Options) (*pipeline.Result, error)
	Encode(w io.Writer, res *pipeline.Result) error
	Info() map[string]any
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	scanner     scanner
	presets     *presets.Registry
	defaults    pipeline.Options
	page        pdf.PageOptions
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	sem         chan struct{}
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Host          string
	Port          int
	CORSOrigin    string
	MaxUploadMB   int64
	TimeoutSec    int
	MaxConcurrent int

	Scanner  pipeline.Config
	Defaults pipeline.Options
	Page     pdf.PageOptions
	Presets  *presets.Registry

	RateLimit RateLimitConfig
	Logger    *slog.Logger
}

// RateLimitConfig configures the per-client limiter.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
	MaxDataPerDay     int64 // bytes, 0 = unlimited
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ParamInfo documents one request parameter.
type ParamInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// APIDescription is returned by GET /api/scan.
type APIDescription struct {
	Endpoints     map[string]string `json:"endpoints"`
	FileField     string            `json:"file_field"`
	Params        []ParamInfo       `json:"params"`
	ContentTypes  []string          `json:"content_types"`
	MaxUploadMB   int64             `json:"max_upload_mb"`
	Presets       []presets.Preset  `json:"presets"`
	PageSizes     []pdf.PageSize    `json:"page_sizes"`
	ScannerConfig map[string]any    `json:"scanner"`
}

// NewServer creates a scan server. The scanner reports to the Prometheus
// collectors of this package.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pc := cfg.Scanner
	pc.Logger = logger
	pc.Observer = metricsObserver{}
	sc, err := pipeline.New(pc)
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}
	return newServerWithScanner(cfg, sc, logger), nil
}

func newServerWithScanner(cfg Config, sc scanner, logger *slog.Logger) *Server {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 60
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.Presets == nil {
		cfg.Presets = presets.Builtin()
	}
	if cfg.Defaults == (pipeline.Options{}) {
		cfg.Defaults = pipeline.DefaultOptions()
	}
	if cfg.Page.Size == "" {
		cfg.Page = pdf.DefaultPageOptions()
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}

	s := &Server{
		scanner:     sc,
		presets:     cfg.Presets,
		defaults:    cfg.Defaults,
		page:        cfg.Page,
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
		sem:         make(chan struct{}, cfg.MaxConcurrent),
		logger:      logger,
	}
	if cfg.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, cfg.RateLimit.MaxDataPerDay)
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/scan", s.corsMiddleware(s.rateLimitMiddleware(s.scanHandler)))
	mux.HandleFunc("/api/scan/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.scanPDFHandler)))
	mux.HandleFunc("/ws/scan", s.corsMiddleware(s.scanWebSocketHandler))
}

// Handler returns a mux with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// acquire takes a processing slot, waiting until one frees up or ctx ends.
func (s *Server) acquire(ctx context.Context) (func(), error) {
	select {
	case s.sem <- struct{}{}:
		activeScans.Inc()
		return func() {
			activeScans.Dec()
			<-s.sem
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
