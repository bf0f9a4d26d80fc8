package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/docscan/internal/codec"
	"github.com/MeKo-Tech/docscan/internal/pdf"
	"github.com/MeKo-Tech/docscan/internal/pipeline"
	"github.com/MeKo-Tech/docscan/internal/rectify"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	opts := pipeline.DefaultOptions()
	return Config{
		Log: LogConfig{Level: "info"},
		Scan: ScanConfig{
			BlockSize:     opts.BlockSize,
			Offset:        opts.Offset,
			MaxOutputSize: opts.MaxOutputSize,
			Mode:          string(opts.Mode),
			Format:        string(opts.Format),
			Quality:       opts.Quality,
			Threshold:     string(opts.Threshold),
			GlobalLevel:   opts.GlobalLevel,
			Workers:       0,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
			MaxConcurrent:   4,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 30,
				Burst:             10,
				MaxDataPerDayMB:   0,
			},
		},
		PDF: PDFConfig{
			PageSize: string(pdf.PageA4),
			Margin:   pdf.DefaultMargin,
		},
		Debug: DebugConfig{
			OverlayColor: rectify.DefaultOverlayColor,
		},
	}
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.Log.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Log.Level, strings.Join(validLogLevels, ", "))
	}
	if _, err := c.ScanOptions(); err != nil {
		return err
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("invalid scan workers: %d (must be >= 0)", c.Scan.Workers)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.MaxConcurrent < 0 {
		return fmt.Errorf("invalid max concurrent scans: %d (must be >= 0)", c.Server.MaxConcurrent)
	}
	if rl := c.Server.RateLimit; rl.Enabled && (rl.RequestsPerMinute <= 0 || rl.Burst <= 0) {
		return fmt.Errorf("invalid rate limit: %d/min burst %d (both must be positive)", rl.RequestsPerMinute, rl.Burst)
	}

	if _, err := pdf.ParsePageSize(c.PDF.PageSize); err != nil {
		return err
	}
	if c.PDF.Margin < 0 {
		return fmt.Errorf("invalid pdf margin: %.1f (must be >= 0)", c.PDF.Margin)
	}
	if c.Storage.S3.Bucket != "" && c.Storage.S3.Region == "" {
		return fmt.Errorf("storage.s3.region is required when a bucket is configured")
	}
	return nil
}

// ScanOptions converts the scan section to pipeline options.
func (c *Config) ScanOptions() (pipeline.Options, error) {
	mode, err := pipeline.ParseMode(c.Scan.Mode)
	if err != nil {
		return pipeline.Options{}, err
	}
	method, err := pipeline.ParseThresholdMethod(c.Scan.Threshold)
	if err != nil {
		return pipeline.Options{}, err
	}
	format, err := codec.ParseFormat(c.Scan.Format)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts := pipeline.Options{
		BlockSize:     c.Scan.BlockSize,
		Offset:        c.Scan.Offset,
		MaxOutputSize: c.Scan.MaxOutputSize,
		Mode:          mode,
		Format:        format,
		Quality:       c.Scan.Quality,
		Threshold:     method,
		GlobalLevel:   c.Scan.GlobalLevel,
	}
	if err := opts.Validate(); err != nil {
		return pipeline.Options{}, fmt.Errorf("invalid scan settings: %w", err)
	}
	return opts, nil
}

// ToPipelineConfig converts the config to the scanner configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Workers = c.Scan.Workers
	cfg.Rectification.DebugDir = c.Debug.Dir
	if c.Debug.OverlayColor != "" {
		cfg.Rectification.OverlayColor = c.Debug.OverlayColor
	}
	return cfg
}

// PageOptions converts the pdf section.
func (c *Config) PageOptions() (pdf.PageOptions, error) {
	size, err := pdf.ParsePageSize(c.PDF.PageSize)
	if err != nil {
		return pdf.PageOptions{}, err
	}
	return pdf.PageOptions{Size: size, Margin: c.PDF.Margin}, nil
}
