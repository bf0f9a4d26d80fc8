package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/docscan/internal/config"
	"github.com/MeKo-Tech/docscan/internal/presets"
	"github.com/MeKo-Tech/docscan/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the scan API",
	Long: `Start an HTTP server that scans uploaded document photos.

The server provides the following endpoints:
  POST /api/scan      - Scan an uploaded image (multipart field "file")
  GET  /api/scan      - Describe parameters and presets
  POST /api/scan/pdf  - Scan an uploaded image into a one-page PDF
  GET  /ws/scan       - WebSocket scanning
  GET  /health        - Health check endpoint
  GET  /metrics       - Prometheus metrics

Examples:
  docscan serve
  docscan serve --port 8080
  docscan serve --host 0.0.0.0 --port 3000 --rate-limit --rate-per-minute 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		serverConfig, err := serverConfigFrom(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		srv, err := server.NewServer(serverConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		timeout := time.Duration(cfg.Server.TimeoutSec) * time.Second
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			// Leave room for the upload on top of the scan itself.
			WriteTimeout: 2 * timeout,
		}

		go func() {
			slog.Info("Starting scan server", "host", cfg.Server.Host, "port", cfg.Server.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
		slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
			return err
		}
		slog.Info("Graceful shutdown completed")
		return nil
	},
}

// serverConfigFrom maps the resolved configuration onto the server.
func serverConfigFrom(cfg *config.Config) (server.Config, error) {
	defaults, err := cfg.ScanOptions()
	if err != nil {
		return server.Config{}, err
	}
	page, err := cfg.PageOptions()
	if err != nil {
		return server.Config{}, err
	}
	reg, err := presets.Load(cfg.PresetsFile)
	if err != nil {
		return server.Config{}, err
	}
	rl := cfg.Server.RateLimit
	return server.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		CORSOrigin:    cfg.Server.CORSOrigin,
		MaxUploadMB:   int64(cfg.Server.MaxUploadMB),
		TimeoutSec:    cfg.Server.TimeoutSec,
		MaxConcurrent: cfg.Server.MaxConcurrent,
		Scanner:       cfg.ToPipelineConfig(),
		Defaults:      defaults,
		Page:          page,
		Presets:       reg,
		RateLimit: server.RateLimitConfig{
			Enabled:           rl.Enabled,
			RequestsPerMinute: rl.RequestsPerMinute,
			Burst:             rl.Burst,
			MaxDataPerDay:     int64(rl.MaxDataPerDayMB) * 1024 * 1024,
		},
		Logger: slog.Default(),
	}, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	d := config.DefaultConfig()
	f := serveCmd.Flags()
	f.StringP("host", "H", d.Server.Host, "server host")
	f.IntP("port", "p", d.Server.Port, "server port")
	f.String("cors-origin", d.Server.CORSOrigin, "CORS allowed origins")
	f.Int("max-upload-mb", d.Server.MaxUploadMB, "maximum upload size in MB")
	f.Int("timeout", d.Server.TimeoutSec, "per-request scan timeout in seconds")
	f.Int("shutdown-timeout", d.Server.ShutdownTimeout, "shutdown timeout in seconds")
	f.Int("max-concurrent", d.Server.MaxConcurrent, "scans processed at the same time")
	f.Int("workers", d.Scan.Workers, "goroutines per image stage (0 = all CPUs)")
	f.String("presets-file", "", "YAML file with additional presets")
	f.String("page-size", d.PDF.PageSize, "default PDF page size: a4, letter or original")
	f.Float64("margin", d.PDF.Margin, "default PDF page margin in points")
	// Rate limiting flags
	f.Bool("rate-limit", d.Server.RateLimit.Enabled, "enable per-client rate limiting")
	f.Int("rate-per-minute", d.Server.RateLimit.RequestsPerMinute, "requests per minute per client")
	f.Int("rate-burst", d.Server.RateLimit.Burst, "request burst per client")
}
