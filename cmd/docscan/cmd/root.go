package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/docscan/internal/config"
)

var (
	// Configuration loader of the current invocation.
	configLoader *config.Loader
	// Resolved configuration of the current invocation.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
	// Comma-separated .env files.
	envFiles string
)

// flagKeys maps command-line flags to configuration keys. Flags that were
// set explicitly take precedence over the environment and config files.
var flagKeys = map[string]string{
	"verbose":          "log.verbose",
	"log-level":        "log.level",
	"mode":             "scan.mode",
	"block-size":       "scan.block_size",
	"offset":           "scan.offset",
	"max-size":         "scan.max_output_size",
	"format":           "scan.format",
	"quality":          "scan.quality",
	"threshold":        "scan.threshold",
	"level":            "scan.global_level",
	"workers":          "scan.workers",
	"page-size":        "pdf.page_size",
	"margin":           "pdf.margin",
	"debug-dir":        "debug.dir",
	"overlay-color":    "debug.overlay_color",
	"presets-file":     "presets_file",
	"host":             "server.host",
	"port":             "server.port",
	"cors-origin":      "server.cors_origin",
	"max-upload-mb":    "server.max_upload_mb",
	"timeout":          "server.timeout_sec",
	"shutdown-timeout": "server.shutdown_timeout",
	"max-concurrent":   "server.max_concurrent",
	"rate-limit":       "server.rate_limit.enabled",
	"rate-per-minute":  "server.rate_limit.requests_per_minute",
	"rate-burst":       "server.rate_limit.burst",
	"s3-region":        "storage.s3.region",
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "docscan",
	Short: "Turn document photos into flat, clean scans",
	Long: `docscan finds the page in a photo, removes the perspective distortion and
renders it as a crisp black and white scan or a flattened color image.

This tool provides:
- Automatic page corner detection with manual override
- Perspective correction by homography
- Adaptive (Bradley) or global thresholding with presets
- PNG, JPEG and PDF output to files or S3
- Both CLI and HTTP server modes

Examples:
  docscan scan receipt.jpg
  docscan scan *.jpg --output-dir scans/ --preset receipt
  docscan pdf page1.jpg page2.jpg -o document.pdf
  docscan serve --port 8080`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/docscan, /etc/docscan)")
	rootCmd.PersistentFlags().StringVar(&envFiles, "env-file", ".env", "comma-separated .env files loaded before reading the environment")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// setup loads .env files and the configuration, then installs the JSON
// logger. It runs before every subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	if _, err := config.LoadDotEnv(splitList(envFiles)...); err != nil {
		return err
	}

	v := viper.New()
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	configLoader = config.NewLoaderWithViper(v)

	cfg, err := configLoader.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	globalConfig = cfg

	level := parseLogLevel(cfg.Log.Level)
	if cfg.Log.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetConfig returns the configuration resolved for the running command.
func GetConfig() *config.Config {
	if globalConfig == nil {
		cfg := config.DefaultConfig()
		return &cfg
	}
	return globalConfig
}
