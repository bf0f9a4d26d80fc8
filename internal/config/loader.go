package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "docscan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "DOCSCAN"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so that flags
// bound by the CLI take part in resolution.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on an isolated viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load resolves and validates the configuration. An empty configFile
// searches the standard locations; a missing file there is not an error.
func (l *Loader) Load(configFile string) (*Config, error) {
	cfg, err := l.LoadWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation resolves the configuration without validating it.
func (l *Loader) LoadWithoutValidation(configFile string) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
		if err := l.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Set overrides a key.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// ConfigFileUsed returns the path of the config file read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Viper returns the underlying viper instance.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	for _, p := range SearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log.level", d.Log.Level)
	l.v.SetDefault("log.verbose", d.Log.Verbose)

	l.v.SetDefault("scan.block_size", d.Scan.BlockSize)
	l.v.SetDefault("scan.offset", d.Scan.Offset)
	l.v.SetDefault("scan.max_output_size", d.Scan.MaxOutputSize)
	l.v.SetDefault("scan.mode", d.Scan.Mode)
	l.v.SetDefault("scan.format", d.Scan.Format)
	l.v.SetDefault("scan.quality", d.Scan.Quality)
	l.v.SetDefault("scan.threshold", d.Scan.Threshold)
	l.v.SetDefault("scan.global_level", d.Scan.GlobalLevel)
	l.v.SetDefault("scan.workers", d.Scan.Workers)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.max_concurrent", d.Server.MaxConcurrent)
	l.v.SetDefault("server.rate_limit.enabled", d.Server.RateLimit.Enabled)
	l.v.SetDefault("server.rate_limit.requests_per_minute", d.Server.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.burst", d.Server.RateLimit.Burst)
	l.v.SetDefault("server.rate_limit.max_data_per_day_mb", d.Server.RateLimit.MaxDataPerDayMB)

	l.v.SetDefault("pdf.page_size", d.PDF.PageSize)
	l.v.SetDefault("pdf.margin", d.PDF.Margin)

	l.v.SetDefault("storage.s3.region", d.Storage.S3.Region)
	l.v.SetDefault("storage.s3.bucket", d.Storage.S3.Bucket)
	l.v.SetDefault("storage.s3.prefix", d.Storage.S3.Prefix)

	l.v.SetDefault("debug.dir", d.Debug.Dir)
	l.v.SetDefault("debug.overlay_color", d.Debug.OverlayColor)

	l.v.SetDefault("presets_file", d.PresetsFile)
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the
// process environment without overriding variables that are already set.
// Files that do not exist are skipped. With no arguments ".env" is tried.
func LoadDotEnv(files ...string) ([]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var loaded []string
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return loaded, fmt.Errorf("load %s: %w", f, err)
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// GenerateDefaultConfigFile writes the default configuration as YAML.
func GenerateDefaultConfigFile(filename string) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	data, err := Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	header := []byte("# docscan configuration\n# Environment variables override these values, e.g. DOCSCAN_SCAN_BLOCK_SIZE=21\n")
	return os.WriteFile(filename, append(header, data...), 0o600)
}

// SearchPaths returns the directories searched for docscan.yaml.
func SearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		paths = append(paths, filepath.Join(configDir, "docscan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "docscan"))
	}
	return append(paths, "/etc/docscan")
}
