//nolint:lll
package config

// Config is the complete docscan configuration. It is assembled from
// defaults, a docscan.yaml file, DOCSCAN_* environment variables and
// command-line flags, in increasing order of precedence.
type Config struct {
	Log         LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
	Scan        ScanConfig    `mapstructure:"scan" yaml:"scan" json:"scan"`
	Server      ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	PDF         PDFConfig     `mapstructure:"pdf" yaml:"pdf" json:"pdf"`
	Storage     StorageConfig `mapstructure:"storage" yaml:"storage" json:"storage"`
	Debug       DebugConfig   `mapstructure:"debug" yaml:"debug" json:"debug"`
	PresetsFile string        `mapstructure:"presets_file" yaml:"presets_file" json:"presets_file"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level" json:"level"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
}

// ScanConfig holds the default scan options.
type ScanConfig struct {
	BlockSize     int    `mapstructure:"block_size" yaml:"block_size" json:"block_size"`
	Offset        int    `mapstructure:"offset" yaml:"offset" json:"offset"`
	MaxOutputSize int    `mapstructure:"max_output_size" yaml:"max_output_size" json:"max_output_size"`
	Mode          string `mapstructure:"mode" yaml:"mode" json:"mode"`
	Format        string `mapstructure:"format" yaml:"format" json:"format"`
	Quality       int    `mapstructure:"quality" yaml:"quality" json:"quality"`
	Threshold     string `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	GlobalLevel   int    `mapstructure:"global_level" yaml:"global_level" json:"global_level"`
	Workers       int    `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MaxConcurrent   int             `mapstructure:"max_concurrent" yaml:"max_concurrent" json:"max_concurrent"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig configures the per-client limiter.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	Burst             int  `mapstructure:"burst" yaml:"burst" json:"burst"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

// PDFConfig controls PDF export.
type PDFConfig struct {
	PageSize string  `mapstructure:"page_size" yaml:"page_size" json:"page_size"`
	Margin   float64 `mapstructure:"margin" yaml:"margin" json:"margin"`
}

// StorageConfig configures remote output sinks.
type StorageConfig struct {
	S3 S3Config `mapstructure:"s3" yaml:"s3" json:"s3"`
}

// S3Config holds S3 sink settings. Credentials come from the standard AWS
// environment and shared config files.
type S3Config struct {
	Region string `mapstructure:"region" yaml:"region" json:"region"`
	Bucket string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	Prefix string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
}

// DebugConfig enables diagnostic output.
type DebugConfig struct {
	Dir          string `mapstructure:"dir" yaml:"dir" json:"dir"`
	OverlayColor string `mapstructure:"overlay_color" yaml:"overlay_color" json:"overlay_color"`
}
