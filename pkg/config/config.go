package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Rate limiter modes
const (
	RateModeAdaptive   = "adaptive"
	RateModeFixedRPM   = "fixed-rpm"
	RateModeFixedDelay = "fixed-delay"
)

// Config holds all configuration options for the downloader
type Config struct {
	// Download behavior
	Download DownloadConfig `yaml:"download" json:"download"`

	// Request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Size estimation when servers withhold Content-Length
	Estimate EstimateConfig `yaml:"estimate" json:"estimate"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Terminal presentation
	UI UIConfig `yaml:"ui" json:"ui"`

	// Optional prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// DownloadConfig holds transfer-level settings
type DownloadConfig struct {
	// Size is the IIIF size request: "full", "max", or a pixel width
	Size          string        `yaml:"size" json:"size"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	Resume        bool          `yaml:"resume" json:"resume"`
	WriteMetadata bool          `yaml:"write_metadata" json:"write_metadata"`
	ChunkSize     int           `yaml:"chunk_size" json:"chunk_size"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
}

// RateLimitConfig selects one of the closed set of pacing modes and
// carries the tuning constants for the adaptive mode
type RateLimitConfig struct {
	Mode              string        `yaml:"mode" json:"mode"`
	BaseDelay         time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay" json:"max_delay"`
	ThrottleFactor    float64       `yaml:"throttle_factor" json:"throttle_factor"`
	DecayFactor       float64       `yaml:"decay_factor" json:"decay_factor"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	FixedDelay        time.Duration `yaml:"fixed_delay" json:"fixed_delay"`
}

// EstimateConfig holds the per-format byte-per-pixel multipliers used
// when a download's size must be estimated from pixel dimensions
type EstimateConfig struct {
	JPEGBytesPerPixel float64 `yaml:"jpeg_bytes_per_pixel" json:"jpeg_bytes_per_pixel"`
	PNGBytesPerPixel  float64 `yaml:"png_bytes_per_pixel" json:"png_bytes_per_pixel"`
	TIFFBytesPerPixel float64 `yaml:"tiff_bytes_per_pixel" json:"tiff_bytes_per_pixel"`
	MinBytes          int64   `yaml:"min_bytes" json:"min_bytes"`
}

// OutputConfig holds output directory configuration. An empty Directory
// means derive one from the manifest source name.
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// UIConfig holds terminal presentation preferences
type UIConfig struct {
	TUI           bool `yaml:"tui" json:"tui"`
	Quiet         bool `yaml:"quiet" json:"quiet"`
	NoColor       bool `yaml:"no_color" json:"no_color"`
	Notifications bool `yaml:"notifications" json:"notifications"`
}

// MetricsConfig enables the prometheus listener when Addr is set
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Download: DownloadConfig{
			Size:          "full",
			Timeout:       30 * time.Second,
			MaxRetries:    3,
			Resume:        true,
			WriteMetadata: false,
			ChunkSize:     32 * 1024,
			UserAgent:     "iiifdl/1.0",
		},
		RateLimit: RateLimitConfig{
			Mode:              RateModeAdaptive,
			BaseDelay:         500 * time.Millisecond,
			MaxDelay:          30 * time.Second,
			ThrottleFactor:    2.0,
			DecayFactor:       0.9,
			RequestsPerMinute: 120,
			FixedDelay:        500 * time.Millisecond,
		},
		Estimate: EstimateConfig{
			JPEGBytesPerPixel: 0.45,
			PNGBytesPerPixel:  1.8,
			TIFFBytesPerPixel: 3.0,
			MinBytes:          1024,
		},
		Output: OutputConfig{
			Directory: "",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
		UI: UIConfig{
			TUI:           false,
			Quiet:         false,
			NoColor:       false,
			Notifications: false,
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if dir := os.Getenv("IIIFDL_OUTPUT_DIR"); dir != "" {
		c.Output.Directory = dir
	}
	if size := os.Getenv("IIIFDL_SIZE"); size != "" {
		c.Download.Size = size
	}
	if ua := os.Getenv("IIIFDL_USER_AGENT"); ua != "" {
		c.Download.UserAgent = ua
	}
	if timeout := os.Getenv("IIIFDL_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			c.Download.Timeout = d
		}
	}
	if mode := os.Getenv("IIIFDL_RATE_MODE"); mode != "" {
		c.RateLimit.Mode = mode
	}
	if rpm := os.Getenv("IIIFDL_REQUESTS_PER_MINUTE"); rpm != "" {
		if val, err := strconv.Atoi(rpm); err == nil && val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if level := os.Getenv("IIIFDL_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if addr := os.Getenv("IIIFDL_METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".iiifdl.yaml",
		".iiifdl.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "iiifdl", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "iiifdl", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".iiifdl.yaml"),
		filepath.Join(os.Getenv("HOME"), ".iiifdl.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if !isValidSize(c.Download.Size) {
		errs = append(errs, fmt.Errorf("size must be \"full\", \"max\", or a positive pixel width, got %q", c.Download.Size))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Download.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk size must be positive"))
	}

	switch c.RateLimit.Mode {
	case RateModeAdaptive:
		if c.RateLimit.BaseDelay <= 0 {
			errs = append(errs, errors.New("base delay must be positive"))
		}
		if c.RateLimit.MaxDelay < c.RateLimit.BaseDelay {
			errs = append(errs, errors.New("max delay must not be below base delay"))
		}
		if c.RateLimit.ThrottleFactor <= 1.0 {
			errs = append(errs, errors.New("throttle factor must be greater than 1"))
		}
		if c.RateLimit.DecayFactor <= 0 || c.RateLimit.DecayFactor > 1.0 {
			errs = append(errs, errors.New("decay factor must be in (0, 1]"))
		}
	case RateModeFixedRPM:
		if c.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, errors.New("requests per minute must be positive"))
		}
	case RateModeFixedDelay:
		if c.RateLimit.FixedDelay < 0 {
			errs = append(errs, errors.New("fixed delay cannot be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit mode %q", c.RateLimit.Mode))
	}

	if c.Estimate.JPEGBytesPerPixel <= 0 || c.Estimate.PNGBytesPerPixel <= 0 || c.Estimate.TIFFBytesPerPixel <= 0 {
		errs = append(errs, errors.New("size estimate multipliers must be positive"))
	}
	if c.Estimate.MinBytes < 0 {
		errs = append(errs, errors.New("minimum estimated size cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// isValidSize accepts the IIIF size requests the tool supports
func isValidSize(size string) bool {
	if size == "full" || size == "max" {
		return true
	}
	w, err := strconv.Atoi(size)
	return err == nil && w > 0
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["output"].(string); ok && dir != "" {
		c.Output.Directory = dir
	}
	if size, ok := flags["size"].(string); ok && size != "" {
		c.Download.Size = size
	}
	if resume, ok := flags["resume"].(bool); ok {
		c.Download.Resume = resume
	}
	if meta, ok := flags["metadata"].(bool); ok {
		c.Download.WriteMetadata = meta
	}
	if retries, ok := flags["max-retries"].(int); ok && retries >= 0 {
		c.Download.MaxRetries = retries
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.Timeout = timeout
	}

	// Mode resolution: an explicit fixed delay wins, then any fixed-rpm
	// request (a bare rate-limit value or the no-adaptive switch);
	// adaptive otherwise.
	if rpm, ok := flags["rate-limit"].(int); ok && rpm > 0 {
		c.RateLimit.Mode = RateModeFixedRPM
		c.RateLimit.RequestsPerMinute = rpm
	}
	if noAdaptive, ok := flags["no-adaptive-rate"].(bool); ok && noAdaptive {
		c.RateLimit.Mode = RateModeFixedRPM
	}
	if delay, ok := flags["request-delay"].(time.Duration); ok && delay > 0 {
		c.RateLimit.Mode = RateModeFixedDelay
		c.RateLimit.FixedDelay = delay
	}

	if tui, ok := flags["tui"].(bool); ok {
		c.UI.TUI = tui
	}
	if quiet, ok := flags["quiet"].(bool); ok && quiet {
		c.UI.Quiet = true
	}
	if noColor, ok := flags["no-color"].(bool); ok && noColor {
		c.UI.NoColor = true
	}
	if notify, ok := flags["notifications"].(bool); ok {
		c.UI.Notifications = notify
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.Addr = addr
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".iiifdl.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
