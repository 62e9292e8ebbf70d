package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the resolver service.
type Config struct {
	// HTTP server settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Upstream Instagram client settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Retry and throttling behavior for upstream fetches
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Media materialization settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// InstagramConfig holds upstream client configuration. The session file is
// read-only at runtime; the service never writes credentials back.
type InstagramConfig struct {
	SessionFile     string        `yaml:"session_file" json:"session_file"`
	SessionUsername string        `yaml:"session_username" json:"session_username"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	BaseURL         string        `yaml:"base_url" json:"base_url"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// RateLimitConfig holds retry and pacing configuration. BackoffBase is the
// unit multiplied by the attempt index between throttled retries; the five
// deployments that preceded this service disagreed on 30s vs 60s, so it is
// a knob rather than a constant.
type RateLimitConfig struct {
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	BackoffBase       time.Duration `yaml:"backoff_base" json:"backoff_base"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// DownloadConfig holds materialization configuration.
type DownloadConfig struct {
	TempDir             string        `yaml:"temp_dir" json:"temp_dir"`
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Instagram: InstagramConfig{
			SessionFile:    "",
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			BaseURL:        "https://www.instagram.com",
			RequestTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxRetries:        3,
			BackoffBase:       30 * time.Second,
			RequestsPerMinute: 60,
		},
		Download: DownloadConfig{
			TempDir:             os.TempDir(),
			ConcurrentDownloads: 3,
			DownloadTimeout:     2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file. An empty path falls
// back to the standard locations; finding none is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
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

func (c *Config) findConfigFile() string {
	locations := []string{
		".igresolver.yaml",
		".igresolver.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igresolver", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igresolver", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// LoadFromEnv applies IGRESOLVER_-prefixed environment overrides.
func (c *Config) LoadFromEnv() {
	if addr := os.Getenv("IGRESOLVER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if sessionFile := os.Getenv("IGRESOLVER_SESSION_FILE"); sessionFile != "" {
		c.Instagram.SessionFile = sessionFile
	}
	if username := os.Getenv("IGRESOLVER_SESSION_USERNAME"); username != "" {
		c.Instagram.SessionUsername = username
	}
	if userAgent := os.Getenv("IGRESOLVER_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}
	if baseURL := os.Getenv("IGRESOLVER_BASE_URL"); baseURL != "" {
		c.Instagram.BaseURL = baseURL
	}
	if maxRetries := os.Getenv("IGRESOLVER_MAX_RETRIES"); maxRetries != "" {
		var val int
		fmt.Sscanf(maxRetries, "%d", &val)
		if val > 0 {
			c.RateLimit.MaxRetries = val
		}
	}
	if base := os.Getenv("IGRESOLVER_BACKOFF_BASE"); base != "" {
		if d, err := time.ParseDuration(base); err == nil && d > 0 {
			c.RateLimit.BackoffBase = d
		}
	}
	if rpm := os.Getenv("IGRESOLVER_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if tempDir := os.Getenv("IGRESOLVER_TEMP_DIR"); tempDir != "" {
		c.Download.TempDir = tempDir
	}
	if concurrent := os.Getenv("IGRESOLVER_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}
	if logLevel := os.Getenv("IGRESOLVER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("IGRESOLVER_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}
}

// Validate checks if the configuration is usable. Session credentials are
// deliberately not required: the service degrades to anonymous access.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("instagram base URL is required"))
	}
	if c.RateLimit.MaxRetries <= 0 {
		errs = append(errs, errors.New("max retries must be positive"))
	}
	if c.RateLimit.BackoffBase <= 0 {
		errs = append(errs, errors.New("backoff base must be positive"))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}

	return nil
}
