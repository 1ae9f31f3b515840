// Package config provides configuration management for the literature
// pipeline service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the literature pipeline service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Pipeline contains pipeline execution settings.
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	// HuggingFace contains remote model API settings.
	HuggingFace HuggingFaceConfig `mapstructure:"huggingface"`
	// SemanticScholar contains the paper source API settings.
	SemanticScholar SemanticScholarConfig `mapstructure:"semantic_scholar"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// ReadTimeout is the maximum duration for reading the request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response.
	// The WebSocket route hijacks the connection and is not bounded by it.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Namespace is the Prometheus namespace metric names are prefixed with.
	Namespace string `mapstructure:"namespace"`
}

// PipelineConfig holds pipeline execution settings.
type PipelineConfig struct {
	// DefaultMaxPapers is the fetch limit applied when a start request
	// omits one.
	DefaultMaxPapers int `mapstructure:"default_max_papers"`
	// OutputDir is the directory rendered review artifacts are written to.
	OutputDir string `mapstructure:"output_dir"`
	// EventJournalCapacity bounds the in-memory event journal.
	EventJournalCapacity int `mapstructure:"event_journal_capacity"`
}

// HuggingFaceConfig holds remote model API settings.
type HuggingFaceConfig struct {
	// UseLocal disables the remote API entirely; summaries are generated
	// by the local extractive summarizer.
	UseLocal bool `mapstructure:"use_local"`
	// BaseURL is the Hugging Face inference API base URL.
	BaseURL string `mapstructure:"base_url"`
	// SummaryModel is the hosted summarization model identifier.
	SummaryModel string `mapstructure:"summary_model"`
	// APIToken is the API token (loaded from LITPIPE_HUGGINGFACE_API_TOKEN).
	APIToken string `mapstructure:"-"`
	// Timeout is the timeout for inference API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RequestsPerSecond limits the call rate. 0 disables limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// SemanticScholarConfig holds the Semantic Scholar API settings.
type SemanticScholarConfig struct {
	// BaseURL is the Graph API base URL.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is the API key (loaded from LITPIPE_SEMANTIC_SCHOLAR_API_KEY).
	// The API works without one at a lower rate limit.
	APIKey string `mapstructure:"-"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LITPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/litreview-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.HuggingFace.APIToken = os.Getenv("LITPIPE_HUGGINGFACE_API_TOKEN")
	cfg.SemanticScholar.APIKey = os.Getenv("LITPIPE_SEMANTIC_SCHOLAR_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "litpipe")

	// Pipeline defaults
	v.SetDefault("pipeline.default_max_papers", 50)
	v.SetDefault("pipeline.output_dir", "output")
	v.SetDefault("pipeline.event_journal_capacity", 1000)

	// Hugging Face defaults
	// The API token is loaded exclusively from the environment (see loadSecrets).
	v.SetDefault("huggingface.use_local", false)
	v.SetDefault("huggingface.base_url", "https://api-inference.huggingface.co/models")
	v.SetDefault("huggingface.summary_model", "facebook/bart-large-cnn")
	v.SetDefault("huggingface.timeout", "30s")
	v.SetDefault("huggingface.requests_per_second", 2.0)

	// Semantic Scholar defaults
	// The API key is loaded exclusively from the environment (see loadSecrets).
	v.SetDefault("semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("semantic_scholar.timeout", "30s")
	v.SetDefault("semantic_scholar.rate_limit", 1.0)
	v.SetDefault("semantic_scholar.max_results", 100)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Pipeline.DefaultMaxPapers <= 0 {
		return fmt.Errorf("pipeline default_max_papers must be positive")
	}
	if c.Pipeline.OutputDir == "" {
		return fmt.Errorf("pipeline output_dir is required")
	}
	if c.Pipeline.EventJournalCapacity <= 0 {
		return fmt.Errorf("pipeline event_journal_capacity must be positive")
	}

	if !c.HuggingFace.UseLocal && c.HuggingFace.BaseURL == "" {
		return fmt.Errorf("huggingface base_url is required unless use_local is set")
	}
	if c.HuggingFace.RequestsPerSecond < 0 {
		return fmt.Errorf("huggingface requests_per_second must not be negative")
	}

	if c.SemanticScholar.BaseURL == "" {
		return fmt.Errorf("semantic_scholar base_url is required")
	}
	if c.SemanticScholar.RateLimit <= 0 {
		return fmt.Errorf("semantic_scholar rate_limit must be positive")
	}
	if c.SemanticScholar.MaxResults <= 0 {
		return fmt.Errorf("semantic_scholar max_results must be positive")
	}

	return nil
}
