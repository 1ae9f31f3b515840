package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnvVars unsets every LITPIPE_ variable for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LITPIPE_SERVER_HOST",
		"LITPIPE_SERVER_HTTP_PORT",
		"LITPIPE_LOGGING_LEVEL",
		"LITPIPE_LOGGING_FORMAT",
		"LITPIPE_PIPELINE_OUTPUT_DIR",
		"LITPIPE_PIPELINE_DEFAULT_MAX_PAPERS",
		"LITPIPE_HUGGINGFACE_USE_LOCAL",
		"LITPIPE_HUGGINGFACE_API_TOKEN",
		"LITPIPE_SEMANTIC_SCHOLAR_API_KEY",
		"LITPIPE_SEMANTIC_SCHOLAR_RATE_LIMIT",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

// inEmptyDir runs the test from a directory with no config.yaml so defaults
// are exercised rather than whatever file the working tree carries.
func inEmptyDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnvVars(t)
	inEmptyDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)

	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "litpipe", cfg.Metrics.Namespace)

	assert.Equal(t, 50, cfg.Pipeline.DefaultMaxPapers)
	assert.Equal(t, "output", cfg.Pipeline.OutputDir)
	assert.Equal(t, 1000, cfg.Pipeline.EventJournalCapacity)

	assert.False(t, cfg.HuggingFace.UseLocal)
	assert.Equal(t, "https://api-inference.huggingface.co/models", cfg.HuggingFace.BaseURL)
	assert.Equal(t, "facebook/bart-large-cnn", cfg.HuggingFace.SummaryModel)
	assert.Equal(t, 2.0, cfg.HuggingFace.RequestsPerSecond)
	assert.Empty(t, cfg.HuggingFace.APIToken)

	assert.Equal(t, "https://api.semanticscholar.org/graph/v1", cfg.SemanticScholar.BaseURL)
	assert.Equal(t, 1.0, cfg.SemanticScholar.RateLimit)
	assert.Equal(t, 100, cfg.SemanticScholar.MaxResults)
	assert.Empty(t, cfg.SemanticScholar.APIKey)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnvVars(t)
	inEmptyDir(t)

	t.Setenv("LITPIPE_SERVER_HTTP_PORT", "9999")
	t.Setenv("LITPIPE_LOGGING_LEVEL", "debug")
	t.Setenv("LITPIPE_PIPELINE_OUTPUT_DIR", "/tmp/reviews")
	t.Setenv("LITPIPE_HUGGINGFACE_USE_LOCAL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/reviews", cfg.Pipeline.OutputDir)
	assert.True(t, cfg.HuggingFace.UseLocal)
}

func TestSecretsLoadedFromEnvOnly(t *testing.T) {
	clearEnvVars(t)
	inEmptyDir(t)

	t.Setenv("LITPIPE_HUGGINGFACE_API_TOKEN", "hf_test_token")
	t.Setenv("LITPIPE_SEMANTIC_SCHOLAR_API_KEY", "s2-test-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hf_test_token", cfg.HuggingFace.APIToken)
	assert.Equal(t, "s2-test-key", cfg.SemanticScholar.APIKey)
}

func TestSecretsIgnoredInConfigFile(t *testing.T) {
	clearEnvVars(t)

	dir := t.TempDir()
	configYAML := `
huggingface:
  api_token: "leaked-token"
semantic_scholar:
  api_key: "leaked-key"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0o644))
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.HuggingFace.APIToken)
	assert.Empty(t, cfg.SemanticScholar.APIKey)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnvVars(t)

	dir := t.TempDir()
	configYAML := `
server:
  http_port: 8090
logging:
  level: warn
  format: console
pipeline:
  default_max_papers: 25
semantic_scholar:
  rate_limit: 5.0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0o644))
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Server.HTTPPort)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 25, cfg.Pipeline.DefaultMaxPapers)
	assert.Equal(t, 5.0, cfg.SemanticScholar.RateLimit)
	// File did not touch these; defaults apply.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 100, cfg.SemanticScholar.MaxResults)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Host: "0.0.0.0", HTTPPort: 8080},
			Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
			Metrics: MetricsConfig{Enabled: true, Namespace: "litpipe"},
			Pipeline: PipelineConfig{
				DefaultMaxPapers:     50,
				OutputDir:            "output",
				EventJournalCapacity: 1000,
			},
			HuggingFace: HuggingFaceConfig{
				BaseURL:           "https://api-inference.huggingface.co/models",
				SummaryModel:      "facebook/bart-large-cnn",
				Timeout:           30 * time.Second,
				RequestsPerSecond: 2,
			},
			SemanticScholar: SemanticScholarConfig{
				BaseURL:    "https://api.semanticscholar.org/graph/v1",
				Timeout:    30 * time.Second,
				RateLimit:  1,
				MaxResults: 100,
			},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("invalid port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.HTTPPort = 0
		assert.ErrorContains(t, cfg.Validate(), "invalid HTTP port")
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "verbose"
		assert.ErrorContains(t, cfg.Validate(), "invalid log level")
	})

	t.Run("invalid log format", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Format = "text"
		assert.ErrorContains(t, cfg.Validate(), "invalid log format")
	})

	t.Run("missing output dir", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.OutputDir = ""
		assert.ErrorContains(t, cfg.Validate(), "output_dir")
	})

	t.Run("non-positive max papers", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.DefaultMaxPapers = 0
		assert.ErrorContains(t, cfg.Validate(), "default_max_papers")
	})

	t.Run("remote summarizer needs a base URL", func(t *testing.T) {
		cfg := valid()
		cfg.HuggingFace.BaseURL = ""
		assert.ErrorContains(t, cfg.Validate(), "huggingface base_url")
	})

	t.Run("local-only mode tolerates empty base URL", func(t *testing.T) {
		cfg := valid()
		cfg.HuggingFace.UseLocal = true
		cfg.HuggingFace.BaseURL = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("non-positive source rate limit", func(t *testing.T) {
		cfg := valid()
		cfg.SemanticScholar.RateLimit = 0
		assert.ErrorContains(t, cfg.Validate(), "rate_limit")
	})
}

func TestHTTPAddress(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", HTTPPort: 8080}
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddress())
}
