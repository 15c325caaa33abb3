package router

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero breaker threshold", func(c *Config) { c.Breaker.FailureThreshold = 0 }},
		{"negative breaker timeout", func(c *Config) { c.Breaker.TimeoutMs = -1 }},
		{"zero half-open successes", func(c *Config) { c.Breaker.HalfOpenSuccesses = 0 }},
		{"zero shaper window", func(c *Config) { c.Shaper.WindowSizeMs = 0 }},
		{"zero processing rate", func(c *Config) { c.Shaper.ProcessingRate = 0 }},
		{"negative scoring weight", func(c *Config) { c.Scoring.HealthWeight = -0.1 }},
		{"zero max response time", func(c *Config) { c.Scoring.MaxResponseTimeMs = 0 }},
		{"zero max connections", func(c *Config) { c.Scoring.DefaultMaxConnections = 0 }},
		{"zero buffer capacity", func(c *Config) { c.Predictor.BufferCapacity = 0 }},
		{"zero retrain interval", func(c *Config) { c.Predictor.RetrainEvery = 0 }},
		{"zero retrain window", func(c *Config) { c.Predictor.RetrainWindow = 0 }},
		{"negative cold start", func(c *Config) { c.Predictor.ColdStartSamples = -1 }},
		{"negative request timeout", func(c *Config) { c.RequestTimeoutMs = -1 }},
		{"zero decision log", func(c *Config) { c.DecisionLogSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_ValidateCollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Breaker.FailureThreshold = 0
	cfg.Shaper.ProcessingRate = -1
	cfg.Predictor.RetrainEvery = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure_threshold")
	assert.Contains(t, err.Error(), "processing_rate")
	assert.Contains(t, err.Error(), "retrain_every")
}

func TestLoadConfig_AppliesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.yaml")
	content := `
breaker:
  failure_threshold: 7
  timeout_ms: 10000
shaper:
  processing_rate: 50
request_timeout_ms: 5000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Breaker.FailureThreshold)
	assert.Equal(t, int64(10000), cfg.Breaker.TimeoutMs)
	assert.Equal(t, 50, cfg.Shaper.ProcessingRate)
	assert.Equal(t, int64(5000), cfg.RequestTimeoutMs)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, 3, cfg.Breaker.HalfOpenSuccesses)
	assert.Equal(t, int64(1000), cfg.Shaper.WindowSizeMs)
	assert.Equal(t, 10000, cfg.Predictor.BufferCapacity)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("breaker: ["), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
