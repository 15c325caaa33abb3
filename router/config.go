package router

import (
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config holds the full configuration surface of the router. All values are
// static at startup; a fresh Config may be loaded and applied by constructing
// a new Router.
type Config struct {
	Breaker   BreakerConfig   `yaml:"breaker"`
	Shaper    ShaperConfig    `yaml:"shaper"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Predictor PredictorConfig `yaml:"predictor"`

	// RequestTimeoutMs bounds each dispatch. Exceeding it is recorded as a
	// failure outcome before the timeout error propagates. Zero disables.
	RequestTimeoutMs int64 `yaml:"request_timeout_ms"`

	// DecisionLogSize bounds the in-memory log of recent routing decisions.
	DecisionLogSize int `yaml:"decision_log_size"`
}

// BreakerConfig configures the per-endpoint circuit breakers.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that trips a
	// Closed breaker to Open.
	FailureThreshold int `yaml:"failure_threshold"`

	// TimeoutMs is how long an Open breaker rejects traffic before the
	// next admissibility check moves it to HalfOpen.
	TimeoutMs int64 `yaml:"timeout_ms"`

	// HalfOpenSuccesses is the consecutive-success count that closes a
	// HalfOpen breaker.
	HalfOpenSuccesses int `yaml:"half_open_successes"`
}

// Timeout returns TimeoutMs as a duration.
func (c BreakerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ShaperConfig configures fixed-window admission control.
type ShaperConfig struct {
	// WindowSizeMs is the fixed admission window.
	WindowSizeMs int64 `yaml:"window_size_ms"`

	// ProcessingRate is the per-endpoint request budget per window.
	ProcessingRate int `yaml:"processing_rate"`
}

// Window returns WindowSizeMs as a duration.
func (c ShaperConfig) Window() time.Duration {
	return time.Duration(c.WindowSizeMs) * time.Millisecond
}

// ScoringConfig holds the composite scoring weights and normalization bounds.
//
// The historical weight set (health 0.3, performance 0.4, availability 0.3,
// confidence 0.2, load 0.1) deliberately sums to 1.3; the composite score is
// clamped to [0,1] instead of renormalized, preserving the original scoring
// behavior. Callers overriding weights get the same clamp semantics.
type ScoringConfig struct {
	HealthWeight       float64 `yaml:"health_weight"`
	PerformanceWeight  float64 `yaml:"performance_weight"`
	AvailabilityWeight float64 `yaml:"availability_weight"`
	ConfidenceWeight   float64 `yaml:"confidence_weight"`
	LoadWeight         float64 `yaml:"load_weight"`

	// MaxResponseTimeMs is the latency at which the performance score
	// reaches zero (and the latency feature saturates at 1).
	MaxResponseTimeMs float64 `yaml:"max_response_time_ms"`

	// DefaultMaxConnections is the assumed per-endpoint capacity when the
	// registry does not declare one.
	DefaultMaxConnections int `yaml:"default_max_connections"`
}

// PredictorConfig configures the online score predictor.
type PredictorConfig struct {
	// BufferCapacity bounds the FIFO training sample buffer.
	BufferCapacity int `yaml:"buffer_capacity"`

	// RetrainEvery triggers an asynchronous retrain after this many
	// accumulated samples.
	RetrainEvery int `yaml:"retrain_every"`

	// RetrainWindow is how many of the most recent samples the retrain
	// correlates over.
	RetrainWindow int `yaml:"retrain_window"`

	// ColdStartSamples is the minimum sample count below which Predict
	// returns a uniform neutral confidence.
	ColdStartSamples int `yaml:"cold_start_samples"`
}

// DefaultConfig returns the historical defaults for every component.
func DefaultConfig() Config {
	return Config{
		Breaker: BreakerConfig{
			FailureThreshold:  5,
			TimeoutMs:         30000,
			HalfOpenSuccesses: 3,
		},
		Shaper: ShaperConfig{
			WindowSizeMs:   1000,
			ProcessingRate: 100,
		},
		Scoring: ScoringConfig{
			HealthWeight:          0.3,
			PerformanceWeight:     0.4,
			AvailabilityWeight:    0.3,
			ConfidenceWeight:      0.2,
			LoadWeight:            0.1,
			MaxResponseTimeMs:     5000,
			DefaultMaxConnections: 100,
		},
		Predictor: PredictorConfig{
			BufferCapacity:   10000,
			RetrainEvery:     500,
			RetrainWindow:    1000,
			ColdStartSamples: 100,
		},
		RequestTimeoutMs: 30000,
		DecisionLogSize:  128,
	}
}

// LoadConfig reads and parses a YAML config file, applying defaults for any
// section left unset.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading router config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing router config: %w", err)
	}
	return cfg, nil
}

// Validate checks all parameter ranges and reports every problem at once.
func (c Config) Validate() error {
	var err error
	if c.Breaker.FailureThreshold <= 0 {
		err = multierr.Append(err, fmt.Errorf("breaker failure_threshold must be positive, got %d", c.Breaker.FailureThreshold))
	}
	if c.Breaker.TimeoutMs <= 0 {
		err = multierr.Append(err, fmt.Errorf("breaker timeout_ms must be positive, got %d", c.Breaker.TimeoutMs))
	}
	if c.Breaker.HalfOpenSuccesses <= 0 {
		err = multierr.Append(err, fmt.Errorf("breaker half_open_successes must be positive, got %d", c.Breaker.HalfOpenSuccesses))
	}
	if c.Shaper.WindowSizeMs <= 0 {
		err = multierr.Append(err, fmt.Errorf("shaper window_size_ms must be positive, got %d", c.Shaper.WindowSizeMs))
	}
	if c.Shaper.ProcessingRate <= 0 {
		err = multierr.Append(err, fmt.Errorf("shaper processing_rate must be positive, got %d", c.Shaper.ProcessingRate))
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"health_weight", c.Scoring.HealthWeight},
		{"performance_weight", c.Scoring.PerformanceWeight},
		{"availability_weight", c.Scoring.AvailabilityWeight},
		{"confidence_weight", c.Scoring.ConfidenceWeight},
		{"load_weight", c.Scoring.LoadWeight},
	} {
		if w.value < 0 || math.IsNaN(w.value) || math.IsInf(w.value, 0) {
			err = multierr.Append(err, fmt.Errorf("scoring %s must be a finite non-negative number, got %v", w.name, w.value))
		}
	}
	if c.Scoring.MaxResponseTimeMs <= 0 {
		err = multierr.Append(err, fmt.Errorf("scoring max_response_time_ms must be positive, got %v", c.Scoring.MaxResponseTimeMs))
	}
	if c.Scoring.DefaultMaxConnections <= 0 {
		err = multierr.Append(err, fmt.Errorf("scoring default_max_connections must be positive, got %d", c.Scoring.DefaultMaxConnections))
	}
	if c.Predictor.BufferCapacity <= 0 {
		err = multierr.Append(err, fmt.Errorf("predictor buffer_capacity must be positive, got %d", c.Predictor.BufferCapacity))
	}
	if c.Predictor.RetrainEvery <= 0 {
		err = multierr.Append(err, fmt.Errorf("predictor retrain_every must be positive, got %d", c.Predictor.RetrainEvery))
	}
	if c.Predictor.RetrainWindow <= 0 {
		err = multierr.Append(err, fmt.Errorf("predictor retrain_window must be positive, got %d", c.Predictor.RetrainWindow))
	}
	if c.Predictor.ColdStartSamples < 0 {
		err = multierr.Append(err, fmt.Errorf("predictor cold_start_samples must be non-negative, got %d", c.Predictor.ColdStartSamples))
	}
	if c.RequestTimeoutMs < 0 {
		err = multierr.Append(err, fmt.Errorf("request_timeout_ms must be non-negative, got %d", c.RequestTimeoutMs))
	}
	if c.DecisionLogSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("decision_log_size must be positive, got %d", c.DecisionLogSize))
	}
	return err
}
