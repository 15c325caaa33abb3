package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPredictorConfig() PredictorConfig {
	return PredictorConfig{
		BufferCapacity:   10000,
		RetrainEvery:     500,
		RetrainWindow:    1000,
		ColdStartSamples: 100,
	}
}

func sampleWith(success bool, rt float64) TrainingSample {
	return TrainingSample{
		Features: FeatureVector{ResponseTime: rt, SuccessRate: 0.9, Load: 0.2, TimeOfDay: 0.5, RequestType: 0.3},
		Success:  success,
	}
}

func TestPredictor_ColdStartReturnsNeutralConfidence(t *testing.T) {
	p := NewPredictor(testPredictorConfig())

	for i := 0; i < 99; i++ {
		p.Learn(sampleWith(true, 0.1))
		assert.Equal(t, 0.5, p.Predict(FeatureVector{ResponseTime: 0.9}),
			"below the cold-start threshold every candidate gets 0.5")
	}

	p.Learn(sampleWith(true, 0.1))
	got := p.Predict(FeatureVector{SuccessRate: 0.9})
	assert.NotEqual(t, 0.0, got)
	assert.GreaterOrEqual(t, got, 0.1)
	assert.LessOrEqual(t, got, 0.9)
}

func TestPredictor_ConfidenceClampedToBand(t *testing.T) {
	cfg := testPredictorConfig()
	cfg.ColdStartSamples = 0
	p := NewPredictor(cfg)

	// All-ones features against all-positive weights would saturate the
	// sigmoid without the clamp.
	high := p.Predict(FeatureVector{ResponseTime: 1, SuccessRate: 1, Load: 1, TimeOfDay: 1, RequestType: 1})
	low := p.Predict(FeatureVector{})

	assert.LessOrEqual(t, high, 0.9)
	assert.GreaterOrEqual(t, low, 0.1)
}

func TestPredictor_RetrainAdjustsWeights(t *testing.T) {
	cfg := testPredictorConfig()
	cfg.RetrainEvery = 200
	cfg.RetrainWindow = 200
	p := NewPredictor(cfg)

	before := p.Weights()

	// Success perfectly correlated with low ResponseTime: the retrain must
	// push the response-time weight down.
	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			p.Learn(sampleWith(true, 0.1))
		} else {
			p.Learn(sampleWith(false, 0.9))
		}
	}

	require.Eventually(t, func() bool { return p.Retrains() >= 1 },
		2*time.Second, 10*time.Millisecond, "retrain must run in the background")

	after := p.Weights()
	assert.Less(t, after[featResponseTime], before[featResponseTime],
		"negative feature/outcome correlation must lower the weight")
}

func TestPredictor_RetrainNeverBlocksPredict(t *testing.T) {
	cfg := testPredictorConfig()
	cfg.ColdStartSamples = 0
	cfg.RetrainEvery = 100
	p := NewPredictor(cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			p.Learn(sampleWith(i%3 != 0, float64(i%10)/10))
		}
	}()

	// Concurrent predictions must always see a complete weight snapshot
	// and stay inside the confidence band.
	for i := 0; i < 1000; i++ {
		c := p.Predict(FeatureVector{ResponseTime: 0.5, SuccessRate: 0.5})
		assert.GreaterOrEqual(t, c, 0.1)
		assert.LessOrEqual(t, c, 0.9)
	}
	<-done
}

func TestPredictor_BufferEvictsOldestFirst(t *testing.T) {
	cfg := testPredictorConfig()
	cfg.BufferCapacity = 10
	cfg.RetrainEvery = 1 << 30 // keep retrains out of this test
	p := NewPredictor(cfg)

	for i := 0; i < 25; i++ {
		p.Learn(TrainingSample{ResponseTimeMs: float64(i)})
	}

	recent := p.recentSamples(10)
	require.Len(t, recent, 10)
	assert.Equal(t, 15.0, recent[0].ResponseTimeMs, "oldest retained sample")
	assert.Equal(t, 24.0, recent[9].ResponseTimeMs, "newest retained sample")
}

func TestPearson(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		ys   []float64
		want float64
	}{
		{"perfect positive", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, 1},
		{"perfect negative", []float64{1, 2, 3, 4}, []float64{8, 6, 4, 2}, -1},
		{"no variance in x", []float64{5, 5, 5}, []float64{1, 2, 3}, 0},
		{"no variance in y", []float64{1, 2, 3}, []float64{7, 7, 7}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, pearson(tt.xs, tt.ys), 1e-9)
		})
	}
}
