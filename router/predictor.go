package router

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// numFeatures is the fixed dimensionality of the predictor's linear model.
const numFeatures = 5

// Feature indices into FeatureVector and the weight vector.
const (
	featResponseTime = iota
	featSuccessRate
	featLoad
	featTimeOfDay
	featRequestType
)

// FeatureVector holds the five model inputs, each pre-normalized to [0,1].
type FeatureVector struct {
	ResponseTime float64 // avg latency / max latency, saturating at 1
	SuccessRate  float64
	Load         float64 // in-flight / max connections, saturating at 1
	TimeOfDay    float64 // fraction of the day elapsed
	RequestType  float64 // stable hash of the request method tag
}

func (f FeatureVector) array() [numFeatures]float64 {
	return [numFeatures]float64{f.ResponseTime, f.SuccessRate, f.Load, f.TimeOfDay, f.RequestType}
}

// TrainingSample pairs the features seen at decision time with the observed
// dispatch outcome.
type TrainingSample struct {
	Features       FeatureVector
	Success        bool
	ResponseTimeMs float64
}

// Predictor is a deliberately simple online linear scorer: confidence is the
// sigmoid of the weighted feature sum, clamped to [0.1, 0.9] so no candidate
// ever saturates to certainty.
//
// Learning appends to a bounded FIFO sample buffer; every RetrainEvery
// samples a background retrain recomputes the Pearson correlation of each
// feature against the success outcome over the most recent RetrainWindow
// samples and nudges the weights toward it. Scoring reads the weight vector
// through a copy-on-write snapshot, so a retrain in progress is invisible to
// concurrent readers and never blocks them.
type Predictor struct {
	cfg PredictorConfig

	weights atomic.Pointer[[numFeatures]float64]

	mu           sync.Mutex // guards the sample ring
	samples      []TrainingSample
	next         int // ring write position once the buffer is full
	totalSamples atomic.Int64

	retraining atomic.Bool
	retrains   atomic.Int64
}

// defaultWeights is the pre-training weight vector. Performance and
// reliability features start heavier than the contextual ones.
func defaultWeights() [numFeatures]float64 {
	return [numFeatures]float64{0.5, 0.5, 0.5, 0.25, 0.25}
}

// retrainLearningRate scales how far each retrain moves a weight toward the
// observed feature/outcome correlation.
const retrainLearningRate = 0.1

// NewPredictor creates a predictor with default weights and an empty buffer.
func NewPredictor(cfg PredictorConfig) *Predictor {
	p := &Predictor{cfg: cfg}
	w := defaultWeights()
	p.weights.Store(&w)
	return p
}

// Predict returns a confidence in [0.1, 0.9] for the given features. During
// cold start (fewer than ColdStartSamples observed) it returns a neutral 0.5
// for every candidate rather than extrapolate from too little data.
func (p *Predictor) Predict(f FeatureVector) float64 {
	if p.totalSamples.Load() < int64(p.cfg.ColdStartSamples) {
		return 0.5
	}
	weights := *p.weights.Load()
	feats := f.array()
	sum := 0.0
	for i := 0; i < numFeatures; i++ {
		sum += weights[i] * feats[i]
	}
	confidence := 1.0 / (1.0 + math.Exp(-sum))
	return clamp(confidence, 0.1, 0.9)
}

// Learn appends one sample to the bounded buffer (oldest evicted first) and
// kicks off a background retrain every RetrainEvery samples. Learn never
// blocks on retraining.
func (p *Predictor) Learn(s TrainingSample) {
	p.mu.Lock()
	if len(p.samples) < p.cfg.BufferCapacity {
		p.samples = append(p.samples, s)
	} else {
		p.samples[p.next] = s
		p.next = (p.next + 1) % p.cfg.BufferCapacity
	}
	p.mu.Unlock()

	total := p.totalSamples.Add(1)
	if total%int64(p.cfg.RetrainEvery) == 0 {
		if p.retraining.CompareAndSwap(false, true) {
			go p.retrain()
		}
	}
}

// SampleCount returns the number of samples observed since start.
func (p *Predictor) SampleCount() int64 { return p.totalSamples.Load() }

// Retrains returns how many retrains have completed.
func (p *Predictor) Retrains() int64 { return p.retrains.Load() }

// Weights returns the current weight snapshot, for introspection and tests.
func (p *Predictor) Weights() [numFeatures]float64 { return *p.weights.Load() }

// recentSamples copies out the newest n samples in arrival order.
func (p *Predictor) recentSamples(n int) []TrainingSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	size := len(p.samples)
	if n > size {
		n = size
	}
	out := make([]TrainingSample, 0, n)
	// The ring is ordered oldest-first starting at next once full; before
	// that, insertion order is arrival order.
	start := 0
	if size == p.cfg.BufferCapacity {
		start = p.next
	}
	for i := size - n; i < size; i++ {
		out = append(out, p.samples[(start+i)%size])
	}
	return out
}

// retrain recomputes feature/outcome correlations over the most recent
// window and publishes an adjusted weight snapshot. Runs on its own
// goroutine; in-flight Predict calls keep reading the old snapshot until the
// atomic swap.
func (p *Predictor) retrain() {
	defer p.retraining.Store(false)

	window := p.recentSamples(p.cfg.RetrainWindow)
	if len(window) < 2 {
		return
	}

	outcomes := make([]float64, len(window))
	for i, s := range window {
		if s.Success {
			outcomes[i] = 1
		}
	}

	old := *p.weights.Load()
	updated := old
	for feat := 0; feat < numFeatures; feat++ {
		values := make([]float64, len(window))
		for i, s := range window {
			values[i] = s.Features.array()[feat]
		}
		corr := pearson(values, outcomes)
		updated[feat] = clamp(old[feat]+retrainLearningRate*corr, -3, 3)
	}

	p.weights.Store(&updated)
	p.retrains.Add(1)
	logrus.Debugf("predictor retrain #%d over %d samples: weights %v -> %v",
		p.retrains.Load(), len(window), old, updated)
}

// pearson computes the Pearson correlation coefficient of two equal-length
// series. Returns 0 when either series has no variance.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	var meanX, meanY float64
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
