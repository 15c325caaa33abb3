package router

import (
	"hash/fnv"
	"time"
)

// healthScore is a 3-level step function over the registry-declared health
// state. It deliberately ignores measured metrics; measured performance has
// its own scoring term.
func healthScore(h HealthState) float64 {
	switch h {
	case HealthHealthy:
		return 1.0
	case HealthDegraded:
		return 0.5
	default:
		return 0.0
	}
}

// compositeScore combines health, performance, availability, predictor
// confidence, and load into one score in [0,1].
//
// The weighted terms intentionally sum past 1 with the historical weights
// (see ScoringConfig); the result is clamped, not renormalized. A breaker
// rejection is a hard veto: the score is 0 no matter what the other terms
// say, so a gated endpoint can never win a scoring round.
func compositeScore(cfg ScoringConfig, ep Endpoint, m EndpointMetrics, confidence float64, admissible bool) float64 {
	if !admissible {
		return 0
	}

	performance := clamp(1-m.AvgResponseTimeMs/cfg.MaxResponseTimeMs, 0, 1)

	maxConns := ep.MaxConnections
	if maxConns <= 0 {
		maxConns = cfg.DefaultMaxConnections
	}
	loadFactor := 1 - float64(m.InFlight)/float64(maxConns)
	if loadFactor < 0.1 {
		loadFactor = 0.1
	}

	score := cfg.HealthWeight*healthScore(ep.Health) +
		cfg.PerformanceWeight*performance +
		cfg.AvailabilityWeight*m.SuccessRate() +
		cfg.ConfidenceWeight*confidence +
		cfg.LoadWeight*loadFactor

	return clamp(score, 0, 1)
}

// featuresFor builds the predictor input for one candidate endpoint. All
// features are normalized to [0,1] using the same bounds as scoring.
func featuresFor(cfg ScoringConfig, ep Endpoint, m EndpointMetrics, method string, now time.Time) FeatureVector {
	maxConns := ep.MaxConnections
	if maxConns <= 0 {
		maxConns = cfg.DefaultMaxConnections
	}
	return FeatureVector{
		ResponseTime: clamp(m.AvgResponseTimeMs/cfg.MaxResponseTimeMs, 0, 1),
		SuccessRate:  m.SuccessRate(),
		Load:         clamp(float64(m.InFlight)/float64(maxConns), 0, 1),
		TimeOfDay:    timeOfDay(now),
		RequestType:  requestTypeCode(method),
	}
}

// timeOfDay maps a timestamp to the fraction of the day elapsed.
func timeOfDay(t time.Time) float64 {
	return float64(t.Hour()*3600+t.Minute()*60+t.Second()) / (24 * 3600)
}

// requestTypeCode maps an opaque method tag to a stable value in [0,1] so
// the predictor can learn per-method patterns without a method vocabulary.
func requestTypeCode(method string) float64 {
	h := fnv.New32a()
	h.Write([]byte(method))
	return float64(h.Sum32()%101) / 100
}
