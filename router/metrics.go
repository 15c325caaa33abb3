package router

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// emaAlpha is the smoothing factor for the response-time moving average:
// avg' = avg*(1-alpha) + sample*alpha.
const emaAlpha = 0.1

// EndpointMetrics is a point-in-time snapshot of one endpoint's rolling
// performance statistics. All fields are value copies; a snapshot never
// exposes a half-updated state.
type EndpointMetrics struct {
	AvgResponseTimeMs float64
	RequestCount      int64
	ErrorCount        int64
	InFlight          int
	LastUpdated       time.Time
}

// SuccessRate derives (requests - errors) / requests, or 0 with no requests.
func (m EndpointMetrics) SuccessRate() float64 {
	if m.RequestCount == 0 {
		return 0
	}
	return float64(m.RequestCount-m.ErrorCount) / float64(m.RequestCount)
}

// endpointMetrics is the mutable per-endpoint record. Guarded by its own
// mutex so unrelated endpoints never contend.
type endpointMetrics struct {
	mu sync.Mutex
	EndpointMetrics
}

// MetricsStore owns all per-endpoint rolling statistics. It is the only
// component that mutates them; everything else reads snapshots.
type MetricsStore struct {
	clock clock.Clock

	mu        sync.RWMutex // guards the endpoint table, not the records
	endpoints map[string]*endpointMetrics
}

// NewMetricsStore creates an empty store using the given clock.
func NewMetricsStore(clk clock.Clock) *MetricsStore {
	return &MetricsStore{
		clock:     clk,
		endpoints: make(map[string]*endpointMetrics),
	}
}

// get returns the record for id, creating it on first use.
func (s *MetricsStore) get(id string) *endpointMetrics {
	s.mu.RLock()
	m, ok := s.endpoints[id]
	s.mu.RUnlock()
	if ok {
		return m
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok = s.endpoints[id]; ok {
		return m
	}
	m = &endpointMetrics{}
	s.endpoints[id] = m
	return m
}

// BeginRequest increments the in-flight gauge at dispatch start.
func (s *MetricsStore) BeginRequest(id string) {
	m := s.get(id)
	m.mu.Lock()
	m.InFlight++
	m.mu.Unlock()
}

// EndRequest decrements the in-flight gauge at dispatch completion.
// The gauge never goes negative.
func (s *MetricsStore) EndRequest(id string) {
	m := s.get(id)
	m.mu.Lock()
	if m.InFlight > 0 {
		m.InFlight--
	}
	m.mu.Unlock()
}

// RecordOutcome folds one dispatch outcome into the endpoint's statistics.
// The first sample seeds the latency average; later samples are smoothed
// with emaAlpha.
func (s *MetricsStore) RecordOutcome(id string, success bool, latencyMs float64) {
	m := s.get(id)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RequestCount == 0 {
		m.AvgResponseTimeMs = latencyMs
	} else {
		m.AvgResponseTimeMs = m.AvgResponseTimeMs*(1-emaAlpha) + latencyMs*emaAlpha
	}
	m.RequestCount++
	if !success {
		m.ErrorCount++
	}
	m.LastUpdated = s.clock.Now()
}

// Metrics returns a snapshot for one endpoint. Unknown ids report zeroes.
func (s *MetricsStore) Metrics(id string) EndpointMetrics {
	s.mu.RLock()
	m, ok := s.endpoints[id]
	s.mu.RUnlock()
	if !ok {
		return EndpointMetrics{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EndpointMetrics
}

// Snapshot returns snapshots for every endpoint the store has seen.
func (s *MetricsStore) Snapshot() map[string]EndpointMetrics {
	s.mu.RLock()
	ids := make([]string, 0, len(s.endpoints))
	for id := range s.endpoints {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	out := make(map[string]EndpointMetrics, len(ids))
	for _, id := range ids {
		out[id] = s.Metrics(id)
	}
	return out
}

// Totals aggregates request count, error count, and a request-weighted mean
// of the per-endpoint latency averages, for stats reporting.
func (s *MetricsStore) Totals() (requests, errors int64, avgResponseTimeMs float64) {
	var weighted float64
	for _, m := range s.Snapshot() {
		requests += m.RequestCount
		errors += m.ErrorCount
		weighted += m.AvgResponseTimeMs * float64(m.RequestCount)
	}
	if requests > 0 {
		avgResponseTimeMs = weighted / float64(requests)
	}
	return requests, errors, avgResponseTimeMs
}
