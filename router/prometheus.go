package router

import (
	"github.com/prometheus/client_golang/prometheus"
)

// promMetrics holds the Prometheus collectors the router observes into.
// Export only: routing decisions never consult these.
type promMetrics struct {
	requestsTotal *prometheus.CounterVec
	latencyMs     *prometheus.HistogramVec
	breakerState  *prometheus.GaugeVec
}

func newPromMetrics() *promMetrics {
	return &promMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routecast",
			Name:      "requests_total",
			Help:      "Routed requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		latencyMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "routecast",
			Name:      "dispatch_latency_ms",
			Help:      "Dispatch wall-clock latency in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // 1ms .. ~8s
		}, []string{"endpoint"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "routecast",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per endpoint (0=closed, 1=open, 2=half-open).",
		}, []string{"endpoint"}),
	}
}

// observe records one dispatch outcome.
func (p *promMetrics) observe(endpointID string, success bool, latencyMs float64, state BreakerState) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	p.requestsTotal.WithLabelValues(endpointID, outcome).Inc()
	p.latencyMs.WithLabelValues(endpointID).Observe(latencyMs)
	p.breakerState.WithLabelValues(endpointID).Set(float64(state))
}

// RegisterMetrics registers the router's Prometheus collectors with pr.
// Call at most once per registerer.
func (r *Router) RegisterMetrics(pr prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		r.prom.requestsTotal,
		r.prom.latencyMs,
		r.prom.breakerState,
	} {
		if err := pr.Register(c); err != nil {
			return err
		}
	}
	return nil
}
