package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Request is one inbound request to be routed. The payload is opaque to the
// router; Method is an opaque type tag used only for feature extraction.
type Request struct {
	ID                   string
	Method               string
	RequiredCapabilities []string
	Payload              any
}

// RouteResult reports which endpoint served a request and how long it took.
type RouteResult struct {
	Result     any
	EndpointID string
	LatencyMs  float64

	// ServedFromCache is reserved for dispatchers fronted by a result
	// cache; this subsystem itself never caches results.
	ServedFromCache bool
}

// RoutingStats is the read-only introspection surface.
type RoutingStats struct {
	TotalRequests         int64
	SuccessRate           float64
	AverageResponseTimeMs float64
	BreakerStates         map[string]BreakerState
}

// Router orchestrates endpoint selection. It owns no mutable per-endpoint
// state of its own; everything it reads comes from snapshots of the owning
// components, and every dispatch outcome is fed back into them exactly once.
type Router struct {
	cfg        Config
	registry   Registry
	dispatcher Dispatcher
	clock      clock.Clock

	metrics   *MetricsStore
	breakers  *BreakerRegistry
	shaper    *TrafficShaper
	predictor *Predictor
	decisions *DecisionLog
	prom      *promMetrics
}

// New creates a router on the wall clock.
func New(cfg Config, registry Registry, dispatcher Dispatcher) (*Router, error) {
	return NewWithClock(cfg, registry, dispatcher, clock.New())
}

// NewWithClock creates a router on an injected clock. Tests use a mock clock
// to drive breaker timeouts and shaper windows deterministically.
func NewWithClock(cfg Config, registry Registry, dispatcher Dispatcher, clk clock.Clock) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid router config: %w", err)
	}
	decisions, err := NewDecisionLog(cfg.DecisionLogSize)
	if err != nil {
		return nil, fmt.Errorf("creating decision log: %w", err)
	}
	return &Router{
		cfg:        cfg,
		registry:   registry,
		dispatcher: dispatcher,
		clock:      clk,
		metrics:    NewMetricsStore(clk),
		breakers:   NewBreakerRegistry(cfg.Breaker, clk),
		shaper:     NewTrafficShaper(cfg.Shaper, clk),
		predictor:  NewPredictor(cfg.Predictor),
		decisions:  decisions,
		prom:       newPromMetrics(),
	}, nil
}

// Route selects the best endpoint for the request, dispatches, and feeds the
// observed outcome back into the metrics store, circuit breaker, and
// predictor before returning. At most one dispatch per call; retries belong
// to the caller.
func (r *Router) Route(ctx context.Context, req Request) (RouteResult, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	candidates, err := r.filterCandidates(req)
	if err != nil {
		return RouteResult{}, err
	}

	winner, features, decision := r.selectEndpoint(req, candidates)
	r.decisions.Record(decision)
	logrus.Debugf("request %s: %s -> %s", req.ID, decision.Reason, winner.ID)

	// Advisory backpressure: the shaper's delay is the only intentional
	// suspension point inside the hot path besides the dispatch itself.
	if delay := r.shaper.Admit(winner.ID); delay > 0 {
		logrus.Debugf("request %s: endpoint %s throttled, delaying %v", req.ID, winner.ID, delay)
		if err := r.wait(ctx, delay); err != nil {
			// Timed out while awaiting dispatch: still a failure outcome.
			r.feedback(winner.ID, features, false, 0)
			return RouteResult{}, dispatchError(err, true)
		}
	}

	dctx := ctx
	if r.cfg.RequestTimeoutMs > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.RequestTimeoutMs)*time.Millisecond)
		defer cancel()
	}

	r.metrics.BeginRequest(winner.ID)
	start := r.clock.Now()
	result, dispatchErr := r.dispatcher.Dispatch(dctx, winner.ID, req.Payload)
	latencyMs := float64(r.clock.Now().Sub(start)) / float64(time.Millisecond)
	r.metrics.EndRequest(winner.ID)

	success := dispatchErr == nil
	r.feedback(winner.ID, features, success, latencyMs)

	if dispatchErr != nil {
		timedOut := errors.Is(dispatchErr, context.DeadlineExceeded) ||
			errors.Is(dctx.Err(), context.DeadlineExceeded)
		return RouteResult{}, dispatchError(dispatchErr, timedOut)
	}

	return RouteResult{
		Result:     result,
		EndpointID: winner.ID,
		LatencyMs:  latencyMs,
	}, nil
}

// filterCandidates narrows the registry's endpoints down to active,
// capability-matching, breaker-admissible candidates sorted by id.
func (r *Router) filterCandidates(req Request) ([]Endpoint, error) {
	var viable []Endpoint
	for _, ep := range r.registry.ListEndpoints() {
		if ep.Status != StatusActive {
			continue
		}
		if !ep.HasCapabilities(req.RequiredCapabilities) {
			continue
		}
		viable = append(viable, ep)
	}
	if len(viable) == 0 {
		return nil, fmt.Errorf("%w: no active endpoint matches capabilities %v",
			ErrNoAvailableEndpoint, req.RequiredCapabilities)
	}

	admissible := viable[:0]
	for _, ep := range viable {
		if r.breakers.Admissible(ep.ID) {
			admissible = append(admissible, ep)
		}
	}
	if len(admissible) == 0 {
		return nil, fmt.Errorf("%w: all %d viable endpoints are gated",
			ErrEndpointRejected, len(viable))
	}

	// Stable id order makes score ties deterministic.
	sort.Slice(admissible, func(i, j int) bool { return admissible[i].ID < admissible[j].ID })
	return admissible, nil
}

// selectEndpoint picks the winner among candidates. A single candidate is
// selected directly without scoring (fast path); otherwise the composite
// score decides, ties broken by id order (strict > over the sorted slice).
func (r *Router) selectEndpoint(req Request, candidates []Endpoint) (Endpoint, FeatureVector, RoutingDecision) {
	now := r.clock.Now()

	if len(candidates) == 1 {
		winner := candidates[0]
		features := featuresFor(r.cfg.Scoring, winner, r.metrics.Metrics(winner.ID), req.Method, now)
		return winner, features, RoutingDecision{
			RequestID:  req.ID,
			EndpointID: winner.ID,
			Reason:     "fast-path (single candidate)",
			Timestamp:  now,
		}
	}

	scores := make(map[string]float64, len(candidates))
	featuresByID := make(map[string]FeatureVector, len(candidates))
	bestIdx := 0
	bestScore := -1.0
	for i, ep := range candidates {
		m := r.metrics.Metrics(ep.ID)
		features := featuresFor(r.cfg.Scoring, ep, m, req.Method, now)
		featuresByID[ep.ID] = features
		confidence := r.predictor.Predict(features)
		score := compositeScore(r.cfg.Scoring, ep, m, confidence, true)
		scores[ep.ID] = score
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	winner := candidates[bestIdx]
	return winner, featuresByID[winner.ID], RoutingDecision{
		RequestID:  req.ID,
		EndpointID: winner.ID,
		Scores:     scores,
		Reason:     fmt.Sprintf("weighted-scoring (score=%.3f over %d candidates)", bestScore, len(candidates)),
		Timestamp:  now,
	}
}

// feedback applies the outcome to all three learners. Called exactly once
// per routed request, on success and failure paths alike, before the result
// or error is returned to the caller.
func (r *Router) feedback(endpointID string, features FeatureVector, success bool, latencyMs float64) {
	r.metrics.RecordOutcome(endpointID, success, latencyMs)
	r.breakers.RecordOutcome(endpointID, success)
	r.predictor.Learn(TrainingSample{
		Features:       features,
		Success:        success,
		ResponseTimeMs: latencyMs,
	})
	r.prom.observe(endpointID, success, latencyMs, r.breakers.State(endpointID))
}

// wait blocks for the shaper's advisory delay, honoring cancellation.
func (r *Router) wait(ctx context.Context, delay time.Duration) error {
	timer := r.clock.Timer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetRoutingStats returns aggregate counters and per-endpoint breaker states.
func (r *Router) GetRoutingStats() RoutingStats {
	requests, errCount, avgMs := r.metrics.Totals()
	stats := RoutingStats{
		TotalRequests:         requests,
		AverageResponseTimeMs: avgMs,
		BreakerStates:         r.breakers.States(),
	}
	if requests > 0 {
		stats.SuccessRate = float64(requests-errCount) / float64(requests)
	}
	return stats
}

// RecentDecisions returns the retained routing decisions, oldest first.
func (r *Router) RecentDecisions() []RoutingDecision {
	return r.decisions.Recent()
}

// EndpointMetrics returns the metrics snapshot for one endpoint.
func (r *Router) EndpointMetrics(id string) EndpointMetrics {
	return r.metrics.Metrics(id)
}
