// Package router implements adaptive request routing across backend
// endpoints with heterogeneous health and performance.
//
// # Reading Guide
//
// Start with these three files to understand the dispatch loop:
//   - endpoint.go: Endpoint model and the Registry/Dispatcher collaborator interfaces
//   - router.go: The per-request pipeline (filter → score → admit → dispatch → feedback)
//   - scoring.go: The composite scoring function and its hard breaker veto
//
// # Architecture
//
// Each piece of per-endpoint mutable state has exactly one owning component,
// and all synchronization is internal to that component:
//   - MetricsStore (metrics.go): rolling latency EMA, counters, in-flight gauge
//   - BreakerRegistry (breaker.go): Closed/Open/HalfOpen failure gating
//   - TrafficShaper (shaper.go): fixed-window admission control
//   - Predictor (predictor.go): online linear score model with background retrain
//
// The Router itself holds no mutable endpoint state; it reads snapshots from
// the owning components, picks a winner, dispatches through the external
// Dispatcher, and feeds the observed outcome back into all three learners.
// Data flows in a closed loop: route → dispatch → outcome → {metrics,
// breaker, predictor} → next routing decision.
//
// Time is injected via benbjohnson/clock so breaker timeouts and shaper
// windows are testable against a mock clock.
package router
