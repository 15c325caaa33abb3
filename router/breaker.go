package router

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// BreakerState is one of the three circuit breaker states.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// String returns the lowercase state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker is the per-endpoint state machine record.
type breaker struct {
	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures int
	lastFailureAt       time.Time
	halfOpenSuccesses   int
}

// BreakerRegistry owns one circuit breaker per endpoint. Breakers only gate
// traffic; no endpoint is ever removed by the registry.
//
// The Open→HalfOpen transition happens lazily when Admissible is queried
// after the open timeout elapses. There is no background timer, and an Open
// breaker never skips straight to Closed.
type BreakerRegistry struct {
	cfg   BreakerConfig
	clock clock.Clock

	mu       sync.RWMutex // guards the breaker table, not the records
	breakers map[string]*breaker
}

// NewBreakerRegistry creates an empty registry.
func NewBreakerRegistry(cfg BreakerConfig, clk clock.Clock) *BreakerRegistry {
	return &BreakerRegistry{
		cfg:      cfg,
		clock:    clk,
		breakers: make(map[string]*breaker),
	}
}

func (r *BreakerRegistry) get(id string) *breaker {
	r.mu.RLock()
	b, ok := r.breakers[id]
	r.mu.RUnlock()
	if ok {
		return b
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.breakers[id]; ok {
		return b
	}
	b = &breaker{state: BreakerClosed}
	r.breakers[id] = b
	return b
}

// Admissible reports whether traffic may be sent to the endpoint. It is a
// pure read except for the lazy Open→HalfOpen transition, the only side
// effect permitted inside a query.
func (r *BreakerRegistry) Admissible(id string) bool {
	b := r.get(id)
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if r.clock.Now().Sub(b.lastFailureAt) > r.cfg.Timeout() {
			b.state = BreakerHalfOpen
			b.halfOpenSuccesses = 0
			logrus.Infof("breaker %s: open timeout elapsed, entering half-open trial", id)
			return true
		}
		return false
	default:
		return false
	}
}

// RecordOutcome feeds one dispatch outcome into the endpoint's breaker.
func (r *BreakerRegistry) RecordOutcome(id string, success bool) {
	b := r.get(id)
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		switch b.state {
		case BreakerClosed:
			b.consecutiveFailures = 0
		case BreakerHalfOpen:
			b.halfOpenSuccesses++
			if b.halfOpenSuccesses >= r.cfg.HalfOpenSuccesses {
				b.state = BreakerClosed
				b.consecutiveFailures = 0
				b.halfOpenSuccesses = 0
				logrus.Infof("breaker %s: half-open trial passed, closing", id)
			}
		}
		return
	}

	switch b.state {
	case BreakerClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= r.cfg.FailureThreshold {
			b.state = BreakerOpen
			b.lastFailureAt = r.clock.Now()
			logrus.Warnf("breaker %s: %d consecutive failures, opening", id, b.consecutiveFailures)
		}
	case BreakerHalfOpen:
		// One failure during the trial reopens immediately.
		b.state = BreakerOpen
		b.lastFailureAt = r.clock.Now()
		b.halfOpenSuccesses = 0
		logrus.Warnf("breaker %s: half-open trial failed, reopening", id)
	case BreakerOpen:
		b.lastFailureAt = r.clock.Now()
	}
}

// State returns the endpoint's current breaker state without triggering the
// lazy transition. Unknown ids report Closed.
func (r *BreakerRegistry) State(id string) BreakerState {
	r.mu.RLock()
	b, ok := r.breakers[id]
	r.mu.RUnlock()
	if !ok {
		return BreakerClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// States returns the breaker state of every endpoint seen so far.
func (r *BreakerRegistry) States() map[string]BreakerState {
	r.mu.RLock()
	ids := make([]string, 0, len(r.breakers))
	for id := range r.breakers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	out := make(map[string]BreakerState, len(ids))
	for _, id := range ids {
		out[id] = r.State(id)
	}
	return out
}
