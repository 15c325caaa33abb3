package router

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RoutingDecision records one routing outcome for introspection. Decisions
// are ephemeral: they feed the immediate feedback step and a bounded
// in-memory log, never persistence.
type RoutingDecision struct {
	RequestID  string
	EndpointID string
	Scores     map[string]float64 // per-candidate scores; nil on the fast path
	Reason     string
	Timestamp  time.Time
}

// DecisionLog keeps the most recent routing decisions in a bounded LRU,
// keyed by request ID. Oldest entries are evicted first.
type DecisionLog struct {
	cache *lru.Cache[string, RoutingDecision]
}

// NewDecisionLog creates a log bounded to size entries.
func NewDecisionLog(size int) (*DecisionLog, error) {
	cache, err := lru.New[string, RoutingDecision](size)
	if err != nil {
		return nil, err
	}
	return &DecisionLog{cache: cache}, nil
}

// Record stores a decision, evicting the oldest if the log is full.
func (l *DecisionLog) Record(d RoutingDecision) {
	l.cache.Add(d.RequestID, d)
}

// Get returns the decision for a request ID, if still retained.
func (l *DecisionLog) Get(requestID string) (RoutingDecision, bool) {
	return l.cache.Get(requestID)
}

// Recent returns retained decisions oldest-first.
func (l *DecisionLog) Recent() []RoutingDecision {
	keys := l.cache.Keys()
	out := make([]RoutingDecision, 0, len(keys))
	for _, k := range keys {
		if d, ok := l.cache.Peek(k); ok {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of retained decisions.
func (l *DecisionLog) Len() int { return l.cache.Len() }
