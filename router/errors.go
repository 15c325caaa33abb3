package router

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Route. All of them are surfaced to the caller
// after local bookkeeping (metrics, breaker, predictor) has been applied;
// the router never retries internally, since blind retries would double-count
// traffic against the shaper and bias the predictor.
var (
	// ErrNoAvailableEndpoint means every endpoint was filtered out by
	// status or capability matching.
	ErrNoAvailableEndpoint = errors.New("no available endpoint")

	// ErrEndpointRejected means viable candidates existed but the circuit
	// breaker currently rejects all of them.
	ErrEndpointRejected = errors.New("endpoint rejected by circuit breaker")

	// ErrDispatchFailed wraps an error returned by the Dispatcher.
	ErrDispatchFailed = errors.New("dispatch failed")

	// ErrTimeout means the request-level timeout elapsed while awaiting
	// dispatch. Treated identically to ErrDispatchFailed for feedback.
	ErrTimeout = errors.New("request timed out")
)

// dispatchError wraps a dispatcher failure under the appropriate sentinel.
func dispatchError(cause error, timedOut bool) error {
	if timedOut {
		return fmt.Errorf("%w: %v", ErrTimeout, cause)
	}
	return fmt.Errorf("%w: %v", ErrDispatchFailed, cause)
}
