package router

import "context"

// EndpointStatus is the lifecycle status declared by the registry.
// The router only reads status; it never creates or destroys endpoints.
type EndpointStatus string

const (
	StatusActive   EndpointStatus = "active"
	StatusInactive EndpointStatus = "inactive"
)

// HealthState is the health level declared by the registry for an endpoint.
// Health is an input to scoring, not something the router derives from its
// own metrics.
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// Endpoint is a backend service endpoint as reported by the registry.
type Endpoint struct {
	ID           string
	Capabilities []string // declared capability tags, e.g. "search", "file-operations"
	Status       EndpointStatus
	Health       HealthState

	// MaxConnections is the declared concurrent-request capacity, used by
	// the load-factor scoring term. Zero means "use the configured default".
	MaxConnections int
}

// HasCapabilities reports whether the endpoint's declared capability set is
// a superset of required. An empty requirement matches every endpoint.
func (e Endpoint) HasCapabilities(required []string) bool {
	if len(required) == 0 {
		return true
	}
	declared := make(map[string]bool, len(e.Capabilities))
	for _, c := range e.Capabilities {
		declared[c] = true
	}
	for _, c := range required {
		if !declared[c] {
			return false
		}
	}
	return true
}

// Registry reports which endpoints exist together with their declared
// capabilities, lifecycle status, and health. It is an external collaborator;
// the router treats its output as authoritative on every call.
type Registry interface {
	ListEndpoints() []Endpoint
}

// Dispatcher executes the actual proxied call against a chosen endpoint.
// The router treats the payload and result as opaque and only measures
// wall-clock latency and success/failure around the call.
type Dispatcher interface {
	Dispatch(ctx context.Context, endpointID string, payload any) (any, error)
}

// StaticRegistry is a fixed in-memory Registry, useful for tests and for
// the demo command where the endpoint set is known up front.
type StaticRegistry struct {
	Endpoints []Endpoint
}

// ListEndpoints implements Registry.
func (r *StaticRegistry) ListEndpoints() []Endpoint {
	out := make([]Endpoint, len(r.Endpoints))
	copy(out, r.Endpoints)
	return out
}
