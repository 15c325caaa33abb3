package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpoint_HasCapabilities(t *testing.T) {
	ep := Endpoint{ID: "ep1", Capabilities: []string{"search", "file-operations"}}

	tests := []struct {
		name     string
		required []string
		want     bool
	}{
		{"empty requirement matches", nil, true},
		{"single declared capability", []string{"search"}, true},
		{"full declared set", []string{"search", "file-operations"}, true},
		{"missing capability", []string{"completion"}, false},
		{"partial overlap is not enough", []string{"search", "completion"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ep.HasCapabilities(tt.required))
		})
	}
}

func TestStaticRegistry_ReturnsCopy(t *testing.T) {
	reg := &StaticRegistry{Endpoints: []Endpoint{{ID: "a"}, {ID: "b"}}}

	listed := reg.ListEndpoints()
	listed[0].ID = "mutated"

	assert.Equal(t, "a", reg.Endpoints[0].ID, "callers must not mutate registry state")
}
