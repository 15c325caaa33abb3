package router

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionLog_EvictsOldestFirst(t *testing.T) {
	log, err := NewDecisionLog(3)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		log.Record(RoutingDecision{RequestID: fmt.Sprintf("req-%d", i), EndpointID: "ep1"})
	}

	assert.Equal(t, 3, log.Len())
	_, ok := log.Get("req-0")
	assert.False(t, ok, "oldest decision must be evicted")
	_, ok = log.Get("req-4")
	assert.True(t, ok)

	recent := log.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "req-2", recent[0].RequestID)
	assert.Equal(t, "req-4", recent[2].RequestID)
}

func TestDecisionLog_RejectsNonPositiveSize(t *testing.T) {
	_, err := NewDecisionLog(0)
	assert.Error(t, err)
}
