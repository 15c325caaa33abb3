package router

import (
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_SuccessRateZeroRequests(t *testing.T) {
	store := NewMetricsStore(clock.NewMock())

	m := store.Metrics("never-seen")

	// 0 requests must report success rate 0, never NaN.
	assert.Equal(t, 0.0, m.SuccessRate())
	assert.False(t, m.SuccessRate() != m.SuccessRate(), "success rate must not be NaN")
}

func TestMetrics_EMASmoothing(t *testing.T) {
	store := NewMetricsStore(clock.NewMock())

	// First sample seeds the average directly.
	store.RecordOutcome("ep1", true, 100)
	assert.InDelta(t, 100.0, store.Metrics("ep1").AvgResponseTimeMs, 1e-9)

	// Subsequent samples smooth with alpha=0.1: 100*0.9 + 200*0.1 = 110.
	store.RecordOutcome("ep1", true, 200)
	assert.InDelta(t, 110.0, store.Metrics("ep1").AvgResponseTimeMs, 1e-9)
}

func TestMetrics_CountersAndSuccessRate(t *testing.T) {
	store := NewMetricsStore(clock.NewMock())

	store.RecordOutcome("ep1", true, 10)
	store.RecordOutcome("ep1", true, 10)
	store.RecordOutcome("ep1", false, 10)
	store.RecordOutcome("ep1", true, 10)

	m := store.Metrics("ep1")
	assert.Equal(t, int64(4), m.RequestCount)
	assert.Equal(t, int64(1), m.ErrorCount)
	assert.InDelta(t, 0.75, m.SuccessRate(), 1e-9)
}

func TestMetrics_InFlightNeverNegative(t *testing.T) {
	store := NewMetricsStore(clock.NewMock())

	store.BeginRequest("ep1")
	store.BeginRequest("ep1")
	assert.Equal(t, 2, store.Metrics("ep1").InFlight)

	store.EndRequest("ep1")
	store.EndRequest("ep1")
	store.EndRequest("ep1") // extra decrement must not go below zero
	assert.Equal(t, 0, store.Metrics("ep1").InFlight)
}

func TestMetrics_LastUpdatedUsesClock(t *testing.T) {
	mock := clock.NewMock()
	store := NewMetricsStore(mock)

	store.RecordOutcome("ep1", true, 5)

	assert.Equal(t, mock.Now(), store.Metrics("ep1").LastUpdated)
}

func TestMetrics_ConcurrentUpdates(t *testing.T) {
	store := NewMetricsStore(clock.NewMock())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.BeginRequest("ep1")
				store.RecordOutcome("ep1", j%2 == 0, float64(j))
				store.EndRequest("ep1")
			}
		}()
	}
	wg.Wait()

	m := store.Metrics("ep1")
	assert.Equal(t, int64(800), m.RequestCount)
	assert.Equal(t, int64(400), m.ErrorCount)
	assert.Equal(t, 0, m.InFlight)
}

func TestMetrics_Totals(t *testing.T) {
	store := NewMetricsStore(clock.NewMock())

	store.RecordOutcome("a", true, 100)
	store.RecordOutcome("b", false, 300)

	requests, errors, avg := store.Totals()
	assert.Equal(t, int64(2), requests)
	assert.Equal(t, int64(1), errors)
	assert.InDelta(t, 200.0, avg, 1e-9)
}
