package cmd

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/routecast/routecast/router"
)

var (
	demoRequests    int
	demoConcurrency int
	demoSeed        int64
)

// demoBackend models one synthetic endpoint behind the demo dispatcher.
type demoBackend struct {
	baseLatency time.Duration
	jitter      time.Duration
	failureRate float64
}

// demoDispatcher simulates backend dispatch with per-endpoint latency and
// failure characteristics, standing in for the real execution layer.
type demoDispatcher struct {
	mu       sync.Mutex
	rng      *rand.Rand
	backends map[string]demoBackend
}

func (d *demoDispatcher) Dispatch(ctx context.Context, endpointID string, payload any) (any, error) {
	b, ok := d.backends[endpointID]
	if !ok {
		return nil, errors.New("unknown endpoint")
	}

	d.mu.Lock()
	latency := b.baseLatency + time.Duration(d.rng.Int63n(int64(b.jitter)+1))
	failed := d.rng.Float64() < b.failureRate
	d.mu.Unlock()

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if failed {
		return nil, errors.New("backend error")
	}
	return "ok", nil
}

// demoCmd drives synthetic traffic through the router and reports stats.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Route synthetic traffic through an in-memory endpoint set",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		registry := &router.StaticRegistry{Endpoints: []router.Endpoint{
			{ID: "search-fast", Capabilities: []string{"search"}, Status: router.StatusActive, Health: router.HealthHealthy},
			{ID: "search-slow", Capabilities: []string{"search"}, Status: router.StatusActive, Health: router.HealthDegraded},
			{ID: "files-1", Capabilities: []string{"file-operations"}, Status: router.StatusActive, Health: router.HealthHealthy},
			{ID: "mixed-1", Capabilities: []string{"search", "file-operations"}, Status: router.StatusActive, Health: router.HealthHealthy},
		}}
		dispatcher := &demoDispatcher{
			rng: rand.New(rand.NewSource(demoSeed)),
			backends: map[string]demoBackend{
				"search-fast": {baseLatency: 20 * time.Millisecond, jitter: 10 * time.Millisecond, failureRate: 0.01},
				"search-slow": {baseLatency: 250 * time.Millisecond, jitter: 100 * time.Millisecond, failureRate: 0.15},
				"files-1":     {baseLatency: 40 * time.Millisecond, jitter: 20 * time.Millisecond, failureRate: 0.05},
				"mixed-1":     {baseLatency: 60 * time.Millisecond, jitter: 30 * time.Millisecond, failureRate: 0.02},
			},
		}

		rt, err := router.New(cfg, registry, dispatcher)
		if err != nil {
			logrus.Fatalf("Failed to create router: %v", err)
		}
		if err := rt.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			logrus.Fatalf("Failed to register metrics: %v", err)
		}

		logrus.Infof("Routing %d requests across %d endpoints (concurrency=%d)",
			demoRequests, len(registry.Endpoints), demoConcurrency)
		start := time.Now()

		methods := []struct {
			name string
			caps []string
		}{
			{"search/query", []string{"search"}},
			{"files/read", []string{"file-operations"}},
			{"files/write", []string{"file-operations"}},
		}

		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(demoConcurrency)
		for i := 0; i < demoRequests; i++ {
			m := methods[i%len(methods)]
			g.Go(func() error {
				res, err := rt.Route(ctx, router.Request{
					Method:               m.name,
					RequiredCapabilities: m.caps,
				})
				if err != nil {
					logrus.Debugf("route %s failed: %v", m.name, err)
					return nil // demo keeps going through individual failures
				}
				logrus.Debugf("route %s -> %s in %.1fms", m.name, res.EndpointID, res.LatencyMs)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			logrus.Fatalf("Demo aborted: %v", err)
		}

		stats := rt.GetRoutingStats()
		logrus.Infof("Done in %v: %d requests, success rate %.1f%%, avg latency %.1fms",
			time.Since(start).Round(time.Millisecond),
			stats.TotalRequests, stats.SuccessRate*100, stats.AverageResponseTimeMs)
		for id, state := range stats.BreakerStates {
			logrus.Infof("  breaker %s: %s", id, state)
		}
		for _, d := range rt.RecentDecisions()[:min(5, len(rt.RecentDecisions()))] {
			logrus.Debugf("  decision %s -> %s (%s)", d.RequestID, d.EndpointID, d.Reason)
		}
	},
}

func init() {
	demoCmd.Flags().IntVar(&demoRequests, "requests", 500, "Number of synthetic requests to route")
	demoCmd.Flags().IntVar(&demoConcurrency, "concurrency", 16, "Concurrent in-flight requests")
	demoCmd.Flags().Int64Var(&demoSeed, "seed", 42, "Seed for synthetic latency/failure generation")
}
