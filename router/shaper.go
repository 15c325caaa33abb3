package router

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// shaperWindow is the per-endpoint fixed admission window.
type shaperWindow struct {
	mu            sync.Mutex
	windowStart   time.Time
	countInWindow int
}

// TrafficShaper applies fixed-window admission control per endpoint,
// independent of health state. It delays bursts, it never drops: admission
// beyond the window budget yields an advisory backpressure delay the caller
// must wait out before dispatching.
type TrafficShaper struct {
	cfg   ShaperConfig
	clock clock.Clock

	mu      sync.RWMutex // guards the window table, not the records
	windows map[string]*shaperWindow
}

// NewTrafficShaper creates a shaper with no open windows.
func NewTrafficShaper(cfg ShaperConfig, clk clock.Clock) *TrafficShaper {
	return &TrafficShaper{
		cfg:     cfg,
		clock:   clk,
		windows: make(map[string]*shaperWindow),
	}
}

func (t *TrafficShaper) get(id string) *shaperWindow {
	t.mu.RLock()
	w, ok := t.windows[id]
	t.mu.RUnlock()
	if ok {
		return w
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok = t.windows[id]; ok {
		return w
	}
	w = &shaperWindow{}
	t.windows[id] = w
	return w
}

// rollover resets the window if it has expired. Caller holds w.mu.
func (t *TrafficShaper) rollover(w *shaperWindow) {
	now := t.clock.Now()
	if w.windowStart.IsZero() || now.Sub(w.windowStart) > t.cfg.Window() {
		w.windowStart = now
		w.countInWindow = 0
	}
}

// ShouldThrottle reports whether the endpoint's current window budget is
// already spent. An expired window is reset and reports false.
func (t *TrafficShaper) ShouldThrottle(id string) bool {
	w := t.get(id)
	w.mu.Lock()
	defer w.mu.Unlock()
	t.rollover(w)
	return w.countInWindow >= t.cfg.ProcessingRate
}

// Admit counts one request against the endpoint's window and returns the
// advisory delay the caller must wait before dispatching. The delay grows
// proportionally with how far past the budget the window is:
// baseDelay * (count/rate), with baseDelay = window/rate. Zero means proceed
// immediately.
func (t *TrafficShaper) Admit(id string) time.Duration {
	w := t.get(id)
	w.mu.Lock()
	defer w.mu.Unlock()
	t.rollover(w)
	w.countInWindow++
	if w.countInWindow <= t.cfg.ProcessingRate {
		return 0
	}
	baseDelay := t.cfg.Window() / time.Duration(t.cfg.ProcessingRate)
	return baseDelay * time.Duration(w.countInWindow) / time.Duration(t.cfg.ProcessingRate)
}
