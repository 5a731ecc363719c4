package slo

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default objectives and window sizing.
const (
	DefaultLatencyTargetMs = 1000.0
	DefaultQualityTarget   = 0.8
	DefaultLatencyBudget   = 0.05
	DefaultQualityBudget   = 0.10
	DefaultWindow          = time.Minute
	DefaultRateLimit       = 100
)

// Targets configures the tracker. Budgets are the tolerated violation
// fraction per window; the burn rate reports observed violations against
// them.
type Targets struct {
	LatencyTargetMs float64       `json:"latency_target_ms"`
	QualityTarget   float64       `json:"quality_target"`
	LatencyBudget   float64       `json:"latency_budget"`
	QualityBudget   float64       `json:"quality_budget"`
	Window          time.Duration `json:"window_ns"`
	RateLimit       int           `json:"rate_limit"`
}

func (t Targets) withDefaults() Targets {
	if t.LatencyTargetMs <= 0 {
		t.LatencyTargetMs = DefaultLatencyTargetMs
	}
	if t.QualityTarget <= 0 {
		t.QualityTarget = DefaultQualityTarget
	}
	if t.Window <= 0 {
		t.Window = DefaultWindow
	}
	if t.RateLimit <= 0 {
		t.RateLimit = DefaultRateLimit
	}
	// A zero budget is legal; it means any violation burns infinitely.
	return t
}

// Stats is a point-in-time view of the current window.
type Stats struct {
	WindowStart       time.Time `json:"window_start"`
	Total             int       `json:"total"`
	LatencyViolations int       `json:"latency_violations"`
	QualityViolations int       `json:"quality_violations"`
	Errored           int       `json:"errored"`
	AvgLatencyMs      float64   `json:"avg_latency_ms"`
	LatencyBurnRate   float64   `json:"latency_burn_rate"`
	QualityBurnRate   float64   `json:"quality_burn_rate"`
	ActiveClients     int       `json:"active_clients"`
}

// Tracker accumulates per-window SLO counters and per-client request
// counts. The window rolls over atomically: a reader either sees the old
// window complete or the new one empty, never a mix.
type Tracker struct {
	logger  *zap.Logger
	targets Targets
	now     func() time.Time

	mu                sync.Mutex
	windowStart       time.Time
	total             int
	latencyViolations int
	qualityViolations int
	errored           int
	latencySumMs      float64
	perClient         map[string]int
}

// NewTracker builds a tracker with zeroed counters and the current time as
// window start.
func NewTracker(logger *zap.Logger, targets Targets) *Tracker {
	t := &Tracker{
		logger:    logger,
		targets:   targets.withDefaults(),
		now:       time.Now,
		perClient: make(map[string]int),
	}
	t.windowStart = t.now()
	return t
}

// Admit counts one arrival for the client and reports whether it exceeds
// the per-window budget. The arrival that crosses the limit is itself
// rejected.
func (t *Tracker) Admit(clientKey string) (count int, limited bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	t.perClient[clientKey]++
	count = t.perClient[clientKey]
	return count, count > t.targets.RateLimit
}

// Record folds one finished request into the window counters. Blocked
// requests are recorded too; their latency is the decision latency.
func (t *Tracker) Record(latencyMs, quality float64, errored bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	t.total++
	t.latencySumMs += latencyMs
	if latencyMs > t.targets.LatencyTargetMs {
		t.latencyViolations++
	}
	if quality > 0 && quality < t.targets.QualityTarget {
		t.qualityViolations++
	}
	if errored {
		t.errored++
	}
}

// Snapshot returns the current window's stats.
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rolloverLocked()

	s := Stats{
		WindowStart:       t.windowStart,
		Total:             t.total,
		LatencyViolations: t.latencyViolations,
		QualityViolations: t.qualityViolations,
		Errored:           t.errored,
		ActiveClients:     len(t.perClient),
	}
	if t.total > 0 {
		s.AvgLatencyMs = t.latencySumMs / float64(t.total)
	}
	s.LatencyBurnRate = burnRate(t.latencyViolations, t.total, t.targets.LatencyBudget)
	s.QualityBurnRate = burnRate(t.qualityViolations, t.total, t.targets.QualityBudget)
	return s
}

// Targets exposes the effective configuration.
func (t *Tracker) Targets() Targets {
	return t.targets
}

func (t *Tracker) rolloverLocked() {
	now := t.now()
	if now.Sub(t.windowStart) < t.targets.Window {
		return
	}
	if t.logger != nil {
		t.logger.Debug("slo window rollover",
			zap.Time("window_start", t.windowStart),
			zap.Int("total", t.total),
			zap.Int("latency_violations", t.latencyViolations),
			zap.Int("quality_violations", t.qualityViolations))
	}
	t.windowStart = now
	t.total = 0
	t.latencyViolations = 0
	t.qualityViolations = 0
	t.errored = 0
	t.latencySumMs = 0
	t.perClient = make(map[string]int)
}

// burnRate is the observed violation rate divided by the tolerated budget.
// A zero budget with any violation burns infinitely rather than dividing
// by zero.
func burnRate(violations, total int, budget float64) float64 {
	if total == 0 || violations == 0 {
		return 0
	}
	rate := float64(violations) / float64(total)
	if budget <= 0 {
		return math.Inf(1)
	}
	return rate / budget
}
