package slo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestTracker(targets Targets) (*Tracker, *time.Time) {
	tr := NewTracker(zap.NewNop(), targets)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return clock }
	tr.windowStart = clock
	return tr, &clock
}

func TestBurnRateZeroWhenNoViolations(t *testing.T) {
	tr, _ := newTestTracker(Targets{})

	for i := 0; i < 10; i++ {
		tr.Record(200, 0.95, false)
	}

	s := tr.Snapshot()
	assert.Equal(t, 10, s.Total)
	assert.Zero(t, s.LatencyBurnRate)
	assert.Zero(t, s.QualityBurnRate)
}

func TestBurnRateDoublesWithViolationRate(t *testing.T) {
	tr, _ := newTestTracker(Targets{LatencyBudget: 0.1})
	for i := 0; i < 9; i++ {
		tr.Record(100, 0.9, false)
	}
	tr.Record(2000, 0.9, false)
	one := tr.Snapshot().LatencyBurnRate

	tr2, _ := newTestTracker(Targets{LatencyBudget: 0.1})
	for i := 0; i < 8; i++ {
		tr2.Record(100, 0.9, false)
	}
	tr2.Record(2000, 0.9, false)
	tr2.Record(2000, 0.9, false)
	two := tr2.Snapshot().LatencyBurnRate

	assert.InDelta(t, 2*one, two, 1e-9)
}

func TestBurnRateZeroBudgetIsInfinite(t *testing.T) {
	tr, _ := newTestTracker(Targets{LatencyBudget: 0, QualityBudget: 0})

	tr.Record(5000, 0.95, false)

	s := tr.Snapshot()
	assert.True(t, math.IsInf(s.LatencyBurnRate, 1))
	assert.Zero(t, s.QualityBurnRate)
}

func TestQualityViolationCounting(t *testing.T) {
	tr, _ := newTestTracker(Targets{})

	tr.Record(100, 0.5, false)
	tr.Record(100, 0.9, false)
	// Zero quality means the request never produced a response; it must
	// not count against the quality objective.
	tr.Record(100, 0, false)

	s := tr.Snapshot()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.QualityViolations)
}

func TestAdmitRateLimits(t *testing.T) {
	tr, _ := newTestTracker(Targets{RateLimit: 3})

	for i := 1; i <= 3; i++ {
		count, limited := tr.Admit("client-a")
		assert.Equal(t, i, count)
		assert.False(t, limited)
	}

	count, limited := tr.Admit("client-a")
	assert.Equal(t, 4, count)
	assert.True(t, limited)

	// Another client has its own budget.
	_, limited = tr.Admit("client-b")
	assert.False(t, limited)
}

func TestWindowRollover(t *testing.T) {
	tr, clock := newTestTracker(Targets{RateLimit: 2, Window: time.Minute})

	tr.Admit("client-a")
	tr.Admit("client-a")
	_, limited := tr.Admit("client-a")
	assert.True(t, limited)
	tr.Record(2000, 0.4, true)

	*clock = clock.Add(61 * time.Second)

	_, limited = tr.Admit("client-a")
	assert.False(t, limited, "rate limit must clear after rollover")

	s := tr.Snapshot()
	assert.Zero(t, s.Total)
	assert.Zero(t, s.LatencyViolations)
	assert.Zero(t, s.QualityViolations)
	assert.Zero(t, s.Errored)
	assert.Equal(t, 1, s.ActiveClients)
}

func TestSnapshotAvgLatency(t *testing.T) {
	tr, _ := newTestTracker(Targets{})

	tr.Record(100, 0.9, false)
	tr.Record(300, 0.9, false)

	assert.InDelta(t, 200, tr.Snapshot().AvgLatencyMs, 1e-9)
}

func TestDefaults(t *testing.T) {
	tr := NewTracker(zap.NewNop(), Targets{})
	got := tr.Targets()

	assert.Equal(t, DefaultLatencyTargetMs, got.LatencyTargetMs)
	assert.Equal(t, DefaultQualityTarget, got.QualityTarget)
	assert.Equal(t, DefaultWindow, got.Window)
	assert.Equal(t, DefaultRateLimit, got.RateLimit)
}
