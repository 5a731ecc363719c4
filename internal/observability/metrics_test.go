package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelops/aegisgate/models"
)

func TestObserveFindingsCountsDetections(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	findings := []models.Finding{
		{Kind: models.FindingPII, Type: "email", Confidence: 0.95},
		{Kind: models.FindingPII, Type: "email", Confidence: 0.95},
		{Kind: models.FindingPII, Type: "iban", Confidence: 0.9},
		{Kind: models.FindingSecurity, Type: string(models.AttackInjection), Confidence: 0.8},
		{Kind: models.FindingSecurity, Type: string(models.AttackJailbreak), Confidence: 0.6},
		{Kind: models.FindingDrift, Type: "baseline_distance", Confidence: 0.4,
			Evidence: models.Evidence{Dimension: string(models.DriftTopic)}},
	}

	m.ObserveFindings("baseline", findings)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PIIDetections.WithLabelValues("email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PIIDetections.WithLabelValues("iban")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InjectionAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JailbreakAttempts))
	assert.InDelta(t, 0.4, testutil.ToFloat64(m.DriftScore.WithLabelValues("baseline", "topic")), 1e-9)

	// Security score reflects the highest-confidence security finding.
	assert.InDelta(t, 0.2, testutil.ToFloat64(m.SecurityScore), 1e-9)
}

func TestObserveFindingsCleanPrompt(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveFindings("baseline", nil)

	assert.Zero(t, testutil.ToFloat64(m.InjectionAttempts))
	assert.Zero(t, testutil.ToFloat64(m.JailbreakAttempts))
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.SecurityScore), 1e-9)
}

func TestObserveError(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveError("timeout")
	m.ObserveError("timeout")
	m.ObserveError("validation")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestErrors.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestErrors.WithLabelValues("validation")))
}

func TestObserveSLI(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveSLI(false, 0.9, false, 0.5, 0.25)
	m.ObserveSLI(true, 0.7, true, 1.5, 2.0)
	// No scorable response; only the latency objective is counted.
	m.ObserveSLI(false, 0, false, 1.0, 2.0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SLILatencySuccess))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SLILatencyViolations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SLIQualitySuccess))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SLIQualityViolations))

	// Burn rates always track the latest snapshot.
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.SLOBurnRate.WithLabelValues("latency")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.SLOBurnRate.WithLabelValues("quality")), 1e-9)
}

func TestMetricNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveError("provider")
	m.ObserveSLI(true, 0.5, true, 1.0, 1.0)
	m.ObserveFindings("drift", []models.Finding{
		{Kind: models.FindingSecurity, Type: string(models.AttackInjection), Confidence: 0.9},
		{Kind: models.FindingSecurity, Type: string(models.AttackJailbreak), Confidence: 0.7},
		{Kind: models.FindingDrift, Type: "baseline_distance", Confidence: 0.8,
			Evidence: models.Evidence{Dimension: string(models.DriftDomain)}},
	})

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"ai_requests_error_total",
		"ai_prompt_injection_attempts_total",
		"ai_jailbreak_attempts_total",
		"ai_input_drift_score",
		"ai_sli_latency_success_total",
		"ai_sli_latency_violations_total",
		"ai_sli_quality_success_total",
		"ai_sli_quality_violations_total",
		"ai_slo_burn_rate",
	} {
		assert.True(t, names[want], "missing series %s", want)
	}
}
