package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sentinelops/aegisgate/models"
)

// Metrics is the Prometheus instrument set for the request pipeline. All
// series use the ai_ prefix so dashboards can scope on it.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestErrors     *prometheus.CounterVec
	RequestLatency    prometheus.Histogram
	PIIDetections     *prometheus.CounterVec
	InjectionAttempts prometheus.Counter
	JailbreakAttempts prometheus.Counter
	GuardrailTriggers *prometheus.CounterVec
	TokensTotal       *prometheus.CounterVec
	CostTotal         prometheus.Counter

	QualityScore  prometheus.Gauge
	SecurityScore prometheus.Gauge
	TrustIndex    prometheus.Gauge
	DriftScore    *prometheus.GaugeVec

	SLILatencySuccess    prometheus.Counter
	SLILatencyViolations prometheus.Counter
	SLIQualitySuccess    prometheus.Counter
	SLIQualityViolations prometheus.Counter

	SLOBurnRate         *prometheus.GaugeVec
	RateLimitedTotal    prometheus.Counter
	UserSatisfaction    prometheus.Gauge
	ActiveConversations prometheus.Gauge
	BaselineVersion     prometheus.Gauge
	ConfigVersion       prometheus.Gauge

	ComplianceScore      *prometheus.GaugeVec
	ConversationTurns    prometheus.Histogram
	ConversationDuration prometheus.Histogram
}

// NewMetrics registers the instrument set on the given registerer. Pass a
// fresh registry in tests to keep them isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Requests processed, by scenario and outcome.",
		}, []string{"scenario", "outcome"}),
		RequestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_requests_error_total",
			Help: "Requests that failed before a response, by error type.",
		}, []string{"type"}),
		RequestLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ai_request_latency_seconds",
			Help:    "End to end request latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		PIIDetections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_pii_detections_total",
			Help: "PII instances detected, by category.",
		}, []string{"type"}),
		InjectionAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ai_prompt_injection_attempts_total",
			Help: "Prompts carrying prompt injection patterns.",
		}),
		JailbreakAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ai_jailbreak_attempts_total",
			Help: "Prompts carrying jailbreak patterns.",
		}),
		GuardrailTriggers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_guardrail_triggers_total",
			Help: "Guardrail rule triggers, by rule and action.",
		}, []string{"rule", "action"}),
		TokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Tokens consumed, by direction.",
		}, []string{"direction"}),
		CostTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ai_cost_eur_total",
			Help: "Accumulated estimated model spend in EUR.",
		}),
		QualityScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ai_quality_score",
			Help: "Quality score of the most recent served response.",
		}),
		SecurityScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ai_security_score",
			Help: "Security score of the most recent request.",
		}),
		TrustIndex: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ai_trust_index",
			Help: "Trust index of the most recent request.",
		}),
		DriftScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ai_input_drift_score",
			Help: "Drift distance of the most recent request, by scenario and dimension.",
		}, []string{"scenario", "dimension"}),
		SLILatencySuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "ai_sli_latency_success_total",
			Help: "Requests meeting the latency objective.",
		}),
		SLILatencyViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "ai_sli_latency_violations_total",
			Help: "Requests breaching the latency objective.",
		}),
		SLIQualitySuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "ai_sli_quality_success_total",
			Help: "Scored responses meeting the quality objective.",
		}),
		SLIQualityViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "ai_sli_quality_violations_total",
			Help: "Scored responses breaching the quality objective.",
		}),
		SLOBurnRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ai_slo_burn_rate",
			Help: "Error budget burn rate per SLO.",
		}, []string{"slo"}),
		RateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ai_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		UserSatisfaction: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ai_user_satisfaction",
			Help: "Rolling mean of user feedback ratings, normalized to [0,1].",
		}),
		ActiveConversations: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ai_active_conversations",
			Help: "Conversations with activity inside the retention window.",
		}),
		BaselineVersion: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ai_drift_baseline_version",
			Help: "Version of the published drift baseline.",
		}),
		ConfigVersion: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ai_guardrail_config_version",
			Help: "Version of the published guardrail config.",
		}),
		ComplianceScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ai_compliance_score",
			Help: "Compliance score of the most recent request, by framework.",
		}, []string{"framework"}),
		ConversationTurns: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ai_conversation_turns",
			Help:    "Turn count of finished conversations.",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		}),
		ConversationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ai_conversation_duration_seconds",
			Help:    "Wall time of finished conversations.",
			Buckets: []float64{10, 60, 300, 900, 1800, 3600},
		}),
	}
}

// ObserveConversationEnd records the shape of one finished conversation.
func (m *Metrics) ObserveConversationEnd(turns int, duration float64) {
	m.ConversationTurns.Observe(float64(turns))
	m.ConversationDuration.Observe(duration)
}

// ObserveRequest records the terminal counters for one request.
func (m *Metrics) ObserveRequest(scenario string, outcome models.Outcome, latencySeconds float64) {
	m.RequestsTotal.WithLabelValues(scenario, string(outcome)).Inc()
	m.RequestLatency.Observe(latencySeconds)
}

// ObserveFindings updates the per-category detection counters and the
// last-request gauges.
func (m *Metrics) ObserveFindings(scenario string, findings []models.Finding) {
	for _, f := range findings {
		switch f.Kind {
		case models.FindingPII:
			m.PIIDetections.WithLabelValues(f.Type).Inc()
		case models.FindingSecurity:
			switch f.Type {
			case string(models.AttackInjection):
				m.InjectionAttempts.Inc()
			case string(models.AttackJailbreak):
				m.JailbreakAttempts.Inc()
			}
		case models.FindingDrift:
			if f.Evidence.Dimension != "" {
				m.DriftScore.WithLabelValues(scenario, f.Evidence.Dimension).Set(f.Confidence)
			}
		}
	}
	m.SecurityScore.Set(1 - models.MaxConfidence(findings, models.FindingSecurity))
}

// ObserveError counts one failed request by its error type.
func (m *Metrics) ObserveError(errType string) {
	m.RequestErrors.WithLabelValues(errType).Inc()
}

// ObserveSLI counts one finished request against the latency and quality
// objectives and republishes the burn-rate gauges. A zero quality means the
// request produced no scorable response, so only latency is counted.
func (m *Metrics) ObserveSLI(latencyViolated bool, quality float64, qualityViolated bool, latencyBurn, qualityBurn float64) {
	if latencyViolated {
		m.SLILatencyViolations.Inc()
	} else {
		m.SLILatencySuccess.Inc()
	}
	if quality > 0 {
		if qualityViolated {
			m.SLIQualityViolations.Inc()
		} else {
			m.SLIQualitySuccess.Inc()
		}
	}
	m.SLOBurnRate.WithLabelValues("latency").Set(latencyBurn)
	m.SLOBurnRate.WithLabelValues("quality").Set(qualityBurn)
}

// ObserveDecision counts every rule trigger of a decision.
func (m *Metrics) ObserveDecision(d models.GuardrailDecision) {
	for _, tr := range d.Triggered {
		m.GuardrailTriggers.WithLabelValues(tr.Name, string(tr.Action)).Inc()
	}
	m.ConfigVersion.Set(float64(d.ConfigVersion))
}

// ObserveCost accumulates token and spend counters for one invocation.
func (m *Metrics) ObserveCost(c models.CostEstimate) {
	m.TokensTotal.WithLabelValues("input").Add(float64(c.InputTokens))
	m.TokensTotal.WithLabelValues("output").Add(float64(c.OutputTokens))
	m.CostTotal.Add(c.Amount)
}
