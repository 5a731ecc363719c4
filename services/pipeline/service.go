package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/internal/detect"
	"github.com/sentinelops/aegisgate/internal/guardrail"
	"github.com/sentinelops/aegisgate/internal/observability"
	"github.com/sentinelops/aegisgate/internal/trust"
	"github.com/sentinelops/aegisgate/models"
	"github.com/sentinelops/aegisgate/services"
	"github.com/sentinelops/aegisgate/services/audit"
	"github.com/sentinelops/aegisgate/services/conversation"
	"github.com/sentinelops/aegisgate/services/cost"
	"github.com/sentinelops/aegisgate/services/providers"
	"github.com/sentinelops/aegisgate/services/scenario"
	"github.com/sentinelops/aegisgate/services/slo"
)

// DefaultInvokeTimeout bounds the model call, not the whole request.
const DefaultInvokeTimeout = 10 * time.Second

// Config wires the pipeline's collaborators.
type Config struct {
	Logger          *zap.Logger
	Drift           *detect.DriftDetector
	Engine          *guardrail.Engine
	SLO             *slo.Tracker
	Provider        providers.Provider
	Cost            *cost.Service
	Conversations   *conversation.Tracker
	Emitter         *audit.Emitter
	Metrics         *observability.Metrics
	AttackThreshold float64
	InvokeTimeout   time.Duration
}

// Service runs the full trust-and-safety pipeline for one request: detect,
// decide, invoke, score, account, audit. Every admitted request produces
// exactly one audit record, whatever its outcome.
type Service struct {
	logger          *zap.Logger
	drift           *detect.DriftDetector
	engine          *guardrail.Engine
	slo             *slo.Tracker
	provider        providers.Provider
	cost            *cost.Service
	conversations   *conversation.Tracker
	emitter         *audit.Emitter
	metrics         *observability.Metrics
	attackThreshold float64
	invokeTimeout   time.Duration
}

// NewService validates the wiring and builds the pipeline.
func NewService(cfg Config) *Service {
	if cfg.AttackThreshold <= 0 {
		cfg.AttackThreshold = detect.DefaultAttackThreshold
	}
	if cfg.InvokeTimeout <= 0 {
		cfg.InvokeTimeout = DefaultInvokeTimeout
	}
	return &Service{
		logger:          cfg.Logger,
		drift:           cfg.Drift,
		engine:          cfg.Engine,
		slo:             cfg.SLO,
		provider:        cfg.Provider,
		cost:            cfg.Cost,
		conversations:   cfg.Conversations,
		emitter:         cfg.Emitter,
		metrics:         cfg.Metrics,
		attackThreshold: cfg.AttackThreshold,
		invokeTimeout:   cfg.InvokeTimeout,
	}
}

// Predict runs one request through the pipeline. A nil error means the
// request was served (possibly masked); a DomainError explains every other
// disposition.
func (s *Service) Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		if s.metrics != nil {
			s.metrics.ObserveError("validation")
		}
		return nil, services.ErrEmptyPrompt
	}

	start := req.ArrivedAt
	if start.IsZero() {
		start = time.Now()
	}
	sc := scenario.Normalize(req.Scenario)

	findings, driftRes := s.analyze(req.Prompt)

	count, limited := s.slo.Admit(req.ClientKey())
	if limited && s.metrics != nil {
		s.metrics.RateLimitedTotal.Inc()
	}

	decision := s.engine.Decide(guardrail.EvalInput{
		Findings:     findings,
		PromptLength: len(req.Prompt),
		RequestCount: count,
		RateLimited:  limited,
		Toxic:        sc.Toxic,
	})

	record := models.NewAuditRecord(req.ID, sc.Tag)
	record.ConversationID = req.ConversationID
	record.UserID = req.UserID
	record.Findings = findings
	record.Decision = decision
	record.SecurityScore = 1 - models.MaxConfidence(findings, models.FindingSecurity)

	if decision.Blocked() {
		return nil, s.finishBlocked(record, decision, start)
	}

	prompt := req.Prompt
	outcome := models.OutcomeServed
	if decision.Action == models.ActionMask {
		prompt = detect.RedactPII(req.Prompt, findings)
		outcome = models.OutcomeMasked
	}

	invokeCtx, cancel := context.WithTimeout(ctx, s.invokeTimeout)
	defer cancel()
	inv, err := s.provider.Invoke(invokeCtx, prompt, sc.Mode)
	if err != nil {
		return nil, s.finishErrored(record, decision, start, err)
	}

	q := s.scoreQuality(prompt, inv.ResponseText)
	findings = append(findings, detect.QualityFindings(q)...)
	record.Findings = findings

	warnings := append([]string{}, decision.Warnings...)
	warnings = append(warnings, s.engine.Advise(q.Quality, q.HallucinationSuspected)...)

	estimate := s.cost.EstimateTokenCount(inv.Model, inv.InputTokens, inv.OutputTokens)
	trustScore := trust.Compute(q.Quality, findings)
	riskLevel, riskReason := trust.EvaluateRisk(findings, decision, q.Quality)

	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	s.recordSLO(latencyMs, q.Quality, false)

	turn := 0
	if req.ConversationID != "" {
		turn = s.conversations.Touch(req.ConversationID, req.UserID, inv.InputTokens+inv.OutputTokens)
		if s.metrics != nil {
			s.metrics.ActiveConversations.Set(float64(s.conversations.ActiveCount()))
		}
	}
	if s.metrics != nil {
		s.metrics.BaselineVersion.Set(float64(driftRes.BaselineVersion))
		s.metrics.ComplianceScore.WithLabelValues("gdpr").Set(trustScore.Compliance)
		s.metrics.ComplianceScore.WithLabelValues("ai_act").Set(math.Min(trustScore.Compliance, trustScore.Security))
	}

	record.Cost = estimate
	record.QualityScore = q.Quality
	record.TrustIndex = trustScore.Index
	record.RiskLevel = riskLevel
	record.RiskReason = riskReason
	record.Outcome = outcome
	record.LatencyMs = latencyMs
	s.emitter.Emit(record)

	s.logger.Info("request served",
		zap.String("request_id", req.ID.String()),
		zap.String("scenario", sc.Tag),
		zap.String("outcome", string(outcome)),
		zap.Float64("quality", q.Quality),
		zap.Float64("trust_index", trustScore.Index),
		zap.Float64("latency_ms", latencyMs))

	return &models.PredictResult{
		RequestID:      req.ID,
		Answer:         inv.ResponseText,
		Scenario:       sc.Tag,
		Mode:           string(sc.Mode),
		Outcome:        outcome,
		QualityScore:   q.Quality,
		Coherence:      q.Coherence,
		Hallucination:  q.HallucinationSuspected,
		SecurityScore:  record.SecurityScore,
		PIICount:       models.CountByKind(findings, models.FindingPII),
		PIIRedacted:    outcome == models.OutcomeMasked,
		DriftFactor:    driftRes.DriftFactor,
		DriftAlert:     driftRes.OutOfDomain,
		TrustIndex:     trustScore.Index,
		RiskLevel:      riskLevel,
		RiskReason:     riskReason,
		Cost:           estimate,
		LatencyMs:      latencyMs,
		Warnings:       warnings,
		ConversationID: req.ConversationID,
		Turn:           turn,
	}, nil
}

// analyze runs the pre-model detectors concurrently. PII and security
// analysis fail closed: a panicking detector yields a maximal-confidence
// security finding so the guardrails stop the request. Drift fails open.
func (s *Service) analyze(prompt string) ([]models.Finding, detect.DriftResult) {
	var (
		wg        sync.WaitGroup
		pii       []models.Finding
		sec       []models.Finding
		driftRes  detect.DriftResult
		driftList []models.Finding
		piiPanic  bool
		secPanic  bool
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		defer s.failClosed(&piiPanic, "pii detector")
		pii = detect.DetectPII(prompt)
	}()
	go func() {
		defer wg.Done()
		defer s.failClosed(&secPanic, "security analyzer")
		res := detect.AnalyzeSecurity(prompt, s.attackThreshold)
		sec = detect.SecurityFindings(res)
	}()
	go func() {
		defer wg.Done()
		defer s.failOpen("drift detector")
		driftRes = s.drift.Analyze(prompt)
		driftList = detect.DriftFindings(driftRes)
	}()
	wg.Wait()

	findings := make([]models.Finding, 0, len(pii)+len(sec)+len(driftList)+1)
	findings = append(findings, pii...)
	findings = append(findings, sec...)
	findings = append(findings, driftList...)
	if piiPanic || secPanic {
		findings = append(findings, models.Finding{
			Kind:       models.FindingSecurity,
			Type:       string(models.AttackInjection),
			Confidence: 1.0,
			Evidence:   models.Evidence{Pattern: "analyzer_failure"},
		})
	}
	return findings, driftRes
}

func (s *Service) failClosed(panicked *bool, component string) {
	if r := recover(); r != nil {
		s.logger.Error("detector panicked, failing closed",
			zap.String("component", component),
			zap.Any("panic", r))
		*panicked = true
	}
}

func (s *Service) failOpen(component string) {
	if r := recover(); r != nil {
		s.logger.Error("detector panicked, failing open",
			zap.String("component", component),
			zap.Any("panic", r))
	}
}

// scoreQuality fails open to the neutral score.
func (s *Service) scoreQuality(prompt, response string) (res detect.QualityResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("quality scorer panicked, using neutral score",
				zap.Any("panic", r))
			res = detect.QualityResult{Quality: detect.NeutralQuality, Coherence: detect.NeutralQuality}
		}
	}()
	return detect.ScoreQuality(prompt, response)
}

func (s *Service) finishBlocked(record *models.AuditRecord, decision models.GuardrailDecision, start time.Time) error {
	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	record.Cost = s.cost.Zero(s.provider.Model())
	record.Outcome = models.OutcomeBlocked
	record.LatencyMs = latencyMs
	record.RiskLevel, record.RiskReason = trust.EvaluateRisk(record.Findings, decision, 0)
	record.TrustIndex = trust.Compute(0, record.Findings).Index

	s.recordSLO(latencyMs, 0, false)
	s.emitter.Emit(record)

	s.logger.Warn("request blocked",
		zap.String("request_id", record.RequestID.String()),
		zap.String("rule", decision.Rule),
		zap.String("action", string(decision.Action)))

	err := blockError(decision)
	return err.WithDetail("request_id", record.RequestID.String()).
		WithDetail("rule", decision.Rule).
		WithDetail("triggered", decision.Triggered).
		WithDetail("config_version", decision.ConfigVersion)
}

func (s *Service) finishErrored(record *models.AuditRecord, decision models.GuardrailDecision, start time.Time, cause error) error {
	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	record.Cost = s.cost.Zero(s.provider.Model())
	record.Outcome = models.OutcomeErrored
	record.LatencyMs = latencyMs
	record.RiskLevel, record.RiskReason = trust.EvaluateRisk(record.Findings, decision, 0)

	s.recordSLO(latencyMs, 0, true)
	if s.metrics != nil {
		errType := "provider"
		if errors.Is(cause, context.DeadlineExceeded) {
			errType = "timeout"
		}
		s.metrics.ObserveError(errType)
	}
	s.emitter.Emit(record)

	s.logger.Error("provider invocation failed",
		zap.String("request_id", record.RequestID.String()),
		zap.Float64("latency_ms", latencyMs),
		zap.Error(cause))

	return services.WrapExternal("model invocation failed", cause)
}

// recordSLO folds one terminal request into the SLO window and republishes
// the SLI counters and burn-rate gauges.
func (s *Service) recordSLO(latencyMs, quality float64, errored bool) {
	s.slo.Record(latencyMs, quality, errored)
	if s.metrics == nil {
		return
	}
	t := s.slo.Targets()
	snap := s.slo.Snapshot()
	s.metrics.ObserveSLI(
		latencyMs > t.LatencyTargetMs,
		quality,
		quality < t.QualityTarget,
		snap.LatencyBurnRate,
		snap.QualityBurnRate,
	)
}

// blockError maps the deciding rule to its domain error. Always returns a
// fresh error so per-request details never leak across requests.
func blockError(decision models.GuardrailDecision) *services.DomainError {
	switch {
	case decision.Action == models.ActionRateLimit:
		return services.NewDomainError(services.ErrorTypeRateLimit, "rate limit exceeded", nil)
	case decision.Rule == models.RuleInjectionProtection:
		return services.NewDomainError(services.ErrorTypePolicyViolation, "prompt injection detected", nil)
	case decision.Rule == models.RulePIIProtection:
		return services.NewDomainError(services.ErrorTypePolicyViolation, "too many PII instances in prompt", nil)
	case decision.Rule == models.RulePromptLength:
		return services.NewDomainError(services.ErrorTypePolicyViolation, "prompt exceeds length limit", nil)
	case decision.Rule == models.RuleToxicityFilter:
		return services.NewDomainError(services.ErrorTypePolicyViolation, "content filtered as toxic", nil)
	default:
		return services.NewDomainError(services.ErrorTypePolicyViolation, "request blocked by guardrail", nil)
	}
}

// Stats is the aggregate view served by the stats endpoint.
type Stats struct {
	SLO                 slo.Stats   `json:"slo"`
	SLOTargets          slo.Targets `json:"slo_targets"`
	AuditDropped        int64       `json:"audit_dropped"`
	ActiveConversations int         `json:"active_conversations"`
	BaselineVersion     int64       `json:"baseline_version"`
}

// Stats assembles the current operational counters.
func (s *Service) Stats() Stats {
	return Stats{
		SLO:                 s.slo.Snapshot(),
		SLOTargets:          s.slo.Targets(),
		AuditDropped:        s.emitter.Dropped(),
		ActiveConversations: s.conversations.ActiveCount(),
		BaselineVersion:     s.drift.BaselineVersion(),
	}
}

// Drift exposes the drift detector for recalibration tasks.
func (s *Service) Drift() *detect.DriftDetector {
	return s.drift
}
