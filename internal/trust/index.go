package trust

import (
	"fmt"

	"github.com/sentinelops/aegisgate/models"
)

// Weights of the trust index components. They must sum to 1 so the index
// stays in [0,1].
const (
	QualityWeight    = 0.40
	SecurityWeight   = 0.35
	ComplianceWeight = 0.25
)

// PII findings each shave a fixed slice off the compliance component.
const compliancePenaltyPerFinding = 0.2

// Score is the decomposed trust index for one request.
type Score struct {
	Index      float64 `json:"index"`
	Quality    float64 `json:"quality"`
	Security   float64 `json:"security"`
	Compliance float64 `json:"compliance"`
}

// Compute combines the per-request signals into a single trust index.
//
//	index = 0.40*quality + 0.35*security + 0.25*compliance
//
// where security is 1 minus the strongest attack confidence and compliance
// degrades linearly with the PII instance count. Each component and the
// index itself are clamped to [0,1].
func Compute(quality float64, findings []models.Finding) Score {
	security := 1 - models.MaxConfidence(findings, models.FindingSecurity)
	compliance := 1 - compliancePenaltyPerFinding*float64(models.CountByKind(findings, models.FindingPII))

	s := Score{
		Quality:    clamp01(quality),
		Security:   clamp01(security),
		Compliance: clamp01(compliance),
	}
	s.Index = clamp01(QualityWeight*s.Quality + SecurityWeight*s.Security + ComplianceWeight*s.Compliance)
	return s
}

// EvaluateRisk classifies a request for the audit trail. Enforcement is the
// guardrail engine's job; this grading only annotates the record.
func EvaluateRisk(findings []models.Finding, decision models.GuardrailDecision, quality float64) (models.RiskLevel, string) {
	attack := models.MaxConfidence(findings, models.FindingSecurity)
	piiCount := models.CountByKind(findings, models.FindingPII)
	drift := models.MaxConfidence(findings, models.FindingDrift)

	switch {
	case attack >= 0.8:
		return models.RiskCritical, fmt.Sprintf("attack confidence %.2f", attack)
	case decision.Blocked():
		return models.RiskCritical, fmt.Sprintf("request blocked by %s", decision.Rule)
	case attack >= 0.5:
		return models.RiskHigh, fmt.Sprintf("attack confidence %.2f", attack)
	case piiCount > 3:
		return models.RiskHigh, fmt.Sprintf("%d pii instances", piiCount)
	case piiCount > 0:
		return models.RiskMedium, fmt.Sprintf("%d pii instances masked", piiCount)
	case drift > 0.7:
		return models.RiskMedium, fmt.Sprintf("drift factor %.2f", drift)
	case quality > 0 && quality < 0.5:
		return models.RiskMedium, fmt.Sprintf("quality %.2f", quality)
	default:
		return models.RiskLow, ""
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
