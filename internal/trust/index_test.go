package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentinelops/aegisgate/models"
)

func pii(n int) []models.Finding {
	out := make([]models.Finding, n)
	for i := range out {
		out[i] = models.Finding{Kind: models.FindingPII, Type: "email", Confidence: 0.95}
	}
	return out
}

func attack(conf float64) models.Finding {
	return models.Finding{Kind: models.FindingSecurity, Type: "prompt_injection", Confidence: conf}
}

func TestComputeCleanRequest(t *testing.T) {
	s := Compute(1.0, nil)

	assert.Equal(t, 1.0, s.Index)
	assert.Equal(t, 1.0, s.Quality)
	assert.Equal(t, 1.0, s.Security)
	assert.Equal(t, 1.0, s.Compliance)
}

func TestComputeWeights(t *testing.T) {
	assert.InDelta(t, 1.0, QualityWeight+SecurityWeight+ComplianceWeight, 1e-9)
}

func TestComputeComponents(t *testing.T) {
	s := Compute(0.8, append(pii(2), attack(0.6)))

	assert.InDelta(t, 0.8, s.Quality, 1e-9)
	assert.InDelta(t, 0.4, s.Security, 1e-9)
	assert.InDelta(t, 0.6, s.Compliance, 1e-9)
	assert.InDelta(t, 0.4*0.8+0.35*0.4+0.25*0.6, s.Index, 1e-9)
}

func TestComputeMonotonicInFindings(t *testing.T) {
	base := Compute(0.9, nil).Index
	withPII := Compute(0.9, pii(1)).Index
	morePII := Compute(0.9, pii(3)).Index
	withAttack := Compute(0.9, []models.Finding{attack(0.9)}).Index

	assert.Greater(t, base, withPII)
	assert.Greater(t, withPII, morePII)
	assert.Greater(t, base, withAttack)
}

func TestComputeClamped(t *testing.T) {
	// Six PII findings would push compliance below zero without clamping.
	s := Compute(1.5, pii(6))

	assert.Equal(t, 1.0, s.Quality)
	assert.Equal(t, 0.0, s.Compliance)
	assert.GreaterOrEqual(t, s.Index, 0.0)
	assert.LessOrEqual(t, s.Index, 1.0)
}

func TestEvaluateRisk(t *testing.T) {
	allow := models.GuardrailDecision{Action: models.ActionAllow}
	blocked := models.GuardrailDecision{Action: models.ActionBlock, Rule: models.RulePromptLength}

	tests := []struct {
		name     string
		findings []models.Finding
		decision models.GuardrailDecision
		quality  float64
		want     models.RiskLevel
	}{
		{"clean", nil, allow, 0.9, models.RiskLow},
		{"strong attack", []models.Finding{attack(0.9)}, blocked, 0, models.RiskCritical},
		{"blocked without attack", nil, blocked, 0, models.RiskCritical},
		{"moderate attack", []models.Finding{attack(0.6)}, allow, 0.9, models.RiskHigh},
		{"heavy pii", pii(5), allow, 0.9, models.RiskHigh},
		{"masked pii", pii(1), allow, 0.9, models.RiskMedium},
		{"low quality", nil, allow, 0.3, models.RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, reason := EvaluateRisk(tt.findings, tt.decision, tt.quality)
			assert.Equal(t, tt.want, level)
			if tt.want != models.RiskLow {
				assert.NotEmpty(t, reason)
			}
		})
	}
}
