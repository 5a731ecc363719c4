package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelops/aegisgate/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(nil)
	require.NoError(t, err)
	return store
}

func piiFindings(n int) []models.Finding {
	out := make([]models.Finding, n)
	for i := range out {
		out[i] = models.Finding{
			Kind:       models.FindingPII,
			Type:       string(models.PIITypeEmail),
			Confidence: 0.95,
		}
	}
	return out
}

func securityFinding(conf float64) models.Finding {
	return models.Finding{
		Kind:       models.FindingSecurity,
		Type:       string(models.AttackInjection),
		Confidence: conf,
	}
}

func TestDecideAllowsCleanRequest(t *testing.T) {
	engine := NewEngine(newTestStore(t))

	decision := engine.Decide(EvalInput{PromptLength: 42})

	assert.Equal(t, models.ActionAllow, decision.Action)
	assert.False(t, decision.Blocked())
	assert.Empty(t, decision.Triggered)
	assert.Empty(t, decision.Warnings)
}

func TestDecideBlocksInjection(t *testing.T) {
	engine := NewEngine(newTestStore(t))

	decision := engine.Decide(EvalInput{
		Findings:     []models.Finding{securityFinding(0.9)},
		PromptLength: 60,
	})

	assert.True(t, decision.Blocked())
	assert.Equal(t, models.RuleInjectionProtection, decision.Rule)
	assert.Equal(t, models.ActionBlock, decision.Action)
}

func TestDecideInjectionBeatsMask(t *testing.T) {
	engine := NewEngine(newTestStore(t))

	findings := append([]models.Finding{securityFinding(0.9)}, piiFindings(1)...)
	decision := engine.Decide(EvalInput{Findings: findings, PromptLength: 60})

	assert.Equal(t, models.RuleInjectionProtection, decision.Rule)
	assert.Equal(t, models.ActionBlock, decision.Action)
	// The mask trigger is still recorded for the audit trail.
	assert.Len(t, decision.Triggered, 2)
}

func TestDecidePIIMasksBelowThreshold(t *testing.T) {
	engine := NewEngine(newTestStore(t))

	decision := engine.Decide(EvalInput{Findings: piiFindings(2), PromptLength: 60})

	assert.Equal(t, models.ActionMask, decision.Action)
	assert.Equal(t, models.RulePIIProtection, decision.Rule)
	assert.False(t, decision.Blocked())
}

func TestDecidePIIBlocksOverThreshold(t *testing.T) {
	engine := NewEngine(newTestStore(t))

	decision := engine.Decide(EvalInput{Findings: piiFindings(4), PromptLength: 60})

	assert.Equal(t, models.ActionBlock, decision.Action)
	assert.True(t, decision.Blocked())
}

func TestDecidePIIThresholdZeroBlocksAnyFinding(t *testing.T) {
	store := newTestStore(t)
	zero := 0.0
	_, err := store.Patch(map[string]RuleUpdate{
		models.RulePIIProtection: {Threshold: &zero},
	})
	require.NoError(t, err)

	decision := NewEngine(store).Decide(EvalInput{Findings: piiFindings(1), PromptLength: 60})

	assert.Equal(t, models.ActionBlock, decision.Action)
	assert.True(t, decision.Blocked())
}

func TestDecidePromptLength(t *testing.T) {
	engine := NewEngine(newTestStore(t))

	decision := engine.Decide(EvalInput{PromptLength: DefaultPromptLengthLimit + 1})

	assert.Equal(t, models.RulePromptLength, decision.Rule)
	assert.True(t, decision.Blocked())
}

func TestDecideDriftWarnsOnly(t *testing.T) {
	engine := NewEngine(newTestStore(t))

	decision := engine.Decide(EvalInput{
		Findings: []models.Finding{{
			Kind:       models.FindingDrift,
			Type:       "baseline_distance",
			Confidence: 0.85,
		}},
		PromptLength: 60,
	})

	assert.Equal(t, models.ActionAllow, decision.Action)
	assert.False(t, decision.Blocked())
	require.Len(t, decision.Warnings, 1)
	assert.Contains(t, decision.Warnings[0], models.RuleDriftGuard)
}

func TestDecideRateLimited(t *testing.T) {
	engine := NewEngine(newTestStore(t))

	decision := engine.Decide(EvalInput{RateLimited: true, RequestCount: 117, PromptLength: 60})

	assert.Equal(t, models.ActionRateLimit, decision.Action)
	assert.True(t, decision.Blocked())
	require.Len(t, decision.Triggered, 1)
	assert.Equal(t, 117.0, decision.Triggered[0].Value)
}

func TestDecideToxic(t *testing.T) {
	engine := NewEngine(newTestStore(t))

	decision := engine.Decide(EvalInput{Toxic: true, PromptLength: 60})

	assert.Equal(t, models.RuleToxicityFilter, decision.Rule)
	assert.True(t, decision.Blocked())
}

func TestDecideDisabledRuleNeverFires(t *testing.T) {
	store := newTestStore(t)
	off := false
	_, err := store.Patch(map[string]RuleUpdate{
		models.RuleInjectionProtection: {Enabled: &off},
	})
	require.NoError(t, err)

	decision := NewEngine(store).Decide(EvalInput{
		Findings:     []models.Finding{securityFinding(0.95)},
		PromptLength: 60,
	})

	assert.Equal(t, models.ActionAllow, decision.Action)
	assert.Empty(t, decision.Triggered)
}

func TestDecideDeterministic(t *testing.T) {
	store := newTestStore(t)
	snap := store.Current()

	in := EvalInput{
		Findings:     append(piiFindings(2), securityFinding(0.4)),
		PromptLength: 250,
		RequestCount: 7,
	}

	first := Decide(in, snap)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Decide(in, snap))
	}
}

func TestDecideCarriesConfigVersion(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store)

	before := engine.Decide(EvalInput{PromptLength: 10})
	_, err := store.Patch(map[string]RuleUpdate{})
	require.NoError(t, err)
	after := engine.Decide(EvalInput{PromptLength: 10})

	assert.Equal(t, before.ConfigVersion+1, after.ConfigVersion)
}

func TestAdvise(t *testing.T) {
	engine := NewEngine(newTestStore(t))

	assert.Empty(t, engine.Advise(0.9, false))

	warnings := engine.Advise(0.4, true)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "below floor")
	assert.Contains(t, warnings[1], "hallucination")
}

func TestAdviseDisabled(t *testing.T) {
	store := newTestStore(t)
	off := false
	_, err := store.Patch(map[string]RuleUpdate{
		models.RuleQualityAdvisory: {Enabled: &off},
	})
	require.NoError(t, err)

	assert.Empty(t, NewEngine(store).Advise(0.1, true))
}
