package guardrail

import (
	"fmt"

	"github.com/sentinelops/aegisgate/models"
)

// evalOrder fixes the priority in which rules are checked. The first
// non-advisory trigger decides the request; later rules still record their
// triggers for the audit trail.
var evalOrder = []string{
	models.RuleInjectionProtection,
	models.RulePIIProtection,
	models.RulePromptLength,
	models.RuleDriftGuard,
	models.RuleRateLimit,
	models.RuleToxicityFilter,
}

// EvalInput is everything the pre-model decision depends on. All stateful
// signals (rate limiting, scenario classification) are resolved by the
// caller before evaluation, which keeps Decide a pure function of its
// arguments.
type EvalInput struct {
	Findings     []models.Finding
	PromptLength int
	RequestCount int
	RateLimited  bool
	Toxic        bool
}

// Engine evaluates requests against the live config snapshot.
type Engine struct {
	store *Store
}

// NewEngine wires an engine to its config store.
func NewEngine(store *Store) *Engine {
	return &Engine{store: store}
}

// Decide evaluates the pre-model guardrails against the current snapshot.
func (e *Engine) Decide(in EvalInput) models.GuardrailDecision {
	return Decide(in, e.store.Current())
}

// Advise runs the post-model advisory pass against the current snapshot.
func (e *Engine) Advise(quality float64, hallucination bool) []string {
	return Advise(quality, hallucination, e.store.Current())
}

// Decide produces exactly one decision for a request. Given the same input
// and snapshot it always returns the same decision: rules are walked in a
// fixed priority order and the first trigger whose action stops or rewrites
// the request wins. Warn-level triggers only append warnings.
func Decide(in EvalInput, snap *Snapshot) models.GuardrailDecision {
	decision := models.GuardrailDecision{
		ConfigVersion: snap.Version,
		Action:        models.ActionAllow,
		Findings:      in.Findings,
	}

	record := func(rule models.GuardrailRule, action models.GuardrailAction, value float64) {
		decision.Triggered = append(decision.Triggered, models.TriggeredRule{
			Name:   rule.Name,
			Action: action,
			Value:  value,
		})
		if action == models.ActionWarn {
			decision.Warnings = append(decision.Warnings, warningFor(rule, value))
			return
		}
		// Higher-priority rules were evaluated first; only the first
		// enforcing trigger sets the outcome. A later mask never
		// downgrades an earlier block.
		if decision.Action == models.ActionAllow ||
			(decision.Action == models.ActionMask && action != models.ActionMask) {
			decision.Rule = rule.Name
			decision.Action = action
		}
	}

	for _, name := range evalOrder {
		rule, ok := snap.Rule(name)
		if !ok || !rule.Enabled {
			continue
		}

		switch name {
		case models.RuleInjectionProtection:
			if v := models.MaxConfidence(in.Findings, models.FindingSecurity); v >= rule.Threshold {
				record(rule, rule.Action, v)
			}
		case models.RulePIIProtection:
			count := float64(models.CountByKind(in.Findings, models.FindingPII))
			switch {
			case count > rule.Threshold:
				record(rule, rule.Action, count)
			case count > 0:
				// Below the block threshold the rule still rewrites
				// the prompt by masking the matched spans.
				record(rule, models.ActionMask, count)
			}
		case models.RulePromptLength:
			if v := float64(in.PromptLength); v > rule.Threshold {
				record(rule, rule.Action, v)
			}
		case models.RuleDriftGuard:
			if v := models.MaxConfidence(in.Findings, models.FindingDrift); v > rule.Threshold {
				record(rule, rule.Action, v)
			}
		case models.RuleRateLimit:
			if in.RateLimited {
				record(rule, rule.Action, float64(in.RequestCount))
			}
		case models.RuleToxicityFilter:
			if in.Toxic {
				record(rule, rule.Action, 1)
			}
		}
	}

	return decision
}

// Advise returns post-model advisory warnings. It never changes the
// decision taken before the model call; served responses stay served.
func Advise(quality float64, hallucination bool, snap *Snapshot) []string {
	rule, ok := snap.Rule(models.RuleQualityAdvisory)
	if !ok || !rule.Enabled {
		return nil
	}

	var warnings []string
	if quality < rule.Threshold {
		warnings = append(warnings, fmt.Sprintf("quality_advisory: response quality %.2f below floor %.2f", quality, rule.Threshold))
	}
	if hallucination {
		warnings = append(warnings, "quality_advisory: response weakly grounded in the prompt, possible hallucination")
	}
	return warnings
}

func warningFor(rule models.GuardrailRule, value float64) string {
	return fmt.Sprintf("%s: value %.2f over threshold %.2f", rule.Name, value, rule.Threshold)
}
