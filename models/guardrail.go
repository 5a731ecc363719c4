package models

// GuardrailAction is the enforcement outcome a rule maps to.
type GuardrailAction string

const (
	ActionAllow     GuardrailAction = "allow"
	ActionWarn      GuardrailAction = "warn"
	ActionMask      GuardrailAction = "mask"
	ActionBlock     GuardrailAction = "block"
	ActionRateLimit GuardrailAction = "rate_limit"
)

// Well-known guardrail rule names. Rules are evaluated in a fixed priority
// order: security > compliance/PII > prompt length > drift > rate limit >
// advisories.
const (
	RuleInjectionProtection = "injection_protection"
	RulePIIProtection       = "pii_protection"
	RulePromptLength        = "prompt_length"
	RuleDriftGuard          = "drift_guard"
	RuleRateLimit           = "rate_limit"
	RuleToxicityFilter      = "toxicity_filter"
	RuleQualityAdvisory     = "quality_advisory"
)

// GuardrailRule is a single named, configurable policy rule.
type GuardrailRule struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Enabled     bool            `json:"enabled" yaml:"enabled"`
	Threshold   float64         `json:"threshold" yaml:"threshold"`
	Action      GuardrailAction `json:"action" yaml:"action"`
}

// TriggeredRule records one rule that fired during evaluation.
type TriggeredRule struct {
	Name   string          `json:"name"`
	Action GuardrailAction `json:"action"`
	Value  float64         `json:"value"`
}

// GuardrailDecision is the outcome of evaluating one config snapshot
// against one request's findings. Deterministic given the same inputs.
type GuardrailDecision struct {
	ConfigVersion int64           `json:"config_version"`
	Rule          string          `json:"rule,omitempty"`
	Action        GuardrailAction `json:"action"`
	Triggered     []TriggeredRule `json:"triggered,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
	Findings      []Finding       `json:"findings,omitempty"`
}

// Blocked reports whether the decision stops the request before the model
// call.
func (d *GuardrailDecision) Blocked() bool {
	return d.Action == ActionBlock || d.Action == ActionRateLimit
}
