package guardrail

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/sentinelops/aegisgate/models"
)

// Default thresholds applied when no rule pack is loaded.
const (
	DefaultInjectionThreshold = 0.5
	DefaultPIIBlockThreshold  = 3
	DefaultPromptLengthLimit  = 10000
	DefaultDriftThreshold     = 0.7
	DefaultRateLimitPerWindow = 100
	DefaultQualityFloor       = 0.8
)

// Snapshot is one immutable, versioned rule configuration. Evaluation
// always runs against a single snapshot, so a concurrent config update can
// never produce a decision that mixes two versions.
type Snapshot struct {
	Version int64
	rules   map[string]models.GuardrailRule
}

// Rule looks up a rule by name.
func (s *Snapshot) Rule(name string) (models.GuardrailRule, bool) {
	r, ok := s.rules[name]
	return r, ok
}

// Rules returns the snapshot's rules sorted by name.
func (s *Snapshot) Rules() []models.GuardrailRule {
	out := make([]models.GuardrailRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RuleUpdate is a partial update to one named rule. Nil fields keep the
// current value.
type RuleUpdate struct {
	Enabled   *bool                   `json:"enabled,omitempty"`
	Threshold *float64                `json:"threshold,omitempty"`
	Action    *models.GuardrailAction `json:"action,omitempty"`
}

// Store publishes guardrail config snapshots. Readers take the current
// snapshot with a single atomic load; writers build a full copy and swap it
// in under a new version.
type Store struct {
	current atomic.Pointer[Snapshot]
	version atomic.Int64
}

// NewStore seeds a store with the given rules, or the defaults when rules
// is empty.
func NewStore(rules []models.GuardrailRule) (*Store, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	s := &Store{}
	if _, err := s.Replace(rules); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the live snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Replace installs a complete rule set as a new snapshot version.
func (s *Store) Replace(rules []models.GuardrailRule) (*Snapshot, error) {
	byName := make(map[string]models.GuardrailRule, len(rules))
	for _, r := range rules {
		if err := validateRule(r); err != nil {
			return nil, err
		}
		if _, dup := byName[r.Name]; dup {
			return nil, fmt.Errorf("duplicate guardrail rule %q", r.Name)
		}
		byName[r.Name] = r
	}
	next := &Snapshot{Version: s.version.Add(1), rules: byName}
	s.current.Store(next)
	return next, nil
}

// Patch applies partial updates to named rules and publishes the result as
// a new version. Unknown rule names are rejected before anything is
// published.
func (s *Store) Patch(updates map[string]RuleUpdate) (*Snapshot, error) {
	cur := s.Current()
	byName := make(map[string]models.GuardrailRule, len(cur.rules))
	for name, r := range cur.rules {
		byName[name] = r
	}

	for name, upd := range updates {
		r, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown guardrail rule %q", name)
		}
		if upd.Enabled != nil {
			r.Enabled = *upd.Enabled
		}
		if upd.Threshold != nil {
			r.Threshold = *upd.Threshold
		}
		if upd.Action != nil {
			r.Action = *upd.Action
		}
		if err := validateRule(r); err != nil {
			return nil, err
		}
		byName[name] = r
	}

	next := &Snapshot{Version: s.version.Add(1), rules: byName}
	s.current.Store(next)
	return next, nil
}

func validateRule(r models.GuardrailRule) error {
	if r.Name == "" {
		return fmt.Errorf("guardrail rule with empty name")
	}
	if r.Threshold < 0 {
		return fmt.Errorf("guardrail rule %q: negative threshold %.2f", r.Name, r.Threshold)
	}
	switch r.Action {
	case models.ActionAllow, models.ActionWarn, models.ActionMask, models.ActionBlock, models.ActionRateLimit:
		return nil
	default:
		return fmt.Errorf("guardrail rule %q: unknown action %q", r.Name, r.Action)
	}
}

// DefaultRules is the built-in policy applied when no rule pack is
// configured.
func DefaultRules() []models.GuardrailRule {
	return []models.GuardrailRule{
		{
			Name:        models.RuleInjectionProtection,
			Description: "Block prompts carrying injection or jailbreak attempts",
			Enabled:     true,
			Threshold:   DefaultInjectionThreshold,
			Action:      models.ActionBlock,
		},
		{
			Name:        models.RulePIIProtection,
			Description: "Mask detected PII, block when the instance count exceeds the threshold",
			Enabled:     true,
			Threshold:   DefaultPIIBlockThreshold,
			Action:      models.ActionBlock,
		},
		{
			Name:        models.RulePromptLength,
			Description: "Block prompts longer than the configured character limit",
			Enabled:     true,
			Threshold:   DefaultPromptLengthLimit,
			Action:      models.ActionBlock,
		},
		{
			Name:        models.RuleDriftGuard,
			Description: "Warn when a prompt diverges from the traffic baseline",
			Enabled:     true,
			Threshold:   DefaultDriftThreshold,
			Action:      models.ActionWarn,
		},
		{
			Name:        models.RuleRateLimit,
			Description: "Throttle clients exceeding the per-window request budget",
			Enabled:     true,
			Threshold:   DefaultRateLimitPerWindow,
			Action:      models.ActionRateLimit,
		},
		{
			Name:        models.RuleToxicityFilter,
			Description: "Block requests tagged as toxic by scenario classification",
			Enabled:     true,
			Threshold:   0.5,
			Action:      models.ActionBlock,
		},
		{
			Name:        models.RuleQualityAdvisory,
			Description: "Flag served responses whose quality falls below the floor",
			Enabled:     true,
			Threshold:   DefaultQualityFloor,
			Action:      models.ActionWarn,
		},
	}
}
