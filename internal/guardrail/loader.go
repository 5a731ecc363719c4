package guardrail

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sentinelops/aegisgate/models"
)

// rulePack is the on-disk shape of a guardrail configuration file.
type rulePack struct {
	Rules []models.GuardrailRule `yaml:"rules"`
}

// LoadRulePack reads a YAML rule pack from disk. Rules omitted from the
// pack fall back to the built-in defaults, so a pack only needs to list
// the rules it overrides.
func LoadRulePack(path string) ([]models.GuardrailRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule pack %s: %w", path, err)
	}
	return ParseRulePack(data)
}

// ParseRulePack decodes rule pack bytes and merges them over the defaults.
func ParseRulePack(data []byte) ([]models.GuardrailRule, error) {
	var pack rulePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parsing rule pack: %w", err)
	}

	merged := DefaultRules()
	index := make(map[string]int, len(merged))
	for i, r := range merged {
		index[r.Name] = i
	}

	for _, r := range pack.Rules {
		if err := validateRule(r); err != nil {
			return nil, err
		}
		if i, ok := index[r.Name]; ok {
			merged[i] = r
			continue
		}
		merged = append(merged, r)
	}
	return merged, nil
}
