package scenario

import "strings"

// Mode drives how the downstream provider behaves for a request.
type Mode string

const (
	ModeNormal       Mode = "normal"
	ModeMitigated    Mode = "mitigated"
	ModeDrift        Mode = "drift"
	ModeLatencySpike Mode = "latency_spike"
	ModeHighRisk     Mode = "high_risk"
)

// Scenario is the normalized form of the free-text scenario field clients
// send. Unknown values fall back to baseline instead of failing the
// request.
type Scenario struct {
	Tag   string
	Mode  Mode
	Toxic bool
}

// Normalize folds the raw scenario string into a canonical tag and a
// provider mode. Hyphen and underscore spellings are equivalent.
func Normalize(raw string) Scenario {
	tag := strings.ToLower(strings.TrimSpace(raw))
	tag = strings.ReplaceAll(tag, "_", "-")

	switch tag {
	case "", "baseline", "normal":
		return Scenario{Tag: "baseline", Mode: ModeNormal}
	case "after-mitigation", "mitigated":
		return Scenario{Tag: "after-mitigation", Mode: ModeMitigated}
	case "drift", "topic-drift":
		return Scenario{Tag: "drift", Mode: ModeDrift}
	case "latency-spike", "slow":
		return Scenario{Tag: "latency-spike", Mode: ModeLatencySpike}
	case "prompt-injection", "injection":
		return Scenario{Tag: "prompt-injection", Mode: ModeNormal}
	case "high-risk":
		return Scenario{Tag: "high-risk", Mode: ModeHighRisk}
	case "toxic":
		return Scenario{Tag: "toxic", Mode: ModeNormal, Toxic: true}
	default:
		return Scenario{Tag: "baseline", Mode: ModeNormal}
	}
}
