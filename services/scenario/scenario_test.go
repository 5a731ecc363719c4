package scenario

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw       string
		wantTag   string
		wantMode  Mode
		wantToxic bool
	}{
		{"", "baseline", ModeNormal, false},
		{"baseline", "baseline", ModeNormal, false},
		{"Baseline", "baseline", ModeNormal, false},
		{"after-mitigation", "after-mitigation", ModeMitigated, false},
		{"after_mitigation", "after-mitigation", ModeMitigated, false},
		{"drift", "drift", ModeDrift, false},
		{"latency_spike", "latency-spike", ModeLatencySpike, false},
		{"prompt-injection", "prompt-injection", ModeNormal, false},
		{"high-risk", "high-risk", ModeHighRisk, false},
		{"toxic", "toxic", ModeNormal, true},
		{"something-else", "baseline", ModeNormal, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Normalize(tt.raw)
			if got.Tag != tt.wantTag || got.Mode != tt.wantMode || got.Toxic != tt.wantToxic {
				t.Errorf("Normalize(%q) = %+v, want tag=%s mode=%s toxic=%v", tt.raw, got, tt.wantTag, tt.wantMode, tt.wantToxic)
			}
		})
	}
}
