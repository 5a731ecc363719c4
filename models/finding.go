package models

// FindingKind discriminates the origin of a finding.
type FindingKind string

const (
	FindingPII      FindingKind = "pii"
	FindingSecurity FindingKind = "security"
	FindingDrift    FindingKind = "drift"
	FindingQuality  FindingKind = "quality"
)

// PIIType represents different types of PII that can be detected
type PIIType string

const (
	PIITypeEmail       PIIType = "email"
	PIITypePhone       PIIType = "phone"
	PIITypeCreditCard  PIIType = "credit_card"
	PIITypeNationalID  PIIType = "national_id"
	PIITypeBankAccount PIIType = "bank_account"
	PIITypeIPAddress   PIIType = "ip_address"
	PIITypeDateOfBirth PIIType = "date_of_birth"
	PIITypeName        PIIType = "name"
)

// AttackCategory represents the adversarial attack classes scored by the
// security analyzer.
type AttackCategory string

const (
	AttackInjection AttackCategory = "prompt_injection"
	AttackJailbreak AttackCategory = "jailbreak"
)

// DriftDimension is one axis along which a prompt can diverge from the
// traffic baseline.
type DriftDimension string

const (
	DriftTopic      DriftDimension = "topic"
	DriftDomain     DriftDimension = "domain"
	DriftComplexity DriftDimension = "complexity"
)

// Span marks a half-open [Start, End) byte range in the analyzed text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Evidence carries the detector-specific backing for a finding. Which
// fields are set depends on the finding kind: PII and security findings
// carry a span and pattern, drift findings carry a dimension.
type Evidence struct {
	Span      *Span  `json:"span,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Dimension string `json:"dimension,omitempty"`
	Matched   string `json:"matched,omitempty"`
}

// Finding is the tagged variant produced by every detector. It is
// immutable after creation; the guardrail engine evaluates a flat ordered
// list of findings regardless of origin.
type Finding struct {
	Kind       FindingKind `json:"kind"`
	Type       string      `json:"type"`
	Confidence float64     `json:"confidence"`
	Evidence   Evidence    `json:"evidence"`
}

// CountByKind returns how many findings of the given kind are present.
func CountByKind(findings []Finding, kind FindingKind) int {
	n := 0
	for _, f := range findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// MaxConfidence returns the highest confidence among findings of the given
// kind, or 0 when there are none.
func MaxConfidence(findings []Finding, kind FindingKind) float64 {
	max := 0.0
	for _, f := range findings {
		if f.Kind == kind && f.Confidence > max {
			max = f.Confidence
		}
	}
	return max
}
