package models

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the final disposition of a request. Every request produces
// exactly one audit record, whatever the outcome.
type Outcome string

const (
	OutcomeServed  Outcome = "served"
	OutcomeMasked  Outcome = "masked"
	OutcomeBlocked Outcome = "blocked"
	OutcomeErrored Outcome = "errored"
)

// RiskLevel classifies a request for compliance reporting.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// CostEstimate converts token counts into a monetary amount for one model
// invocation.
type CostEstimate struct {
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

// AuditRecord is the immutable, write-once decision trail for a single
// request.
type AuditRecord struct {
	RequestID      uuid.UUID         `json:"request_id"`
	ConversationID string            `json:"conversation_id,omitempty"`
	UserID         string            `json:"user_id,omitempty"`
	Scenario       string            `json:"scenario"`
	Findings       []Finding         `json:"findings,omitempty"`
	Decision       GuardrailDecision `json:"decision"`
	Cost           CostEstimate      `json:"cost"`
	QualityScore   float64           `json:"quality_score"`
	SecurityScore  float64           `json:"security_score"`
	TrustIndex     float64           `json:"trust_index"`
	RiskLevel      RiskLevel         `json:"risk_level"`
	RiskReason     string            `json:"risk_reason,omitempty"`
	Outcome        Outcome           `json:"outcome"`
	LatencyMs      float64           `json:"latency_ms"`
	Timestamp      time.Time         `json:"timestamp"`
}

// NewAuditRecord creates a record stamped with the current time.
func NewAuditRecord(requestID uuid.UUID, scenario string) *AuditRecord {
	return &AuditRecord{
		RequestID: requestID,
		Scenario:  scenario,
		Timestamp: time.Now().UTC(),
	}
}
