package models

import (
	"time"

	"github.com/google/uuid"
)

// PredictRequest is the inbound prompt exchange. Immutable once created.
type PredictRequest struct {
	ID             uuid.UUID
	Prompt         string
	Scenario       string
	UserID         string
	ConversationID string
	ClientIP       string
	ArrivedAt      time.Time
}

// ClientKey returns the identifier used for per-client rate limiting:
// the user id when present, the client IP otherwise.
func (r *PredictRequest) ClientKey() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.ClientIP
}

// PredictResult is the pipeline's answer for a request that was not
// blocked.
type PredictResult struct {
	RequestID      uuid.UUID
	Answer         string
	Scenario       string
	Mode           string
	Outcome        Outcome
	QualityScore   float64
	Coherence      float64
	Hallucination  bool
	SecurityScore  float64
	PIICount       int
	PIIRedacted    bool
	DriftFactor    float64
	DriftAlert     bool
	TrustIndex     float64
	RiskLevel      RiskLevel
	RiskReason     string
	Cost           CostEstimate
	LatencyMs      float64
	Warnings       []string
	ConversationID string
	Turn           int
}

// Feedback is a user rating attached to a previously served request.
// Consumed asynchronously; not part of the synchronous decision path.
type Feedback struct {
	ID        uuid.UUID `json:"id"`
	RequestID uuid.UUID `json:"request_id"`
	Rating    int       `json:"rating"`
	Category  string    `json:"category,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
