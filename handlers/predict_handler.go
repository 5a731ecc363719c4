package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/models"
	"github.com/sentinelops/aegisgate/services/pipeline"
	"github.com/sentinelops/aegisgate/utils"
)

// PredictHandler fronts the request pipeline.
type PredictHandler struct {
	logger   *zap.Logger
	pipeline *pipeline.Service
}

// NewPredictHandler builds the handler.
func NewPredictHandler(logger *zap.Logger, pipeline *pipeline.Service) *PredictHandler {
	return &PredictHandler{logger: logger, pipeline: pipeline}
}

type predictRequest struct {
	Prompt         string `json:"prompt" validate:"required,min=1,max=50000"`
	Scenario       string `json:"scenario" validate:"omitempty,max=64"`
	UserID         string `json:"user_id" validate:"omitempty,max=128"`
	ConversationID string `json:"conversation_id" validate:"omitempty,max=128"`
}

type predictResponse struct {
	RequestID      string              `json:"request_id"`
	Answer         string              `json:"answer"`
	Scenario       string              `json:"scenario"`
	Mode           string              `json:"mode"`
	Outcome        models.Outcome      `json:"outcome"`
	QualityScore   float64             `json:"quality_score"`
	Coherence      float64             `json:"coherence"`
	Hallucination  bool                `json:"hallucination"`
	SecurityScore  float64             `json:"security_score"`
	PIICount       int                 `json:"pii_count"`
	PIIRedacted    bool                `json:"pii_redacted"`
	DriftFactor    float64             `json:"drift_factor"`
	DriftAlert     bool                `json:"drift_alert"`
	TrustIndex     float64             `json:"trust_index"`
	RiskLevel      models.RiskLevel    `json:"risk_level"`
	RiskReason     string              `json:"risk_reason,omitempty"`
	Cost           models.CostEstimate `json:"cost"`
	LatencyMs      float64             `json:"latency_ms"`
	Warnings       []string            `json:"warnings,omitempty"`
	ConversationID string              `json:"conversation_id,omitempty"`
	Turn           int                 `json:"turn,omitempty"`
}

// Predict handles POST /predict.
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var body predictRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteBadRequest(w, "invalid JSON body", nil)
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	req := &models.PredictRequest{
		ID:             uuid.New(),
		Prompt:         body.Prompt,
		Scenario:       body.Scenario,
		UserID:         body.UserID,
		ConversationID: body.ConversationID,
		ClientIP:       r.RemoteAddr,
		ArrivedAt:      time.Now(),
	}

	result, err := h.pipeline.Predict(r.Context(), req)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, predictResponse{
		RequestID:      result.RequestID.String(),
		Answer:         result.Answer,
		Scenario:       result.Scenario,
		Mode:           result.Mode,
		Outcome:        result.Outcome,
		QualityScore:   result.QualityScore,
		Coherence:      result.Coherence,
		Hallucination:  result.Hallucination,
		SecurityScore:  result.SecurityScore,
		PIICount:       result.PIICount,
		PIIRedacted:    result.PIIRedacted,
		DriftFactor:    result.DriftFactor,
		DriftAlert:     result.DriftAlert,
		TrustIndex:     result.TrustIndex,
		RiskLevel:      result.RiskLevel,
		RiskReason:     result.RiskReason,
		Cost:           result.Cost,
		LatencyMs:      result.LatencyMs,
		Warnings:       result.Warnings,
		ConversationID: result.ConversationID,
		Turn:           result.Turn,
	})
}
