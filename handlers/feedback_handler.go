package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/services/feedback"
	"github.com/sentinelops/aegisgate/utils"
)

// FeedbackHandler accepts user ratings for served requests.
type FeedbackHandler struct {
	logger  *zap.Logger
	service *feedback.Service
}

// NewFeedbackHandler builds the handler.
func NewFeedbackHandler(logger *zap.Logger, service *feedback.Service) *FeedbackHandler {
	return &FeedbackHandler{logger: logger, service: service}
}

type feedbackRequest struct {
	RequestID string `json:"request_id" validate:"required,uuid"`
	Rating    int    `json:"rating" validate:"required,gte=1,lte=5"`
	Category  string `json:"category" validate:"omitempty,max=64"`
	Comment   string `json:"comment" validate:"omitempty,max=2000"`
}

// Submit handles POST /feedback. Ingestion is asynchronous, so acceptance
// does not mean the entry is persisted yet.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteBadRequest(w, "invalid JSON body", nil)
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	requestID, err := uuid.Parse(body.RequestID)
	if err != nil {
		utils.WriteBadRequest(w, "request_id must be a valid UUID", nil)
		return
	}

	fb, err := h.service.Submit(requestID, body.Rating, body.Category, body.Comment)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	utils.WriteAccepted(w, fb)
}
