package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/internal/observability"
	"github.com/sentinelops/aegisgate/models"
	"github.com/sentinelops/aegisgate/repositories"
	"github.com/sentinelops/aegisgate/services/conversation"
	"github.com/sentinelops/aegisgate/utils"
)

// ConversationHandler exposes conversation state and its audit trail.
type ConversationHandler struct {
	logger  *zap.Logger
	tracker *conversation.Tracker
	audits  repositories.AuditRepository
	metrics *observability.Metrics
}

// NewConversationHandler builds the handler.
func NewConversationHandler(logger *zap.Logger, tracker *conversation.Tracker, audits repositories.AuditRepository, metrics *observability.Metrics) *ConversationHandler {
	return &ConversationHandler{logger: logger, tracker: tracker, audits: audits, metrics: metrics}
}

type conversationResponse struct {
	Conversation conversation.Snapshot `json:"conversation"`
	Records      []models.AuditRecord  `json:"records,omitempty"`
}

// Get handles GET /conversations/{id}.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := utils.ValidateRequired(id, "conversation id"); err != nil {
		utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	snap, err := h.tracker.Get(id)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	records, err := h.audits.ListByConversation(r.Context(), id, 50)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	utils.WriteOK(w, conversationResponse{
		Conversation: snap,
		Records:      records,
	})
}

// Delete handles DELETE /conversations/{id}. Ending a conversation closes
// out its turn and duration observations.
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := utils.ValidateRequired(id, "conversation id"); err != nil {
		utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	snap, err := h.tracker.Delete(id)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveConversationEnd(snap.Turns, snap.LastActive.Sub(snap.StartedAt).Seconds())
		h.metrics.ActiveConversations.Set(float64(h.tracker.ActiveCount()))
	}

	utils.WriteOK(w, conversationResponse{Conversation: snap})
}
