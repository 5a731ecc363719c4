package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/internal/guardrail"
	"github.com/sentinelops/aegisgate/utils"
)

// GuardrailHandler exposes the policy configuration.
type GuardrailHandler struct {
	logger *zap.Logger
	store  *guardrail.Store
}

// NewGuardrailHandler builds the handler.
func NewGuardrailHandler(logger *zap.Logger, store *guardrail.Store) *GuardrailHandler {
	return &GuardrailHandler{logger: logger, store: store}
}

type guardrailConfigResponse struct {
	Version int64       `json:"version"`
	Rules   interface{} `json:"rules"`
}

// List handles GET /guardrails.
func (h *GuardrailHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Current()
	utils.WriteOK(w, guardrailConfigResponse{
		Version: snap.Version,
		Rules:   snap.Rules(),
	})
}

// Update handles PUT /guardrails/config. The body is a map of rule name to
// partial update; only named rules change, everything else carries over
// into the new version.
func (h *GuardrailHandler) Update(w http.ResponseWriter, r *http.Request) {
	var updates map[string]guardrail.RuleUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		utils.WriteBadRequest(w, "invalid JSON body", nil)
		return
	}
	if len(updates) == 0 {
		utils.WriteBadRequest(w, "no rule updates provided", nil)
		return
	}

	snap, err := h.store.Patch(updates)
	if err != nil {
		utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	h.logger.Info("guardrail config updated",
		zap.Int64("version", snap.Version),
		zap.Int("rules_changed", len(updates)))

	utils.WriteOK(w, guardrailConfigResponse{
		Version: snap.Version,
		Rules:   snap.Rules(),
	})
}
