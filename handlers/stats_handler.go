package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/internal/guardrail"
	"github.com/sentinelops/aegisgate/services/feedback"
	"github.com/sentinelops/aegisgate/services/pipeline"
	"github.com/sentinelops/aegisgate/utils"
)

// StatsHandler serves operational counters and liveness.
type StatsHandler struct {
	logger   *zap.Logger
	pipeline *pipeline.Service
	store    *guardrail.Store
	feedback *feedback.Service
	started  time.Time
	version  string
}

// NewStatsHandler builds the handler.
func NewStatsHandler(logger *zap.Logger, pipeline *pipeline.Service, store *guardrail.Store, feedback *feedback.Service, version string) *StatsHandler {
	return &StatsHandler{
		logger:   logger,
		pipeline: pipeline,
		store:    store,
		feedback: feedback,
		started:  time.Now(),
		version:  version,
	}
}

type statsResponse struct {
	Version           string         `json:"version"`
	Pipeline          pipeline.Stats `json:"pipeline"`
	ConfigVersion     int64          `json:"config_version"`
	EnabledGuardrails []string       `json:"enabled_guardrails"`
	FeedbackCount     int64          `json:"feedback_count"`
	UptimeSeconds     float64        `json:"uptime_seconds"`
}

// Stats handles GET /stats.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Current()
	var enabled []string
	for _, rule := range snap.Rules() {
		if rule.Enabled {
			enabled = append(enabled, rule.Name)
		}
	}

	utils.WriteOK(w, statsResponse{
		Version:           h.version,
		Pipeline:          h.pipeline.Stats(),
		ConfigVersion:     snap.Version,
		EnabledGuardrails: enabled,
		FeedbackCount:     h.feedback.Count(),
		UptimeSeconds:     time.Since(h.started).Seconds(),
	})
}

type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Health handles GET /health.
func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: time.Since(h.started).Seconds(),
	})
}
