package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/handlers"
	"github.com/sentinelops/aegisgate/middleware"
)

// Dependencies carries everything the router mounts.
type Dependencies struct {
	Logger        *zap.Logger
	Predict       *handlers.PredictHandler
	Guardrails    *handlers.GuardrailHandler
	Feedback      *handlers.FeedbackHandler
	Conversations *handlers.ConversationHandler
	Stats         *handlers.StatsHandler
	Metrics       http.Handler
	AdminSecret   string
}

// New assembles the HTTP router. The config update endpoint is the only
// authenticated route; everything else is gateway-internal traffic.
func New(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", deps.Stats.Health)
	r.Method(http.MethodGet, "/metrics", deps.Metrics)
	r.Get("/stats", deps.Stats.Stats)

	r.Post("/predict", deps.Predict.Predict)
	r.Post("/feedback", deps.Feedback.Submit)
	r.Get("/conversations/{id}", deps.Conversations.Get)
	r.Delete("/conversations/{id}", deps.Conversations.Delete)

	r.Get("/guardrails", deps.Guardrails.List)
	r.With(middleware.RequireAdmin(deps.Logger, deps.AdminSecret)).
		Put("/guardrails/config", deps.Guardrails.Update)

	return r
}
