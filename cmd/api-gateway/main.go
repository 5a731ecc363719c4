package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/config"
	"github.com/sentinelops/aegisgate/handlers"
	"github.com/sentinelops/aegisgate/internal/detect"
	"github.com/sentinelops/aegisgate/internal/guardrail"
	"github.com/sentinelops/aegisgate/internal/observability"
	"github.com/sentinelops/aegisgate/models"
	"github.com/sentinelops/aegisgate/repositories"
	"github.com/sentinelops/aegisgate/routes"
	"github.com/sentinelops/aegisgate/services/audit"
	"github.com/sentinelops/aegisgate/services/conversation"
	"github.com/sentinelops/aegisgate/services/cost"
	"github.com/sentinelops/aegisgate/services/feedback"
	"github.com/sentinelops/aegisgate/services/pipeline"
	"github.com/sentinelops/aegisgate/services/providers"
	"github.com/sentinelops/aegisgate/services/slo"
)

func main() {
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	auditRepo, feedbackRepo, db := buildRepositories(logger, cfg)
	if db != nil {
		defer db.Close()
	}

	rules, err := loadRules(cfg)
	if err != nil {
		logger.Fatal("loading guardrail rule pack", zap.Error(err))
	}
	store, err := guardrail.NewStore(rules)
	if err != nil {
		logger.Fatal("building guardrail store", zap.Error(err))
	}

	costSvc, err := buildCost(logger, cfg)
	if err != nil {
		logger.Fatal("loading pricing", zap.Error(err))
	}

	tracker := slo.NewTracker(logger, slo.Targets{
		LatencyTargetMs: cfg.SLOLatencyTargetMs,
		QualityTarget:   cfg.SLOQualityTarget,
		LatencyBudget:   cfg.SLOLatencyBudget,
		QualityBudget:   cfg.SLOQualityBudget,
		Window:          cfg.SLOWindow,
		RateLimit:       cfg.RateLimitPerWindow,
	})
	conversations := conversation.NewTracker(logger, cfg.ConversationMaxIdle)
	emitter := audit.NewEmitter(logger, auditRepo, metrics, cfg.AuditQueueSize, cfg.AuditWorkers)
	feedbackSvc := feedback.NewService(logger, feedbackRepo, metrics, cfg.FeedbackQueueSize)

	pipelineSvc := pipeline.NewService(pipeline.Config{
		Logger:          logger,
		Drift:           detect.NewDriftDetector(cfg.DriftThreshold),
		Engine:          guardrail.NewEngine(store),
		SLO:             tracker,
		Provider:        providers.NewSimulated(logger, providers.Options{Model: cfg.ProviderModel}),
		Cost:            costSvc,
		Conversations:   conversations,
		Emitter:         emitter,
		Metrics:         metrics,
		AttackThreshold: cfg.AttackThreshold,
		InvokeTimeout:   cfg.InvokeTimeout,
	})

	router := routes.New(routes.Dependencies{
		Logger:        logger,
		Predict:       handlers.NewPredictHandler(logger, pipelineSvc),
		Guardrails:    handlers.NewGuardrailHandler(logger, store),
		Feedback:      handlers.NewFeedbackHandler(logger, feedbackSvc),
		Conversations: handlers.NewConversationHandler(logger, conversations, auditRepo, metrics),
		Stats:         handlers.NewStatsHandler(logger, pipelineSvc, store, feedbackSvc, cfg.Version),
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminSecret:   cfg.AdminJWTSecret,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan struct{})
	go sweepConversations(conversations, metrics, stop)

	go func() {
		logger.Info("gateway listening",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.Env),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := emitter.Close(ctx); err != nil {
		logger.Error("draining audit queue", zap.Error(err))
	}
	if err := feedbackSvc.Close(ctx); err != nil {
		logger.Error("draining feedback queue", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildRepositories(logger *zap.Logger, cfg *config.Config) (repositories.AuditRepository, repositories.FeedbackRepository, *sql.DB) {
	if cfg.DatabaseURL == "" {
		logger.Info("no database configured, using in-memory repositories")
		return repositories.NewMemoryAuditRepository(cfg.AuditRetention),
			repositories.NewMemoryFeedbackRepository(), nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("opening database", zap.Error(err))
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("pinging database", zap.Error(err))
	}

	logger.Info("using postgres repositories")
	return repositories.NewPostgresAuditRepository(db),
		repositories.NewPostgresFeedbackRepository(db), db
}

func loadRules(cfg *config.Config) ([]models.GuardrailRule, error) {
	if cfg.RulePackPath == "" {
		return nil, nil
	}
	return guardrail.LoadRulePack(cfg.RulePackPath)
}

func buildCost(logger *zap.Logger, cfg *config.Config) (*cost.Service, error) {
	if cfg.PricingPath == "" {
		return cost.NewService(logger, nil), nil
	}
	return cost.NewServiceFromFile(logger, cfg.PricingPath)
}

func sweepConversations(tracker *conversation.Tracker, metrics *observability.Metrics, stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, snap := range tracker.Sweep() {
				metrics.ObserveConversationEnd(snap.Turns, snap.LastActive.Sub(snap.StartedAt).Seconds())
			}
			metrics.ActiveConversations.Set(float64(tracker.ActiveCount()))
		}
	}
}
