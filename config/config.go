package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from the environment
// with an optional .env file for local development.
type Config struct {
	Port    string
	Env     string
	Version string

	AdminJWTSecret string
	DatabaseURL    string
	RulePackPath   string
	PricingPath    string

	ProviderModel   string
	AttackThreshold float64
	DriftThreshold  float64
	InvokeTimeout   time.Duration

	SLOLatencyTargetMs float64
	SLOQualityTarget   float64
	SLOLatencyBudget   float64
	SLOQualityBudget   float64
	SLOWindow          time.Duration
	RateLimitPerWindow int

	AuditQueueSize      int
	AuditWorkers        int
	AuditRetention      int
	FeedbackQueueSize   int
	ConversationMaxIdle time.Duration
}

// Load reads configuration from the environment. Missing keys fall back
// to development defaults; a .env file is honored when present.
func Load() *Config {
	// Ignore the error: the file is optional outside local development.
	_ = godotenv.Load()

	return &Config{
		Port:    getEnv("PORT", "8080"),
		Env:     getEnv("APP_ENV", "development"),
		Version: getEnv("APP_VERSION", "dev"),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", "dev-secret-change-me"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RulePackPath:   getEnv("GUARDRAIL_RULE_PACK", ""),
		PricingPath:    getEnv("PRICING_FILE", ""),

		ProviderModel:   getEnv("PROVIDER_MODEL", "aegis-sim-1"),
		AttackThreshold: getEnvFloat("SECURITY_ATTACK_THRESHOLD", 0.5),
		DriftThreshold:  getEnvFloat("DRIFT_THRESHOLD", 0.7),
		InvokeTimeout:   getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),

		SLOLatencyTargetMs: getEnvFloat("SLO_LATENCY_TARGET_MS", 1000),
		SLOQualityTarget:   getEnvFloat("SLO_QUALITY_TARGET", 0.8),
		SLOLatencyBudget:   getEnvFloat("SLO_LATENCY_BUDGET", 0.05),
		SLOQualityBudget:   getEnvFloat("SLO_QUALITY_BUDGET", 0.10),
		SLOWindow:          getEnvDuration("SLO_WINDOW", time.Minute),
		RateLimitPerWindow: getEnvInt("RATE_LIMIT_PER_WINDOW", 100),

		AuditQueueSize:      getEnvInt("AUDIT_QUEUE_SIZE", 1024),
		AuditWorkers:        getEnvInt("AUDIT_WORKERS", 4),
		AuditRetention:      getEnvInt("AUDIT_RETENTION", 10000),
		FeedbackQueueSize:   getEnvInt("FEEDBACK_QUEUE_SIZE", 256),
		ConversationMaxIdle: getEnvDuration("CONVERSATION_MAX_IDLE", 30*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
