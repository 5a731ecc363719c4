package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/sentinelops/aegisgate/models"
)

// AuditRepository persists the per-request audit trail.
type AuditRepository interface {
	Save(ctx context.Context, record *models.AuditRecord) error
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.AuditRecord, error)
	ListByConversation(ctx context.Context, conversationID string, limit int) ([]models.AuditRecord, error)
	Recent(ctx context.Context, limit int) ([]models.AuditRecord, error)
}

// FeedbackRepository persists user feedback.
type FeedbackRepository interface {
	Save(ctx context.Context, fb *models.Feedback) error
	AverageRating(ctx context.Context) (float64, error)
}
