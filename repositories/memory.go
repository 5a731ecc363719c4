package repositories

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sentinelops/aegisgate/models"
	"github.com/sentinelops/aegisgate/services"
)

// DefaultRetention bounds the in-memory audit trail.
const DefaultRetention = 10000

// MemoryAuditRepository keeps the audit trail in a bounded in-process
// buffer. Default backend when no database is configured.
type MemoryAuditRepository struct {
	mu       sync.RWMutex
	records  []models.AuditRecord
	capacity int
}

// NewMemoryAuditRepository builds a buffer holding up to capacity records;
// the oldest records are evicted first.
func NewMemoryAuditRepository(capacity int) *MemoryAuditRepository {
	if capacity <= 0 {
		capacity = DefaultRetention
	}
	return &MemoryAuditRepository{capacity: capacity}
}

// Save appends a record, evicting the oldest when full.
func (r *MemoryAuditRepository) Save(_ context.Context, record *models.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, *record)
	if len(r.records) > r.capacity {
		r.records = r.records[len(r.records)-r.capacity:]
	}
	return nil
}

// GetByRequestID finds the record for one request.
func (r *MemoryAuditRepository) GetByRequestID(_ context.Context, requestID uuid.UUID) (*models.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].RequestID == requestID {
			rec := r.records[i]
			return &rec, nil
		}
	}
	return nil, services.ErrAuditRecordNotFound
}

// ListByConversation returns the newest records of a conversation, newest
// first.
func (r *MemoryAuditRepository) ListByConversation(_ context.Context, conversationID string, limit int) ([]models.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.AuditRecord
	for i := len(r.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.records[i].ConversationID == conversationID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

// Recent returns the newest records, newest first.
func (r *MemoryAuditRepository) Recent(_ context.Context, limit int) ([]models.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.records) {
		limit = len(r.records)
	}
	out := make([]models.AuditRecord, 0, limit)
	for i := len(r.records) - 1; i >= len(r.records)-limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

// MemoryFeedbackRepository keeps feedback in process memory.
type MemoryFeedbackRepository struct {
	mu        sync.RWMutex
	feedback  []models.Feedback
	ratingSum int
}

// NewMemoryFeedbackRepository builds an empty store.
func NewMemoryFeedbackRepository() *MemoryFeedbackRepository {
	return &MemoryFeedbackRepository{}
}

// Save appends one feedback entry.
func (r *MemoryFeedbackRepository) Save(_ context.Context, fb *models.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.feedback = append(r.feedback, *fb)
	r.ratingSum += fb.Rating
	return nil
}

// AverageRating reports the mean rating, or 0 when empty.
func (r *MemoryFeedbackRepository) AverageRating(_ context.Context) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.feedback) == 0 {
		return 0, nil
	}
	return float64(r.ratingSum) / float64(len(r.feedback)), nil
}
