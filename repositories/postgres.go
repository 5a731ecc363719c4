package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sentinelops/aegisgate/models"
	"github.com/sentinelops/aegisgate/services"
)

// PostgresAuditRepository persists the audit trail to Postgres. Findings,
// decision and cost are stored as jsonb so the schema survives detector
// changes.
type PostgresAuditRepository struct {
	db *sql.DB
}

// NewPostgresAuditRepository wraps an open connection pool.
func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

// Save inserts one audit record.
func (r *PostgresAuditRepository) Save(ctx context.Context, record *models.AuditRecord) error {
	findings, err := json.Marshal(record.Findings)
	if err != nil {
		return fmt.Errorf("marshaling findings: %w", err)
	}
	decision, err := json.Marshal(record.Decision)
	if err != nil {
		return fmt.Errorf("marshaling decision: %w", err)
	}
	costJSON, err := json.Marshal(record.Cost)
	if err != nil {
		return fmt.Errorf("marshaling cost: %w", err)
	}

	query := `
		INSERT INTO audit_records (
			request_id, conversation_id, user_id, scenario,
			findings, decision, cost,
			quality_score, security_score, trust_index,
			risk_level, risk_reason, outcome, latency_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.db.ExecContext(ctx, query,
		record.RequestID, record.ConversationID, record.UserID, record.Scenario,
		findings, decision, costJSON,
		record.QualityScore, record.SecurityScore, record.TrustIndex,
		string(record.RiskLevel), record.RiskReason, string(record.Outcome),
		record.LatencyMs, record.Timestamp,
	)
	if err != nil {
		return services.WrapInternal("inserting audit record", err)
	}
	return nil
}

// GetByRequestID loads the record for one request.
func (r *PostgresAuditRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.AuditRecord, error) {
	query := auditSelect + ` WHERE request_id = $1`

	row := r.db.QueryRowContext(ctx, query, requestID)
	record, err := scanAuditRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.ErrAuditRecordNotFound
	}
	if err != nil {
		return nil, services.WrapInternal("loading audit record", err)
	}
	return record, nil
}

// ListByConversation returns a conversation's records, newest first.
func (r *PostgresAuditRepository) ListByConversation(ctx context.Context, conversationID string, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := auditSelect + ` WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, services.WrapInternal("listing audit records", err)
	}
	defer rows.Close()
	return collectAuditRecords(rows)
}

// Recent returns the newest records across all conversations.
func (r *PostgresAuditRepository) Recent(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := auditSelect + ` ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, services.WrapInternal("listing audit records", err)
	}
	defer rows.Close()
	return collectAuditRecords(rows)
}

const auditSelect = `
	SELECT request_id, conversation_id, user_id, scenario,
	       findings, decision, cost,
	       quality_score, security_score, trust_index,
	       risk_level, risk_reason, outcome, latency_ms, created_at
	FROM audit_records`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuditRecord(row rowScanner) (*models.AuditRecord, error) {
	var (
		record   models.AuditRecord
		findings []byte
		decision []byte
		costJSON []byte
	)
	err := row.Scan(
		&record.RequestID, &record.ConversationID, &record.UserID, &record.Scenario,
		&findings, &decision, &costJSON,
		&record.QualityScore, &record.SecurityScore, &record.TrustIndex,
		&record.RiskLevel, &record.RiskReason, &record.Outcome,
		&record.LatencyMs, &record.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	if len(findings) > 0 {
		if err := json.Unmarshal(findings, &record.Findings); err != nil {
			return nil, fmt.Errorf("unmarshaling findings: %w", err)
		}
	}
	if len(decision) > 0 {
		if err := json.Unmarshal(decision, &record.Decision); err != nil {
			return nil, fmt.Errorf("unmarshaling decision: %w", err)
		}
	}
	if len(costJSON) > 0 {
		if err := json.Unmarshal(costJSON, &record.Cost); err != nil {
			return nil, fmt.Errorf("unmarshaling cost: %w", err)
		}
	}
	return &record, nil
}

func collectAuditRecords(rows *sql.Rows) ([]models.AuditRecord, error) {
	var out []models.AuditRecord
	for rows.Next() {
		record, err := scanAuditRecord(rows)
		if err != nil {
			return nil, services.WrapInternal("scanning audit record", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, services.WrapInternal("iterating audit records", err)
	}
	return out, nil
}

// PostgresFeedbackRepository persists user feedback to Postgres.
type PostgresFeedbackRepository struct {
	db *sql.DB
}

// NewPostgresFeedbackRepository wraps an open connection pool.
func NewPostgresFeedbackRepository(db *sql.DB) *PostgresFeedbackRepository {
	return &PostgresFeedbackRepository{db: db}
}

// Save inserts one feedback entry.
func (r *PostgresFeedbackRepository) Save(ctx context.Context, fb *models.Feedback) error {
	query := `
		INSERT INTO feedback (id, request_id, rating, category, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		fb.ID, fb.RequestID, fb.Rating, fb.Category, fb.Comment, fb.CreatedAt)
	if err != nil {
		return services.WrapInternal("inserting feedback", err)
	}
	return nil
}

// AverageRating reports the mean rating across all feedback, 0 when empty.
func (r *PostgresFeedbackRepository) AverageRating(ctx context.Context) (float64, error) {
	var avg float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(rating), 0) FROM feedback`).Scan(&avg)
	if err != nil {
		return 0, services.WrapInternal("averaging feedback", err)
	}
	return avg, nil
}
