package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelops/aegisgate/models"
	"github.com/sentinelops/aegisgate/services"
)

func testAuditRecord() *models.AuditRecord {
	record := models.NewAuditRecord(uuid.New(), "baseline")
	record.ConversationID = "conv-1"
	record.UserID = "user-1"
	record.Findings = []models.Finding{
		{Kind: models.FindingPII, Type: "email", Confidence: 0.95},
	}
	record.Decision = models.GuardrailDecision{
		ConfigVersion: 1,
		Action:        models.ActionMask,
		Rule:          models.RulePIIProtection,
	}
	record.Cost = models.CostEstimate{Model: "aegis-sim-1", InputTokens: 10, OutputTokens: 20, Amount: 0.0001, Currency: "EUR"}
	record.QualityScore = 0.85
	record.SecurityScore = 1.0
	record.TrustIndex = 0.9
	record.RiskLevel = models.RiskMedium
	record.RiskReason = "1 pii instances masked"
	record.Outcome = models.OutcomeMasked
	record.LatencyMs = 120
	return record
}

func TestPostgresAuditSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	record := testAuditRecord()

	mock.ExpectExec("INSERT INTO audit_records").
		WithArgs(
			record.RequestID, record.ConversationID, record.UserID, record.Scenario,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			record.QualityScore, record.SecurityScore, record.TrustIndex,
			string(record.RiskLevel), record.RiskReason, string(record.Outcome),
			record.LatencyMs, record.Timestamp,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresAuditRepository(db)
	require.NoError(t, repo.Save(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAuditGetByRequestID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"request_id", "conversation_id", "user_id", "scenario",
		"findings", "decision", "cost",
		"quality_score", "security_score", "trust_index",
		"risk_level", "risk_reason", "outcome", "latency_ms", "created_at",
	}).AddRow(
		id, "conv-1", "user-1", "baseline",
		[]byte(`[{"kind":"pii","type":"email","confidence":0.95,"evidence":{}}]`),
		[]byte(`{"config_version":1,"action":"mask"}`),
		[]byte(`{"model":"aegis-sim-1","input_tokens":10,"output_tokens":20,"amount":0.0001,"currency":"EUR"}`),
		0.85, 1.0, 0.9,
		"medium", "1 pii instances masked", "masked", 120.0, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM audit_records WHERE request_id").
		WithArgs(id).
		WillReturnRows(rows)

	repo := NewPostgresAuditRepository(db)
	record, err := repo.GetByRequestID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, record.RequestID)
	assert.Len(t, record.Findings, 1)
	assert.Equal(t, models.ActionMask, record.Decision.Action)
	assert.Equal(t, models.RiskMedium, record.RiskLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAuditGetByRequestIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM audit_records WHERE request_id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"request_id"}))

	repo := NewPostgresAuditRepository(db)
	_, err = repo.GetByRequestID(context.Background(), id)
	assert.True(t, services.IsNotFoundError(err))
}

func TestPostgresFeedbackSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fb := &models.Feedback{
		ID:        uuid.New(),
		RequestID: uuid.New(),
		Rating:    4,
		Category:  "helpfulness",
		Comment:   "solid answer",
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO feedback").
		WithArgs(fb.ID, fb.RequestID, fb.Rating, fb.Category, fb.Comment, fb.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresFeedbackRepository(db)
	require.NoError(t, repo.Save(context.Background(), fb))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFeedbackAverageRating(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COALESCE\\(AVG\\(rating\\), 0\\) FROM feedback").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4.2))

	repo := NewPostgresFeedbackRepository(db)
	avg, err := repo.AverageRating(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 4.2, avg, 1e-9)
}

func TestMemoryAuditRepository(t *testing.T) {
	repo := NewMemoryAuditRepository(3)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		record := testAuditRecord()
		ids = append(ids, record.RequestID)
		require.NoError(t, repo.Save(ctx, record))
	}

	// Capacity 3: the first record was evicted.
	_, err := repo.GetByRequestID(ctx, ids[0])
	assert.True(t, services.IsNotFoundError(err))

	got, err := repo.GetByRequestID(ctx, ids[3])
	require.NoError(t, err)
	assert.Equal(t, ids[3], got.RequestID)

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[3], recent[0].RequestID)

	byConv, err := repo.ListByConversation(ctx, "conv-1", 0)
	require.NoError(t, err)
	assert.Len(t, byConv, 3)
}

func TestMemoryFeedbackRepository(t *testing.T) {
	repo := NewMemoryFeedbackRepository()
	ctx := context.Background()

	avg, err := repo.AverageRating(ctx)
	require.NoError(t, err)
	assert.Zero(t, avg)

	for _, rating := range []int{3, 5} {
		require.NoError(t, repo.Save(ctx, &models.Feedback{ID: uuid.New(), Rating: rating}))
	}

	avg, err = repo.AverageRating(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, avg, 1e-9)
}
