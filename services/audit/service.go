package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/internal/observability"
	"github.com/sentinelops/aegisgate/models"
	"github.com/sentinelops/aegisgate/repositories"
)

const (
	defaultQueueSize = 1024
	defaultWorkers   = 4
	saveTimeout      = 5 * time.Second
)

// Emitter writes audit records off the request path. Emission is
// non-blocking: when the queue is full the record is dropped and counted,
// never stalling a live request.
type Emitter struct {
	logger  *zap.Logger
	repo    repositories.AuditRepository
	metrics *observability.Metrics

	// mu orders queue sends against Close: emitters hold the read lock
	// across the closed check and the send, Close takes the write lock
	// before closing the channel.
	mu      sync.RWMutex
	closed  bool
	queue   chan *models.AuditRecord
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// NewEmitter starts the worker pool. queueSize and workers fall back to
// sane defaults when non-positive.
func NewEmitter(logger *zap.Logger, repo repositories.AuditRepository, metrics *observability.Metrics, queueSize, workers int) *Emitter {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if workers <= 0 {
		workers = defaultWorkers
	}

	e := &Emitter{
		logger:  logger,
		repo:    repo,
		metrics: metrics,
		queue:   make(chan *models.AuditRecord, queueSize),
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

// Emit enqueues one record. Safe for concurrent use, including against a
// concurrent Close; returns immediately.
func (e *Emitter) Emit(record *models.AuditRecord) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.dropped.Add(1)
		return
	}
	select {
	case e.queue <- record:
	default:
		e.dropped.Add(1)
		e.logger.Warn("audit queue full, dropping record",
			zap.String("request_id", record.RequestID.String()),
			zap.String("outcome", string(record.Outcome)))
	}
}

// Dropped reports how many records were lost to backpressure.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

// Close stops intake and drains the queue, bounded by ctx.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for record := range e.queue {
		e.persist(record)
	}
}

func (e *Emitter) persist(record *models.AuditRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := e.repo.Save(ctx, record); err != nil {
		e.logger.Error("saving audit record",
			zap.String("request_id", record.RequestID.String()),
			zap.Error(err))
		return
	}

	if e.metrics != nil {
		e.metrics.ObserveRequest(record.Scenario, record.Outcome, record.LatencyMs/1000)
		e.metrics.ObserveFindings(record.Scenario, record.Findings)
		e.metrics.ObserveDecision(record.Decision)
		e.metrics.ObserveCost(record.Cost)
		if record.Outcome == models.OutcomeServed || record.Outcome == models.OutcomeMasked {
			e.metrics.QualityScore.Set(record.QualityScore)
			e.metrics.TrustIndex.Set(record.TrustIndex)
		}
	}

	e.logger.Debug("audit record persisted",
		zap.String("request_id", record.RequestID.String()),
		zap.String("outcome", string(record.Outcome)),
		zap.String("risk_level", string(record.RiskLevel)))
}
