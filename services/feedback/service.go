package feedback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/internal/observability"
	"github.com/sentinelops/aegisgate/models"
	"github.com/sentinelops/aegisgate/repositories"
	"github.com/sentinelops/aegisgate/services"
)

const (
	defaultQueueSize = 256
	saveTimeout      = 5 * time.Second

	minRating = 1
	maxRating = 5
)

// Service ingests user feedback asynchronously. Submission validates and
// enqueues; persistence and the satisfaction gauge update happen off the
// request path.
type Service struct {
	logger  *zap.Logger
	repo    repositories.FeedbackRepository
	metrics *observability.Metrics

	// mu orders queue sends against Close: Submit holds the read lock
	// across the closed check and the send, Close takes the write lock
	// before closing the channel.
	mu       sync.RWMutex
	closed   bool
	queue    chan *models.Feedback
	wg       sync.WaitGroup
	accepted atomic.Int64
	dropped  atomic.Int64
}

// NewService starts the ingestion worker.
func NewService(logger *zap.Logger, repo repositories.FeedbackRepository, metrics *observability.Metrics, queueSize int) *Service {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	s := &Service{
		logger:  logger,
		repo:    repo,
		metrics: metrics,
		queue:   make(chan *models.Feedback, queueSize),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

// Submit validates and enqueues one feedback entry, returning the stored
// form. The entry may not be persisted yet when this returns.
func (s *Service) Submit(requestID uuid.UUID, rating int, category, comment string) (*models.Feedback, error) {
	if rating < minRating || rating > maxRating {
		return nil, services.ErrInvalidRating
	}
	if requestID == uuid.Nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "request_id is required", nil)
	}

	fb := &models.Feedback{
		ID:        uuid.New(),
		RequestID: requestID,
		Rating:    rating,
		Category:  category,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "feedback intake closed", nil)
	}
	select {
	case s.queue <- fb:
		s.accepted.Add(1)
		return fb, nil
	default:
		s.dropped.Add(1)
		s.logger.Warn("feedback queue full, dropping entry",
			zap.String("request_id", requestID.String()))
		return nil, services.NewDomainError(services.ErrorTypeInternal, "feedback queue full", nil)
	}
}

// Count reports how many entries were accepted since startup.
func (s *Service) Count() int64 {
	return s.accepted.Load()
}

// Dropped reports how many entries were lost to backpressure.
func (s *Service) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops intake and drains the queue, bounded by ctx.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) worker() {
	defer s.wg.Done()
	for fb := range s.queue {
		s.persist(fb)
	}
}

func (s *Service) persist(fb *models.Feedback) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.repo.Save(ctx, fb); err != nil {
		s.logger.Error("saving feedback",
			zap.String("feedback_id", fb.ID.String()),
			zap.Error(err))
		return
	}

	if s.metrics != nil {
		if avg, err := s.repo.AverageRating(ctx); err == nil && avg > 0 {
			// Normalize the 1..5 scale to [0,1].
			s.metrics.UserSatisfaction.Set((avg - minRating) / (maxRating - minRating))
		}
	}
}
