package conversation

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/services"
)

// DefaultMaxIdle is how long a conversation stays active without traffic.
const DefaultMaxIdle = 30 * time.Minute

// Snapshot is the exported view of one conversation.
type Snapshot struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Turns       int       `json:"turns"`
	TotalTokens int       `json:"total_tokens"`
	StartedAt   time.Time `json:"started_at"`
	LastActive  time.Time `json:"last_active"`
}

type conversation struct {
	id          string
	userID      string
	turns       int
	totalTokens int
	startedAt   time.Time
	lastActive  time.Time
}

// Tracker keeps per-conversation turn and token counters in memory.
// Conversations idle past maxIdle are swept.
type Tracker struct {
	logger  *zap.Logger
	maxIdle time.Duration
	now     func() time.Time

	mu            sync.Mutex
	conversations map[string]*conversation
}

// NewTracker builds an empty tracker.
func NewTracker(logger *zap.Logger, maxIdle time.Duration) *Tracker {
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	return &Tracker{
		logger:        logger,
		maxIdle:       maxIdle,
		now:           time.Now,
		conversations: make(map[string]*conversation),
	}
}

// Touch records one turn and its token spend, creating the conversation on
// first sight. Returns the turn number of this exchange, starting at 1.
func (t *Tracker) Touch(conversationID, userID string, tokens int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	c, ok := t.conversations[conversationID]
	if !ok {
		c = &conversation{id: conversationID, userID: userID, startedAt: now}
		t.conversations[conversationID] = c
	}
	c.turns++
	c.totalTokens += tokens
	c.lastActive = now
	if c.userID == "" {
		c.userID = userID
	}
	return c.turns
}

// Get returns a conversation's snapshot.
func (t *Tracker) Get(conversationID string) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.conversations[conversationID]
	if !ok {
		return Snapshot{}, services.ErrConversationNotFound
	}
	return snapshotOf(c), nil
}

// Delete removes a conversation and returns its final snapshot.
func (t *Tracker) Delete(conversationID string) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.conversations[conversationID]
	if !ok {
		return Snapshot{}, services.ErrConversationNotFound
	}
	delete(t.conversations, conversationID)
	return snapshotOf(c), nil
}

// ActiveCount reports how many conversations are currently tracked.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conversations)
}

// Sweep drops conversations idle past the retention window and returns
// their final snapshots. Intended for a periodic task.
func (t *Tracker) Sweep() []Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.maxIdle)
	var removed []Snapshot
	for id, c := range t.conversations {
		if c.lastActive.Before(cutoff) {
			delete(t.conversations, id)
			removed = append(removed, snapshotOf(c))
		}
	}
	if len(removed) > 0 {
		t.logger.Debug("swept idle conversations", zap.Int("removed", len(removed)))
	}
	return removed
}

func snapshotOf(c *conversation) Snapshot {
	return Snapshot{
		ID:          c.id,
		UserID:      c.userID,
		Turns:       c.turns,
		TotalTokens: c.totalTokens,
		StartedAt:   c.startedAt,
		LastActive:  c.lastActive,
	}
}
