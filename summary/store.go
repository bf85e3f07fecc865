package summary

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/warmflow/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Record is a stored summary with its generation metadata.
type Record struct {
	ID          string    `json:"summary_id"`
	RoomName    string    `json:"room_name,omitempty"`
	TransferID  string    `json:"transfer_id,omitempty"`
	SummaryType Type      `json:"summary_type"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store keeps generated summaries in memory, keyed by uuid, and evicts them
// after a TTL. Same ownership rules as the transfer session store: callers
// get copies, mutation happens under the lock only.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	logger  *zap.Logger
}

// NewStore creates an empty summary store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		records: make(map[string]*Record),
		logger:  logger.With(zap.String("component", "summary_store")),
	}
}

// Put stores a summary and returns its assigned id.
func (s *Store) Put(rec Record) string {
	rec.ID = uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.records[rec.ID] = &rec
	s.mu.Unlock()
	return rec.ID
}

// Get returns a snapshot of the record, or a NotFound error.
func (s *Store) Get(id string) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.RUnlock()
		return nil, types.NewError(types.ErrNotFound, "summary not found: "+id).
			WithOperation("summary.Get")
	}
	cp := *rec
	s.mu.RUnlock()
	return &cp, nil
}

// Len returns the number of stored summaries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Reap evicts summaries older than ttl and returns how many were removed.
func (s *Store) Reap(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	evicted := 0
	for id, rec := range s.records {
		if now.Sub(rec.CreatedAt) > ttl {
			delete(s.records, id)
			evicted++
		}
	}
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Info("reaped expired summaries", zap.Int("evicted", evicted))
	}
	return evicted
}

// StartReaper runs the eviction sweep on a fixed interval until ctx is
// cancelled.
func (s *Store) StartReaper(ctx context.Context, interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Reap(time.Now(), ttl)
			}
		}
	}()
}
