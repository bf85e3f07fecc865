package transfer

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/BaSui01/warmflow/types"
	"go.uber.org/zap"
)

// Metrics receives transfer lifecycle observations. The store and machine
// call it outside their locks; a nil-safe noop is substituted when absent.
type Metrics interface {
	RecordTransfer(status string, duration time.Duration)
	RecordTokenIssued(role string)
	SetActiveTransfers(n int)
	RecordReaperEviction(state string)
}

type nopMetrics struct{}

func (nopMetrics) RecordTransfer(string, time.Duration) {}
func (nopMetrics) RecordTokenIssued(string)             {}
func (nopMetrics) SetActiveTransfers(int)               {}
func (nopMetrics) RecordReaperEviction(string)          {}

// Store is the concurrent registry of transfer sessions. It owns every
// record it holds: callers receive copies, and all mutation goes through
// Put, Transition, and Reap under the store lock. The lock is only ever
// held around in-memory work, never across provider calls.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*types.TransferSession
	logger   *zap.Logger
	metrics  Metrics
}

// NewStore creates an empty session store.
func NewStore(logger *zap.Logger, metrics Metrics) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Store{
		sessions: make(map[string]*types.TransferSession),
		logger:   logger.With(zap.String("component", "transfer_store")),
		metrics:  metrics,
	}
}

// Put records a new session. Session ids are uuid-generated and never
// reused, so an existing id indicates a programming error upstream.
func (s *Store) Put(sess *types.TransferSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return types.NewError(types.ErrInternalError, fmt.Sprintf("duplicate transfer session id: %s", sess.ID)).
			WithOperation("transfer.Put")
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	s.metrics.SetActiveTransfers(s.activeLocked())
	return nil
}

// Get returns a snapshot copy of the session.
func (s *Store) Get(id string) (types.TransferSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return types.TransferSession{}, false
	}
	return *sess, true
}

// Transition atomically moves a session from one state to another and
// returns the post-transition snapshot. Concurrent transitions on the same
// id serialize here: exactly one caller wins, the rest observe InvalidState.
// A transition to the completed state stamps CompletedAt.
func (s *Store) Transition(id string, from, to types.TransferState) (types.TransferSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return types.TransferSession{}, types.NewError(types.ErrNotFound,
			fmt.Sprintf("transfer session not found: %s", id)).
			WithHTTPStatus(http.StatusNotFound).
			WithOperation("transfer.Transition")
	}
	if sess.State != from {
		return types.TransferSession{}, types.NewError(types.ErrInvalidState,
			fmt.Sprintf("transfer %s is %s, not %s", id, sess.State, from)).
			WithHTTPStatus(http.StatusConflict).
			WithOperation("transfer.Transition")
	}

	sess.State = to
	if to == types.TransferCompleted {
		now := time.Now().UTC()
		sess.CompletedAt = &now
	}
	s.metrics.SetActiveTransfers(s.activeLocked())
	return *sess, nil
}

// Stats returns the aggregate session counts. A session is active iff it is
// still in the initiated state.
func (s *Store) Stats() types.TransferStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats types.TransferStats
	for _, sess := range s.sessions {
		switch sess.State {
		case types.TransferInitiated:
			stats.Active++
		case types.TransferCompleted:
			stats.Completed++
		case types.TransferAbandoned:
			stats.Abandoned++
		}
	}
	return stats
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap evicts every session older than ttl regardless of state. Sessions
// still initiated are marked abandoned first, so the audit trail
// distinguishes "timed out mid-handoff" from sessions that finished.
// Returns snapshots of the evicted sessions.
func (s *Store) Reap(now time.Time, ttl time.Duration) []types.TransferSession {
	s.mu.Lock()
	var evicted []types.TransferSession
	for id, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) <= ttl {
			continue
		}
		if sess.State == types.TransferInitiated {
			sess.State = types.TransferAbandoned
		}
		evicted = append(evicted, *sess)
		delete(s.sessions, id)
	}
	active := s.activeLocked()
	s.mu.Unlock()

	for _, sess := range evicted {
		s.logger.Info("reaped expired transfer session",
			zap.String("transfer_id", sess.ID),
			zap.String("state", string(sess.State)),
			zap.Time("created_at", sess.CreatedAt),
		)
		s.metrics.RecordReaperEviction(string(sess.State))
	}
	s.metrics.SetActiveTransfers(active)
	return evicted
}

// StartReaper runs the eviction sweep on a fixed interval until ctx is
// cancelled. It is independent of request traffic.
func (s *Store) StartReaper(ctx context.Context, interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		s.logger.Info("session reaper started",
			zap.Duration("interval", interval),
			zap.Duration("ttl", ttl),
		)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("session reaper stopped")
				return
			case <-ticker.C:
				s.Reap(time.Now(), ttl)
			}
		}
	}()
}

// activeLocked counts initiated sessions; callers hold s.mu.
func (s *Store) activeLocked() int {
	n := 0
	for _, sess := range s.sessions {
		if sess.State == types.TransferInitiated {
			n++
		}
	}
	return n
}
