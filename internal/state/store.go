package state

import (
	"context"
	"sync"
	"time"

	"github.com/gratefultolord/insurance_bot/internal/models"
	logx "github.com/gratefultolord/insurance_bot/pkg/logger"
)

// Store keeps one Session per user. Get returns a zero Session for unknown users.
type Store interface {
	Get(ctx context.Context, userID int64) (models.Session, error)
	Save(ctx context.Context, userID int64, sess models.Session) error
	Clear(ctx context.Context, userID int64) error
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]models.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a store whose sessions become evictable after ttl
// without a Save. A zero ttl disables eviction.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]models.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sessions[userID], nil
}

func (s *MemoryStore) Save(_ context.Context, userID int64, sess models.Session) error {
	sess.UpdatedAt = s.now()

	s.mu.Lock()
	s.sessions[userID] = sess
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()

	return nil
}

// Sweep removes sessions idle for longer than the ttl and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	cutoff := s.now().Add(-s.ttl)
	removed := 0

	s.mu.Lock()
	for userID, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, userID)
			removed++
		}
	}
	s.mu.Unlock()

	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// Run sweeps every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || s.ttl <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logx.Info().Int("evicted", n).Int("remaining", s.Len()).Msg("idle sessions evicted")
			}
		}
	}
}

var _ Store = (*MemoryStore)(nil)
