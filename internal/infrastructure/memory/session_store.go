package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/paygate-checkout/internal/domain/session"
)

var _ session.Store = (*SessionStore)(nil)

// SessionStore keeps the dashboard session for the life of the process.
type SessionStore struct {
	mu      sync.RWMutex
	current *session.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

func (s *SessionStore) Load(ctx context.Context) (session.Session, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return session.Session{}, session.ErrNotFound
	}
	return *s.current, nil
}

func (s *SessionStore) Save(ctx context.Context, sess session.Session) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := sess
	s.current = &clone
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	return nil
}
