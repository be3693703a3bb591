package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
)

// Store keeps conversation sessions in process memory. Sessions do not
// survive a restart; clients then pay through the normal charging path.
type Store struct {
	mu       sync.RWMutex
	sessions map[domain.SessionToken]domain.ConversationSession
}

var _ ports.SessionStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{sessions: map[domain.SessionToken]domain.ConversationSession{}}
}

func (s *Store) Save(ctx context.Context, session domain.ConversationSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session

	return nil
}

func (s *Store) Get(ctx context.Context, token domain.SessionToken) (domain.ConversationSession, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.ConversationSession{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]

	return session, ok, nil
}

func (s *Store) Delete(ctx context.Context, token domain.SessionToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)

	return nil
}

func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
			removed++
		}
	}

	return removed, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
