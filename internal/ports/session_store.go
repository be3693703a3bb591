package ports

import (
	"context"
	"time"

	"github.com/bnema/beright/internal/domain"
)

type SessionStore interface {
	Save(ctx context.Context, session domain.ConversationSession) error
	Get(ctx context.Context, token domain.SessionToken) (domain.ConversationSession, bool, error)
	Delete(ctx context.Context, token domain.SessionToken) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
