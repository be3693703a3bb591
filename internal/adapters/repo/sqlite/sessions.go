package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
)

// SessionStore keeps conversation sessions next to the ledger so they
// survive a restart of the gateway.
type SessionStore struct {
	db *sql.DB
}

var _ ports.SessionStore = (*SessionStore)(nil)

// Sessions returns a session store sharing the ledger database.
func (s *LedgerStore) Sessions() *SessionStore {
	return &SessionStore{db: s.db}
}

func (s *SessionStore) Save(ctx context.Context, session domain.ConversationSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, device_id, mode, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET device_id = excluded.device_id, mode = excluded.mode,
			created_at = excluded.created_at, expires_at = excluded.expires_at`,
		string(session.Token), string(session.DeviceID), string(session.Mode),
		formatTime(session.CreatedAt), session.ExpiresAt.UTC().UnixNano())
	if err != nil {
		return classify("save session", err)
	}

	return nil
}

func (s *SessionStore) Get(ctx context.Context, token domain.SessionToken) (domain.ConversationSession, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT device_id, mode, created_at, expires_at FROM sessions WHERE token = ?`, string(token))

	var (
		deviceID, mode, createdAt string
		expiresAt                 int64
	)
	err := row.Scan(&deviceID, &mode, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ConversationSession{}, false, nil
	}
	if err != nil {
		return domain.ConversationSession{}, false, classify("select session", err)
	}

	return domain.ConversationSession{
		Token:     token,
		DeviceID:  domain.DeviceID(deviceID),
		Mode:      domain.Mode(mode),
		CreatedAt: parseTime(createdAt),
		ExpiresAt: time.Unix(0, expiresAt).UTC(),
	}, true, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domain.SessionToken) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, string(token)); err != nil {
		return classify("delete session", err)
	}

	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC().UnixNano())
	if err != nil {
		return 0, classify("delete expired sessions", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, classify("count expired sessions", err)
	}

	return int(removed), nil
}
