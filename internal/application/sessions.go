package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/beright/internal/domain"
	"github.com/bnema/beright/internal/ports"
	"go.uber.org/zap"
)

const sessionTokenBytes = 32

type SessionConfig struct {
	TTL       time.Duration
	Revocable bool
}

// SessionManager proves to stage calls that their conversation was already charged.
type SessionManager struct {
	ledger *Ledger
	store  ports.SessionStore
	cfg    SessionConfig
	clock  ports.Clock
	logger *zap.Logger

	newToken func() (domain.SessionToken, error)
}

type StartResult struct {
	Session  domain.ConversationSession
	Snapshot domain.CreditSnapshot
}

type Authorization struct {
	Mode domain.Mode
	// Charged is true when this call consumed a credit and opened a new session.
	Charged bool
	Session domain.ConversationSession
}

func NewSessionManager(ledger *Ledger, store ports.SessionStore, cfg SessionConfig, clock ports.Clock, logger *zap.Logger) *SessionManager {
	if cfg.TTL <= 0 {
		cfg.TTL = domain.DefaultSessionTTL
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionManager{
		ledger:   ledger,
		store:    store,
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
		newToken: randomToken,
	}
}

// Start charges one credit and opens a conversation session for the device.
func (m *SessionManager) Start(ctx context.Context, deviceID domain.DeviceID) (StartResult, error) {
	consumed, err := m.ledger.ConsumeOne(ctx, deviceID)
	if err != nil {
		return StartResult{}, err
	}

	token, err := m.newToken()
	if err != nil {
		return StartResult{}, fmt.Errorf("mint session token: %w", err)
	}

	now := m.clock.Now()
	session := domain.ConversationSession{
		Token:     token,
		DeviceID:  deviceID,
		Mode:      consumed.Mode,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}
	if err := m.store.Save(ctx, session); err != nil {
		return StartResult{}, fmt.Errorf("save session: %w", err)
	}

	m.logger.Info("conversation started",
		zap.String("device_id", string(deviceID)),
		zap.String("mode", string(session.Mode)),
		zap.Time("expires_at", session.ExpiresAt),
	)

	return StartResult{Session: session, Snapshot: consumed.Snapshot}, nil
}

func (m *SessionManager) Validate(ctx context.Context, token domain.SessionToken, deviceID domain.DeviceID) (domain.Mode, error) {
	session, err := m.lookup(ctx, token, deviceID)
	if err != nil {
		return "", err
	}

	return session.Mode, nil
}

// Authorize admits a stage call. A valid token is never charged again; a
// missing or invalid one falls back to charging and opening a new session.
func (m *SessionManager) Authorize(ctx context.Context, deviceID domain.DeviceID, token domain.SessionToken) (Authorization, error) {
	if err := deviceID.Validate(); err != nil {
		return Authorization{}, err
	}

	if token != "" {
		session, err := m.lookup(ctx, token, deviceID)
		if err == nil {
			return Authorization{Mode: session.Mode, Session: session}, nil
		}
		if !errors.Is(err, domain.ErrInvalidSession) {
			return Authorization{}, err
		}
		m.logger.Debug("session rejected, charging", zap.String("device_id", string(deviceID)))
	}

	started, err := m.Start(ctx, deviceID)
	if err != nil {
		return Authorization{}, err
	}

	return Authorization{Mode: started.Session.Mode, Charged: true, Session: started.Session}, nil
}

func (m *SessionManager) End(ctx context.Context, deviceID domain.DeviceID, token domain.SessionToken) error {
	if !m.cfg.Revocable {
		return domain.ErrRevocationDisabled
	}
	if _, err := m.lookup(ctx, token, deviceID); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

func (m *SessionManager) Prune(ctx context.Context) (int, error) {
	removed, err := m.store.DeleteExpired(ctx, m.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	if removed > 0 {
		m.logger.Debug("expired sessions pruned", zap.Int("count", removed))
	}

	return removed, nil
}

// RunJanitor prunes expired sessions every interval until ctx is done.
func (m *SessionManager) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Prune(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn("session janitor failed", zap.Error(err))
			}
		}
	}
}

func (m *SessionManager) lookup(ctx context.Context, token domain.SessionToken, deviceID domain.DeviceID) (domain.ConversationSession, error) {
	if token == "" {
		return domain.ConversationSession{}, fmt.Errorf("%w: missing token", domain.ErrInvalidSession)
	}

	session, found, err := m.store.Get(ctx, token)
	if err != nil {
		return domain.ConversationSession{}, fmt.Errorf("get session: %w", err)
	}
	if !found {
		return domain.ConversationSession{}, fmt.Errorf("%w: unknown token", domain.ErrInvalidSession)
	}
	if !session.ValidFor(deviceID, m.clock.Now()) {
		return domain.ConversationSession{}, fmt.Errorf("%w: expired or foreign token", domain.ErrInvalidSession)
	}

	return session, nil
}

func randomToken() (domain.SessionToken, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return domain.SessionToken(base64.RawURLEncoding.EncodeToString(buf)), nil
}
