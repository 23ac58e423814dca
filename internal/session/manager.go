package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eventgate/internal/model"
	"eventgate/internal/upstream"
)

// Errors the manager reports to handlers.
var (
	// ErrRoleForbidden means the upstream account exists but its role may
	// never hold a dashboard session.
	ErrRoleForbidden = errors.New("role may not access the dashboard")
	// ErrInvalidToken means the gateway token failed verification or its
	// session is gone.
	ErrInvalidToken = errors.New("invalid session token")
)

// Manager owns the operator session lifecycle. All session reads and writes
// funnel through it so the reactive-logout behavior lives in one place.
type Manager struct {
	store  Store
	key    string
	issuer string
	ttl    time.Duration
	logger *slog.Logger
}

// NewManager creates a manager issuing tokens with the given signing key.
func NewManager(store Store, key, issuer string, ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{store: store, key: key, issuer: issuer, ttl: ttl, logger: logger}
}

// Establish creates a session from an upstream-issued credential and returns
// it with the gateway token the operator will carry. Only admin and
// superadmin roles ever get a session.
func (m *Manager) Establish(ctx context.Context, upstreamToken string, user model.User) (*Session, string, error) {
	if !user.IsAdmin() {
		return nil, "", ErrRoleForbidden
	}
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		Token:     upstreamToken,
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, "", err
	}
	token, err := issueToken(s.ID, user.Role, m.issuer, m.key, s.ExpiresAt)
	if err != nil {
		_ = m.store.Delete(ctx, s.ID)
		return nil, "", err
	}
	m.logger.Info("session established", "session", s.ID, "user", user.Email, "role", user.Role)
	return s, token, nil
}

// Resolve turns a gateway token into a live session. The token check is the
// optimistic local layer: it rejects bad or non-admin tokens before any
// upstream call, but the upstream remains the security boundary.
func (m *Manager) Resolve(ctx context.Context, tokenStr string) (*Session, error) {
	claims, err := parseToken(tokenStr, m.key, m.issuer)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Role != model.RoleAdmin && claims.Role != model.RoleSuperAdmin {
		return nil, ErrRoleForbidden
	}
	s, err := m.store.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if s.Expired(time.Now()) {
		_ = m.store.Delete(ctx, s.ID)
		return nil, ErrInvalidToken
	}
	return s, nil
}

// Destroy removes a session, ending the operator's access immediately.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// TeardownOn401 is the reactive layer of the guard: when an upstream call
// comes back authentication-rejected, the session it was made with is
// destroyed so every later request fails the local check too. Reports
// whether err was such a rejection.
func (m *Manager) TeardownOn401(ctx context.Context, s *Session, err error) bool {
	if !errors.Is(err, upstream.ErrUnauthorized) {
		return false
	}
	if derr := m.store.Delete(ctx, s.ID); derr != nil {
		m.logger.Warn("session teardown failed", "session", s.ID, "error", derr)
	} else {
		m.logger.Info("session torn down after upstream 401", "session", s.ID, "user", s.User.Email)
	}
	return true
}
