package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventgate/internal/model"
	"eventgate/internal/upstream"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(NewMemoryStore(), "test-signing-key", "eventgate", time.Hour, logger)
}

func TestEstablishRejectsNonAdmin(t *testing.T) {
	m := testManager(t)
	_, _, err := m.Establish(context.Background(), "up-token", model.User{ID: "u1", Role: "participant"})
	assert.ErrorIs(t, err, ErrRoleForbidden)
}

func TestEstablishResolveRoundTrip(t *testing.T) {
	m := testManager(t)
	user := model.User{ID: "u1", Name: "Grace", Email: "grace@example.com", Role: model.RoleAdmin}

	sess, token, err := m.Establish(context.Background(), "up-token", user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	resolved, err := m.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, resolved.ID)
	assert.Equal(t, "up-token", resolved.Token)
	assert.Equal(t, user.Email, resolved.User.Email)
}

func TestResolveRejectsGarbage(t *testing.T) {
	m := testManager(t)
	_, err := m.Resolve(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsForeignKey(t *testing.T) {
	m := testManager(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	other := NewManager(NewMemoryStore(), "different-key", "eventgate", time.Hour, logger)

	_, token, err := other.Establish(context.Background(), "up-token", model.User{ID: "u1", Role: model.RoleAdmin})
	require.NoError(t, err)

	_, err = m.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveAfterDestroy(t *testing.T) {
	m := testManager(t)
	sess, token, err := m.Establish(context.Background(), "up-token", model.User{ID: "u1", Role: model.RoleAdmin})
	require.NoError(t, err)

	require.NoError(t, m.Destroy(context.Background(), sess.ID))
	_, err = m.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTeardownOn401(t *testing.T) {
	m := testManager(t)
	sess, token, err := m.Establish(context.Background(), "up-token", model.User{ID: "u1", Role: model.RoleAdmin})
	require.NoError(t, err)

	// A non-auth failure leaves the session alone.
	notAuth := &upstream.APIError{Status: 500, Message: "boom"}
	assert.False(t, m.TeardownOn401(context.Background(), sess, notAuth))
	_, err = m.Resolve(context.Background(), token)
	require.NoError(t, err)

	// An upstream 401 tears it down so every later request fails locally.
	rejected := &upstream.APIError{Status: 401, Message: "jwt expired"}
	assert.True(t, m.TeardownOn401(context.Background(), sess, rejected))
	_, err = m.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
