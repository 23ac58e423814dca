package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventgate/internal/model"
)

func guardedRouter(t *testing.T, m *Manager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authed := r.Group("", Guard(m))
	authed.GET("/whoami", func(c *gin.Context) {
		s := FromContext(c)
		c.JSON(http.StatusOK, gin.H{"email": s.User.Email})
	})
	admins := authed.Group("/users", RequireSuperAdmin())
	admins.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func newGuardManager(t *testing.T) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(NewMemoryStore(), "guard-test-key", "eventgate", time.Hour, logger)
}

func TestGuardMissingToken(t *testing.T) {
	r := guardedRouter(t, newGuardManager(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGuardMalformedHeader(t *testing.T) {
	r := guardedRouter(t, newGuardManager(t))
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token abcdef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGuardAcceptsValidSession(t *testing.T) {
	m := newGuardManager(t)
	r := guardedRouter(t, m)

	_, token, err := m.Establish(context.Background(), "up-token", model.User{
		ID: "u1", Email: "ada@example.com", Role: model.RoleAdmin,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ada@example.com")
}

func TestRequireSuperAdminRejectsAdmin(t *testing.T) {
	m := newGuardManager(t)
	r := guardedRouter(t, m)

	_, token, err := m.Establish(context.Background(), "up-token", model.User{
		ID: "u1", Email: "ada@example.com", Role: model.RoleAdmin,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireSuperAdminAllowsSuperAdmin(t *testing.T) {
	m := newGuardManager(t)
	r := guardedRouter(t, m)

	_, token, err := m.Establish(context.Background(), "up-token", model.User{
		ID: "u2", Email: "root@example.com", Role: model.RoleSuperAdmin,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
