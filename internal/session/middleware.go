package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextKey = "session"

// Guard enforces bearer gateway tokens on admin routes. This is the
// optimistic local layer only: it stops non-admin viewers before any
// protected work happens, while the authoritative check stays with the
// upstream (see Manager.TeardownOn401).
func Guard(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		s, err := m.Resolve(c.Request.Context(), tokenStr)
		if err != nil {
			status := http.StatusUnauthorized
			msg := "invalid token"
			if errors.Is(err, ErrRoleForbidden) {
				msg = "admin access required"
			} else if !errors.Is(err, ErrInvalidToken) {
				status = http.StatusInternalServerError
				msg = "session lookup failed"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		c.Set(contextKey, s)
		c.Next()
	}
}

// RequireSuperAdmin restricts a route group to superadmin sessions. Must run
// after Guard.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := FromContext(c)
		if s == nil || !s.User.IsSuperAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "superadmin access required"})
			return
		}
		c.Next()
	}
}

// FromContext returns the session Guard attached, or nil.
func FromContext(c *gin.Context) *Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Session)
	return s
}
