package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventgate/internal/session"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges upstream credentials for a gateway session token. The
// upstream bearer token never reaches the operator client.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.api.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.upstreamError(c, err, "login failed, check your credentials")
		return
	}

	sess, token, err := h.sessions.Establish(c.Request.Context(), res.Token, res.User)
	if err != nil {
		if errors.Is(err, session.ErrRoleForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		h.logger.Error("session establish failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"user":      sess.User,
		"expiresAt": sess.ExpiresAt,
	})
}

// Logout destroys the session and releases any scan sessions it holds.
func (h *Handler) Logout(c *gin.Context) {
	sess := session.FromContext(c)
	h.scans.CloseAllFor(sess.ID)
	if err := h.sessions.Destroy(c.Request.Context(), sess.ID); err != nil {
		h.logger.Warn("logout failed", "session", sess.ID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the operator bound to the current session.
func (h *Handler) Me(c *gin.Context) {
	sess := session.FromContext(c)
	c.JSON(http.StatusOK, gin.H{"user": sess.User, "expiresAt": sess.ExpiresAt})
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResendVerification proxies the activation-mail resend.
func (h *Handler) ResendVerification(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.api.ResendVerification(c.Request.Context(), req.Email); err != nil {
		h.upstreamError(c, err, "failed to resend verification email")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification email sent"})
}

// ForgotPassword proxies the reset-mail request.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.api.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.upstreamError(c, err, "failed to start password reset")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset email sent"})
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// ResetPassword completes the reset flow.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.api.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.upstreamError(c, err, "failed to reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

type verifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyEmail confirms a mailed token. When the upstream issues a session
// credential alongside, the operator is logged in immediately.
func (h *Handler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.api.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		h.upstreamError(c, err, "email verification failed")
		return
	}

	if res.Token == "" {
		c.JSON(http.StatusOK, gin.H{"message": "email verified"})
		return
	}

	sess, token, err := h.sessions.Establish(c.Request.Context(), res.Token, res.User)
	if err != nil {
		if errors.Is(err, session.ErrRoleForbidden) {
			c.JSON(http.StatusOK, gin.H{"message": "email verified"})
			return
		}
		h.logger.Error("session establish failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"user":      sess.User,
		"expiresAt": sess.ExpiresAt,
	})
}
