package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventgate/internal/model"
	"eventgate/internal/session"
	"eventgate/internal/upstream"
)

// EventPermissions lists the grants attached to an event.
func (h *Handler) EventPermissions(c *gin.Context) {
	sess := session.FromContext(c)
	perms, err := h.api.PermissionsByEvent(c.Request.Context(), sess.Token, c.Param("id"))
	if err != nil {
		h.upstreamError(c, err, "failed to fetch permissions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

type grantRequest struct {
	EventID        string              `json:"eventId" binding:"required"`
	GrantToAdminID string              `json:"grantToAdminId" binding:"required"`
	Password       string              `json:"password" binding:"required"`
	Permissions    model.PermissionSet `json:"permissions"`
	Notes          string              `json:"notes"`
}

// GrantPermission shares event capabilities with another admin. The actor
// re-enters their own password as a confirmation factor; it is forwarded to
// the upstream verbatim and never stored or logged.
func (h *Handler) GrantPermission(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess := session.FromContext(c)
	err := h.api.GrantPermission(c.Request.Context(), sess.Token, upstream.GrantRequest{
		EventID:        req.EventID,
		GrantToAdminID: req.GrantToAdminID,
		Password:       req.Password,
		Permissions:    req.Permissions,
		Notes:          req.Notes,
	})
	if err != nil {
		h.upstreamError(c, err, "failed to grant permission")
		return
	}
	h.logger.Info("permission granted", "event", req.EventID, "grantee", req.GrantToAdminID, "actor", sess.User.Email)
	c.JSON(http.StatusOK, gin.H{"message": "permission granted"})
}

type revokeRequest struct {
	EventID           string `json:"eventId" binding:"required"`
	RevokeFromAdminID string `json:"revokeFromAdminId" binding:"required"`
	Password          string `json:"password" binding:"required"`
}

// RevokePermission withdraws a grant, with the same password confirmation.
func (h *Handler) RevokePermission(c *gin.Context) {
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess := session.FromContext(c)
	err := h.api.RevokePermission(c.Request.Context(), sess.Token, upstream.RevokeRequest{
		EventID:           req.EventID,
		RevokeFromAdminID: req.RevokeFromAdminID,
		Password:          req.Password,
	})
	if err != nil {
		h.upstreamError(c, err, "failed to revoke permission")
		return
	}
	h.logger.Info("permission revoked", "event", req.EventID, "revokee", req.RevokeFromAdminID, "actor", sess.User.Email)
	c.JSON(http.StatusOK, gin.H{"message": "permission revoked"})
}
