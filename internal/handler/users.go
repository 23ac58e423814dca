package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventgate/internal/model"
	"eventgate/internal/session"
	"eventgate/internal/upstream"
)

// ListUsers returns every admin account. Superadmin only.
func (h *Handler) ListUsers(c *gin.Context) {
	sess := session.FromContext(c)
	users, err := h.api.ListUsers(c.Request.Context(), sess.Token)
	if err != nil {
		h.upstreamError(c, err, "failed to fetch users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// CreateUser provisions a sub-admin. The role is fixed at admin here;
// superadmins are not provisioned through the API.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess := session.FromContext(c)
	user, err := h.api.CreateUser(c.Request.Context(), sess.Token, upstream.CreateUserRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.RoleAdmin,
	})
	if err != nil {
		h.upstreamError(c, err, "failed to create user")
		return
	}
	h.logger.Info("sub-admin created", "email", req.Email, "actor", sess.User.Email)
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// DeleteUser removes a sub-admin account.
func (h *Handler) DeleteUser(c *gin.Context) {
	sess := session.FromContext(c)
	if err := h.api.DeleteUser(c.Request.Context(), sess.Token, c.Param("id")); err != nil {
		h.upstreamError(c, err, "failed to delete user")
		return
	}
	h.logger.Info("sub-admin deleted", "user", c.Param("id"), "actor", sess.User.Email)
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
