// Package handler binds the gateway's /v1 surface to the workflow services.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventgate/internal/observability"
	"eventgate/internal/queue"
	"eventgate/internal/scan"
	"eventgate/internal/session"
	"eventgate/internal/store"
	"eventgate/internal/upstream"
)

// Handler carries the wired dependencies for every route.
type Handler struct {
	api      *upstream.Client
	sessions *session.Manager
	scans    *scan.Registry
	flow     *scan.Service
	cache    *store.EventsCache
	tasks    queue.Queue
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New wires a handler.
func New(api *upstream.Client, sessions *session.Manager, scans *scan.Registry, flow *scan.Service,
	cache *store.EventsCache, tasks queue.Queue, metrics *observability.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		api:      api,
		sessions: sessions,
		scans:    scans,
		flow:     flow,
		cache:    cache,
		tasks:    tasks,
		metrics:  metrics,
		logger:   logger,
	}
}

// Register mounts every route on the engine.
func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/v1")

	v1.POST("/auth/login", h.Login)
	v1.POST("/auth/resend-verification", h.ResendVerification)
	v1.POST("/auth/forgot-password", h.ForgotPassword)
	v1.POST("/auth/reset-password", h.ResetPassword)
	v1.POST("/auth/verify-email", h.VerifyEmail)
	v1.GET("/events", h.PublicEvents)
	v1.POST("/participants", h.RegisterParticipant)

	authed := v1.Group("", session.Guard(h.sessions))
	authed.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)

	authed.GET("/my/events", h.MyEvents)
	authed.POST("/events", h.CreateEvent)
	authed.GET("/events/:id", h.GetEvent)
	authed.PUT("/events/:id", h.UpdateEvent)
	authed.DELETE("/events/:id", h.DeleteEvent)
	authed.POST("/events/:id/terminate", h.TerminateEvent)
	authed.GET("/events/:id/participants", h.EventParticipants)
	authed.GET("/events/:id/attendance", h.EventAttendance)
	authed.GET("/events/:id/report", h.EventReport)
	authed.GET("/events/:id/permissions", h.EventPermissions)

	authed.POST("/permissions/grant", h.GrantPermission)
	authed.POST("/permissions/revoke", h.RevokePermission)

	authed.GET("/scan/targets", h.ScanTargets)
	authed.POST("/scan/sessions", h.OpenScanSession)
	authed.GET("/scan/sessions/:id", h.ScanSessionState)
	authed.POST("/scan/sessions/:id/scan", h.SubmitScan)
	authed.POST("/scan/sessions/:id/confirm", h.ConfirmScan)
	authed.POST("/scan/sessions/:id/dismiss", h.DismissScan)
	authed.DELETE("/scan/sessions/:id", h.CloseScanSession)

	admins := authed.Group("/users", session.RequireSuperAdmin())
	admins.GET("", h.ListUsers)
	admins.POST("", h.CreateUser)
	admins.DELETE("/:id", h.DeleteUser)
}

// upstreamError maps an upstream failure to a gateway response. An
// authentication rejection tears the session down (the reactive layer of
// the guard); everything else keeps its taxonomy: 403 passes through, 404
// and 409 pass through, anything unclassified is a transient 502 carrying
// the upstream message when one exists.
func (h *Handler) upstreamError(c *gin.Context, err error, fallback string) {
	sess := session.FromContext(c)
	if sess != nil && h.sessions.TeardownOn401(c.Request.Context(), sess, err) {
		h.scans.CloseAllFor(sess.ID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, upstream.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, upstream.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, upstream.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, upstream.ErrConflict):
		status = http.StatusConflict
	}

	body := gin.H{"error": upstream.Message(err, fallback)}
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) && apiErr.RequiresVerification {
		body["requiresVerification"] = true
		if apiErr.Email != "" {
			body["email"] = apiErr.Email
		}
	}
	c.JSON(status, body)
}
