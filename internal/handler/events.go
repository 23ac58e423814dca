package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventgate/internal/queue"
	"eventgate/internal/session"
	"eventgate/internal/upstream"
)

// PublicEvents serves the public events list through the cache. A fresh
// entry is served as-is with a background refresh queued; otherwise the
// upstream is fetched synchronously, degrading to the stale entry when the
// upstream is unreachable.
func (h *Handler) PublicEvents(c *gin.Context) {
	ctx := c.Request.Context()

	cached, fresh, cacheErr := h.cache.Get(ctx)
	if cacheErr == nil && fresh {
		h.metrics.CacheObserved("hit")
		h.enqueueRefresh(ctx)
		c.JSON(http.StatusOK, gin.H{"events": cached, "cached": true})
		return
	}

	events, err := h.api.ListEvents(ctx)
	if err != nil {
		if cacheErr == nil {
			h.metrics.CacheObserved("stale")
			h.logger.Warn("upstream unreachable, serving stale events list", "error", err)
			h.enqueueRefresh(ctx)
			c.JSON(http.StatusOK, gin.H{"events": cached, "cached": true, "stale": true})
			return
		}
		h.metrics.CacheObserved("miss")
		h.upstreamError(c, err, "failed to fetch events")
		return
	}

	h.metrics.CacheObserved("miss")
	if err := h.cache.Set(ctx, events); err != nil {
		h.logger.Warn("events cache write failed", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *Handler) enqueueRefresh(ctx context.Context) {
	if err := h.tasks.Publish(ctx, queue.Message{Type: queue.TypeEventsRefresh}); err != nil {
		h.logger.Warn("refresh enqueue failed", "error", err)
	}
}

// MyEvents lists the events the operator owns.
func (h *Handler) MyEvents(c *gin.Context) {
	sess := session.FromContext(c)
	events, err := h.api.MyEvents(c.Request.Context(), sess.Token)
	if err != nil {
		h.upstreamError(c, err, "failed to fetch events")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetEvent fetches one event.
func (h *Handler) GetEvent(c *gin.Context) {
	sess := session.FromContext(c)
	event, err := h.api.GetEvent(c.Request.Context(), sess.Token, c.Param("id"))
	if err != nil {
		h.upstreamError(c, err, "failed to fetch event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

type createEventRequest struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description"`
	StartDate       string `json:"startDate" binding:"required"`
	EndDate         string `json:"endDate" binding:"required"`
	Duration        int    `json:"duration"`
	Location        string `json:"location" binding:"required"`
	MaxParticipants int    `json:"maxParticipants"`
	SelectedTrack   string `json:"selectedTrack"`
}

// CreateEvent creates an event owned by the operator.
func (h *Handler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess := session.FromContext(c)
	event, err := h.api.CreateEvent(c.Request.Context(), sess.Token, upstream.EventInput{
		Name:            req.Name,
		Description:     req.Description,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Duration:        req.Duration,
		Location:        req.Location,
		MaxParticipants: req.MaxParticipants,
		SelectedTrack:   req.SelectedTrack,
	})
	if err != nil {
		h.upstreamError(c, err, "failed to create event")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// UpdateEvent applies a partial edit; the upstream refuses edits to
// terminated or cancelled events.
func (h *Handler) UpdateEvent(c *gin.Context) {
	var req upstream.EventUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess := session.FromContext(c)
	event, err := h.api.UpdateEvent(c.Request.Context(), sess.Token, c.Param("id"), req)
	if err != nil {
		h.upstreamError(c, err, "failed to update event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// DeleteEvent removes an event.
func (h *Handler) DeleteEvent(c *gin.Context) {
	sess := session.FromContext(c)
	if err := h.api.DeleteEvent(c.Request.Context(), sess.Token, c.Param("id")); err != nil {
		h.upstreamError(c, err, "failed to delete event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "event deleted"})
}

// TerminateEvent ends an event permanently.
func (h *Handler) TerminateEvent(c *gin.Context) {
	sess := session.FromContext(c)
	event, err := h.api.TerminateEvent(c.Request.Context(), sess.Token, c.Param("id"))
	if err != nil {
		h.upstreamError(c, err, "failed to terminate event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// EventParticipants lists registrants for an event.
func (h *Handler) EventParticipants(c *gin.Context) {
	sess := session.FromContext(c)
	participants, err := h.api.ParticipantsByEvent(c.Request.Context(), sess.Token, c.Param("id"))
	if err != nil {
		h.upstreamError(c, err, "failed to fetch participants")
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// EventAttendance returns the full per-event snapshot: participants,
// attendance, today's scans and the derived statistics.
func (h *Handler) EventAttendance(c *gin.Context) {
	sess := session.FromContext(c)
	data, err := h.flow.EventData(c.Request.Context(), sess.Token, c.Param("id"))
	if err != nil {
		h.upstreamError(c, err, "failed to fetch event data")
		return
	}
	c.JSON(http.StatusOK, data)
}

// EventReport returns the downloadable report rows.
func (h *Handler) EventReport(c *gin.Context) {
	sess := session.FromContext(c)
	report, err := h.api.AttendanceReport(c.Request.Context(), sess.Token, c.Param("id"))
	if err != nil {
		h.upstreamError(c, err, "failed to fetch report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendanceRecords": report.Records})
}
