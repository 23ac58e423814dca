package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventgate/internal/scan"
	"eventgate/internal/session"
	"eventgate/internal/upstream"
)

// ScanTargets lists the events the operator may scan for: owned events plus
// active canScan grants. A grant-fetch failure degrades to owned events.
func (h *Handler) ScanTargets(c *gin.Context) {
	sess := session.FromContext(c)
	targets, err := h.flow.ScanTargets(c.Request.Context(), sess.Token)
	if err != nil {
		h.upstreamError(c, err, "failed to fetch scan targets")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": targets})
}

type openScanRequest struct {
	EventID string `json:"eventId" binding:"required"`
}

// OpenScanSession opens a scanner aimed at one event. Events outside the
// operator's scan targets are refused here, before any scanning starts;
// clients render that as a disabled choice, not an exception.
func (h *Handler) OpenScanSession(c *gin.Context) {
	var req openScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess := session.FromContext(c)
	ctx := c.Request.Context()

	targets, err := h.flow.ScanTargets(ctx, sess.Token)
	if err != nil {
		h.upstreamError(c, err, "failed to fetch scan targets")
		return
	}
	allowed := false
	for _, t := range targets {
		if t.ID == req.EventID {
			allowed = true
			break
		}
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "no scan permission for this event"})
		return
	}

	data, err := h.flow.EventData(ctx, sess.Token, req.EventID)
	if err != nil {
		h.upstreamError(c, err, "failed to fetch event data")
		return
	}

	ss := h.scans.Open(sess.ID, req.EventID)
	h.logger.Info("scan session opened", "scanSession", ss.ID, "event", req.EventID, "operator", sess.User.Email)
	c.JSON(http.StatusCreated, gin.H{
		"scanSession": gin.H{"id": ss.ID, "eventId": ss.EventID},
		"data":        data,
	})
}

// scanSession resolves the :id route param to a scan session the caller
// owns, writing the error response itself when it cannot.
func (h *Handler) scanSession(c *gin.Context) (*scan.ScanSession, bool) {
	sess := session.FromContext(c)
	ss, err := h.scans.Get(c.Param("id"), sess.ID)
	if err != nil {
		if errors.Is(err, scan.ErrNotOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": "scan session belongs to another operator"})
		} else {
			c.JSON(http.StatusNotFound, gin.H{"error": "scan session not found"})
		}
		return nil, false
	}
	return ss, true
}

// ScanSessionState returns the current cycle snapshot.
func (h *Handler) ScanSessionState(c *gin.Context) {
	ss, ok := h.scanSession(c)
	if !ok {
		return
	}
	view := h.flow.Snapshot(ss)
	c.JSON(http.StatusOK, gin.H{
		"scanSession": gin.H{"id": ss.ID, "eventId": ss.EventID},
		"cycle":       view,
	})
}

type scanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// SubmitScan runs the verification step for one decoded QR payload. While a
// verification is in flight further payloads are ignored. Verification
// failures are a modeled cycle state, not an HTTP error.
func (h *Handler) SubmitScan(c *gin.Context) {
	ss, ok := h.scanSession(c)
	if !ok {
		return
	}
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := session.FromContext(c)
	view, err := h.flow.Scan(c.Request.Context(), ss, sess.Token, req.Payload)
	switch {
	case errors.Is(err, scan.ErrEmptyPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty scan payload"})
		return
	case errors.Is(err, scan.ErrBusy):
		h.metrics.ScanObserved("ignored")
		c.JSON(http.StatusAccepted, gin.H{"cycle": view, "ignored": true})
		return
	case err != nil:
		h.metrics.ScanObserved(view.State)
		h.upstreamError(c, err, "failed to verify QR code")
		return
	}

	h.metrics.ScanObserved(view.State)
	c.JSON(http.StatusOK, gin.H{"cycle": view})
}

// ConfirmScan runs the confirmation step. Only a fresh verified participant
// may be confirmed; duplicates never reach the upstream.
func (h *Handler) ConfirmScan(c *gin.Context) {
	ss, ok := h.scanSession(c)
	if !ok {
		return
	}
	sess := session.FromContext(c)
	view, data, err := h.flow.Confirm(c.Request.Context(), ss, sess.Token)
	if err != nil {
		switch {
		case errors.Is(err, scan.ErrAlreadyMarked):
			h.metrics.ConfirmObserved("refused")
			c.JSON(http.StatusConflict, gin.H{"error": "attendance already marked today", "cycle": view})
		case errors.Is(err, scan.ErrNoPending), errors.Is(err, scan.ErrBusy):
			h.metrics.ConfirmObserved("refused")
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "cycle": view})
		case errors.Is(err, upstream.ErrUnauthorized):
			h.metrics.ConfirmObserved("failed")
			h.upstreamError(c, err, "failed to mark attendance")
		case view.State == scan.StateConfirmed.String():
			// Marked upstream, but the stats refetch failed; the record
			// stands and clients fall back to their last snapshot.
			h.metrics.ConfirmObserved("confirmed")
			h.logger.Warn("stats refetch failed after confirmation", "scanSession", ss.ID, "error", err)
			c.JSON(http.StatusOK, gin.H{"cycle": view})
		default:
			h.metrics.ConfirmObserved("failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": upstream.Message(err, "failed to mark attendance"), "cycle": view})
		}
		return
	}

	h.metrics.ConfirmObserved("confirmed")
	c.JSON(http.StatusOK, gin.H{"cycle": view, "data": data})
}

// DismissScan returns the cycle to idle with no upstream call.
func (h *Handler) DismissScan(c *gin.Context) {
	ss, ok := h.scanSession(c)
	if !ok {
		return
	}
	view := h.flow.Dismiss(ss)
	c.JSON(http.StatusOK, gin.H{"cycle": view})
}

// CloseScanSession releases the scanner. Closing twice is harmless; exit
// paths overlap.
func (h *Handler) CloseScanSession(c *gin.Context) {
	sess := session.FromContext(c)
	h.scans.Close(c.Param("id"), sess.ID)
	c.Status(http.StatusNoContent)
}
