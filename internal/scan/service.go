package scan

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"eventgate/internal/model"
	"eventgate/internal/permission"
	"eventgate/internal/upstream"
)

// ErrEmptyPayload is returned for a scan submission with no decoded text.
var ErrEmptyPayload = errors.New("empty scan payload")

// Service runs the two-step attendance verification workflow against the
// upstream. It never mutates attendance outside Confirm, and after a
// successful confirmation it recomputes statistics from a fresh upstream
// query rather than adjusting local counts.
type Service struct {
	api    *upstream.Client
	logger *slog.Logger
}

// NewService creates the workflow service.
func NewService(api *upstream.Client, logger *slog.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// EventData is the per-event snapshot a scan surface renders from.
type EventData struct {
	Event        *model.Event             `json:"event"`
	Participants []model.Participant      `json:"participants"`
	Attendance   []model.AttendanceRecord `json:"attendance"`
	ScannedToday []model.AttendanceRecord `json:"scannedToday"`
	Stats        model.Stats              `json:"stats"`
}

// ScanTargets computes the events the operator may scan for. A failure
// fetching granted events degrades to owned events only; partial data beats
// blocking the whole surface.
func (s *Service) ScanTargets(ctx context.Context, token string) ([]model.Event, error) {
	owned, err := s.api.MyEvents(ctx, token)
	if err != nil {
		return nil, err
	}
	granted, err := s.api.MyGrantedEvents(ctx, token)
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			return nil, err
		}
		s.logger.Warn("granted events unavailable, serving owned only", "error", err)
		granted = nil
	}
	return permission.ScanTargets(owned, granted), nil
}

// EventData loads event, participants and attendance, and derives today's
// statistics. Which records count as "today" for display follows the
// gateway clock in UTC; the authoritative duplicate check stays with the
// upstream's alreadyMarked verdict.
func (s *Service) EventData(ctx context.Context, token, eventID string) (*EventData, error) {
	event, err := s.api.GetEvent(ctx, token, eventID)
	if err != nil {
		return nil, err
	}
	participants, err := s.api.ParticipantsByEvent(ctx, token, eventID)
	if err != nil {
		return nil, err
	}
	attendance, err := s.api.AttendanceByEvent(ctx, token, eventID)
	if err != nil {
		return nil, err
	}

	today := scannedOn(attendance, time.Now().UTC())
	return &EventData{
		Event:        event,
		Participants: participants,
		Attendance:   attendance,
		ScannedToday: today,
		Stats:        ComputeStats(len(participants), distinctParticipants(today)),
	}, nil
}

// Scan runs the verification step for one decoded payload. While a
// verification is in flight further payloads are ignored (ErrBusy). The
// step is read-only; attendance state never changes here.
func (s *Service) Scan(ctx context.Context, sess *ScanSession, token, rawPayload string) (View, error) {
	identifier := ParsePayload(rawPayload)
	if identifier == "" {
		return View{}, ErrEmptyPayload
	}

	var (
		seq      uint64
		beginErr error
	)
	sess.WithCycle(func(c *Cycle) {
		seq, beginErr = c.BeginVerify(identifier)
	})
	if beginErr != nil {
		var view View
		sess.WithCycle(func(c *Cycle) { view = c.Snapshot() })
		return view, beginErr
	}

	result, err := s.api.VerifyQR(ctx, token, identifier, sess.EventID)

	var view View
	sess.WithCycle(func(c *Cycle) {
		if !c.CompleteVerify(seq, result, err) {
			s.logger.Debug("dropped superseded verification response",
				"scanSession", sess.ID, "seq", seq)
		}
		view = c.Snapshot()
	})
	if err != nil && errors.Is(err, upstream.ErrUnauthorized) {
		return view, err
	}
	return view, nil
}

// Confirm runs the confirmation step. Legal only with a fresh verified
// participant pending; duplicates are refused before any upstream call. On
// success the event snapshot, statistics included, is refetched.
func (s *Service) Confirm(ctx context.Context, sess *ScanSession, token string) (View, *EventData, error) {
	var (
		beginErr    error
		participant string
	)
	sess.WithCycle(func(c *Cycle) {
		beginErr = c.BeginConfirm()
		if beginErr == nil && c.result != nil {
			participant = c.result.Participant.ID
		}
	})
	if beginErr != nil {
		var view View
		sess.WithCycle(func(c *Cycle) { view = c.Snapshot() })
		return view, nil, beginErr
	}

	err := s.api.MarkPresent(ctx, token, participant, sess.EventID)

	var view View
	sess.WithCycle(func(c *Cycle) {
		c.CompleteConfirm(err)
		view = c.Snapshot()
	})
	if err != nil {
		return view, nil, err
	}

	// Refetch rather than increment so client state cannot drift from
	// upstream truth. A refetch failure leaves the confirmation standing.
	data, err := s.EventData(ctx, token, sess.EventID)
	if err != nil {
		s.logger.Warn("post-confirmation refetch failed", "event", sess.EventID, "error", err)
		return view, nil, err
	}
	return view, data, nil
}

// Snapshot renders the session's current cycle state.
func (s *Service) Snapshot(sess *ScanSession) View {
	var view View
	sess.WithCycle(func(c *Cycle) { view = c.Snapshot() })
	return view
}

// Dismiss returns the cycle to idle, discarding any pending verified
// participant with no upstream call.
func (s *Service) Dismiss(sess *ScanSession) View {
	var view View
	sess.WithCycle(func(c *Cycle) {
		c.Dismiss()
		view = c.Snapshot()
	})
	return view
}

// ComputeStats derives the attendance summary. Rate is present/total as a
// percentage rounded to one decimal, zero when nobody is registered.
func ComputeStats(totalRegistered, present int) model.Stats {
	absent := totalRegistered - present
	if absent < 0 {
		absent = 0
	}
	rate := 0.0
	if totalRegistered > 0 {
		rate = math.Round(float64(present)/float64(totalRegistered)*1000) / 10
	}
	return model.Stats{
		TotalRegistered: totalRegistered,
		Present:         present,
		Absent:          absent,
		AttendanceRate:  rate,
	}
}

func scannedOn(records []model.AttendanceRecord, day time.Time) []model.AttendanceRecord {
	y, m, d := day.Date()
	var out []model.AttendanceRecord
	for _, r := range records {
		ry, rm, rd := r.ScannedAt.UTC().Date()
		if ry == y && rm == m && rd == d {
			out = append(out, r)
		}
	}
	return out
}

func distinctParticipants(records []model.AttendanceRecord) int {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if r.ParticipantID != "" {
			seen[r.ParticipantID] = true
		}
	}
	return len(seen)
}
