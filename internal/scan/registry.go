package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry errors.
var (
	ErrSessionNotFound = errors.New("scan session not found")
	ErrNotOwner        = errors.New("scan session belongs to another operator")
)

// ScanSession is one operator's scanner aimed at one event. It owns the
// single-flight cycle and stands in for the camera resource: it must be
// closed on every exit path, and the registry janitor reaps sessions the
// operator abandoned.
type ScanSession struct {
	ID      string
	EventID string
	OwnerID string

	mu       sync.Mutex
	cycle    Cycle
	lastUsed time.Time
	closed   bool
}

// WithCycle runs fn with exclusive access to the cycle and refreshes the
// idle deadline.
func (s *ScanSession) WithCycle(fn func(c *Cycle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
	fn(&s.cycle)
}

// Registry tracks open scan sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*ScanSession
	idleTTL  time.Duration
	logger   *slog.Logger
}

// NewRegistry creates a registry reaping sessions idle longer than idleTTL.
func NewRegistry(idleTTL time.Duration, logger *slog.Logger) *Registry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &Registry{
		sessions: make(map[string]*ScanSession),
		idleTTL:  idleTTL,
		logger:   logger,
	}
}

// Open creates a scan session for the operator and event.
func (r *Registry) Open(ownerID, eventID string) *ScanSession {
	s := &ScanSession{
		ID:       uuid.NewString(),
		EventID:  eventID,
		OwnerID:  ownerID,
		lastUsed: time.Now(),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the session if it exists and belongs to ownerID.
func (r *Registry) Get(id, ownerID string) (*ScanSession, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return s, nil
}

// Close releases the session. Closing an already-closed or unknown session
// is not an error; exit paths overlap.
func (r *Registry) Close(id, ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	delete(r.sessions, id)
}

// CloseAllFor releases every session an operator holds, used when their
// dashboard session ends.
func (r *Registry) CloseAllFor(ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.OwnerID == ownerID {
			delete(r.sessions, id)
		}
	}
}

// Sweep runs the idle janitor until ctx is done.
func (r *Registry) Sweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.reap(now)
		}
	}
}

func (r *Registry) reap(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastUsed)
		s.mu.Unlock()
		if idle > r.idleTTL {
			delete(r.sessions, id)
			r.logger.Info("reaped idle scan session", "scanSession", id, "event", s.EventID)
		}
	}
}
