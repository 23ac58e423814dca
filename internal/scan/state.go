package scan

import (
	"errors"

	"eventgate/internal/model"
	"eventgate/internal/upstream"
)

// State identifies where a scan cycle is. The cycle is an explicit machine
// rather than a pile of flags so contradictory combinations cannot exist.
type State int

const (
	StateIdle State = iota
	StateVerifying
	StateVerifiedFresh
	StateVerifiedDuplicate
	StateVerificationFailed
	StateConfirming
	StateConfirmed
	StateConfirmationFailed
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateVerifying:          "verifying",
	StateVerifiedFresh:      "verifiedFresh",
	StateVerifiedDuplicate:  "verifiedDuplicate",
	StateVerificationFailed: "verificationFailed",
	StateConfirming:         "confirming",
	StateConfirmed:          "confirmed",
	StateConfirmationFailed: "confirmationFailed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the state only leaves via operator dismissal.
func (s State) Terminal() bool {
	switch s {
	case StateVerifiedDuplicate, StateVerificationFailed, StateConfirmed, StateConfirmationFailed:
		return true
	}
	return false
}

// Transition errors.
var (
	// ErrBusy means a verification or confirmation is already in flight;
	// further payloads are ignored until it settles.
	ErrBusy = errors.New("scan already in progress")
	// ErrNoPending means confirm was invoked without a fresh verified
	// participant waiting.
	ErrNoPending = errors.New("no verified participant pending confirmation")
	// ErrAlreadyMarked means confirm was invoked on a duplicate; the
	// upstream must never see that request.
	ErrAlreadyMarked = errors.New("attendance already marked today")
)

// Cycle is the state machine for one scan attempt at a time. It is not safe
// for concurrent use; ScanSession serializes access.
//
// Idle → Verifying → {VerifiedFresh | VerifiedDuplicate | VerificationFailed}
// VerifiedFresh → Confirming → {Confirmed | ConfirmationFailed}
// every non-Idle state → Idle on Dismiss.
type Cycle struct {
	state      State
	seq        uint64
	identifier string
	result     *upstream.VerifyResult
	failure    string
}

// State returns the current state.
func (c *Cycle) State() State { return c.state }

// BeginVerify accepts a normalized identifier and moves Idle → Verifying.
// The returned sequence number correlates the eventual response; responses
// for superseded sequences are dropped.
func (c *Cycle) BeginVerify(identifier string) (uint64, error) {
	if c.state != StateIdle {
		return 0, ErrBusy
	}
	c.seq++
	c.identifier = identifier
	c.result = nil
	c.failure = ""
	c.state = StateVerifying
	return c.seq, nil
}

// CompleteVerify settles the verification that seq began. A stale seq, or a
// cycle no longer verifying (the operator dismissed mid-flight), drops the
// response without effect and reports false.
func (c *Cycle) CompleteVerify(seq uint64, result *upstream.VerifyResult, cause error) bool {
	if c.state != StateVerifying || seq != c.seq {
		return false
	}
	if cause != nil {
		c.failure = upstream.Message(cause, "failed to verify QR code")
		c.state = StateVerificationFailed
		return true
	}
	c.result = result
	if result.AlreadyMarked {
		c.state = StateVerifiedDuplicate
	} else {
		c.state = StateVerifiedFresh
	}
	return true
}

// BeginConfirm moves VerifiedFresh → Confirming. Confirming a duplicate is
// refused here as well as in the client; the control being disabled is not
// the authoritative guard.
func (c *Cycle) BeginConfirm() error {
	switch c.state {
	case StateVerifiedFresh:
		c.state = StateConfirming
		return nil
	case StateVerifiedDuplicate:
		return ErrAlreadyMarked
	case StateVerifying, StateConfirming:
		return ErrBusy
	default:
		return ErrNoPending
	}
}

// CompleteConfirm settles the confirmation.
func (c *Cycle) CompleteConfirm(cause error) {
	if c.state != StateConfirming {
		return
	}
	if cause != nil {
		c.failure = upstream.Message(cause, "failed to mark attendance")
		c.state = StateConfirmationFailed
		return
	}
	c.state = StateConfirmed
}

// Dismiss discards whatever the cycle holds and returns to Idle with no
// upstream call. Dismissing while a request is in flight supersedes its
// sequence so the late response is dropped on arrival.
func (c *Cycle) Dismiss() {
	c.seq++
	c.identifier = ""
	c.result = nil
	c.failure = ""
	c.state = StateIdle
}

// View is a read-only snapshot of the cycle for API responses.
type View struct {
	State              string                  `json:"state"`
	Identifier         string                  `json:"identifier,omitempty"`
	Participant        *model.Participant      `json:"participant,omitempty"`
	Event              *model.Event            `json:"event,omitempty"`
	AlreadyMarked      bool                    `json:"alreadyMarked"`
	ExistingAttendance *model.AttendanceRecord `json:"existingAttendance,omitempty"`
	Failure            string                  `json:"failure,omitempty"`
}

// Snapshot renders the cycle for a response body.
func (c *Cycle) Snapshot() View {
	v := View{
		State:      c.state.String(),
		Identifier: c.identifier,
		Failure:    c.failure,
	}
	if c.result != nil {
		participant := c.result.Participant
		event := c.result.Event
		v.Participant = &participant
		v.Event = &event
		v.AlreadyMarked = c.result.AlreadyMarked
		v.ExistingAttendance = c.result.ExistingAttendance
	}
	return v
}
