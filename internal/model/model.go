package model

import (
	"encoding/json"
	"time"
)

// Roles the upstream assigns to dashboard accounts.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// Event lifecycle states as reported by the upstream.
const (
	StatusUpcoming   = "upcoming"
	StatusOngoing    = "ongoing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusTerminated = "terminated"
)

// User is an admin account as the upstream reports it.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the account may use dashboard operations.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// IsSuperAdmin reports whether the account may manage other admin accounts.
func (u User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		LegacyID string `json:"_id"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = aux.LegacyID
	}
	return nil
}

// Event is an event document owned by the admin who created it.
type Event struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	Duration        int       `json:"duration"`
	Location        string    `json:"location"`
	MaxParticipants int       `json:"maxParticipants"`
	SelectedTrack   string    `json:"selectedTrack,omitempty"`
	Status          string    `json:"status"`
	IsActive        bool      `json:"isActive"`
	CreatedBy       string    `json:"createdBy,omitempty"`
}

func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	aux := struct {
		*alias
		LegacyID string `json:"_id"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = aux.LegacyID
	}
	return nil
}

// Participant is a registrant for a single event. Immutable after
// registration except through attendance records.
type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	MatricNo   string `json:"matricNo"`
	Department string `json:"department"`
	Gender     string `json:"gender"`
	Track      string `json:"track,omitempty"`
	Photo      string `json:"photo,omitempty"`
	EventID    string `json:"eventId"`
}

// The upstream emits `_id` on list endpoints and a flattened `id` on the
// verify-qr response; both are accepted.
func (p *Participant) UnmarshalJSON(data []byte) error {
	type alias Participant
	aux := struct {
		*alias
		LegacyID string `json:"_id"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = aux.LegacyID
	}
	return nil
}

// AttendanceRecord marks one participant present for one event on one
// calendar day. The upstream enforces at most one record per
// (participant, event, day).
type AttendanceRecord struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participantId"`
	EventID       string    `json:"eventId"`
	ScannedAt     time.Time `json:"scannedAt"`
	Date          string    `json:"date,omitempty"`
}

// The upstream sometimes populates participantId into a full participant
// document; either shape decodes to the bare identifier.
func (a *AttendanceRecord) UnmarshalJSON(data []byte) error {
	type alias AttendanceRecord
	aux := struct {
		*alias
		LegacyID      string          `json:"_id"`
		ParticipantID json.RawMessage `json:"participantId"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = aux.LegacyID
	}
	if len(aux.ParticipantID) > 0 {
		var id string
		if err := json.Unmarshal(aux.ParticipantID, &id); err == nil {
			a.ParticipantID = id
		} else {
			var populated Participant
			if err := json.Unmarshal(aux.ParticipantID, &populated); err != nil {
				return err
			}
			a.ParticipantID = populated.ID
		}
	}
	return nil
}

// PermissionSet is the capability flags attached to a grant.
type PermissionSet struct {
	CanScan        bool `json:"canScan"`
	CanViewReports bool `json:"canViewReports"`
	CanEdit        bool `json:"canEdit"`
	CanDelete      bool `json:"canDelete"`
}

// EventPermission is a grant from an event-owning admin to another admin.
type EventPermission struct {
	ID          string        `json:"id"`
	EventID     string        `json:"eventId"`
	GrantedTo   User          `json:"grantedTo"`
	GrantedBy   User          `json:"grantedBy"`
	Permissions PermissionSet `json:"permissions"`
	Notes       string        `json:"notes,omitempty"`
	IsActive    bool          `json:"isActive"`
	GrantedAt   time.Time     `json:"grantedAt"`
}

func (e *EventPermission) UnmarshalJSON(data []byte) error {
	type alias EventPermission
	aux := struct {
		*alias
		LegacyID string `json:"_id"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = aux.LegacyID
	}
	return nil
}

// GrantedEvent pairs an event another admin owns with the permissions the
// viewer was granted on it.
type GrantedEvent struct {
	Event       *Event        `json:"event"`
	Permissions PermissionSet `json:"permissions"`
	IsActive    bool          `json:"isActive"`
}

// Older upstream deployments omit isActive on granted events; absence means
// the grant is live.
func (g *GrantedEvent) UnmarshalJSON(data []byte) error {
	type alias GrantedEvent
	aux := struct {
		*alias
		IsActive *bool `json:"isActive"`
	}{alias: (*alias)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	g.IsActive = aux.IsActive == nil || *aux.IsActive
	return nil
}

// Stats is the attendance summary for one event on the current day.
type Stats struct {
	TotalRegistered int     `json:"totalRegistered"`
	Present         int     `json:"present"`
	Absent          int     `json:"absent"`
	AttendanceRate  float64 `json:"attendanceRate"`
}

// ReportRecord is one row of the downloadable attendance report.
type ReportRecord struct {
	EventName       string     `json:"eventName"`
	Track           string     `json:"track,omitempty"`
	ParticipantName string     `json:"participantName"`
	MatricNo        string     `json:"matricNo"`
	Status          string     `json:"status"`
	Date            string     `json:"date"`
	ScannedAt       *time.Time `json:"scannedAt,omitempty"`
	Reason          string     `json:"reason,omitempty"`
}
