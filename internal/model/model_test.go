package model

import (
	"encoding/json"
	"testing"
)

func TestUserLegacyID(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"_id":"abc","name":"Ada","role":"admin"}`), &u); err != nil {
		t.Fatal(err)
	}
	if u.ID != "abc" {
		t.Fatalf("expected abc got %q", u.ID)
	}

	var u2 User
	if err := json.Unmarshal([]byte(`{"id":"flat","role":"admin"}`), &u2); err != nil {
		t.Fatal(err)
	}
	if u2.ID != "flat" {
		t.Fatalf("expected flat got %q", u2.ID)
	}
}

func TestAttendanceRecordPopulatedParticipant(t *testing.T) {
	// Some list endpoints populate participantId into a full document.
	raw := `{"_id":"att1","participantId":{"_id":"p1","name":"Ada"},"eventId":"ev1","scannedAt":"2026-08-28T09:00:00Z"}`
	var rec AttendanceRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.ParticipantID != "p1" {
		t.Fatalf("expected p1 got %q", rec.ParticipantID)
	}
	if rec.ID != "att1" {
		t.Fatalf("expected att1 got %q", rec.ID)
	}
}

func TestAttendanceRecordStringParticipant(t *testing.T) {
	raw := `{"_id":"att1","participantId":"p1","eventId":"ev1","scannedAt":"2026-08-28T09:00:00Z"}`
	var rec AttendanceRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.ParticipantID != "p1" {
		t.Fatalf("expected p1 got %q", rec.ParticipantID)
	}
}

func TestGrantedEventDefaultsActive(t *testing.T) {
	// Older deployments omit isActive; absence means the grant is live.
	var g GrantedEvent
	if err := json.Unmarshal([]byte(`{"event":{"_id":"ev1"},"permissions":{"canScan":true}}`), &g); err != nil {
		t.Fatal(err)
	}
	if !g.IsActive {
		t.Fatal("absent isActive should default to true")
	}

	var g2 GrantedEvent
	if err := json.Unmarshal([]byte(`{"event":{"_id":"ev1"},"isActive":false}`), &g2); err != nil {
		t.Fatal(err)
	}
	if g2.IsActive {
		t.Fatal("explicit false must stick")
	}
}

func TestRoleChecks(t *testing.T) {
	if (User{Role: "participant"}).IsAdmin() {
		t.Fatal("participant must not pass IsAdmin")
	}
	if !(User{Role: RoleAdmin}).IsAdmin() {
		t.Fatal("admin must pass IsAdmin")
	}
	if (User{Role: RoleAdmin}).IsSuperAdmin() {
		t.Fatal("admin must not pass IsSuperAdmin")
	}
	if !(User{Role: RoleSuperAdmin}).IsSuperAdmin() {
		t.Fatal("superadmin must pass IsSuperAdmin")
	}
}
