package permission

import (
	"testing"

	"eventgate/internal/model"
)

func event(id string, active bool, status string) model.Event {
	return model.Event{ID: id, Name: "Event " + id, IsActive: active, Status: status}
}

func grant(ev model.Event, grantActive, canScan bool) model.GrantedEvent {
	return model.GrantedEvent{
		Event:       &ev,
		IsActive:    grantActive,
		Permissions: model.PermissionSet{CanScan: canScan},
	}
}

func ids(events []model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestScanTargetsOwnedFiltering(t *testing.T) {
	owned := []model.Event{
		event("e1", true, model.StatusOngoing),
		event("e2", false, model.StatusOngoing),
		event("e3", true, model.StatusTerminated),
	}
	got := ids(ScanTargets(owned, nil))
	if len(got) != 1 || got[0] != "e1" {
		t.Fatalf("expected [e1] got %v", got)
	}
}

func TestScanTargetsGrantedRequiresCanScan(t *testing.T) {
	granted := []model.GrantedEvent{
		grant(event("g1", true, model.StatusOngoing), true, true),
		// Granted but without the scan capability: must not appear.
		grant(event("g2", true, model.StatusOngoing), true, false),
		// Revoked grant.
		grant(event("g3", true, model.StatusOngoing), false, true),
		// Grant on a deactivated event.
		grant(event("g4", false, model.StatusOngoing), true, true),
	}
	got := ids(ScanTargets(nil, granted))
	if len(got) != 1 || got[0] != "g1" {
		t.Fatalf("expected [g1] got %v", got)
	}
}

func TestScanTargetsDeduplicates(t *testing.T) {
	owned := []model.Event{event("e1", true, model.StatusOngoing)}
	granted := []model.GrantedEvent{grant(event("e1", true, model.StatusOngoing), true, true)}
	got := ScanTargets(owned, granted)
	if len(got) != 1 {
		t.Fatalf("expected one target got %d", len(got))
	}
}

func TestScanTargetsNilGrantEvent(t *testing.T) {
	granted := []model.GrantedEvent{{IsActive: true, Permissions: model.PermissionSet{CanScan: true}}}
	if got := ScanTargets(nil, granted); len(got) != 0 {
		t.Fatalf("nil event produced a target: %v", got)
	}
}
