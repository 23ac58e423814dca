package scan

import "testing"

func TestParsePayloadJSONObject(t *testing.T) {
	got := ParsePayload(`{"participantId":"abc123","eventId":"ev1"}`)
	if got != "abc123" {
		t.Fatalf("expected abc123 got %q", got)
	}
}

func TestParsePayloadRawIdentifier(t *testing.T) {
	got := ParsePayload("665f1c2e9b1d2a0012345678")
	if got != "665f1c2e9b1d2a0012345678" {
		t.Fatalf("raw identifier changed: %q", got)
	}
}

func TestParsePayloadMalformedFallsThrough(t *testing.T) {
	// Malformed payloads must flow downstream unchanged so the verification
	// step can reject them with a modeled failure.
	for _, raw := range []string{
		`{"participantId":`,
		`{"eventId":"ev1"}`,
		`[1,2,3]`,
		`not json at all`,
	} {
		if got := ParsePayload(raw); got != raw {
			t.Fatalf("payload %q mutated to %q", raw, got)
		}
	}
}

func TestParsePayloadEmpty(t *testing.T) {
	if got := ParsePayload(""); got != "" {
		t.Fatalf("expected empty got %q", got)
	}
}
