package scan

import "encoding/json"

// ParsePayload normalizes raw decoded QR text into a participant identifier.
// A JSON object carrying a participantId field wins; anything else falls
// back to the raw string unchanged. Malformed payloads therefore always flow
// downstream, and rejecting them is the verification step's job, not ours.
func ParsePayload(raw string) string {
	if raw == "" {
		return ""
	}
	var payload struct {
		ParticipantID string `json:"participantId"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err == nil && payload.ParticipantID != "" {
		return payload.ParticipantID
	}
	return raw
}
