package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventgate/internal/upstream"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUpstream speaks the upstream's enveloped JSON for the endpoints the
// workflow touches and counts the mutating calls.
type fakeUpstream struct {
	mux         *http.ServeMux
	verifyCalls atomic.Int64
	markCalls   atomic.Int64

	alreadyMarked bool
	verifyStatus  int
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{mux: http.NewServeMux(), verifyStatus: http.StatusOK}

	today := time.Now().UTC().Format(time.RFC3339)

	f.mux.HandleFunc("POST /attendance/verify-qr", func(w http.ResponseWriter, r *http.Request) {
		f.verifyCalls.Add(1)
		if f.verifyStatus != http.StatusOK {
			w.WriteHeader(f.verifyStatus)
			fmt.Fprint(w, `{"success":false,"message":"Participant not found for this event"}`)
			return
		}
		var body struct {
			ParticipantID string `json:"participantId"`
			EventID       string `json:"eventId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		resp := map[string]any{
			"success": true,
			"data": map[string]any{
				"participant":   map[string]any{"_id": body.ParticipantID, "name": "Ada Lovelace"},
				"event":         map[string]any{"_id": body.EventID, "name": "Tech Summit", "isActive": true},
				"alreadyMarked": f.alreadyMarked,
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	f.mux.HandleFunc("POST /attendance/mark-present", func(w http.ResponseWriter, r *http.Request) {
		f.markCalls.Add(1)
		fmt.Fprint(w, `{"success":true,"message":"Attendance marked","data":{"marked":true}}`)
	})

	f.mux.HandleFunc("GET /events/ev1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"event":{"_id":"ev1","name":"Tech Summit","isActive":true,"status":"ongoing"}}}`)
	})

	f.mux.HandleFunc("GET /participants/event/ev1", func(w http.ResponseWriter, r *http.Request) {
		participants := make([]map[string]any, 0, 20)
		for i := 0; i < 20; i++ {
			participants = append(participants, map[string]any{
				"_id":     fmt.Sprintf("p%d", i),
				"name":    fmt.Sprintf("Participant %d", i),
				"eventId": "ev1",
			})
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"participants": participants},
		}))
	})

	f.mux.HandleFunc("GET /attendance/event/ev1", func(w http.ResponseWriter, r *http.Request) {
		records := make([]map[string]any, 0)
		for i := 0; i < 5; i++ {
			records = append(records, map[string]any{
				"_id":           fmt.Sprintf("att%d", i),
				"participantId": fmt.Sprintf("p%d", i),
				"eventId":       "ev1",
				"scannedAt":     today,
			})
		}
		// A record from another day never counts toward today's stats.
		records = append(records, map[string]any{
			"_id":           "attOld",
			"participantId": "p0",
			"eventId":       "ev1",
			"scannedAt":     "2024-01-02T09:00:00Z",
		})
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"attendance": records},
		}))
	})

	return f
}

func newTestService(t *testing.T) (*Service, *fakeUpstream) {
	t.Helper()
	fake := newFakeUpstream(t)
	srv := httptest.NewServer(fake.mux)
	t.Cleanup(srv.Close)
	return NewService(upstream.New(srv.URL, 5*time.Second), discardLogger()), fake
}

func TestEventDataStats(t *testing.T) {
	svc, _ := newTestService(t)

	data, err := svc.EventData(context.Background(), "tok", "ev1")
	require.NoError(t, err)
	assert.Equal(t, 20, data.Stats.TotalRegistered)
	assert.Equal(t, 5, data.Stats.Present)
	assert.Equal(t, 15, data.Stats.Absent)
	assert.Equal(t, 25.0, data.Stats.AttendanceRate)
	// Only today's records appear in the scanned list.
	assert.Len(t, data.ScannedToday, 5)
	assert.Len(t, data.Attendance, 6)
}

func TestScanIsReadOnly(t *testing.T) {
	svc, fake := newTestService(t)
	sess := &ScanSession{ID: "s1", EventID: "ev1", OwnerID: "op1"}

	view, err := svc.Scan(context.Background(), sess, "tok", "p3")
	require.NoError(t, err)
	assert.Equal(t, StateVerifiedFresh.String(), view.State)
	require.NotNil(t, view.Participant)
	assert.Equal(t, "p3", view.Participant.ID)
	assert.Equal(t, int64(1), fake.verifyCalls.Load())
	assert.Equal(t, int64(0), fake.markCalls.Load(), "verification must not mutate attendance")
}

func TestScanWhileBusy(t *testing.T) {
	svc, _ := newTestService(t)
	sess := &ScanSession{ID: "s1", EventID: "ev1", OwnerID: "op1"}
	sess.WithCycle(func(c *Cycle) {
		_, err := c.BeginVerify("p1")
		require.NoError(t, err)
	})

	_, err := svc.Scan(context.Background(), sess, "tok", "p2")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestScanFailureIsModeledNotError(t *testing.T) {
	svc, fake := newTestService(t)
	fake.verifyStatus = http.StatusNotFound
	sess := &ScanSession{ID: "s1", EventID: "ev1", OwnerID: "op1"}

	view, err := svc.Scan(context.Background(), sess, "tok", "nobody")
	require.NoError(t, err)
	assert.Equal(t, StateVerificationFailed.String(), view.State)
	assert.Equal(t, "Participant not found for this event", view.Failure)
}

func TestConfirmRefetchesStats(t *testing.T) {
	svc, fake := newTestService(t)
	sess := &ScanSession{ID: "s1", EventID: "ev1", OwnerID: "op1"}

	_, err := svc.Scan(context.Background(), sess, "tok", "p3")
	require.NoError(t, err)

	view, data, err := svc.Confirm(context.Background(), sess, "tok")
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed.String(), view.State)
	assert.Equal(t, int64(1), fake.markCalls.Load())
	// Statistics come from the refetch, never from a local increment.
	require.NotNil(t, data)
	assert.Equal(t, 25.0, data.Stats.AttendanceRate)
}

func TestConfirmDuplicateNeverReachesUpstream(t *testing.T) {
	svc, fake := newTestService(t)
	fake.alreadyMarked = true
	sess := &ScanSession{ID: "s1", EventID: "ev1", OwnerID: "op1"}

	view, err := svc.Scan(context.Background(), sess, "tok", "p3")
	require.NoError(t, err)
	assert.Equal(t, StateVerifiedDuplicate.String(), view.State)
	assert.True(t, view.AlreadyMarked)

	_, _, err = svc.Confirm(context.Background(), sess, "tok")
	assert.ErrorIs(t, err, ErrAlreadyMarked)
	assert.Equal(t, int64(0), fake.markCalls.Load(), "duplicate confirmation must be refused locally")
}

func TestDismissResets(t *testing.T) {
	svc, _ := newTestService(t)
	sess := &ScanSession{ID: "s1", EventID: "ev1", OwnerID: "op1"}

	_, err := svc.Scan(context.Background(), sess, "tok", "p3")
	require.NoError(t, err)

	view := svc.Dismiss(sess)
	assert.Equal(t, StateIdle.String(), view.State)
	assert.Nil(t, view.Participant)
}

func TestComputeStatsRounding(t *testing.T) {
	cases := []struct {
		total, present int
		rate           float64
	}{
		{20, 5, 25.0},
		{3, 1, 33.3},
		{3, 2, 66.7},
		{0, 0, 0},
		{10, 10, 100.0},
	}
	for _, tc := range cases {
		s := ComputeStats(tc.total, tc.present)
		assert.Equal(t, tc.rate, s.AttendanceRate, "total=%d present=%d", tc.total, tc.present)
		assert.Equal(t, tc.total-tc.present, s.Absent)
	}
}
