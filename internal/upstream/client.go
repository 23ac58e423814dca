package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"eventgate/internal/model"
)

// Client calls the upstream event-management REST API. The upstream is the
// authoritative store for events, participants, attendance and permissions;
// this client never caches and never retries.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// envelope is the wrapper the upstream puts around every JSON response.
type envelope struct {
	Success              bool            `json:"success"`
	Message              string          `json:"message"`
	Data                 json.RawMessage `json:"data"`
	RequiresVerification bool            `json:"requiresVerification"`
	Email                string          `json:"email"`
}

// do issues one request and decodes the enveloped response into out.
// A non-empty token is attached as a bearer credential.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read upstream response: %w", err)
	}

	var env envelope
	// Tolerate non-JSON error bodies from proxies in front of the upstream.
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" && len(raw) > 0 && len(raw) < 512 && !json.Valid(raw) {
			msg = string(raw)
		}
		return &APIError{
			Status:               resp.StatusCode,
			Message:              msg,
			RequiresVerification: env.RequiresVerification,
			Email:                env.Email,
		}
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("upstream response missing data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}

// ---------- Auth ----------

// LoginResult is the upstream-issued credential pair.
type LoginResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login exchanges credentials for an upstream bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("upstream login returned no token")
	}
	return &out, nil
}

// ResendVerification asks the upstream to re-send the account activation mail.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/resend-verification", "", map[string]string{"email": email}, nil)
}

// ForgotPassword starts the password-reset flow for the given account.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": email}, nil)
}

// ResetPassword completes the password-reset flow.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	body := map[string]string{"token": token, "password": password}
	return c.do(ctx, http.MethodPost, "/auth/reset-password", "", body, nil)
}

// VerifyEmail confirms a mailed verification token. On success the upstream
// issues a session credential, same shape as login.
func (c *Client) VerifyEmail(ctx context.Context, token string) (*LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/verify-email", "", map[string]string{"token": token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------- Events ----------

// EventInput is the payload for creating an event.
type EventInput struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	Duration        int    `json:"duration,omitempty"`
	Location        string `json:"location"`
	MaxParticipants int    `json:"maxParticipants,omitempty"`
	SelectedTrack   string `json:"selectedTrack,omitempty"`
}

// EventUpdate is a partial update; nil fields are left untouched upstream.
type EventUpdate struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	StartDate       *string `json:"startDate,omitempty"`
	EndDate         *string `json:"endDate,omitempty"`
	Duration        *int    `json:"duration,omitempty"`
	Location        *string `json:"location,omitempty"`
	MaxParticipants *int    `json:"maxParticipants,omitempty"`
	SelectedTrack   *string `json:"selectedTrack,omitempty"`
}

// ListEvents fetches the public events list.
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var out struct {
		Events []model.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/events", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// MyEvents fetches the events owned by the authenticated admin.
func (c *Client) MyEvents(ctx context.Context, token string) ([]model.Event, error) {
	var out struct {
		Events []model.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/events/my-events", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// GetEvent fetches a single event.
func (c *Client) GetEvent(ctx context.Context, token, eventID string) (*model.Event, error) {
	var out struct {
		Event model.Event `json:"event"`
	}
	if err := c.do(ctx, http.MethodGet, "/events/"+eventID, token, nil, &out); err != nil {
		return nil, err
	}
	return &out.Event, nil
}

// CreateEvent creates an event owned by the authenticated admin.
func (c *Client) CreateEvent(ctx context.Context, token string, in EventInput) (*model.Event, error) {
	var out struct {
		Event model.Event `json:"event"`
	}
	if err := c.do(ctx, http.MethodPost, "/events", token, in, &out); err != nil {
		return nil, err
	}
	return &out.Event, nil
}

// UpdateEvent applies a partial update to an event.
func (c *Client) UpdateEvent(ctx context.Context, token, eventID string, in EventUpdate) (*model.Event, error) {
	var out struct {
		Event model.Event `json:"event"`
	}
	if err := c.do(ctx, http.MethodPut, "/events/"+eventID, token, in, &out); err != nil {
		return nil, err
	}
	return &out.Event, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, token, eventID string) error {
	return c.do(ctx, http.MethodDelete, "/events/"+eventID, token, nil, nil)
}

// TerminateEvent ends an event; terminated events are immutable upstream.
func (c *Client) TerminateEvent(ctx context.Context, token, eventID string) (*model.Event, error) {
	var out struct {
		Event model.Event `json:"event"`
	}
	if err := c.do(ctx, http.MethodPost, "/events/"+eventID+"/terminate", token, nil, &out); err != nil {
		return nil, err
	}
	return &out.Event, nil
}

// ---------- Participants ----------

// Registration is the public sign-up form, photo included.
type Registration struct {
	FullName     string
	MatricNumber string
	Email        string
	Department   string
	Gender       string
	EventID      string
	PhotoName    string
	Photo        io.Reader
}

// RegisterParticipant submits the multipart registration form.
func (c *Client) RegisterParticipant(ctx context.Context, reg Registration) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"fullname":     reg.FullName,
		"matricnumber": reg.MatricNumber,
		"email":        reg.Email,
		"department":   reg.Department,
		"gender":       reg.Gender,
		"eventId":      reg.EventID,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return fmt.Errorf("build registration form: %w", err)
		}
	}
	if reg.Photo != nil {
		part, err := w.CreateFormFile("photo", reg.PhotoName)
		if err != nil {
			return fmt.Errorf("build registration form: %w", err)
		}
		if _, err := io.Copy(part, reg.Photo); err != nil {
			return fmt.Errorf("copy photo: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/participants/register", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()
	return decode(resp, nil)
}

// ParticipantsByEvent lists everyone registered for an event.
func (c *Client) ParticipantsByEvent(ctx context.Context, token, eventID string) ([]model.Participant, error) {
	var out struct {
		Participants []model.Participant `json:"participants"`
	}
	if err := c.do(ctx, http.MethodGet, "/participants/event/"+eventID, token, nil, &out); err != nil {
		return nil, err
	}
	return out.Participants, nil
}

// ---------- Attendance ----------

// VerifyResult is the outcome of resolving a scanned identifier against an
// event's registered participants. Verification is read-only: no attendance
// state changes regardless of outcome.
type VerifyResult struct {
	Participant        model.Participant       `json:"participant"`
	Event              model.Event             `json:"event"`
	AlreadyMarked      bool                    `json:"alreadyMarked"`
	ExistingAttendance *model.AttendanceRecord `json:"existingAttendance"`
}

// VerifyQR resolves a scanned participant identifier for the given event.
func (c *Client) VerifyQR(ctx context.Context, token, participantID, eventID string) (*VerifyResult, error) {
	body := map[string]string{"participantId": participantID, "eventId": eventID}
	var out VerifyResult
	if err := c.do(ctx, http.MethodPost, "/attendance/verify-qr", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkPresent records attendance for the upstream-determined current day.
// The upstream owns the day boundary and the one-record-per-day invariant.
func (c *Client) MarkPresent(ctx context.Context, token, participantID, eventID string) error {
	body := map[string]string{"participantId": participantID, "eventId": eventID}
	return c.do(ctx, http.MethodPost, "/attendance/mark-present", token, body, nil)
}

// AttendanceByEvent lists every attendance record for an event.
func (c *Client) AttendanceByEvent(ctx context.Context, token, eventID string) ([]model.AttendanceRecord, error) {
	var out struct {
		Attendance []model.AttendanceRecord `json:"attendance"`
	}
	if err := c.do(ctx, http.MethodGet, "/attendance/event/"+eventID, token, nil, &out); err != nil {
		return nil, err
	}
	return out.Attendance, nil
}

// Report is the downloadable per-event attendance report.
type Report struct {
	Records []model.ReportRecord `json:"attendanceRecords"`
}

// AttendanceReport fetches the report rows for an event.
func (c *Client) AttendanceReport(ctx context.Context, token, eventID string) (*Report, error) {
	var out Report
	if err := c.do(ctx, http.MethodGet, "/attendance/event/"+eventID+"/download-report", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------- Permissions ----------

// GrantRequest asks the upstream to grant event capabilities to another
// admin. Password is the actor's own, re-entered as a confirmation factor;
// it is forwarded verbatim and never stored.
type GrantRequest struct {
	EventID        string              `json:"eventId"`
	GrantToAdminID string              `json:"grantToAdminId"`
	Password       string              `json:"password"`
	Permissions    model.PermissionSet `json:"permissions"`
	Notes          string              `json:"notes,omitempty"`
}

// RevokeRequest withdraws a previously granted permission.
type RevokeRequest struct {
	EventID           string `json:"eventId"`
	RevokeFromAdminID string `json:"revokeFromAdminId"`
	Password          string `json:"password"`
}

// PermissionsByEvent lists the grants attached to an event.
func (c *Client) PermissionsByEvent(ctx context.Context, token, eventID string) ([]model.EventPermission, error) {
	var out struct {
		Permissions []model.EventPermission `json:"permissions"`
	}
	if err := c.do(ctx, http.MethodGet, "/event-permissions/event/"+eventID, token, nil, &out); err != nil {
		return nil, err
	}
	return out.Permissions, nil
}

// MyGrantedEvents lists events other admins granted to the caller.
func (c *Client) MyGrantedEvents(ctx context.Context, token string) ([]model.GrantedEvent, error) {
	var out struct {
		GrantedEvents []model.GrantedEvent `json:"grantedEvents"`
	}
	if err := c.do(ctx, http.MethodGet, "/event-permissions/my-granted-events", token, nil, &out); err != nil {
		return nil, err
	}
	return out.GrantedEvents, nil
}

// GrantPermission creates a grant.
func (c *Client) GrantPermission(ctx context.Context, token string, req GrantRequest) error {
	return c.do(ctx, http.MethodPost, "/event-permissions/grant", token, req, nil)
}

// RevokePermission deactivates a grant.
func (c *Client) RevokePermission(ctx context.Context, token string, req RevokeRequest) error {
	return c.do(ctx, http.MethodPost, "/event-permissions/revoke", token, req, nil)
}

// ---------- Users ----------

// CreateUserRequest provisions a sub-admin account.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ListUsers fetches all admin accounts.
func (c *Client) ListUsers(ctx context.Context, token string) ([]model.User, error) {
	var out struct {
		Users []model.User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/users", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// CreateUser provisions a sub-admin account.
func (c *Client) CreateUser(ctx context.Context, token string, req CreateUserRequest) (*model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/users", token, req, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// DeleteUser removes a sub-admin account.
func (c *Client) DeleteUser(ctx context.Context, token, userID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+userID, token, nil, nil)
}

// Health reports whether the upstream answers at all. Any response,
// including an error status below 500, counts as reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/events", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("upstream unavailable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	if resp.StatusCode >= 500 {
		return fmt.Errorf("upstream unhealthy: %s", resp.Status)
	}
	return nil
}
