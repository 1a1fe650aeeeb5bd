// Package solver implements the HTTP client for the external timetable
// solver. The solver consumes a prepared day plan and posts its result back
// to the callback URL, so a successful submission is an acknowledgement,
// not an answer.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/plannerhq/schedassist/internal/metrics"
	"github.com/plannerhq/schedassist/internal/scheduling"
)

// ErrRejected marks a non-2xx solver response.
var ErrRejected = errors.New("solver rejected the request")

// User is the per-participant record inside a solver request.
type User struct {
	ID                  string                `json:"id"`
	HostID              string                `json:"hostId"`
	MaxWorkLoadPercent  int                   `json:"maxWorkLoadPercent"`
	BackToBackMeetings  bool                  `json:"backToBackMeetings"`
	MaxNumberOfMeetings int                   `json:"maxNumberOfMeetings"`
	MinNumberOfBreaks   int                   `json:"minNumberOfBreaks"`
	WorkTimes           []scheduling.WorkTime `json:"workTimes"`
}

// EventPart decorates a scheduling part with the solver-facing user record
// and the day's working-hours total.
type EventPart struct {
	scheduling.EventPart

	User              User    `json:"user"`
	TotalWorkingHours float64 `json:"totalWorkingHours"`
	// gap marks buffer and break parts the solver may not fill
	Gap bool `json:"gap"`
}

// Request is the solve-day payload.
type Request struct {
	SingletonID string                `json:"singletonId"`
	HostID      string                `json:"hostId"`
	TimeSlots   []scheduling.TimeSlot `json:"timeslots"`
	UserList    []User                `json:"userList"`
	EventParts  []EventPart           `json:"eventParts"`
	FileKey     string                `json:"fileKey"`
	Delay       int64                 `json:"delay"`
	CallBackURL string                `json:"callBackUrl"`
}

// Client posts solve-day requests with HTTP basic auth.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// SolveDay submits one prepared day. The solver answers asynchronously via
// the callback URL; only the acknowledgement is awaited here.
func (c *Client) SolveDay(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode solver request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/timeTable/admin/solve-day", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build solver request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.username, c.password)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveExternalCall("solver", "error", time.Since(start))
		return fmt.Errorf("post solver request: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveExternalCall("solver", fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, detail)
	}
	return nil
}
