// Package classifier implements the HTTP client for the external
// sentence-classification service that matches event text against the
// user's category names.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/plannerhq/schedassist/internal/metrics"
)

// ErrRejected marks a non-2xx classifier response.
var ErrRejected = errors.New("classifier rejected the request")

type request struct {
	Sentence string   `json:"sentence"`
	Labels   []string `json:"labels"`
}

// Result pairs each candidate label with its score, index-aligned.
type Result struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Client posts classification requests with HTTP basic auth.
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
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// ClassifyEvent scores the event's summary and notes against the candidate
// labels. The sentence is "summary: notes", trimmed when notes are empty.
func (c *Client) ClassifyEvent(ctx context.Context, summary, notes string, labels []string) (Result, error) {
	sentence := summary
	if strings.TrimSpace(notes) != "" {
		sentence = fmt.Sprintf("%s: %s", summary, notes)
	}
	return c.classify(ctx, sentence, labels)
}

func (c *Client) classify(ctx context.Context, sentence string, labels []string) (Result, error) {
	var result Result
	if len(labels) == 0 {
		return result, nil
	}

	body, err := json.Marshal(request{Sentence: sentence, Labels: labels})
	if err != nil {
		return result, fmt.Errorf("encode classifier request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classification", bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("build classifier request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.username, c.password)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveExternalCall("classifier", "error", time.Since(start))
		return result, fmt.Errorf("post classifier request: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveExternalCall("classifier", fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return result, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, detail)
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("decode classifier response: %w", err)
	}
	return result, nil
}
