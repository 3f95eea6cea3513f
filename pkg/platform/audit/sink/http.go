// Package sink holds the audit destinations: the HTTP log appender, and the
// optional Kafka and Redis stream mirrors.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	audit "zerotrust/pkg/platform/audit"
	"zerotrust/pkg/platform/sentinel"
)

// HTTPSink posts {"decision","payload"} to a log appender. The response body
// is ignored; only transport failures and non-2xx statuses count as errors.
type HTTPSink struct {
	url    string
	client *http.Client
}

type httpRecord struct {
	Decision audit.Decision `json:"decision"`
	Payload  any            `json:"payload"`
}

// NewHTTPSink creates a sink posting to url. client may be nil.
func NewHTTPSink(url string, client *http.Client) *HTTPSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSink{url: url, client: client}
}

func (s *HTTPSink) Name() string { return "http" }

func (s *HTTPSink) Deliver(ctx context.Context, event audit.Event) error {
	body, err := json.Marshal(httpRecord{Decision: event.Decision, Payload: event.Payload})
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if event.RequestID != "" {
		req.Header.Set("X-Request-ID", event.RequestID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post audit record: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("audit sink status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	return nil
}
