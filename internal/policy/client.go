// Package policy consults the external policy decision point.
//
// The client is fail-closed: anything other than a well-formed
// {"result": true} response is a deny.
package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"zerotrust/internal/gateway/models"
	"zerotrust/internal/platform/metrics"
	"zerotrust/pkg/requestcontext"
)

// maxResponseBytes caps how much of a policy response is read.
const maxResponseBytes = 64 << 10

// Reason labels why a verdict was reached.
type Reason string

const (
	ReasonVerdict        Reason = "verdict"
	ReasonTransportError Reason = "transport_error"
	ReasonBadStatus      Reason = "bad_status"
	ReasonMalformed      Reason = "malformed_response"
	ReasonMissingResult  Reason = "missing_result"
)

// Decision is a verdict plus the reason it was reached.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Client posts PolicyInput documents to the decision URL.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// WithTimeout bounds each decision call.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.httpClient = &http.Client{Timeout: d}
	}
}

func New(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("policy url is required")
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type decisionRequest struct {
	Input models.PolicyInput `json:"input"`
}

type decisionResponse struct {
	Result json.RawMessage `json:"result"`
}

// Decide returns true only for an explicit boolean true verdict.
func (c *Client) Decide(ctx context.Context, input models.PolicyInput) bool {
	d := c.Evaluate(ctx, input)
	return d.Allowed
}

// Evaluate is Decide with the reason attached.
func (c *Client) Evaluate(ctx context.Context, input models.PolicyInput) Decision {
	d := c.evaluate(ctx, input)
	if c.metrics != nil {
		c.metrics.ObservePolicyDecision(d.Allowed, string(d.Reason))
	}
	c.logger.InfoContext(ctx, "policy decision",
		"request_id", requestcontext.RequestID(ctx),
		"username", input.Identity.Username,
		"role", input.Identity.Role,
		"resource", input.Resource,
		"database_id", input.DatabaseID,
		"action", input.Action,
		"allowed", d.Allowed,
		"reason", d.Reason,
	)
	return d
}

func (c *Client) evaluate(ctx context.Context, input models.PolicyInput) Decision {
	body, err := json.Marshal(decisionRequest{Input: input})
	if err != nil {
		return c.deny(ctx, ReasonMalformed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return c.deny(ctx, ReasonTransportError, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.deny(ctx, ReasonTransportError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.deny(ctx, ReasonBadStatus, fmt.Errorf("status %d", resp.StatusCode))
	}

	var decoded decisionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return c.deny(ctx, ReasonMalformed, err)
	}
	if len(decoded.Result) == 0 || string(decoded.Result) == "null" {
		return c.deny(ctx, ReasonMissingResult, nil)
	}

	var allowed bool
	if err := json.Unmarshal(decoded.Result, &allowed); err != nil {
		return c.deny(ctx, ReasonMalformed, fmt.Errorf("result is not a boolean: %s", decoded.Result))
	}
	return Decision{Allowed: allowed, Reason: ReasonVerdict}
}

func (c *Client) deny(ctx context.Context, reason Reason, err error) Decision {
	attrs := []any{"request_id", requestcontext.RequestID(ctx), "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	c.logger.WarnContext(ctx, "policy engine unusable, denying", attrs...)
	return Decision{Allowed: false, Reason: reason}
}
