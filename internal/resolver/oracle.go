package resolver

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
)

// ErrTranslation marks any failure to turn a question into SQL. It never
// reaches the caller; the resolver falls back to the pattern tier.
var ErrTranslation = errors.New("translation failed")

// maxCompletionBytes caps how much of an oracle response is read.
const maxCompletionBytes = 256 << 10

// GenerationOptions are the sampling settings sent with every prompt.
type GenerationOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultGenerationOptions keep randomness low and output short.
var DefaultGenerationOptions = GenerationOptions{
	Temperature: 0.1,
	TopP:        0.9,
	MaxTokens:   200,
}

// OracleClient is a text-completion client for an Ollama-style
// /api/generate endpoint.
type OracleClient struct {
	url        string
	model      string
	options    GenerationOptions
	httpClient *http.Client
}

type OracleOption func(*OracleClient)

func WithGenerationOptions(o GenerationOptions) OracleOption {
	return func(c *OracleClient) {
		c.options = o
	}
}

func WithOracleHTTPClient(hc *http.Client) OracleOption {
	return func(c *OracleClient) {
		c.httpClient = hc
	}
}

// NewOracleClient builds a client whose calls are bounded by timeout.
func NewOracleClient(url, model string, timeout time.Duration, opts ...OracleOption) (*OracleClient, error) {
	if url == "" {
		return nil, fmt.Errorf("oracle url is required")
	}
	if model == "" {
		return nil, fmt.Errorf("oracle model is required")
	}
	c := &OracleClient{
		url:        url,
		model:      model,
		options:    DefaultGenerationOptions,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type generateRequest struct {
	Model   string            `json:"model"`
	Prompt  string            `json:"prompt"`
	Stream  bool              `json:"stream"`
	Options GenerationOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Complete sends prompt and returns the raw completion text. Every failure
// wraps ErrTranslation.
func (c *OracleClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: c.options,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %w", ErrTranslation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", ErrTranslation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranslation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: oracle returned status %d", ErrTranslation, resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCompletionBytes)).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrTranslation, err)
	}
	if strings.TrimSpace(decoded.Response) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrTranslation)
	}
	return decoded.Response, nil
}

// BuildPrompt renders the translation prompt for one question.
func BuildPrompt(databaseID, resource, question string) string {
	var b strings.Builder
	b.WriteString("You translate questions into a single PostgreSQL SELECT statement.\n\n")
	b.WriteString(DescribeSchema(databaseID))
	b.WriteString("\nRules:\n")
	fmt.Fprintf(&b, "- Query the %s table.\n", resource)
	b.WriteString("- Use only the tables and columns listed above.\n")
	b.WriteString("- Do not join tables unless they share a listed id column.\n")
	b.WriteString("- Return exactly one statement. No explanations, no comments, no markdown.\n")
	b.WriteString("- Never modify data.\n")
	fmt.Fprintf(&b, "\nQuestion: %s\nSQL:", question)
	return b.String()
}
