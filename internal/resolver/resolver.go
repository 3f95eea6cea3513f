// Package resolver picks the one SQL statement a request will execute.
//
// Explicit SQL is used verbatim. A natural-language question goes to the
// oracle, and whatever comes back is sanitized; when the oracle is down,
// slow, or returns nothing usable the deterministic pattern tier answers
// instead. Nothing is cached between requests.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zerotrust/internal/gateway/models"
	"zerotrust/internal/platform/metrics"
	"zerotrust/pkg/platform/circuit"
	"zerotrust/pkg/requestcontext"
)

// ProbeSQL is resolved when a request carries neither SQL nor a question.
const ProbeSQL = "SELECT 1"

// Oracle completes a prompt. Implementations wrap their failures in
// ErrTranslation.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Resolver resolves QueryRequests into statements. A nil oracle disables the
// AI tier.
type Resolver struct {
	oracle  Oracle
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Resolver)

func WithOracle(o Oracle) Option {
	return func(r *Resolver) {
		r.oracle = o
	}
}

// WithCircuitBreaker skips the oracle while the breaker is open.
func WithCircuitBreaker(b *circuit.Breaker) Option {
	return func(r *Resolver) {
		r.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func New(opts ...Option) *Resolver {
	r := &Resolver{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve always produces a statement.
func (r *Resolver) Resolve(ctx context.Context, req models.QueryRequest) models.ResolvedQuery {
	resolved := r.resolve(ctx, req)
	if r.metrics != nil {
		r.metrics.ObserveResolved(string(resolved.Source))
	}
	r.logger.InfoContext(ctx, "query resolved",
		"request_id", requestcontext.RequestID(ctx),
		"database_id", req.DatabaseID,
		"resource", req.Resource,
		"source", resolved.Source,
	)
	return resolved
}

func (r *Resolver) resolve(ctx context.Context, req models.QueryRequest) models.ResolvedQuery {
	switch {
	case req.SQL != "":
		return models.ResolvedQuery{SQL: req.SQL, Source: models.SourceExplicit}
	case req.NaturalLanguage != "":
		sql, err := r.Translate(ctx, req)
		if err != nil {
			r.logger.WarnContext(ctx, "translation failed, using pattern fallback",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			return models.ResolvedQuery{
				SQL:    PatternFallback(req.NaturalLanguage, req.Resource),
				Source: models.SourceFallbackPattern,
			}
		}
		return models.ResolvedQuery{SQL: sql, Source: models.SourceAI}
	default:
		return models.ResolvedQuery{SQL: ProbeSQL, Source: models.SourceExplicit}
	}
}

// Translate asks the oracle and sanitizes the completion. Any failure wraps
// ErrTranslation.
func (r *Resolver) Translate(ctx context.Context, req models.QueryRequest) (string, error) {
	if r.oracle == nil {
		return "", fmt.Errorf("%w: oracle disabled", ErrTranslation)
	}
	if r.breaker != nil && !r.breaker.Allow() {
		return "", fmt.Errorf("%w: oracle circuit open", ErrTranslation)
	}

	start := time.Now()
	raw, err := r.oracle.Complete(ctx, BuildPrompt(req.DatabaseID, req.Resource, req.NaturalLanguage))
	if r.metrics != nil {
		r.metrics.ObserveOracleLatency(time.Since(start))
	}
	if err != nil {
		r.recordFailure(ctx)
		return "", err
	}
	r.recordSuccess(ctx)

	return Sanitize(raw)
}

func (r *Resolver) recordFailure(ctx context.Context) {
	if r.breaker == nil {
		return
	}
	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.logger.WarnContext(ctx, "oracle circuit opened", "breaker", r.breaker.Name())
		if r.metrics != nil {
			r.metrics.SetOracleCircuitOpen(true)
		}
	}
}

func (r *Resolver) recordSuccess(ctx context.Context) {
	if r.breaker == nil {
		return
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "oracle circuit closed", "breaker", r.breaker.Name())
		if r.metrics != nil {
			r.metrics.SetOracleCircuitOpen(false)
		}
	}
}
