// Package executor runs resolved statements against the configured
// databases, degrading to a schema-agnostic fallback statement once when the
// resolved one fails.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"zerotrust/internal/gateway/models"
	"zerotrust/internal/platform/config"
	"zerotrust/internal/platform/metrics"
	"zerotrust/pkg/requestcontext"
)

// Execution outcomes reported to metrics.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s is a plain SQL identifier safe to
// interpolate into a statement.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// FallbackLimit is the row cap of the fallback statement for a database.
func FallbackLimit(databaseID string) int {
	if databaseID == config.DatabaseSandbox {
		return 15
	}
	return 10
}

// FallbackSQL is the statement run after the resolved one fails.
func FallbackSQL(databaseID, resource string) string {
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", resource, FallbackLimit(databaseID))
}

// Executor holds the read-only DSN map. Connections are opened and closed
// per call.
type Executor struct {
	databases config.Databases
	connector Connector
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Executor)

func WithConnector(c Connector) Option {
	return func(e *Executor) {
		e.connector = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

func New(databases config.Databases, opts ...Option) *Executor {
	e := &Executor{
		databases: databases,
		connector: NewConnector(databases),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Configured reports whether databaseID has a DSN.
func (e *Executor) Configured(databaseID string) bool {
	_, ok := e.databases.DSN(databaseID)
	return ok
}

// Execute runs statement on databaseID. On failure it runs FallbackSQL once
// on a fresh connection and marks the result degraded. If the fallback fails
// too, the returned *ExecutionError carries the original failure.
func (e *Executor) Execute(ctx context.Context, databaseID, resource, statement string) (*models.ExecutionResult, error) {
	dsn, ok := e.databases.DSN(databaseID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDatabase, databaseID)
	}

	start := time.Now()
	result, primaryErr := e.run(ctx, dsn, statement)
	if primaryErr == nil {
		e.observe(databaseID, OutcomeOK, start)
		return result, nil
	}

	e.logger.WarnContext(ctx, "statement failed, trying fallback",
		append([]any{
			"request_id", requestcontext.RequestID(ctx),
			"database_id", databaseID,
			"error", primaryErr,
		}, sqlState(primaryErr)...)...,
	)

	if !IsIdentifier(resource) {
		e.observe(databaseID, OutcomeFailed, start)
		return nil, &ExecutionError{DatabaseID: databaseID, SQL: statement, Primary: primaryErr,
			Fallback: fmt.Errorf("resource %q is not an identifier", resource)}
	}

	fallback := FallbackSQL(databaseID, resource)
	result, fallbackErr := e.run(ctx, dsn, fallback)
	if fallbackErr != nil {
		e.observe(databaseID, OutcomeFailed, start)
		execErr := &ExecutionError{DatabaseID: databaseID, SQL: statement, Primary: primaryErr, Fallback: fallbackErr}
		e.logger.ErrorContext(ctx, "fallback statement failed",
			"request_id", requestcontext.RequestID(ctx),
			"database_id", databaseID,
			"error", execErr.Detail(),
		)
		return nil, execErr
	}

	e.observe(databaseID, OutcomeDegraded, start)
	result.Degraded = true
	result.Note = fmt.Sprintf("Original query failed (%s); showing fallback results from %s.", errorMessage(primaryErr), resource)
	return result, nil
}

func (e *Executor) run(ctx context.Context, dsn, statement string) (*models.ExecutionResult, error) {
	db, err := e.connector.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := [][]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.ExecutionResult{Rows: out, Columns: columns, SQLUsed: statement}, nil
}

func (e *Executor) observe(databaseID, outcome string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveExecution(databaseID, outcome, time.Since(start))
	}
}

// sqlState returns log attributes for a server-reported error from
// either driver.
func sqlState(err error) []any {
	var code pq.ErrorCode
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pq.ErrorCode(pgErr.Code)
	case errors.As(err, &pqErr):
		code = pqErr.Code
	default:
		return nil
	}
	return []any{"sqlstate", string(code), "sqlstate_class", code.Class().Name()}
}

// errorMessage prefers the server's message over the driver's prefix.
func errorMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Message
	}
	if errors.Is(err, sql.ErrConnDone) {
		return "connection closed"
	}
	return err.Error()
}
