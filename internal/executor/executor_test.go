package executor

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"zerotrust/internal/gateway/models"
	"zerotrust/internal/platform/config"
	"zerotrust/internal/platform/metrics"
)

// queueConnector hands out prepared handles in order and records the DSNs.
type queueConnector struct {
	dbs  []*sql.DB
	err  error
	dsns []string
}

func (c *queueConnector) Open(_ context.Context, dsn string) (*sql.DB, error) {
	c.dsns = append(c.dsns, dsn)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.dbs) == 0 {
		return nil, errors.New("no more connections")
	}
	db := c.dbs[0]
	c.dbs = c.dbs[1:]
	return db, nil
}

type ExecutorSuite struct {
	suite.Suite
	ctx       context.Context
	connector *queueConnector
	mocks     []sqlmock.Sqlmock
	metrics   *metrics.Metrics
	executor  *Executor
}

func TestExecutorSuite(t *testing.T) {
	suite.Run(t, new(ExecutorSuite))
}

func (s *ExecutorSuite) SetupTest() {
	s.ctx = context.Background()
	s.connector = &queueConnector{}
	s.mocks = nil
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.executor = New(config.Databases{DSNs: map[string]string{
		config.DatabaseUS:      "postgres://us",
		config.DatabaseEU:      "",
		config.DatabaseSandbox: "postgres://sbx",
	}},
		WithConnector(s.connector),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
}

func (s *ExecutorSuite) TearDownTest() {
	for _, m := range s.mocks {
		s.NoError(m.ExpectationsWereMet())
	}
}

// newConn queues one connection handle and returns its expectations.
func (s *ExecutorSuite) newConn() sqlmock.Sqlmock {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	s.Require().NoError(err)
	s.connector.dbs = append(s.connector.dbs, db)
	s.mocks = append(s.mocks, mock)
	return mock
}

func (s *ExecutorSuite) TestSuccess() {
	conn := s.newConn()
	conn.ExpectQuery("SELECT id, name FROM patients").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("p001", []byte("Ada")).
			AddRow("p002", "Grace"))
	conn.ExpectClose()

	res, err := s.executor.Execute(s.ctx, config.DatabaseUS, "patients", "SELECT id, name FROM patients")
	s.Require().NoError(err)

	s.Equal(&models.ExecutionResult{
		Rows:    [][]any{{"p001", "Ada"}, {"p002", "Grace"}},
		Columns: []string{"id", "name"},
		SQLUsed: "SELECT id, name FROM patients",
	}, res)
	s.Equal([]string{"postgres://us"}, s.connector.dsns)
	s.Equal(1, testutil.CollectAndCount(s.metrics.Executions))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Executions.WithLabelValues("us_db", OutcomeOK)))
}

func (s *ExecutorSuite) TestEmptyResultIsNotNil() {
	conn := s.newConn()
	conn.ExpectQuery("SELECT 1 WHERE false").WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	conn.ExpectClose()

	res, err := s.executor.Execute(s.ctx, config.DatabaseUS, "patients", "SELECT 1 WHERE false")
	s.Require().NoError(err)
	s.NotNil(res.Rows)
	s.Empty(res.Rows)
}

func (s *ExecutorSuite) TestDegradesToFallbackOnFreshConnection() {
	primary := s.newConn()
	primary.ExpectQuery("SELECT nope FROM patients").
		WillReturnError(&pq.Error{Code: "42703", Message: `column "nope" does not exist`})
	primary.ExpectClose()

	fallback := s.newConn()
	fallback.ExpectQuery("SELECT * FROM patients LIMIT 10").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p001"))
	fallback.ExpectClose()

	res, err := s.executor.Execute(s.ctx, config.DatabaseUS, "patients", "SELECT nope FROM patients")
	s.Require().NoError(err)

	s.True(res.Degraded)
	s.Equal("SELECT * FROM patients LIMIT 10", res.SQLUsed)
	s.Contains(res.Note, `column "nope" does not exist`)
	s.Equal([][]any{{"p001"}}, res.Rows)
	s.Len(s.connector.dsns, 2, "fallback uses a fresh connection")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Executions.WithLabelValues("us_db", OutcomeDegraded)))
}

func (s *ExecutorSuite) TestSandboxFallbackLimit() {
	primary := s.newConn()
	primary.ExpectQuery("SELEC broken").WillReturnError(errors.New("syntax error"))
	primary.ExpectClose()

	fallback := s.newConn()
	fallback.ExpectQuery("SELECT * FROM notes LIMIT 15").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	fallback.ExpectClose()

	res, err := s.executor.Execute(s.ctx, config.DatabaseSandbox, "notes", "SELEC broken")
	s.Require().NoError(err)
	s.True(res.Degraded)
}

func (s *ExecutorSuite) TestFallbackFailureReportsOriginalError() {
	primary := s.newConn()
	primary.ExpectQuery("SELECT * FROM secret").
		WillReturnError(errors.New(`relation "secret" does not exist`))
	primary.ExpectClose()

	fallback := s.newConn()
	fallback.ExpectQuery("SELECT * FROM patients LIMIT 10").
		WillReturnError(errors.New("permission denied for table patients"))
	fallback.ExpectClose()

	res, err := s.executor.Execute(s.ctx, config.DatabaseUS, "patients", "SELECT * FROM secret")
	s.Nil(res)

	var execErr *ExecutionError
	s.Require().ErrorAs(err, &execErr)
	s.Equal(`relation "secret" does not exist`, err.Error())
	s.Contains(execErr.Detail(), "permission denied")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Executions.WithLabelValues("us_db", OutcomeFailed)))
}

func (s *ExecutorSuite) TestExactlyOneFallbackAttempt() {
	primary := s.newConn()
	primary.ExpectQuery("BAD").WillReturnError(errors.New("first"))
	primary.ExpectClose()
	fallback := s.newConn()
	fallback.ExpectQuery("SELECT * FROM patients LIMIT 10").WillReturnError(errors.New("second"))
	fallback.ExpectClose()
	s.newConn() // never used

	_, err := s.executor.Execute(s.ctx, config.DatabaseUS, "patients", "BAD")
	s.Error(err)
	s.Len(s.connector.dsns, 2)
	s.Len(s.connector.dbs, 1)
}

func (s *ExecutorSuite) TestConnectFailureSurfacesOriginal() {
	s.connector.err = errors.New("connection refused")

	_, err := s.executor.Execute(s.ctx, config.DatabaseUS, "patients", "SELECT 1")

	var execErr *ExecutionError
	s.Require().ErrorAs(err, &execErr)
	s.EqualError(err, "connection refused")
	s.Len(s.connector.dsns, 2)
}

func (s *ExecutorSuite) TestNonIdentifierResourceSkipsFallback() {
	primary := s.newConn()
	primary.ExpectQuery("BAD").WillReturnError(errors.New("boom"))
	primary.ExpectClose()

	_, err := s.executor.Execute(s.ctx, config.DatabaseUS, "patients; DROP TABLE x", "BAD")
	s.EqualError(err, "boom")
	s.Len(s.connector.dsns, 1)
}

func (s *ExecutorSuite) TestUnknownDatabase() {
	for _, id := range []string{"apac_db", config.DatabaseEU, ""} {
		_, err := s.executor.Execute(s.ctx, id, "patients", "SELECT 1")
		s.ErrorIs(err, ErrUnknownDatabase, "database %q", id)
	}
	s.Empty(s.connector.dsns)
	s.False(s.executor.Configured(config.DatabaseEU))
	s.True(s.executor.Configured(config.DatabaseUS))
}

func (s *ExecutorSuite) TestDegradeNoteUsesPgxServerMessage() {
	primary := s.newConn()
	primary.ExpectQuery("SELECT * FROM secret").
		WillReturnError(&pgconn.PgError{Severity: "ERROR", Code: "42P01", Message: `relation "secret" does not exist`})
	primary.ExpectClose()

	fallback := s.newConn()
	fallback.ExpectQuery("SELECT * FROM notes LIMIT 10").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("n1"))
	fallback.ExpectClose()

	res, err := s.executor.Execute(s.ctx, config.DatabaseUS, "notes", "SELECT * FROM secret")
	s.Require().NoError(err)
	s.True(res.Degraded)
	s.Contains(res.Note, `(relation "secret" does not exist)`)
	s.NotContains(res.Note, "SQLSTATE")
}

func TestSQLState(t *testing.T) {
	pgErr := fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01", Message: "missing"})
	assert.Equal(t, []any{"sqlstate", "42P01", "sqlstate_class", "syntax_error_or_access_rule_violation"}, sqlState(pgErr))
	assert.Equal(t, "missing", errorMessage(pgErr))

	pqErr := &pq.Error{Code: "08006", Message: "gone"}
	assert.Equal(t, []any{"sqlstate", "08006", "sqlstate_class", "connection_exception"}, sqlState(pqErr))
	assert.Equal(t, "gone", errorMessage(pqErr))

	assert.Nil(t, sqlState(errors.New("plain")))
	assert.Equal(t, "plain", errorMessage(errors.New("plain")))
}

func TestNewConnector(t *testing.T) {
	assert.IsType(t, PgxConnector{}, NewConnector(config.Databases{}))
	assert.IsType(t, PgxConnector{}, NewConnector(config.Databases{Driver: config.DriverPgx}))
	assert.Equal(t, PostgresConnector{ConnectTimeout: time.Second},
		NewConnector(config.Databases{Driver: config.DriverPQ, ConnectTimeout: time.Second}))
}

func TestPgxConnector_RejectsMalformedDSN(t *testing.T) {
	_, err := PgxConnector{}.Open(context.Background(), "postgres://%zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse dsn")
}

func TestFallbackSQL(t *testing.T) {
	assert.Equal(t, "SELECT * FROM patients LIMIT 10", FallbackSQL("us_db", "patients"))
	assert.Equal(t, "SELECT * FROM patients LIMIT 10", FallbackSQL("eu_db", "patients"))
	assert.Equal(t, "SELECT * FROM notes LIMIT 15", FallbackSQL("sandbox_db", "notes"))
}

func TestIsIdentifier(t *testing.T) {
	for _, ok := range []string{"patients", "_x", "research_metrics", "T1"} {
		assert.True(t, IsIdentifier(ok), ok)
	}
	for _, bad := range []string{"", "1abc", "a b", "x;y", "public.patients", "pa-tients"} {
		assert.False(t, IsIdentifier(bad), bad)
	}
}

func TestExecutionError_NoFallback(t *testing.T) {
	err := &ExecutionError{Primary: errors.New("only")}
	require.Equal(t, "only", err.Detail())
	assert.ErrorIs(t, err, err.Primary)
}
