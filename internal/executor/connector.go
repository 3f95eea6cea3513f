package executor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq" // postgres driver

	"zerotrust/internal/platform/config"
)

// Connector opens a fresh single-connection handle for one request.
type Connector interface {
	Open(ctx context.Context, dsn string) (*sql.DB, error)
}

// NewConnector returns the connector for the configured driver. Unknown
// drivers get pgx.
func NewConnector(cfg config.Databases) Connector {
	if cfg.Driver == config.DriverPQ {
		return PostgresConnector{ConnectTimeout: cfg.ConnectTimeout}
	}
	return PgxConnector{ConnectTimeout: cfg.ConnectTimeout}
}

// PgxConnector opens pgx connections through the database/sql adapter.
type PgxConnector struct {
	ConnectTimeout time.Duration
}

func (c PgxConnector) Open(ctx context.Context, dsn string) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if c.ConnectTimeout > 0 {
		connConfig.ConnectTimeout = c.ConnectTimeout
	}
	return ping(ctx, stdlib.OpenDB(*connConfig), c.ConnectTimeout)
}

// PostgresConnector opens lib/pq connections.
type PostgresConnector struct {
	ConnectTimeout time.Duration
}

func (c PostgresConnector) Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return ping(ctx, db, c.ConnectTimeout)
}

// ping pins db to one connection and checks it before use.
func ping(ctx context.Context, db *sql.DB, timeout time.Duration) (*sql.DB, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
