// Package citibuy reads purchasing data from the CitiBuy database.
//
// The client runs read-only projection queries. Queries are written with `?`
// placeholders and rebound for the configured driver, so the same SQL runs against
// the postgres replica and a local sqlite copy.
package citibuy

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/agentstation/fiscal/pkg/constants"
	pkgerrors "github.com/agentstation/fiscal/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config holds the database connection settings.
type Config struct {
	Driver       string        `mapstructure:"driver" yaml:"driver"`
	DSN          string        `mapstructure:"dsn" yaml:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	QueryTimeout time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
	Limit        int           `mapstructure:"limit" yaml:"limit"`
}

// DefaultLimit caps the rows returned by a single projection.
const DefaultLimit = 10000

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverSQLite:
	case "":
		return pkgerrors.NewConfigError("citibuy", "driver is required", nil)
	default:
		return pkgerrors.NewConfigError("citibuy", fmt.Sprintf("unsupported driver %q", c.Driver), nil)
	}
	if c.DSN == "" {
		return pkgerrors.NewConfigError("citibuy", "dsn is required", nil)
	}
	return nil
}

// Client queries CitiBuy.
type Client struct {
	db      *sqlx.DB
	timeout time.Duration
	limit   int
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, pkgerrors.WrapResource("connect", "database", cfg.Driver, err)
	}

	switch {
	case cfg.Driver == DriverSQLite:
		// a single connection keeps in-memory databases alive and avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return NewClient(db, cfg), nil
}

// NewClient wraps an open database.
func NewClient(db *sqlx.DB, cfg Config) *Client {
	c := &Client{db: db, timeout: cfg.QueryTimeout, limit: cfg.Limit}
	if c.timeout <= 0 {
		c.timeout = constants.DefaultQueryTimeout
	}
	if c.limit <= 0 {
		c.limit = DefaultLimit
	}
	return c
}

// DB returns the underlying database handle.
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// CreateSchema creates the CitiBuy tables read by the workflows. It is used for local
// mock databases; the production replica is never written.
func (c *Client) CreateSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schemaSQL); err != nil {
		return pkgerrors.WrapResource("create", "schema", "citibuy", err)
	}
	return nil
}

// selectAll runs a projection query under the query timeout.
func (c *Client) selectAll(ctx context.Context, dest any, name, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.db.SelectContext(ctx, dest, c.db.Rebind(query), args...); err != nil {
		return pkgerrors.WrapResource("query", "database", name, err)
	}
	return nil
}
