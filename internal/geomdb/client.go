package geomdb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver

	"chainscope.io/dashboard/internal/appconf"
	"chainscope.io/dashboard/internal/logging"
)

//go:embed schema.sql
var ddl string

// ErrNotFound is returned when a road has no stored geometry.
var ErrNotFound = errors.New("geometry not found")

// Client stores road geometries as encoded polylines.
type Client struct {
	config Config
	DB     *sql.DB
	logger *slog.Logger
}

// NewClient opens the database named by config.DSN and applies the schema.
func NewClient(config Config) (*Client, error) {
	if config.Env == appconf.Test && config.driverName() == "sqlite" && !config.inMemory() {
		return nil, fmt.Errorf("refusing to create file database %q in test environment", config.DSN)
	}

	db, err := sql.Open(config.driverName(), config.DSN)
	if err != nil {
		return nil, fmt.Errorf("error opening geometry database: %w", err)
	}

	if config.inMemory() {
		// every sqlite connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	client := &Client{
		config: config,
		DB:     db,
		logger: logging.Component(nil, "geomdb"),
	}

	if err := client.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	if config.Verbose {
		client.logger.Info("geometry database ready", slog.String("driver", config.driverName()))
	}

	return client, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(ddl, "-- migrate") {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := c.DB.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmed, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for postgres.
func (c *Client) rebind(query string) string {
	if c.config.driverName() != "pgx" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
