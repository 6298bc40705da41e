package geomdb

import (
	"strings"

	"chainscope.io/dashboard/internal/appconf"
)

// Config holds configuration options for the Client
type Config struct {
	// DSN is a sqlite path (or ":memory:") or a postgres:// URL.
	DSN     string
	Env     appconf.Environment
	Verbose bool
}

func NewConfig(dsn string, env appconf.Environment, verbose bool) Config {
	return Config{
		DSN:     dsn,
		Env:     env,
		Verbose: verbose,
	}
}

func (c Config) driverName() string {
	if strings.HasPrefix(c.DSN, "postgres://") || strings.HasPrefix(c.DSN, "postgresql://") {
		return "pgx"
	}
	return "sqlite"
}

func (c Config) inMemory() bool {
	return c.DSN == ":memory:" || strings.Contains(c.DSN, "mode=memory")
}
