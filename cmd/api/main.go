package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chainscope.io/dashboard/internal/appconf"
	"chainscope.io/dashboard/internal/logging"
	"chainscope.io/dashboard/internal/restapi"
)

const shutdownTimeout = 15 * time.Second

func main() {
	appconf.LoadDotEnv()

	cfg, logLevel, err := parseConfig(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.NewStructuredLogger(os.Stdout, logging.ParseLevel(logLevel))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// parseConfig reads flags from args. Environment variables (and .env) supply the defaults.
func parseConfig(args []string, getenv func(string) string) (appconf.Config, string, error) {
	cfg, err := appconf.FromEnv(getenv)
	if err != nil {
		return appconf.Config{}, "", err
	}

	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	var env, apiKeys, tz, logLevel string

	fs.IntVar(&cfg.Port, "port", cfg.Port, "API server port")
	fs.StringVar(&env, "env", cfg.Env.String(), "Environment (development|test|production)")
	fs.StringVar(&apiKeys, "api-keys", strings.Join(cfg.ApiKeys, ","), "Comma separated API keys")
	fs.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Requests per second per API key (0 disables)")
	fs.StringVar(&cfg.BackendURL, "backend-url", cfg.BackendURL, "Base URL of the anomaly detection backend")
	fs.StringVar(&cfg.BackendToken, "backend-token", cfg.BackendToken, "Bearer token for the backend")
	fs.DurationVar(&cfg.BackendTimeout, "backend-timeout", cfg.BackendTimeout, "Timeout of one backend request")
	fs.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "Trips per backend page")
	fs.StringVar(&cfg.GeometryFile, "geometry-file", cfg.GeometryFile, "GeoJSON file of road geometries")
	fs.StringVar(&cfg.GeometryURL, "geometry-url", cfg.GeometryURL, "URL of a GeoJSON file of road geometries")
	fs.StringVar(&cfg.GeometryDSN, "geometry-dsn", cfg.GeometryDSN, "Geometry store DSN (sqlite path or postgres URL)")
	fs.DurationVar(&cfg.GeometryRefreshInterval, "geometry-refresh", cfg.GeometryRefreshInterval, "Reload geometries this often (0 disables)")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server for dashboard events (empty disables)")
	fs.DurationVar(&cfg.SessionIdleTTL, "session-ttl", cfg.SessionIdleTTL, "Evict dashboard sessions idle this long")
	fs.StringVar(&tz, "tz", "", "Time zone for weekday aggregates (default from TZ)")
	fs.StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		return appconf.Config{}, "", err
	}

	cfg.Env = appconf.EnvFlagToEnvironment(env)
	cfg.ApiKeys = appconf.ParseAPIKeys(apiKeys)
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return appconf.Config{}, "", fmt.Errorf("invalid -tz: %w", err)
		}
		cfg.Location = loc
	}

	if err := cfg.Validate(); err != nil {
		return appconf.Config{}, "", err
	}
	return cfg, logLevel, nil
}

func run(cfg appconf.Config, logger *slog.Logger) error {
	application, cleanup, err := buildApplication(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	api := restapi.NewRestAPI(application)
	defer api.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 15*time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the geometry cache; a failure here only means straight lines until a later load.
	go func() {
		if err := application.Geometry.Load(ctx); err != nil {
			logging.LogError(logger, "initial geometry load failed", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", srv.Addr), slog.String("env", cfg.Env.String()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
