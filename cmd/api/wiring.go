package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chainscope.io/dashboard/internal/app"
	"chainscope.io/dashboard/internal/appconf"
	"chainscope.io/dashboard/internal/backend"
	"chainscope.io/dashboard/internal/dashboard"
	"chainscope.io/dashboard/internal/events"
	"chainscope.io/dashboard/internal/geomdb"
	"chainscope.io/dashboard/internal/geometry"
	"chainscope.io/dashboard/internal/logging"
	"chainscope.io/dashboard/internal/merger"
	"chainscope.io/dashboard/internal/metrics"
)

const sessionSweepInterval = time.Minute

// buildApplication constructs every long-lived component. The returned cleanup stops
// background work and closes connections in reverse order of creation.
func buildApplication(cfg appconf.Config, logger *slog.Logger) (*app.Application, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	m := metrics.NewCollector()

	source, closeSource, err := geometrySource(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, closeSource)

	cache := geometry.NewCache(source, logger, m)
	cache.StartRefresher(cfg.GeometryRefreshInterval)
	closers = append(closers, cache.Shutdown)

	client, err := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendURL,
		Token:   cfg.BackendToken,
		Timeout: cfg.BackendTimeout,
	}, logger, m)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	deps := dashboard.Deps{
		Backend:  client,
		Geometry: cache,
		Merger:   merger.New(cache, logger, m),
		PageSize: cfg.PageSize,
		Location: cfg.Location,
		Logger:   logger,
		Metrics:  m,
	}

	if cfg.NATSURL != "" {
		publisher, err := events.Connect(cfg.NATSURL, logger, m)
		if err != nil {
			// Events are optional; the dashboard works without them.
			logging.LogError(logger, "nats unavailable, dashboard events disabled", err,
				slog.String("url", cfg.NATSURL))
		} else {
			deps.Notifier = publisher
			closers = append(closers, publisher.Close)
		}
	}

	registry := dashboard.NewRegistry(deps, cfg.SessionIdleTTL)
	registry.StartSweeper(sessionSweepInterval)
	closers = append(closers, registry.Shutdown)

	return &app.Application{
		Config:   cfg,
		Logger:   logger,
		Geometry: cache,
		Sessions: registry,
		Metrics:  m,
	}, cleanup, nil
}

// geometrySource picks the configured source. With none configured an empty store in memory
// is used, so every trip renders as a straight line.
func geometrySource(cfg appconf.Config, logger *slog.Logger) (geometry.Source, func(), error) {
	noop := func() {}

	switch {
	case cfg.GeometryFile != "":
		return geometry.FileSource{Path: cfg.GeometryFile}, noop, nil
	case cfg.GeometryURL != "":
		return geometry.HTTPSource{URL: cfg.GeometryURL, Client: &http.Client{Timeout: time.Minute}}, noop, nil
	}

	dsn := cfg.GeometryDSN
	if dsn == "" {
		dsn = ":memory:"
		logger.Warn("no geometry source configured, trips will use straight lines")
	}

	store, err := geomdb.NewClient(geomdb.NewConfig(dsn, cfg.Env, false))
	if err != nil {
		return nil, nil, fmt.Errorf("opening geometry store: %w", err)
	}
	return geometry.StoreSource{Store: store}, func() { logging.SafeCloseWithLogging(store, logger, "geometry_store") }, nil
}
