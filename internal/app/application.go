package app

import (
	"log/slog"

	"chainscope.io/dashboard/internal/appconf"
	"chainscope.io/dashboard/internal/dashboard"
	"chainscope.io/dashboard/internal/geometry"
	"chainscope.io/dashboard/internal/metrics"
)

// Application holds the dependencies shared by the HTTP handlers and middleware.
type Application struct {
	Config   appconf.Config
	Logger   *slog.Logger
	Geometry *geometry.Cache
	Sessions *dashboard.Registry
	Metrics  *metrics.Collector
}
