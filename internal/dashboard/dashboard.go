// Package dashboard keeps per-session dashboard state: the selected upload file, its KPI and
// inventory summaries, and two cursor-paginated trip lists merged with road geometry.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chainscope.io/dashboard/internal/merger"
	"chainscope.io/dashboard/internal/metrics"
	"chainscope.io/dashboard/internal/models"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("dashboard session not found")

// Phase is the state of a session's selected file.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseLoading      Phase = "loading"
	PhaseReady        Phase = "ready"
	PhaseError        Phase = "error"
	PhaseFetchingMore Phase = "fetching_more"
)

// Backend is the subset of the detection backend the aggregator reads from.
// *backend.Client satisfies it.
type Backend interface {
	Anomalies(ctx context.Context, fileID string, limit int, cursor *models.Cursor) (models.TripPage, error)
	Trips(ctx context.Context, fileID string, limit int, cursor *models.Cursor) (models.TripPage, error)
	KPI(ctx context.Context, fileID string) (*models.KPI, error)
	Inventory(ctx context.Context, fileID string) ([]models.InventoryItem, error)
	Nodes(ctx context.Context) ([]models.LocationNode, error)
	ProductAnomalies(ctx context.Context, fileID string) ([]models.ProductAnomalyCount, error)
}

// GeometryLoader is satisfied by *geometry.Cache.
type GeometryLoader interface {
	Load(ctx context.Context) error
}

// Event describes a settled phase transition of a session.
type Event struct {
	SessionID string    `json:"sessionId"`
	FileID    string    `json:"fileId"`
	Phase     Phase     `json:"phase"`
	Error     string    `json:"error,omitempty"`
	Anomalies int       `json:"anomalies"`
	Trips     int       `json:"trips"`
	Time      time.Time `json:"time"`
}

// Notifier receives session events. Delivery failures are logged, never surfaced to callers.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Deps are shared by every session of a Registry.
type Deps struct {
	Backend  Backend
	Geometry GeometryLoader
	Merger   *merger.Merger
	Notifier Notifier
	PageSize int
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *metrics.Collector
}

const DefaultPageSize = 50

// View is a consistent copy of a session's state.
type View struct {
	SessionID        string                       `json:"sessionId"`
	FileID           string                       `json:"fileId"`
	Phase            Phase                        `json:"phase"`
	Error            string                       `json:"error,omitempty"`
	KPI              *models.KPI                  `json:"kpiData"`
	Inventory        []models.InventoryItem       `json:"inventoryData"`
	Nodes            []models.LocationNode        `json:"nodes"`
	AnomalyTrips     []models.MergedTrip          `json:"anomalyTrips"`
	AllTrips         []models.MergedTrip          `json:"allTrips"`
	ProductAnomalies []models.ProductAnomalyCount `json:"productAnomalyData"`
	AnomalyCursor    *models.Cursor               `json:"anomalyCursor"`
	TripsCursor      *models.Cursor               `json:"tripsCursor"`
	Version          uint64                       `json:"version"`
}
