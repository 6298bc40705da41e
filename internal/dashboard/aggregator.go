package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"chainscope.io/dashboard/internal/logging"
	"chainscope.io/dashboard/internal/merger"
	"chainscope.io/dashboard/internal/models"
)

type listKind string

const (
	listAnomalies listKind = "anomalies"
	listTrips     listKind = "trips"
)

type tripList struct {
	trips    []models.MergedTrip
	cursor   *models.Cursor
	fetching bool
}

// state is replaced wholesale when the selected file changes.
type state struct {
	fileID           string
	phase            Phase
	err              string
	kpi              *models.KPI
	inventory        []models.InventoryItem
	nodes            []models.LocationNode
	productAnomalies []models.ProductAnomalyCount
	anomalies        tripList
	trips            tripList
}

func emptyState(fileID string, phase Phase) state {
	return state{
		fileID:           fileID,
		phase:            phase,
		inventory:        []models.InventoryItem{},
		nodes:            []models.LocationNode{},
		productAnomalies: []models.ProductAnomalyCount{},
		anomalies:        tripList{trips: []models.MergedTrip{}},
		trips:            tripList{trips: []models.MergedTrip{}},
	}
}

// Aggregator owns one session. Fetches run without the lock held; every commit first checks
// that the generation it started under is still current.
type Aggregator struct {
	id     string
	deps   Deps
	merger *merger.Merger
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64
	version    uint64
	st         state
	memo       aggregatesMemo
}

func New(sessionID string, deps Deps) *Aggregator {
	if deps.PageSize <= 0 {
		deps.PageSize = DefaultPageSize
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	m := deps.Merger
	if m == nil {
		m = merger.New(nil, deps.Logger, deps.Metrics)
	}
	return &Aggregator{
		id:     sessionID,
		deps:   deps,
		merger: m,
		logger: logging.Component(deps.Logger, "dashboard").With(slog.String("session", sessionID)),
		st:     emptyState("", PhaseIdle),
	}
}

func (a *Aggregator) ID() string { return a.id }

// View returns the current state.
func (a *Aggregator) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewLocked()
}

func (a *Aggregator) viewLocked() View {
	return View{
		SessionID:        a.id,
		FileID:           a.st.fileID,
		Phase:            a.st.phase,
		Error:            a.st.err,
		KPI:              a.st.kpi,
		Inventory:        a.st.inventory,
		Nodes:            a.st.nodes,
		AnomalyTrips:     a.st.anomalies.trips,
		AllTrips:         a.st.trips.trips,
		ProductAnomalies: a.st.productAnomalies,
		AnomalyCursor:    a.st.anomalies.cursor,
		TripsCursor:      a.st.trips.cursor,
		Version:          a.version,
	}
}

// reset installs a fresh state for fileID and returns the new generation.
func (a *Aggregator) resetLocked(fileID string, phase Phase) uint64 {
	a.generation++
	a.version++
	a.st = emptyState(fileID, phase)
	return a.generation
}

// Close discards the session state. Fetches still in flight are dropped when they return.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked("", PhaseIdle)
}

type initialData struct {
	kpi              *models.KPI
	inventory        []models.InventoryItem
	nodes            []models.LocationNode
	productAnomalies []models.ProductAnomalyCount
	anomalies        models.TripPage
	trips            models.TripPage
}

// SelectFile switches the session to fileID and loads it. The six backend reads run
// concurrently and are committed together or not at all. An empty fileID clears the session.
// If another SelectFile supersedes this one before the reads finish, the results are dropped
// and the newer state is returned.
func (a *Aggregator) SelectFile(ctx context.Context, fileID string) View {
	a.mu.Lock()
	if fileID == "" {
		a.resetLocked("", PhaseIdle)
		v := a.viewLocked()
		a.mu.Unlock()
		return v
	}
	gen := a.resetLocked(fileID, PhaseLoading)
	a.mu.Unlock()

	start := time.Now()
	data, err := a.fetchInitial(ctx, fileID)
	var anomalies, trips []models.MergedTrip
	if err == nil {
		anomalies = a.merger.Merge(data.anomalies.Data)
		trips = a.merger.Merge(data.trips.Data)
	}

	a.mu.Lock()
	if gen != a.generation {
		v := a.viewLocked()
		a.mu.Unlock()
		a.deps.Metrics.StaleResponse()
		a.deps.Metrics.DashboardLoad("stale")
		a.logger.Debug("discarding stale dashboard load", slog.String("file_id", fileID))
		return v
	}

	a.version++
	if err != nil {
		a.st = emptyState(fileID, PhaseError)
		a.st.err = err.Error()
	} else {
		a.st = state{
			fileID:           fileID,
			phase:            PhaseReady,
			kpi:              data.kpi,
			inventory:        data.inventory,
			nodes:            data.nodes,
			productAnomalies: data.productAnomalies,
			anomalies:        tripList{trips: anomalies, cursor: data.anomalies.NextCursor},
			trips:            tripList{trips: trips, cursor: data.trips.NextCursor},
		}
	}
	v := a.viewLocked()
	a.mu.Unlock()

	if err != nil {
		a.deps.Metrics.DashboardLoad("error")
		logging.LogError(a.logger, "dashboard load failed", err, slog.String("file_id", fileID))
	} else {
		a.deps.Metrics.DashboardLoad("ready")
		logging.LogOperation(a.logger, "dashboard_loaded",
			slog.String("file_id", fileID),
			slog.Int("anomalies", len(anomalies)),
			slog.Int("trips", len(trips)),
			slog.Duration("duration", time.Since(start)))
	}
	a.notify(ctx, v)
	return v
}

func (a *Aggregator) fetchInitial(ctx context.Context, fileID string) (initialData, error) {
	var data initialData
	b := a.deps.Backend
	limit := a.deps.PageSize

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		kpi, err := b.KPI(gctx, fileID)
		if err != nil {
			return fmt.Errorf("fetching KPI: %w", err)
		}
		data.kpi = kpi
		return nil
	})
	g.Go(func() error {
		inventory, err := b.Inventory(gctx, fileID)
		if err != nil {
			return fmt.Errorf("fetching inventory: %w", err)
		}
		data.inventory = inventory
		return nil
	})
	g.Go(func() error {
		nodes, err := b.Nodes(gctx)
		if err != nil {
			return fmt.Errorf("fetching nodes: %w", err)
		}
		data.nodes = nodes
		return nil
	})
	g.Go(func() error {
		page, err := b.Anomalies(gctx, fileID, limit, nil)
		if err != nil {
			return fmt.Errorf("fetching anomalies: %w", err)
		}
		data.anomalies = page
		return nil
	})
	g.Go(func() error {
		page, err := b.Trips(gctx, fileID, limit, nil)
		if err != nil {
			return fmt.Errorf("fetching trips: %w", err)
		}
		data.trips = page
		return nil
	})
	g.Go(func() error {
		counts, err := b.ProductAnomalies(gctx, fileID)
		if err != nil {
			return fmt.Errorf("fetching product anomalies: %w", err)
		}
		data.productAnomalies = counts
		return nil
	})
	if a.deps.Geometry != nil {
		g.Go(func() error {
			if err := a.deps.Geometry.Load(gctx); err != nil {
				a.logger.Warn("road geometry unavailable, trips use straight lines",
					slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return initialData{}, err
	}

	if data.kpi == nil {
		data.kpi = &models.KPI{}
	}
	data.inventory = orEmpty(data.inventory)
	data.nodes = orEmpty(data.nodes)
	data.productAnomalies = orEmpty(data.productAnomalies)
	return data, nil
}

// LoadMoreAnomalies appends the next anomaly page. It does nothing when the list is exhausted,
// the session is not ready, or a fetch for this list is already running.
func (a *Aggregator) LoadMoreAnomalies(ctx context.Context) (View, error) {
	return a.loadMore(ctx, listAnomalies)
}

// LoadMoreTrips is LoadMoreAnomalies for the all-trips list.
func (a *Aggregator) LoadMoreTrips(ctx context.Context) (View, error) {
	return a.loadMore(ctx, listTrips)
}

func (a *Aggregator) listLocked(kind listKind) *tripList {
	if kind == listAnomalies {
		return &a.st.anomalies
	}
	return &a.st.trips
}

func (a *Aggregator) loadMore(ctx context.Context, kind listKind) (View, error) {
	a.mu.Lock()
	list := a.listLocked(kind)
	if (a.st.phase != PhaseReady && a.st.phase != PhaseFetchingMore) || list.cursor == nil || list.fetching {
		v := a.viewLocked()
		a.mu.Unlock()
		a.deps.Metrics.LoadMoreOutcome(string(kind), "skipped")
		return v, nil
	}
	list.fetching = true
	a.st.phase = PhaseFetchingMore
	a.version++
	gen := a.generation
	fileID := a.st.fileID
	cursor := *list.cursor
	a.mu.Unlock()

	fetch := a.deps.Backend.Anomalies
	if kind == listTrips {
		fetch = a.deps.Backend.Trips
	}
	page, err := fetch(ctx, fileID, a.deps.PageSize, &cursor)
	var merged []models.MergedTrip
	if err == nil {
		merged = a.merger.Merge(page.Data)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.generation {
		a.deps.Metrics.StaleResponse()
		a.deps.Metrics.LoadMoreOutcome(string(kind), "stale")
		a.logger.Debug("discarding stale page", slog.String("list", string(kind)), slog.String("file_id", fileID))
		return a.viewLocked(), nil
	}

	list = a.listLocked(kind)
	list.fetching = false
	if !a.st.anomalies.fetching && !a.st.trips.fetching {
		a.st.phase = PhaseReady
	}
	a.version++

	if err != nil {
		a.deps.Metrics.LoadMoreOutcome(string(kind), "error")
		logging.LogError(a.logger, "load more failed", err,
			slog.String("list", string(kind)), slog.String("file_id", fileID))
		return a.viewLocked(), fmt.Errorf("loading more %s: %w", kind, err)
	}

	list.trips = appendTrips(list.trips, merged)
	list.cursor = page.NextCursor
	a.deps.Metrics.LoadMoreOutcome(string(kind), "ok")
	return a.viewLocked(), nil
}

// appendTrips returns a new slice so views handed out earlier never observe the append.
func appendTrips(current, more []models.MergedTrip) []models.MergedTrip {
	out := make([]models.MergedTrip, 0, len(current)+len(more))
	out = append(out, current...)
	return append(out, more...)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (a *Aggregator) notify(ctx context.Context, v View) {
	if a.deps.Notifier == nil {
		return
	}
	ev := Event{
		SessionID: v.SessionID,
		FileID:    v.FileID,
		Phase:     v.Phase,
		Error:     v.Error,
		Anomalies: len(v.AnomalyTrips),
		Trips:     len(v.AllTrips),
		Time:      time.Now().UTC(),
	}
	if err := a.deps.Notifier.Notify(context.WithoutCancel(ctx), ev); err != nil {
		logging.LogError(a.logger, "failed to publish dashboard event", err,
			slog.String("phase", string(ev.Phase)))
	}
}
