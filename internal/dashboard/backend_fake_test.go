package dashboard

import (
	"context"
	"errors"
	"sync"

	"chainscope.io/dashboard/internal/models"
)

var errBackend = errors.New("backend unavailable")

// fakeBackend serves pages keyed by "file|cursor". Calls whose key has a gate block until the
// gate is closed; each blocked call announces its key on entered.
type fakeBackend struct {
	mu           sync.Mutex
	anomalyPages map[string]models.TripPage
	tripPages    map[string]models.TripPage
	kpiErr       error
	anomalyErr   error
	gates        map[string]chan struct{}
	calls        map[string]int
	entered      chan string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		anomalyPages: map[string]models.TripPage{},
		tripPages:    map[string]models.TripPage{},
		gates:        map[string]chan struct{}{},
		calls:        map[string]int{},
		entered:      make(chan string, 16),
	}
}

func pageKey(fileID string, cursor *models.Cursor) string {
	if cursor == nil {
		return fileID + "|"
	}
	return fileID + "|" + cursor.String()
}

func (f *fakeBackend) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeBackend) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeBackend) hold(ctx context.Context, key string) error {
	f.mu.Lock()
	f.calls[key]++
	gate := f.gates[key]
	f.mu.Unlock()

	if gate == nil {
		return nil
	}
	f.entered <- key
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBackend) Anomalies(ctx context.Context, fileID string, _ int, cursor *models.Cursor) (models.TripPage, error) {
	key := pageKey(fileID, cursor)
	if err := f.hold(ctx, "anomalies:"+key); err != nil {
		return models.TripPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.anomalyErr != nil && cursor != nil {
		return models.TripPage{}, f.anomalyErr
	}
	return f.anomalyPages[key], nil
}

func (f *fakeBackend) Trips(ctx context.Context, fileID string, _ int, cursor *models.Cursor) (models.TripPage, error) {
	key := pageKey(fileID, cursor)
	if err := f.hold(ctx, "trips:"+key); err != nil {
		return models.TripPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tripPages[key], nil
}

func (f *fakeBackend) KPI(ctx context.Context, fileID string) (*models.KPI, error) {
	if err := f.hold(ctx, "kpi:"+fileID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kpiErr != nil {
		return nil, f.kpiErr
	}
	return &models.KPI{TotalTripCount: int64(len(fileID)) * 100}, nil
}

func (f *fakeBackend) Inventory(ctx context.Context, fileID string) ([]models.InventoryItem, error) {
	if err := f.hold(ctx, "inventory:"+fileID); err != nil {
		return nil, err
	}
	return []models.InventoryItem{{BusinessStep: models.StepWMS, Value: 10}}, nil
}

func (f *fakeBackend) Nodes(ctx context.Context) ([]models.LocationNode, error) {
	if err := f.hold(ctx, "nodes"); err != nil {
		return nil, err
	}
	return []models.LocationNode{
		{HubID: 1, ScanLocation: "Factory A", BusinessStep: models.StepFactory},
		{HubID: 2, ScanLocation: "WMS B", BusinessStep: models.StepWMS},
	}, nil
}

func (f *fakeBackend) ProductAnomalies(ctx context.Context, fileID string) ([]models.ProductAnomalyCount, error) {
	if err := f.hold(ctx, "products:"+fileID); err != nil {
		return nil, err
	}
	return []models.ProductAnomalyCount{{ProductName: "Widget", Fake: 1, Total: 1}}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}

type stubGeometry struct {
	err   error
	calls int
	mu    sync.Mutex
}

func (g *stubGeometry) Load(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.err
}
