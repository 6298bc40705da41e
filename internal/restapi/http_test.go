package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"chainscope.io/dashboard/internal/app"
	"chainscope.io/dashboard/internal/appconf"
	"chainscope.io/dashboard/internal/dashboard"
	"chainscope.io/dashboard/internal/geometry"
	"chainscope.io/dashboard/internal/merger"
	"chainscope.io/dashboard/internal/metrics"
	"chainscope.io/dashboard/internal/models"
)

const testKey = "TEST"

var errTestBackend = errors.New("backend down")

type testBackend struct {
	mu      sync.Mutex
	failure error
}

func (b *testBackend) setFailing(v bool) {
	if v {
		b.setError(errTestBackend)
		return
	}
	b.setError(nil)
}

func (b *testBackend) setError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failure = err
}

func (b *testBackend) err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failure
}

func testTrip(epc string, roadID models.RoadID) models.AnalyzedTrip {
	return models.AnalyzedTrip{
		RoadID:  roadID,
		EpcCode: epc,
		From: models.TripEndpoint{
			ScanLocation: "Factory A", Coord: orb.Point{0, 0}, EventTime: 100, BusinessStep: models.StepFactory,
		},
		To: models.TripEndpoint{
			ScanLocation: "WMS B", Coord: orb.Point{2, 2}, EventTime: 106, BusinessStep: models.StepWMS,
		},
		AnomalyTypeList: []models.AnomalyType{models.AnomalyFake},
	}
}

func (b *testBackend) Anomalies(_ context.Context, _ string, _ int, cursor *models.Cursor) (models.TripPage, error) {
	if err := b.err(); err != nil {
		return models.TripPage{}, err
	}
	if cursor == nil {
		next := models.Cursor("50")
		return models.TripPage{Data: []models.AnalyzedTrip{testTrip("e1", "7")}, NextCursor: &next}, nil
	}
	return models.TripPage{Data: []models.AnalyzedTrip{testTrip("e2", "")}}, nil
}

func (b *testBackend) Trips(_ context.Context, _ string, _ int, _ *models.Cursor) (models.TripPage, error) {
	if err := b.err(); err != nil {
		return models.TripPage{}, err
	}
	return models.TripPage{Data: []models.AnalyzedTrip{testTrip("e1", "7")}}, nil
}

func (b *testBackend) KPI(context.Context, string) (*models.KPI, error) {
	if err := b.err(); err != nil {
		return nil, err
	}
	return &models.KPI{TotalTripCount: 10, AnomalyCount: 1}, nil
}

func (b *testBackend) Inventory(context.Context, string) ([]models.InventoryItem, error) {
	return []models.InventoryItem{{BusinessStep: models.StepWMS, Value: 3}}, b.err()
}

func (b *testBackend) Nodes(context.Context) ([]models.LocationNode, error) {
	return []models.LocationNode{{HubID: 1, ScanLocation: "Factory A", BusinessStep: models.StepFactory}}, b.err()
}

func (b *testBackend) ProductAnomalies(context.Context, string) ([]models.ProductAnomalyCount, error) {
	return []models.ProductAnomalyCount{{ProductName: "Widget", Fake: 1, Total: 1}}, b.err()
}

type testGeometrySource struct{}

func (testGeometrySource) Name() string { return "test" }

func (testGeometrySource) Fetch(context.Context) (*geometry.Snapshot, error) {
	snap := geometry.NewSnapshot()
	snap.Add("7", "Factory A", "WMS B", orb.LineString{{0, 0}, {1, 1}, {2, 2}})
	return snap, nil
}

// createTestApi builds a RestAPI over an in-memory backend and geometry source.
func createTestApi(t *testing.T) (*RestAPI, *testBackend) {
	t.Helper()
	backend := &testBackend{}
	m := metrics.NewCollector()
	cache := geometry.NewCache(testGeometrySource{}, nil, m)

	application := &app.Application{
		Config: appconf.Config{
			Env:       appconf.Test,
			ApiKeys:   []string{testKey},
			RateLimit: 1000,
		},
		Geometry: cache,
		Metrics:  m,
		Sessions: dashboard.NewRegistry(dashboard.Deps{
			Backend:  backend,
			Geometry: cache,
			Merger:   merger.New(cache, nil, m),
			Metrics:  m,
		}, 0),
	}

	api := NewRestAPI(application)
	t.Cleanup(func() {
		api.Stop()
		cache.Shutdown()
	})
	return api, backend
}

// serveApiAndRetrieveEndpoint sends one request through the full handler chain and decodes
// the response envelope.
func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, method, endpoint string) (*http.Response, models.ResponseModel) {
	t.Helper()
	server := httptest.NewServer(api.Handler())
	defer server.Close()

	req, err := http.NewRequest(method, server.URL+endpoint, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var response models.ResponseModel
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &response), string(body))
	}
	return resp, response
}

// decodeEntry re-decodes data.entry of a response into out.
func decodeEntry(t *testing.T, model models.ResponseModel, out interface{}) {
	t.Helper()
	data, ok := model.Data.(map[string]interface{})
	require.True(t, ok, "data should be an object")
	raw, err := json.Marshal(data["entry"])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func newTestServer(t *testing.T, api *RestAPI) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	return server
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
