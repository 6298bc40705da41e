package restapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainscope.io/dashboard/internal/geomdb"
)

func TestGeometryHandler(t *testing.T) {
	api, _ := createTestApi(t)

	resp, model := serveApiAndRetrieveEndpoint(t, api, http.MethodGet, "/api/geometry/7?key="+testKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entry geometryEntry
	decodeEntry(t, model, &entry)
	assert.Equal(t, "7", entry.RoadID)
	assert.Equal(t, 3, entry.PointCount)

	decoded, err := geomdb.DecodeLineString(entry.Polyline)
	require.NoError(t, err)
	require.Len(t, decoded, 3)
	assert.InDelta(t, 2.0, decoded[2].Lon(), 1e-5)
}

func TestGeometryHandlerUnknownRoad(t *testing.T) {
	api, _ := createTestApi(t)

	resp, model := serveApiAndRetrieveEndpoint(t, api, http.MethodGet, "/api/geometry/404?key="+testKey)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "resource not found", model.Text)
}

func TestHealthHandler(t *testing.T) {
	api, _ := createTestApi(t)
	require.NoError(t, api.Geometry.Load(context.Background()))

	resp, model := serveApiAndRetrieveEndpoint(t, api, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entry healthEntry
	decodeEntry(t, model, &entry)
	assert.Equal(t, "ok", entry.Status)
	assert.Equal(t, "test", entry.Env)
	require.NotNil(t, entry.Geometry)
	assert.True(t, entry.Geometry.Loaded)
	assert.Equal(t, 1, entry.Geometry.Roads)
}

func TestMetricsEndpoint(t *testing.T) {
	api, _ := createTestApi(t)
	serveApiAndRetrieveEndpoint(t, api, http.MethodPost, "/api/dashboard/s1/files/f1?key="+testKey)

	server := newTestServer(t, api)
	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	body := readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `dashboard_loads_total{outcome="ready"} 1`)
	assert.Contains(t, body, `dashboard_geometry_lookups_total{result="hit"}`)
}
