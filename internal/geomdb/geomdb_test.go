package geomdb

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainscope.io/dashboard/internal/appconf"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClientRefusesFileDatabaseInTests(t *testing.T) {
	_, err := NewClient(NewConfig("geometries.db", appconf.Test, false))
	assert.Error(t, err)
}

func TestDriverSelection(t *testing.T) {
	assert.Equal(t, "pgx", NewConfig("postgres://u@localhost/db", appconf.Development, false).driverName())
	assert.Equal(t, "pgx", NewConfig("postgresql://u@localhost/db", appconf.Development, false).driverName())
	assert.Equal(t, "sqlite", NewConfig("geometries.db", appconf.Development, false).driverName())
}

func TestRebind(t *testing.T) {
	pg := &Client{config: NewConfig("postgres://localhost/db", appconf.Development, false)}
	assert.Equal(t, "SELECT $1, $2", pg.rebind("SELECT ?, ?"))

	lite := &Client{config: NewConfig(":memory:", appconf.Test, false)}
	assert.Equal(t, "SELECT ?, ?", lite.rebind("SELECT ?, ?"))
}

func TestPolylineRoundTrip(t *testing.T) {
	line := orb.LineString{{126.97806, 37.56667}, {127.02758, 37.49794}, {129.07556, 35.17944}}

	decoded, err := DecodeLineString(EncodeLineString(line))
	require.NoError(t, err)
	require.Len(t, decoded, 3)
	for i := range line {
		assert.InDelta(t, line[i].Lon(), decoded[i].Lon(), 1e-5)
		assert.InDelta(t, line[i].Lat(), decoded[i].Lat(), 1e-5)
	}
}

func TestUpsertAndList(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	line := orb.LineString{{0, 0}, {1, 1}, {2, 2}}
	require.NoError(t, client.UpsertGeometries(ctx, []RoadGeometry{
		NewRoadGeometry("7", "Factory A", "WMS B", line),
		NewRoadGeometry("8", "WMS B", "LogiHub C", line[:2]),
	}))

	n, err := client.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	geometries, err := client.ListGeometries(ctx)
	require.NoError(t, err)
	require.Len(t, geometries, 2)
	assert.Equal(t, "7", geometries[0].RoadID)
	assert.Equal(t, 3, geometries[0].PointCount)
	assert.Equal(t, "Factory A", geometries[0].FromLocation)

	decoded, err := geometries[0].LineString()
	require.NoError(t, err)
	assert.Len(t, decoded, 3)
}

func TestUpsertReplacesExistingRoad(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.UpsertGeometries(ctx, []RoadGeometry{
		NewRoadGeometry("7", "A", "B", orb.LineString{{0, 0}, {1, 1}}),
	}))
	require.NoError(t, client.UpsertGeometries(ctx, []RoadGeometry{
		NewRoadGeometry("7", "A", "C", orb.LineString{{0, 0}, {1, 1}, {2, 2}}),
	}))

	g, err := client.GetGeometry(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "C", g.ToLocation)
	assert.Equal(t, 3, g.PointCount)

	n, err := client.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetGeometryNotFound(t *testing.T) {
	client := newTestClient(t)

	_, err := client.GetGeometry(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertRejectsEmptyRoadID(t *testing.T) {
	client := newTestClient(t)

	err := client.UpsertGeometries(context.Background(), []RoadGeometry{{Polyline: "??"}})
	assert.Error(t, err)

	n, err := client.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
