package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainscope.io/dashboard/internal/appconf"
	"chainscope.io/dashboard/internal/geomdb"
	"chainscope.io/dashboard/internal/logging"
)

const roadsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"roadId": 7, "from": "Factory A", "to": " <b>WMS B</b> "},
     "geometry": {"type": "LineString", "coordinates": [[126.97, 37.56], [127.0, 37.55], [127.02, 37.50]]}},
    {"type": "Feature", "properties": {"from": "X", "to": "Y"},
     "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]}},
    {"type": "Feature", "properties": {"roadId": "bad"},
     "geometry": {"type": "LineString", "coordinates": [[0, 0], [0, 95]]}},
    {"type": "Feature", "properties": {"roadId": "pt"},
     "geometry": {"type": "Point", "coordinates": [0, 0]}}
  ]
}`

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roads.geojson")
	require.NoError(t, os.WriteFile(path, []byte(roadsGeoJSON), 0o600))

	store, err := geomdb.NewClient(geomdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	defer store.Close() // nolint:errcheck

	logger := logging.NewStructuredLogger(io.Discard, slog.LevelInfo)
	result, err := importFile(context.Background(), path, store, logger)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)

	row, err := store.GetGeometry(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Factory A", row.FromLocation)
	assert.Equal(t, "WMS B", row.ToLocation)
	assert.Equal(t, 3, row.PointCount)

	// Importing again replaces rows instead of duplicating them.
	_, err = importFile(context.Background(), path, store, logger)
	require.NoError(t, err)
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestImportFileMissing(t *testing.T) {
	store, err := geomdb.NewClient(geomdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	defer store.Close() // nolint:errcheck

	_, err = importFile(context.Background(), filepath.Join(t.TempDir(), "none.geojson"), store, slog.Default())
	assert.Error(t, err)
}
