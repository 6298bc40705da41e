package geometry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"chainscope.io/dashboard/internal/geomdb"
	"chainscope.io/dashboard/internal/logging"
)

// Source produces a complete geometry snapshot.
type Source interface {
	Fetch(ctx context.Context) (*Snapshot, error)
	Name() string
}

// FileSource reads a GeoJSON FeatureCollection from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Fetch(ctx context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("error reading geometry file: %w", err)
	}
	features, err := ParseFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	snap, _ := SnapshotFromFeatures(features)
	return snap, nil
}

// HTTPSource downloads a GeoJSON FeatureCollection.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s HTTPSource) Name() string { return "http:" + s.URL }

func (s HTTPSource) Fetch(ctx context.Context) (*Snapshot, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading geometry: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "geometry_downloader")),
		"http_response_body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("error downloading geometry: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading geometry body: %w", err)
	}

	features, err := ParseFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	snap, _ := SnapshotFromFeatures(features)
	return snap, nil
}

// StoreSource reads geometries written by the geomimport tool.
type StoreSource struct {
	Store *geomdb.Client
}

func (s StoreSource) Name() string { return "store" }

func (s StoreSource) Fetch(ctx context.Context) (*Snapshot, error) {
	rows, err := s.Store.ListGeometries(ctx)
	if err != nil {
		return nil, err
	}

	snap := NewSnapshot()
	for _, row := range rows {
		line, err := row.LineString()
		if err != nil {
			return nil, fmt.Errorf("road %s: %w", row.RoadID, err)
		}
		snap.Add(row.RoadID, row.FromLocation, row.ToLocation, line)
	}
	return snap, nil
}
