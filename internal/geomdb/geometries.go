package geomdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-polyline"

	"chainscope.io/dashboard/internal/logging"
)

// RoadGeometry is one stored road polyline.
type RoadGeometry struct {
	RoadID       string
	FromLocation string
	ToLocation   string
	Polyline     string // Google encoded polyline, lat/lon order
	PointCount   int
	UpdatedAt    time.Time
}

// NewRoadGeometry encodes line for storage.
func NewRoadGeometry(roadID, from, to string, line orb.LineString) RoadGeometry {
	return RoadGeometry{
		RoadID:       roadID,
		FromLocation: from,
		ToLocation:   to,
		Polyline:     EncodeLineString(line),
		PointCount:   len(line),
	}
}

// LineString decodes the stored polyline.
func (g RoadGeometry) LineString() (orb.LineString, error) {
	return DecodeLineString(g.Polyline)
}

// EncodeLineString encodes a lon/lat line as a Google polyline.
func EncodeLineString(line orb.LineString) string {
	coords := make([][]float64, len(line))
	for i, p := range line {
		coords[i] = []float64{p.Lat(), p.Lon()}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodeLineString is the inverse of EncodeLineString.
func DecodeLineString(encoded string) (orb.LineString, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("error decoding polyline: %w", err)
	}
	line := make(orb.LineString, len(coords))
	for i, c := range coords {
		line[i] = orb.Point{c[1], c[0]}
	}
	return line, nil
}

// UpsertGeometries inserts or replaces geometries keyed by road id in a single transaction.
func (c *Client) UpsertGeometries(ctx context.Context, geometries []RoadGeometry) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "upsert_geometries")

	stmt, err := tx.PrepareContext(ctx, c.rebind(`
		INSERT INTO road_geometries (
			road_id, from_location, to_location, polyline, point_count, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (road_id) DO UPDATE SET
			from_location = excluded.from_location,
			to_location = excluded.to_location,
			polyline = excluded.polyline,
			point_count = excluded.point_count,
			updated_at = excluded.updated_at;
	`))
	if err != nil {
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer logging.SafeCloseWithLogging(stmt, c.logger, "upsert_geometries_stmt")

	now := time.Now().Unix()
	for _, g := range geometries {
		if g.RoadID == "" {
			return errors.New("geometry without road id")
		}
		if _, err := stmt.ExecContext(ctx, g.RoadID, g.FromLocation, g.ToLocation, g.Polyline, g.PointCount, now); err != nil {
			return fmt.Errorf("error inserting geometry %s: %w", g.RoadID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	if c.config.Verbose {
		c.logger.Info("geometries stored", slog.Int("count", len(geometries)))
	}
	return nil
}

// ListGeometries returns every stored geometry ordered by road id.
func (c *Client) ListGeometries(ctx context.Context) ([]RoadGeometry, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT road_id, from_location, to_location, polyline, point_count, updated_at
		FROM road_geometries
		ORDER BY road_id`)
	if err != nil {
		return nil, fmt.Errorf("error listing geometries: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, c.logger, "list_geometries_rows")

	var geometries []RoadGeometry
	for rows.Next() {
		g, err := scanGeometry(rows)
		if err != nil {
			return nil, err
		}
		geometries = append(geometries, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating geometries: %w", err)
	}
	return geometries, nil
}

// GetGeometry returns the geometry for roadID or ErrNotFound.
func (c *Client) GetGeometry(ctx context.Context, roadID string) (RoadGeometry, error) {
	row := c.DB.QueryRowContext(ctx, c.rebind(`
		SELECT road_id, from_location, to_location, polyline, point_count, updated_at
		FROM road_geometries
		WHERE road_id = ?`), roadID)

	g, err := scanGeometry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RoadGeometry{}, ErrNotFound
	}
	return g, err
}

// Count returns the number of stored geometries.
func (c *Client) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM road_geometries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting geometries: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGeometry(s scanner) (RoadGeometry, error) {
	var g RoadGeometry
	var updated int64
	if err := s.Scan(&g.RoadID, &g.FromLocation, &g.ToLocation, &g.Polyline, &g.PointCount, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, err
		}
		return g, fmt.Errorf("error scanning geometry: %w", err)
	}
	g.UpdatedAt = time.Unix(updated, 0)
	return g, nil
}
