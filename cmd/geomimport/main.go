// Command geomimport loads road LineStrings from a GeoJSON file into the geometry store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"chainscope.io/dashboard/internal/appconf"
	"chainscope.io/dashboard/internal/geomdb"
	"chainscope.io/dashboard/internal/geometry"
	"chainscope.io/dashboard/internal/logging"
	"chainscope.io/dashboard/internal/utils"
)

func main() {
	appconf.LoadDotEnv()

	var in, dsn, env string
	flag.StringVar(&in, "in", "", "GeoJSON FeatureCollection of road LineStrings")
	flag.StringVar(&dsn, "dsn", os.Getenv("GEOMETRY_DSN"), "Geometry store DSN (sqlite path or postgres URL)")
	flag.StringVar(&env, "env", "development", "Environment (development|test|production)")
	flag.Parse()

	logger := logging.NewStructuredLogger(os.Stdout, slog.LevelInfo)

	if in == "" || dsn == "" {
		fmt.Fprintln(os.Stderr, "usage: geomimport -in roads.geojson -dsn roads.db")
		os.Exit(2)
	}

	store, err := geomdb.NewClient(geomdb.NewConfig(dsn, appconf.EnvFlagToEnvironment(env), true))
	if err != nil {
		logging.LogError(logger, "failed to open geometry store", err)
		os.Exit(1)
	}
	defer logging.SafeCloseWithLogging(store, logger, "geometry_store")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	start := time.Now()
	result, err := importFile(ctx, in, store, logger)
	if err != nil {
		logging.LogError(logger, "import failed", err, slog.String("file", in))
		cancel()
		os.Exit(1)
	}

	logging.LogOperation(logger, "geometry_import_complete",
		slog.String("file", in),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
		slog.Duration("duration", time.Since(start)))
}

type importResult struct {
	Imported int
	Skipped  int
}

// importFile upserts every valid road of the file. Features without a road id or with an
// unusable line are skipped and logged.
func importFile(ctx context.Context, path string, store *geomdb.Client, logger *slog.Logger) (importResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return importResult{}, fmt.Errorf("reading %s: %w", path, err)
	}

	features, err := geometry.ParseFeatureCollection(data)
	if err != nil {
		return importResult{}, err
	}

	var result importResult
	rows := make([]geomdb.RoadGeometry, 0, len(features))
	for _, f := range features {
		if f.RoadID == "" {
			result.Skipped++
			logger.Warn("skipping feature without road id", slog.String("from", f.From), slog.String("to", f.To))
			continue
		}
		if err := utils.ValidateLineString(f.Line); err != nil {
			result.Skipped++
			logger.Warn("skipping invalid road geometry", slog.String("road_id", f.RoadID), slog.String("error", err.Error()))
			continue
		}
		from, to := utils.SanitizeInput(f.From), utils.SanitizeInput(f.To)
		rows = append(rows, geomdb.NewRoadGeometry(f.RoadID, from, to, f.Line))
	}

	if err := store.UpsertGeometries(ctx, rows); err != nil {
		return importResult{}, err
	}
	result.Imported = len(rows)
	return result, nil
}
