// Package merger turns backend trip records into map-ready trips by attaching a road
// geometry and one interpolated timestamp per path point.
package merger

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"chainscope.io/dashboard/internal/logging"
	"chainscope.io/dashboard/internal/metrics"
	"chainscope.io/dashboard/internal/models"
)

// Lookup resolves road geometries. *geometry.Cache satisfies it.
type Lookup interface {
	Get(roadID string) (orb.LineString, bool)
	GetPair(from, to string) (orb.LineString, bool)
}

var tripNamespace = uuid.MustParse("6f1c9a52-3d0e-4b8e-9a57-2f0c2d7b4e11")

// TripID derives a stable identifier from the EPC code and both event times.
func TripID(t models.AnalyzedTrip) string {
	name := fmt.Sprintf("%s|%d|%d", t.EpcCode, t.From.EventTime, t.To.EventTime)
	return uuid.NewSHA1(tripNamespace, []byte(name)).String()
}

// AssignIDs returns a copy of trips with ID set on every element that lacks one.
func AssignIDs(trips []models.AnalyzedTrip) []models.AnalyzedTrip {
	out := make([]models.AnalyzedTrip, len(trips))
	for i, t := range trips {
		if t.ID == "" {
			t.ID = TripID(t)
		}
		out[i] = t
	}
	return out
}

// Interpolate spreads n timestamps evenly from start to end, both inclusive.
// n must be at least 2.
func Interpolate(start, end int64, n int) []float64 {
	ts := make([]float64, n)
	span := float64(end - start)
	for i := 0; i < n-1; i++ {
		ts[i] = float64(start) + span*float64(i)/float64(n-1)
	}
	ts[n-1] = float64(end)
	return ts
}

type Merger struct {
	geometries Lookup
	logger     *slog.Logger
	metrics    *metrics.Collector
}

func New(geometries Lookup, logger *slog.Logger, m *metrics.Collector) *Merger {
	return &Merger{
		geometries: geometries,
		logger:     logging.Component(logger, "trip_merger"),
		metrics:    m,
	}
}

// Merge converts trips in order. The input slice is not modified.
func (m *Merger) Merge(trips []models.AnalyzedTrip) []models.MergedTrip {
	merged := make([]models.MergedTrip, len(trips))
	misses := 0
	for i, t := range trips {
		merged[i] = m.MergeOne(t)
		if !merged[i].GeometryMatched {
			misses++
		}
	}
	if misses > 0 {
		m.logger.Debug("trips without geometry use straight lines",
			slog.Int("misses", misses), slog.Int("trips", len(trips)))
	}
	return merged
}

func (m *Merger) MergeOne(t models.AnalyzedTrip) models.MergedTrip {
	if t.ID == "" {
		t.ID = TripID(t)
	}

	line, ok := m.lookup(t)
	m.metrics.GeometryLookup(ok)
	if !ok {
		return models.MergedTrip{
			AnalyzedTrip: t,
			Path:         orb.LineString{t.From.Coord, t.To.Coord},
			Timestamps:   []float64{float64(t.From.EventTime), float64(t.To.EventTime)},
		}
	}

	return models.MergedTrip{
		AnalyzedTrip:    t,
		Path:            line.Clone(),
		Timestamps:      Interpolate(t.From.EventTime, t.To.EventTime, len(line)),
		GeometryMatched: true,
	}
}

// lookup prefers the road id and falls back to the scan location pair.
func (m *Merger) lookup(t models.AnalyzedTrip) (orb.LineString, bool) {
	if m.geometries == nil {
		return nil, false
	}
	if t.RoadID != "" {
		if line, ok := m.geometries.Get(string(t.RoadID)); ok && len(line) >= 2 {
			return line, true
		}
	}
	if line, ok := m.geometries.GetPair(t.From.ScanLocation, t.To.ScanLocation); ok && len(line) >= 2 {
		return line, true
	}
	return nil, false
}
