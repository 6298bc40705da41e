package geometry

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is a road LineString read from GeoJSON.
type Feature struct {
	RoadID string
	From   string
	To     string
	Line   orb.LineString
}

// ParseFeatureCollection reads LineString features with roadId / from / to properties.
// Features of other geometry types are skipped.
func ParseFeatureCollection(data []byte) ([]Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing geojson: %w", err)
	}

	features := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		line, ok := f.Geometry.(orb.LineString)
		if !ok {
			continue
		}

		roadID := propertyString(f.Properties, "roadId")
		if roadID == "" {
			roadID = idString(f.ID)
		}

		features = append(features, Feature{
			RoadID: roadID,
			From:   propertyString(f.Properties, "from"),
			To:     propertyString(f.Properties, "to"),
			Line:   line,
		})
	}
	return features, nil
}

// SnapshotFromFeatures indexes features, returning the snapshot and the number skipped.
func SnapshotFromFeatures(features []Feature) (*Snapshot, int) {
	snap := NewSnapshot()
	skipped := 0
	for _, f := range features {
		if !snap.Add(f.RoadID, f.From, f.To, f.Line) {
			skipped++
		}
	}
	return snap, skipped
}

func propertyString(props geojson.Properties, key string) string {
	if props == nil {
		return ""
	}
	return idString(props[key])
}

func idString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}
