package restapi

import (
	"log/slog"
	"net/http"

	"github.com/paulmach/orb"

	"chainscope.io/dashboard/internal/geomdb"
	"chainscope.io/dashboard/internal/logging"
	"chainscope.io/dashboard/internal/models"
	"chainscope.io/dashboard/internal/utils"
)

type geometryEntry struct {
	RoadID      string         `json:"roadId"`
	PointCount  int            `json:"pointCount"`
	Polyline    string         `json:"polyline"`
	Coordinates orb.LineString `json:"coordinates"`
}

func (api *RestAPI) geometryHandler(w http.ResponseWriter, r *http.Request) {
	roadID := utils.ExtractIDFromParams(r, "roadId")
	if fieldErrors := utils.ValidateIDs(map[string]string{"roadId": roadID}); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	if api.Geometry == nil {
		api.sendNotFound(w, r)
		return
	}

	if err := api.Geometry.Load(r.Context()); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "road geometry unavailable", err,
			slog.String("road_id", roadID))
	}

	line, ok := api.Geometry.Get(roadID)
	if !ok {
		api.sendNotFound(w, r)
		return
	}

	api.sendResponse(w, r, models.NewEntryResponse(geometryEntry{
		RoadID:      roadID,
		PointCount:  len(line),
		Polyline:    geomdb.EncodeLineString(line),
		Coordinates: line,
	}))
}
