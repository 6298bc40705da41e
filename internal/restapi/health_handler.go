package restapi

import (
	"net/http"

	"chainscope.io/dashboard/internal/geometry"
	"chainscope.io/dashboard/internal/models"
)

type healthEntry struct {
	Status   string          `json:"status"`
	Env      string          `json:"env"`
	Sessions int             `json:"sessions"`
	Geometry *geometry.Stats `json:"geometry,omitempty"`
}

func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	entry := healthEntry{
		Status: "ok",
		Env:    api.Config.Env.String(),
	}
	if api.Sessions != nil {
		entry.Sessions = api.Sessions.Len()
	}
	if api.Geometry != nil {
		stats := api.Geometry.Stats()
		entry.Geometry = &stats
	}
	api.sendResponse(w, r, models.NewEntryResponse(entry))
}
