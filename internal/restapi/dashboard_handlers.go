package restapi

import (
	"context"
	"errors"
	"net/http"

	"chainscope.io/dashboard/internal/backend"
	"chainscope.io/dashboard/internal/dashboard"
	"chainscope.io/dashboard/internal/models"
	"chainscope.io/dashboard/internal/utils"
)

// sessionFromRequest validates the :session parameter and looks the session up. It writes the
// error response itself and returns nil when the request cannot proceed.
func (api *RestAPI) sessionFromRequest(w http.ResponseWriter, r *http.Request) *dashboard.Aggregator {
	id := utils.ExtractIDFromParams(r, "session")
	if fieldErrors := utils.ValidateIDs(map[string]string{"session": id}); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return nil
	}

	agg, err := api.Sessions.Get(id)
	if errors.Is(err, dashboard.ErrSessionNotFound) {
		api.sendNotFound(w, r)
		return nil
	}
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return nil
	}
	return agg
}

func (api *RestAPI) dashboardViewHandler(w http.ResponseWriter, r *http.Request) {
	agg := api.sessionFromRequest(w, r)
	if agg == nil {
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(agg.View()))
}

// selectFileHandler creates the session if needed and loads the file. The load outlives a
// disconnecting client so a later GET sees its result.
func (api *RestAPI) selectFileHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := utils.ExtractIDFromParams(r, "session")
	fileID := utils.ExtractIDFromParams(r, "fileId")
	if fieldErrors := utils.ValidateIDs(map[string]string{"session": sessionID, "fileId": fileID}); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	agg := api.Sessions.GetOrCreate(sessionID)
	view := agg.SelectFile(context.WithoutCancel(r.Context()), fileID)
	api.sendResponse(w, r, models.NewEntryResponse(view))
}

func (api *RestAPI) loadMoreAnomaliesHandler(w http.ResponseWriter, r *http.Request) {
	agg := api.sessionFromRequest(w, r)
	if agg == nil {
		return
	}
	view, err := agg.LoadMoreAnomalies(r.Context())
	if err != nil {
		api.loadMoreErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(view))
}

func (api *RestAPI) loadMoreTripsHandler(w http.ResponseWriter, r *http.Request) {
	agg := api.sessionFromRequest(w, r)
	if agg == nil {
		return
	}
	view, err := agg.LoadMoreTrips(r.Context())
	if err != nil {
		api.loadMoreErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(view))
}

// loadMoreErrorResponse maps a backend 404 (file gone) to 404 and anything else to 502.
func (api *RestAPI) loadMoreErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if backend.IsStatus(err, http.StatusNotFound) {
		api.sendNotFound(w, r)
		return
	}
	api.badGatewayResponse(w, r, err)
}

func (api *RestAPI) aggregatesHandler(w http.ResponseWriter, r *http.Request) {
	agg := api.sessionFromRequest(w, r)
	if agg == nil {
		return
	}
	api.sendResponse(w, r, models.NewEntryResponse(agg.Aggregates()))
}

func (api *RestAPI) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := utils.ExtractIDFromParams(r, "session")
	if fieldErrors := utils.ValidateIDs(map[string]string{"session": id}); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	if err := api.Sessions.Delete(id); err != nil {
		if errors.Is(err, dashboard.ErrSessionNotFound) {
			api.sendNotFound(w, r)
			return
		}
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(nil))
}
