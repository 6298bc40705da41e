package restapi

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"chainscope.io/dashboard/internal/appconf"
	"chainscope.io/dashboard/internal/webui"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

func validateAPIKey(api *RestAPI, finalHandler handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		finalHandler(w, r)
	})
}

func (api *RestAPI) SetRoutes(router *httprouter.Router) {
	router.NotFound = http.HandlerFunc(api.sendNotFound)
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		api.serverErrorResponse(w, r, fmt.Errorf("panic: %v", v))
	}

	router.HandlerFunc(http.MethodGet, "/api/health", api.healthHandler)
	if api.Metrics != nil {
		router.Handler(http.MethodGet, "/metrics", api.Metrics.Handler())
	}

	router.Handler(http.MethodGet, "/api/dashboard/:session", validateAPIKey(api, api.dashboardViewHandler))
	router.Handler(http.MethodDelete, "/api/dashboard/:session", validateAPIKey(api, api.deleteSessionHandler))
	router.Handler(http.MethodPost, "/api/dashboard/:session/files/:fileId", validateAPIKey(api, api.selectFileHandler))
	router.Handler(http.MethodPost, "/api/dashboard/:session/anomalies/more", validateAPIKey(api, api.loadMoreAnomaliesHandler))
	router.Handler(http.MethodPost, "/api/dashboard/:session/trips/more", validateAPIKey(api, api.loadMoreTripsHandler))
	router.Handler(http.MethodGet, "/api/dashboard/:session/aggregates", validateAPIKey(api, api.aggregatesHandler))
	router.Handler(http.MethodGet, "/api/geometry/:roadId", validateAPIKey(api, api.geometryHandler))

	if api.Config.Env != appconf.Production {
		debug := webui.New(api.Application)
		router.Handler(http.MethodGet, "/debug/", validateAPIKey(api, debug.DebugIndexHandler))
	}
}
