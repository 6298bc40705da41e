package webui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var dumper = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}

type debugData struct {
	Title string
	Key   string
	Pre   string
}

type configDump struct {
	Env             string
	Port            int
	BackendURL      string
	BackendTimeout  string
	PageSize        int
	GeometrySource  string
	GeometryRefresh string
	NATS            bool
	SessionIdleTTL  string
	TimeZone        string
}

func writeDebugData(w http.ResponseWriter, r *http.Request, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{
		Title: title,
		Key:   r.URL.Query().Get("key"),
		Pre:   dumper.Sdump(data),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// DebugIndexHandler dumps the state selected by the dataType query parameter.
func (webUI *WebUI) DebugIndexHandler(w http.ResponseWriter, r *http.Request) {
	var data interface{}
	var title string

	switch r.URL.Query().Get("dataType") {
	case "sessions":
		title = "Dashboard Sessions"
		if webUI.Sessions != nil {
			data = webUI.Sessions.Sessions()
		}
	case "geometry":
		title = "Route Geometry Cache"
		if webUI.Geometry != nil {
			data = webUI.Geometry.Stats()
		}
	case "config":
		title = "Configuration"
		data = webUI.configDump()
	default:
		data = map[string]string{
			"error": "Please use one of the following: sessions, geometry, config.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, r, title, data)
}

// configDump leaves out API keys and the backend token.
func (webUI *WebUI) configDump() configDump {
	cfg := webUI.Config
	source := "sqlite (in-memory)"
	switch {
	case cfg.GeometryFile != "":
		source = "file " + cfg.GeometryFile
	case cfg.GeometryURL != "":
		source = "url " + cfg.GeometryURL
	case cfg.GeometryDSN != "":
		source = "database"
	}
	tz := ""
	if cfg.Location != nil {
		tz = cfg.Location.String()
	}
	return configDump{
		Env:             cfg.Env.String(),
		Port:            cfg.Port,
		BackendURL:      cfg.BackendURL,
		BackendTimeout:  cfg.BackendTimeout.String(),
		PageSize:        cfg.PageSize,
		GeometrySource:  source,
		GeometryRefresh: cfg.GeometryRefreshInterval.String(),
		NATS:            cfg.NATSURL != "",
		SessionIdleTTL:  cfg.SessionIdleTTL.String(),
		TimeZone:        tz,
	}
}
