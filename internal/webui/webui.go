package webui

import "chainscope.io/dashboard/internal/app"

// WebUI serves operator debug pages over the live application state.
type WebUI struct {
	*app.Application
}

func New(application *app.Application) *WebUI {
	return &WebUI{Application: application}
}
