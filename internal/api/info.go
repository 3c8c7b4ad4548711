package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-sketch/internal/controller"
	"github.com/joeblew999/plat-sketch/internal/service"
)

type InfoHandler struct {
	sessions *service.SessionService
}

func NewInfoHandler(sessions *service.SessionService) *InfoHandler {
	return &InfoHandler{sessions: sessions}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Maps     int      `json:"maps" doc:"Mounted maps"`
	Style    bool     `json:"style" doc:"Whether a base map style is configured"`
	Modes    []string `json:"modes" doc:"Interaction modes"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "plat-sketch",
		Version:  Version,
		Features: []string{"draw", "marker", "measure", "mvt", "datastar"},
	}
	for _, m := range controller.Modes {
		body.Modes = append(body.Modes, string(m))
	}
	if h.sessions != nil {
		body.Maps = h.sessions.Len()
		body.Style = h.sessions.Defaults().StyleURL != ""
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
