package editor

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-sketch/internal/controller"
	"github.com/joeblew999/plat-sketch/internal/geo"
	"github.com/joeblew999/plat-sketch/internal/humastar"
	"github.com/joeblew999/plat-sketch/internal/mapview"
	"github.com/joeblew999/plat-sketch/internal/service"
	"github.com/joeblew999/plat-sketch/internal/templates"
)

// MapHandler answers the map page's Datastar requests. Every response
// carries the full display state of the map.
type MapHandler struct {
	humastar.Handler
	sessions *service.SessionService
}

// NewMapHandler creates a new map handler.
func NewMapHandler(sessions *service.SessionService, renderer *templates.Renderer, log zerolog.Logger) *MapHandler {
	return &MapHandler{
		Handler: humastar.Handler{
			Renderer: renderer,
			Log:      log.With().Str("component", "editor").Logger(),
		},
		sessions: sessions,
	}
}

func (h *MapHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, BasePath, h.Mount, huma.OperationTags("editor"))
	huma.Delete(api, BasePath+"/{id}", h.Unmount, huma.OperationTags("editor"))
	huma.Post(api, BasePath+"/{id}/mode", h.Mode, huma.OperationTags("editor"))
	huma.Post(api, BasePath+"/{id}/click", h.Click, huma.OperationTags("editor"))
	huma.Post(api, BasePath+"/{id}/dblclick", h.DoubleClick, huma.OperationTags("editor"))
	huma.Post(api, BasePath+"/{id}/drag", h.Drag, huma.OperationTags("editor"))
	huma.Post(api, BasePath+"/{id}/finish", h.Finish, huma.OperationTags("editor"))
	huma.Post(api, BasePath+"/{id}/view", h.View, huma.OperationTags("editor"))
}

// MapSignalsInput addresses one map and carries the page signals.
type MapSignalsInput struct {
	ID string `path:"id" doc:"Map ID"`
	humastar.SignalsInput
}

func (h *MapHandler) Mount(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	opts := service.MountOptions{
		Width:  signals.Int("width"),
		Height: signals.Int("height"),
	}
	if signals.Has("lon") && signals.Has("lat") {
		opts.Center = &geo.LonLat{Lon: signals.Float("lon"), Lat: signals.Float("lat")}
	}
	if signals.Has("zoom") {
		z := signals.Float("zoom")
		opts.Zoom = &z
	}

	return h.Stream(func(sse humastar.SSE) {
		sess, err := h.sessions.Mount(context.WithoutCancel(ctx), opts)
		if err != nil {
			sse.Error(err.Error())
			return
		}
		h.patchState(sse, sess)
		sse.DispatchCustomEvent("features-changed", map[string]any{"id": sess.ID})
	}), nil
}

func (h *MapHandler) Unmount(ctx context.Context, input *struct {
	ID string `path:"id" doc:"Map ID"`
}) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		if err := h.sessions.Unmount(input.ID); err != nil {
			sse.Error(err.Error())
			return
		}
		sse.RemoveElement("#overlays > .edge-label")
		sse.Signals(map[string]any{"mapid": "", "areatext": "", "coordstext": ""})
		sse.Success("Map closed")
	}), nil
}

func (h *MapHandler) Mode(ctx context.Context, input *MapSignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	mode, err := controller.ParseMode(signals.String("mode"))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return h.apply(input.ID, func(sess *service.Session) error {
		return sess.SetMode(mode)
	}), nil
}

func (h *MapHandler) Click(ctx context.Context, input *MapSignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	px := mapview.Pixel{signals.Float("px"), signals.Float("py")}
	return h.apply(input.ID, func(sess *service.Session) error {
		return sess.Click(px)
	}), nil
}

func (h *MapHandler) DoubleClick(ctx context.Context, input *MapSignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	px := mapview.Pixel{signals.Float("px"), signals.Float("py")}
	return h.apply(input.ID, func(sess *service.Session) error {
		return sess.DoubleClick(px)
	}), nil
}

func (h *MapHandler) Drag(ctx context.Context, input *MapSignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	from := mapview.Pixel{signals.Float("fromx"), signals.Float("fromy")}
	to := mapview.Pixel{signals.Float("tox"), signals.Float("toy")}
	return h.apply(input.ID, func(sess *service.Session) error {
		return sess.Drag(from, to)
	}), nil
}

func (h *MapHandler) Finish(ctx context.Context, input *MapSignalsInput) (*huma.StreamResponse, error) {
	return h.apply(input.ID, func(sess *service.Session) error {
		_, err := sess.FinishDrawing()
		return err
	}), nil
}

func (h *MapHandler) View(ctx context.Context, input *MapSignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	u := controller.ViewUpdate{
		Width:  signals.Int("width"),
		Height: signals.Int("height"),
	}
	if signals.Has("lon") && signals.Has("lat") {
		u.Center = &geo.LonLat{Lon: signals.Float("lon"), Lat: signals.Float("lat")}
	}
	if signals.Has("zoom") {
		z := signals.Float("zoom")
		u.Zoom = &z
	}
	return h.apply(input.ID, func(sess *service.Session) error {
		return sess.SetView(u)
	}), nil
}

// apply runs fn against a session and streams the resulting state. Failures
// are reported through the error signal.
func (h *MapHandler) apply(id string, fn func(*service.Session) error) *huma.StreamResponse {
	return h.Stream(func(sse humastar.SSE) {
		sess, err := h.sessions.Get(id)
		if err != nil {
			sse.Error(err.Error())
			return
		}
		if err := fn(sess); err != nil {
			h.Log.Debug().Err(err).Str("map", id).Msg("map operation failed")
			sse.Error(err.Error())
			return
		}
		h.patchState(sse, sess)
	})
}

// patchState sends the signals and fragments describing sess.
func (h *MapHandler) patchState(sse humastar.SSE, sess *service.Session) {
	sse.Signals(StateSignals(sess))
	sse.Patch(h.Render("controls", NewControls(sess.ID, sess.Mode())), "#controls")
	labels := NewOverlayLabels(sess)
	if len(labels) == 0 {
		sse.RemoveElement("#overlays > .edge-label")
		return
	}
	sse.Patch(h.Render("overlays", labels), "#overlays")
}
