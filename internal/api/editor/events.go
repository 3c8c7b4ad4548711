package editor

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-sketch/internal/controller"
	"github.com/joeblew999/plat-sketch/internal/humastar"
	"github.com/joeblew999/plat-sketch/internal/service"
)

// EventHandler streams a map's change events to the Datastar UI via SSE, so
// the page follows changes made through the REST API or other tabs.
type EventHandler struct {
	*MapHandler
}

// NewEventHandler creates a new event handler sharing the map handler's
// renderer and sessions.
func NewEventHandler(maps *MapHandler) *EventHandler {
	return &EventHandler{MapHandler: maps}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, BasePath+"/{id}/events", h.Events,
		huma.OperationTags("editor"),
	)
}

func (h *EventHandler) Events(ctx context.Context, input *struct {
	ID string `path:"id" doc:"Map ID"`
}) (*huma.StreamResponse, error) {
	if _, err := h.sessions.Get(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			// subscribe before the SSE headers go out
			bus := h.sessions.Bus()
			ch := bus.Subscribe()
			defer bus.Unsubscribe(ch)
			sse := humastar.NewSSE(humaCtx)

			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					if ev.Resource != "maps" || ev.ID != input.ID {
						continue
					}
					if controller.ChangeKind(ev.Action) == controller.ChangeDestroyed {
						sse.Signals(map[string]any{"mapid": "", "areatext": "", "coordstext": ""})
						return
					}
					sess, err := h.sessions.Get(ev.ID)
					if err != nil {
						return
					}
					h.patchState(sse, sess)
					h.dispatch(sse, sess, controller.ChangeKind(ev.Action))
				}
			}
		},
	}, nil
}

// dispatch tells the page script about changes it renders itself.
func (h *EventHandler) dispatch(sse humastar.SSE, sess *service.Session, kind controller.ChangeKind) {
	switch kind {
	case controller.ChangeDrawEnd, controller.ChangeMarker, controller.ChangeTranslate:
		sse.DispatchCustomEvent("features-changed", map[string]any{"id": sess.ID, "action": string(kind)})
	case controller.ChangeMode:
		sse.DispatchCustomEvent("mode-changed", map[string]any{"id": sess.ID, "mode": string(sess.Mode())})
	}
	sse.DispatchCustomEvent("resource-changed", map[string]any{
		"resource": "maps",
		"action":   string(kind),
		"id":       sess.ID,
	})
}
