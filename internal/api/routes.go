// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-sketch/internal/controller"
	"github.com/joeblew999/plat-sketch/internal/humastar"
	"github.com/joeblew999/plat-sketch/internal/service"
	"github.com/joeblew999/plat-sketch/internal/style"
)

// Version is the API version reported by /health and the OpenAPI document.
const Version = "0.1.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Sessions *service.SessionService
	Tiles    *service.TileService
}

// RegisterRoutes registers every REST route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Map ID" example:"0b7d6c8e-2f5a-4a8e-9d3c-1f2e3d4c5b6a"`
}

type ListInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Page size"`
}

type TileInput struct {
	IDInput
	Z int `path:"z" minimum:"0" maximum:"22" doc:"Zoom"`
	X int `path:"x" minimum:"0" doc:"Column"`
	Y int `path:"y" minimum:"0" doc:"Row"`
}

type MapOutput struct {
	Body service.MapState
}

type MapsOutput struct {
	Body humastar.PageBody[service.MapState]
}

type RawOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type TileOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	Body            []byte
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type FinishBody struct {
	Finished bool             `json:"finished" doc:"Whether a polygon was completed"`
	Map      service.MapState `json:"map" doc:"Map state after finishing"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
	Maps    int    `json:"maps" doc:"Mounted maps" example:"1"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterMaps registers map lifecycle and interaction routes.
func (h *APIHandler) RegisterMaps(api huma.API) {
	huma.Get(api, "/api/v1/maps", h.ListMaps, huma.OperationTags("maps"))
	huma.Post(api, "/api/v1/maps", h.MountMap, huma.OperationTags("maps"), func(o *huma.Operation) {
		o.DefaultStatus = 201
	})
	huma.Get(api, "/api/v1/maps/{id}", h.GetMap, huma.OperationTags("maps"))
	huma.Delete(api, "/api/v1/maps/{id}", h.DeleteMap, huma.OperationTags("maps"))

	huma.Put(api, "/api/v1/maps/{id}/mode", h.PutMode, huma.OperationTags("maps"))
	huma.Post(api, "/api/v1/maps/{id}/click", h.Click, huma.OperationTags("maps"))
	huma.Post(api, "/api/v1/maps/{id}/dblclick", h.DoubleClick, huma.OperationTags("maps"))
	huma.Post(api, "/api/v1/maps/{id}/drag", h.Drag, huma.OperationTags("maps"))
	huma.Post(api, "/api/v1/maps/{id}/finish", h.Finish, huma.OperationTags("maps"))
	huma.Put(api, "/api/v1/maps/{id}/view", h.PutView, huma.OperationTags("maps"))
}

// RegisterLayers registers the read-only map content routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/maps/{id}/features", h.GetFeatures, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/maps/{id}/overlays", h.GetOverlays, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/maps/{id}/style", h.GetStyle, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/maps/{id}/tiles/{z}/{x}/{y}", h.GetTile, huma.OperationTags("layers"), func(o *huma.Operation) {
		o.Summary = "Get vector tile"
		o.Description = "Drawn polygons and markers as a gzipped Mapbox Vector Tile. 204 when the tile is empty."
	})
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	body := HealthBody{Status: "ok", Version: Version}
	if h.svc != nil && h.svc.Sessions != nil {
		body.Maps = h.svc.Sessions.Len()
	}
	return &struct{ Body HealthBody }{Body: body}, nil
}

func (h *APIHandler) ListMaps(ctx context.Context, input *ListInput) (*MapsOutput, error) {
	page := humastar.PageBody[service.MapState]{
		Offset: input.Offset,
		Limit:  input.Limit,
		Data:   []service.MapState{},
	}
	if h.svc == nil || h.svc.Sessions == nil {
		return &MapsOutput{Body: page}, nil
	}
	sessions := h.svc.Sessions.List()
	page.Total = len(sessions)
	if input.Offset < len(sessions) {
		end := min(input.Offset+input.Limit, len(sessions))
		for _, sess := range sessions[input.Offset:end] {
			page.Data = append(page.Data, service.NewMapState(sess))
		}
	}
	return &MapsOutput{Body: page}, nil
}

func (h *APIHandler) MountMap(ctx context.Context, input *struct {
	Body *service.MountBody `required:"false"`
}) (*MapOutput, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error503ServiceUnavailable("service not available")
	}
	var opts service.MountOptions
	if input.Body != nil {
		opts = input.Body.Options()
	}
	sess, err := h.svc.Sessions.Mount(ctx, opts)
	if err != nil {
		return nil, statusError(err)
	}
	return &MapOutput{Body: service.NewMapState(sess)}, nil
}

func (h *APIHandler) GetMap(ctx context.Context, input *IDInput) (*MapOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	return &MapOutput{Body: service.NewMapState(sess)}, nil
}

func (h *APIHandler) DeleteMap(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	if err := h.svc.Sessions.Unmount(input.ID); err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Map unmounted"}}, nil
}

func (h *APIHandler) PutMode(ctx context.Context, input *struct {
	IDInput
	Body service.ModeBody
}) (*MapOutput, error) {
	mode, err := controller.ParseMode(input.Body.Mode)
	if err != nil {
		return nil, statusError(err)
	}
	return h.apply(input.ID, func(sess *service.Session) error {
		return sess.SetMode(mode)
	})
}

func (h *APIHandler) Click(ctx context.Context, input *struct {
	IDInput
	Body service.PixelBody
}) (*MapOutput, error) {
	return h.apply(input.ID, func(sess *service.Session) error {
		return sess.Click(input.Body.Pixel())
	})
}

func (h *APIHandler) DoubleClick(ctx context.Context, input *struct {
	IDInput
	Body service.PixelBody
}) (*MapOutput, error) {
	return h.apply(input.ID, func(sess *service.Session) error {
		return sess.DoubleClick(input.Body.Pixel())
	})
}

func (h *APIHandler) Drag(ctx context.Context, input *struct {
	IDInput
	Body service.DragBody
}) (*MapOutput, error) {
	return h.apply(input.ID, func(sess *service.Session) error {
		return sess.Drag(input.Body.From.Pixel(), input.Body.To.Pixel())
	})
}

func (h *APIHandler) Finish(ctx context.Context, input *IDInput) (*struct{ Body FinishBody }, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	finished, err := sess.FinishDrawing()
	if err != nil {
		return nil, statusError(err)
	}
	return &struct{ Body FinishBody }{Body: FinishBody{
		Finished: finished, Map: service.NewMapState(sess),
	}}, nil
}

func (h *APIHandler) PutView(ctx context.Context, input *struct {
	IDInput
	Body service.ViewUpdateBody
}) (*MapOutput, error) {
	return h.apply(input.ID, func(sess *service.Session) error {
		return sess.SetView(input.Body.Update())
	})
}

func (h *APIHandler) GetFeatures(ctx context.Context, input *IDInput) (*RawOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	data, err := sess.FeatureCollection().MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding features", err)
	}
	return &RawOutput{ContentType: "application/geo+json", Body: data}, nil
}

func (h *APIHandler) GetOverlays(ctx context.Context, input *IDInput) (*struct{ Body []service.OverlayBody }, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	return &struct{ Body []service.OverlayBody }{Body: service.NewOverlayBodies(sess)}, nil
}

func (h *APIHandler) GetStyle(ctx context.Context, input *IDInput) (*RawOutput, error) {
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	doc, status, err := sess.StyleDocument()
	switch status {
	case style.StatusApplied:
		return &RawOutput{ContentType: "application/json", Body: doc.Raw}, nil
	case controller.StyleDisabled:
		return nil, huma.Error404NotFound("no base map style configured")
	case style.StatusPending:
		return nil, huma.Error503ServiceUnavailable("style is loading")
	default:
		msg := fmt.Sprintf("style %s", status)
		if err != nil {
			msg += ": " + err.Error()
		}
		return nil, huma.Error503ServiceUnavailable(msg)
	}
}

func (h *APIHandler) GetTile(ctx context.Context, input *TileInput) (*TileOutput, error) {
	if !service.ValidTile(input.Z, input.X, input.Y) {
		return nil, huma.Error400BadRequest(fmt.Sprintf("tile %d/%d/%d out of range", input.Z, input.X, input.Y))
	}
	sess, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	tiles := h.svc.Tiles
	if tiles == nil {
		tiles = service.NewTileService()
	}
	data, err := tiles.Render(sess.FeatureCollection(), input.Z, input.X, input.Y)
	if err != nil {
		return nil, huma.Error500InternalServerError("rendering tile", err)
	}
	if data == nil {
		return &TileOutput{Status: 204}, nil
	}
	return &TileOutput{
		Status:          200,
		ContentType:     "application/vnd.mapbox-vector-tile",
		ContentEncoding: "gzip",
		Body:            data,
	}, nil
}

// helpers

func (h *APIHandler) session(id string) (*service.Session, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	sess, err := h.svc.Sessions.Get(id)
	if err != nil {
		return nil, statusError(err)
	}
	return sess, nil
}

func (h *APIHandler) apply(id string, fn func(*service.Session) error) (*MapOutput, error) {
	sess, err := h.session(id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, statusError(err)
	}
	return &MapOutput{Body: service.NewMapState(sess)}, nil
}

// statusError maps domain errors to HTTP errors.
func statusError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, controller.ErrInvalidMode):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, controller.ErrDestroyed), errors.Is(err, controller.ErrNotMounted):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrClosed):
		return huma.Error503ServiceUnavailable(err.Error())
	}
	return huma.Error500InternalServerError("map operation failed", err)
}
