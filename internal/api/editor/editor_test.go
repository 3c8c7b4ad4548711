package editor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-sketch/internal/controller"
	"github.com/joeblew999/plat-sketch/internal/service"
	"github.com/joeblew999/plat-sketch/internal/templates"
)

func newSessions(t *testing.T) *service.SessionService {
	t.Helper()
	sessions := service.NewSessionService(service.Defaults{
		Center:      controller.DefaultCenter,
		Zoom:        controller.DefaultZoom,
		Width:       1024,
		Height:      768,
		MarkerIcon:  controller.DefaultMarkerIcon,
		MarkerScale: controller.DefaultMarkerScale,
	}, nil, zerolog.Nop())
	t.Cleanup(sessions.Close)
	return sessions
}

func register(t *testing.T, api huma.API, sessions *service.SessionService) {
	t.Helper()
	renderer, err := templates.New()
	require.NoError(t, err)
	maps := NewMapHandler(sessions, renderer, zerolog.Nop())
	maps.RegisterRoutes(api)
	NewEventHandler(maps).RegisterRoutes(api)
}

// editorServer serves the editor routes over a real listener; the SSE
// helpers need the humago adapter.
type editorServer struct {
	t   *testing.T
	srv *httptest.Server
}

type editorResponse struct {
	Code int
	Body string
}

func newEditorServer(t *testing.T) (*editorServer, *service.SessionService) {
	t.Helper()
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("test", "1.0.0"))
	sessions := newSessions(t)
	register(t, api, sessions)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &editorServer{t: t, srv: srv}, sessions
}

func (e *editorServer) do(method, path string, body any) editorResponse {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return editorResponse{Code: resp.StatusCode, Body: string(data)}
}

func (e *editorServer) Post(path string, body any) editorResponse {
	return e.do(http.MethodPost, path, body)
}

func (e *editorServer) Get(path string) editorResponse {
	return e.do(http.MethodGet, path, nil)
}

func (e *editorServer) Delete(path string) editorResponse {
	return e.do(http.MethodDelete, path, nil)
}

func mount(t *testing.T, sessions *service.SessionService) *service.Session {
	t.Helper()
	sess, err := sessions.Mount(context.Background(), service.MountOptions{})
	require.NoError(t, err)
	return sess
}

func TestMount(t *testing.T) {
	ed, sessions := newEditorServer(t)

	resp := ed.Post(BasePath, map[string]any{"width": 800, "height": 600})
	require.Equal(t, http.StatusOK, resp.Code)

	require.Equal(t, 1, sessions.Len())
	sess := sessions.List()[0]
	body := resp.Body
	assert.Contains(t, body, "datastar-patch-signals")
	assert.Contains(t, body, `"mapid":"`+sess.ID+`"`)
	assert.Contains(t, body, `id="mode-draw"`)

	st := sess.State()
	assert.Equal(t, 800, st.Width)
	assert.Equal(t, 600, st.Height)
}

func TestMode_HighlightsActiveButton(t *testing.T) {
	ed, sessions := newEditorServer(t)
	sess := mount(t, sessions)

	resp := ed.Post(BasePath+"/"+sess.ID+"/mode", map[string]any{"mode": "placeMarker"})
	require.Equal(t, http.StatusOK, resp.Code)

	body := resp.Body
	assert.Contains(t, body, `"mode":"placeMarker"`)
	assert.Contains(t, body, `id="mode-placeMarker" class="control__btn" style="background: #007bff"`)
	assert.Contains(t, body, `id="mode-draw" class="control__btn" style="background: black"`)
	assert.Equal(t, controller.ModePlaceMarker, sess.Mode())
	assert.Equal(t, []string{"translate"}, sess.Interactions())
}

func TestMode_Invalid(t *testing.T) {
	ed, sessions := newEditorServer(t)
	sess := mount(t, sessions)

	resp := ed.Post(BasePath+"/"+sess.ID+"/mode", map[string]any{"mode": "erase"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, controller.ModeDraw, sess.Mode())
}

func TestClick_PlacesMarker(t *testing.T) {
	ed, sessions := newEditorServer(t)
	sess := mount(t, sessions)
	require.NoError(t, sess.SetMode(controller.ModePlaceMarker))

	resp := ed.Post(BasePath+"/"+sess.ID+"/click", map[string]any{"px": 512, "py": 384})
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Contains(t, resp.Body, `"coordstext":"Coordinates: 37.77900, -122.42000"`)
	assert.Equal(t, 1, sess.State().Features)
}

func TestDraw_SquareShowsAreaAndLabels(t *testing.T) {
	ed, sessions := newEditorServer(t)
	sess := mount(t, sessions)
	path := BasePath + "/" + sess.ID

	for _, px := range [][2]float64{{400, 300}, {500, 300}, {500, 400}, {400, 400}} {
		resp := ed.Post(path+"/click", map[string]any{"px": px[0], "py": px[1]})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.NotContains(t, resp.Body, "Area:")
	}
	resp := ed.Post(path+"/dblclick", map[string]any{"px": 400, "py": 400})
	require.Equal(t, http.StatusOK, resp.Code)

	body := resp.Body
	assert.Contains(t, body, `"areatext":"Area: `)
	assert.Equal(t, 4, strings.Count(body, `class="edge-label"`))
	assert.Contains(t, body, " m</div>")
	assert.Equal(t, 4, sess.State().Overlays)
}

func TestFinish_WithoutSketchKeepsState(t *testing.T) {
	ed, sessions := newEditorServer(t)
	sess := mount(t, sessions)

	resp := ed.Post(BasePath+"/"+sess.ID+"/finish", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body, `"areatext":""`)
	assert.Equal(t, 0, sess.State().Features)
}

func TestView_UpdatesViewport(t *testing.T) {
	ed, sessions := newEditorServer(t)
	sess := mount(t, sessions)

	resp := ed.Post(BasePath+"/"+sess.ID+"/view", map[string]any{
		"lon": 2.35, "lat": 48.85, "zoom": 14, "width": 640, "height": 480,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	st := sess.State()
	assert.InDelta(t, 2.35, st.Center.Lon, 1e-6)
	assert.InDelta(t, 48.85, st.Center.Lat, 1e-6)
	assert.InDelta(t, 14.0, st.Zoom, 1e-9)
	assert.Equal(t, 640, st.Width)
	assert.Equal(t, 480, st.Height)
}

func TestUnknownMap_ReportsError(t *testing.T) {
	ed, _ := newEditorServer(t)

	resp := ed.Post(BasePath+"/nope/click", map[string]any{"px": 1, "py": 1})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body, `"error":"map not found: nope"`)
}

func TestUnmount(t *testing.T) {
	ed, sessions := newEditorServer(t)
	sess := mount(t, sessions)

	resp := ed.Delete(BasePath + "/" + sess.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body, `"success":"Map closed"`)
	assert.Equal(t, 0, sessions.Len())
	assert.True(t, sess.State().Destroyed)
}

func TestEvents_StreamsChangesForOneMap(t *testing.T) {
	ed, sessions := newEditorServer(t)
	srv := ed.srv

	sess := mount(t, sessions)
	other := mount(t, sessions)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+BasePath+"/"+sess.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, other.SetMode(controller.ModePlaceMarker))
	require.NoError(t, sess.SetMode(controller.ModePlaceMarker))

	var sawSignals, sawOther bool
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, other.ID) {
			sawOther = true
		}
		if strings.Contains(line, `"mode":"placeMarker"`) {
			sawSignals = true
		}
		if strings.Contains(line, "mode-changed") {
			break
		}
	}
	assert.True(t, sawSignals)
	assert.False(t, sawOther, "events of other maps are filtered")
}

func TestEvents_UnknownMap(t *testing.T) {
	ed, _ := newEditorServer(t)
	resp := ed.Get(BasePath + "/nope/events")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestNewControls(t *testing.T) {
	c := NewControls("m1", controller.ModeDraw)
	require.Len(t, c.Buttons, 2)
	assert.Equal(t, ModeButton{Mode: "draw", Label: "Draw Polygon", Background: ActiveButton, Active: true}, c.Buttons[0])
	assert.Equal(t, ModeButton{Mode: "placeMarker", Label: "Place Marker", Background: InactiveButton}, c.Buttons[1])
	assert.Equal(t, BasePath, c.Base)
}

func TestStateSignals(t *testing.T) {
	sessions := newSessions(t)
	sess := mount(t, sessions)

	s := StateSignals(sess)
	assert.Equal(t, sess.ID, s["mapid"])
	assert.Equal(t, "draw", s["mode"])
	assert.Equal(t, "", s["areatext"])
	assert.Equal(t, "", s["coordstext"])
	assert.Equal(t, "disabled", s["stylestatus"])
	assert.Equal(t, []float64{}, s["coords"])
}
