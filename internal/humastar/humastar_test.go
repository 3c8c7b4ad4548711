package humastar

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type SketchState struct {
	ID       string   `json:"id" card:"id"`
	Mode     string   `json:"mode" enum:"draw,placeMarker" default:"draw"`
	AreaText string   `json:"areaText"`
	Zoom     float64  `json:"zoom"`
	Ready    bool     `json:"ready" signal:"isready"`
	Tags     []string `json:"tags"`
}

func (s SketchState) Actions() []Action {
	return ActionsFor(s.ID, []ActionDef{
		{Rel: "finish", Pattern: "/api/v1/sketches/%s/finish", Method: "POST", Title: "Finish polygon"},
	})
}

type idInput struct {
	ID string `path:"id"`
}

func newTestAPI(t *testing.T) (humatest.TestAPI, *Links) {
	t.Helper()
	links := NewLinks()
	cfg := huma.DefaultConfig("test", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, links.Transformer())
	_, api := humatest.New(t, cfg)

	huma.Get(api, "/health", func(ctx context.Context, _ *struct{}) (*struct{ Body map[string]string }, error) {
		return &struct{ Body map[string]string }{Body: map[string]string{"status": "ok"}}, nil
	}, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/sketches", func(ctx context.Context, _ *struct{}) (*struct{ Body PageBody[SketchState] }, error) {
		return &struct{ Body PageBody[SketchState] }{Body: PageBody[SketchState]{Total: 5, Offset: 2, Limit: 2}}, nil
	}, huma.OperationTags("sketches"))
	huma.Post(api, "/api/v1/sketches", func(ctx context.Context, _ *struct{}) (*struct{ Body SketchState }, error) {
		return &struct{ Body SketchState }{Body: SketchState{ID: "new"}}, nil
	}, huma.OperationTags("sketches"))
	huma.Get(api, "/api/v1/sketches/{id}", func(ctx context.Context, in *idInput) (*struct{ Body SketchState }, error) {
		return &struct{ Body SketchState }{Body: SketchState{ID: in.ID, Mode: "draw"}}, nil
	}, huma.OperationTags("sketches"))
	huma.Put(api, "/api/v1/sketches/{id}/mode", func(ctx context.Context, in *idInput) (*struct{}, error) {
		return nil, nil
	}, huma.OperationTags("sketches"))

	huma.Post(api, "/api/v1/editor/sketches", func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		return nil, nil
	}, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/sketches/{id}/click", func(ctx context.Context, in *idInput) (*struct{}, error) {
		return nil, nil
	}, huma.OperationTags("editor"))
	huma.Get(api, "/api/v1/editor/sketches/{id}/events", func(ctx context.Context, in *idInput) (*struct{}, error) {
		return nil, nil
	}, huma.OperationTags("editor"))
	huma.Delete(api, "/api/v1/editor/sketches/{id}", func(ctx context.Context, in *idInput) (*struct{}, error) {
		return nil, nil
	}, huma.OperationTags("editor"))

	links.Build(api)
	return api, links
}

func TestLinks_EntryPoint(t *testing.T) {
	api, links := newTestAPI(t)

	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	got := resp.Header().Values("Link")
	assert.Contains(t, got, `</api/v1/sketches>; rel="sketches"`)
	assert.Contains(t, got, `</openapi.json>; rel="service-desc"`)
	assert.Contains(t, got, `</docs>; rel="service-doc"`)
	assert.Equal(t, links.For(EntryPath), links.Root())

	for _, l := range links.Root() {
		assert.NotContains(t, l, "/editor/", "editor endpoints are not linked")
	}
}

func TestLinks_ItemAndActions(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/sketches/abc")
	require.Equal(t, http.StatusOK, resp.Code)

	got := resp.Header().Values("Link")
	assert.Contains(t, got, `</api/v1/sketches>; rel="collection"`)
	assert.Contains(t, got, `</api/v1/sketches/abc>; rel="self"`)
	assert.Contains(t, got, `</api/v1/sketches/abc/finish>; rel="finish"; method="POST"; title="Finish polygon"`)
}

func TestLinks_SubResourceLinksToItem(t *testing.T) {
	_, links := newTestAPI(t)

	got := links.For("/api/v1/sketches/{id}/mode")
	assert.Contains(t, got, `</api/v1/sketches/{id}>; rel="up"`)
	assert.Contains(t, got, `</api/v1/sketches/{id}/mode>; rel="edit"`)
}

func TestLinks_Pagination(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/sketches")
	require.Equal(t, http.StatusOK, resp.Code)

	got := resp.Header().Values("Link")
	assert.Contains(t, got, `</api/v1/sketches?offset=0&limit=2>; rel="first"`)
	assert.Contains(t, got, `</api/v1/sketches?offset=0&limit=2>; rel="prev"`)
	assert.Contains(t, got, `</api/v1/sketches?offset=4&limit=2>; rel="next"`)
	assert.Contains(t, got, `</api/v1/sketches?offset=4&limit=2>; rel="last"`)
	assert.Contains(t, got, `</api/v1/sketches/{id}>; rel="item"`)
}

func TestPageBody_PaginationLinks(t *testing.T) {
	p := PageBody[int]{Total: 3, Offset: 0, Limit: 10}
	assert.Equal(t, []string{
		`</x?offset=0&limit=10>; rel="first"`,
		`</x?offset=0&limit=10>; rel="last"`,
	}, p.PaginationLinks("/x"))

	empty := PageBody[int]{Total: 0, Offset: 0, Limit: 10}
	assert.Contains(t, empty.PaginationLinks("/x"), `</x?offset=0&limit=10>; rel="last"`)

	mid := PageBody[int]{Total: 25, Offset: 10, Limit: 10}
	assert.Equal(t, []string{
		`</x?offset=0&limit=10>; rel="first"`,
		`</x?offset=0&limit=10>; rel="prev"`,
		`</x?offset=20&limit=10>; rel="next"`,
		`</x?offset=20&limit=10>; rel="last"`,
	}, mid.PaginationLinks("/x"))

	assert.Nil(t, PageBody[int]{Total: 5}.PaginationLinks("/x"))
}

func TestAction_LinkHeader(t *testing.T) {
	a := Action{Rel: "draw", Href: "/api/v1/maps/1/mode", Method: "PUT", Title: "Draw Polygon", Schema: "/schemas/ModeBody.json"}
	assert.Equal(t, `</api/v1/maps/1/mode>; rel="draw"; method="PUT"; title="Draw Polygon"; schema="/schemas/ModeBody.json"`, a.LinkHeader())

	bare := Action{Rel: "self", Href: "/x"}
	assert.Equal(t, `</x>; rel="self"`, bare.LinkHeader())
}

func TestActionsFor(t *testing.T) {
	actions := ActionsFor("42", []ActionDef{
		{Rel: "delete", Pattern: "/api/v1/maps/%s", Method: "DELETE"},
		{Rel: "finish", Pattern: "/api/v1/maps/%s/finish", Method: "POST"},
	})
	require.Len(t, actions, 2)
	assert.Equal(t, "/api/v1/maps/42", actions[0].Href)
	assert.Equal(t, "/api/v1/maps/42/finish", actions[1].Href)
	assert.Equal(t, "POST", actions[1].Method)
}

func TestSignals(t *testing.T) {
	in := SignalsInput{RawBody: []byte(`{"mapid":"m1","px":12.5,"count":3,"ok":true}`)}
	s, err := in.MustParse()
	require.NoError(t, err)

	assert.Equal(t, "m1", s.String("mapid"))
	assert.InDelta(t, 12.5, s.Float("px"), 1e-9)
	assert.Equal(t, 3, s.Int("count"))
	assert.True(t, s.Bool("ok"))
	assert.True(t, s.Has("ok"))
	assert.False(t, s.Has("missing"))
	assert.Empty(t, s.String("px"))

	bad := SignalsInput{RawBody: []byte(`{`)}
	_, err = bad.MustParse()
	var se huma.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.GetStatus())
}

func TestBuildPageData(t *testing.T) {
	api, _ := newTestAPI(t)
	cfg := DatastarSchemaConfig{
		Type:     reflect.TypeOf(SketchState{}),
		BasePath: "/api/v1/editor/sketches",
	}
	InjectExtensions(api, []DatastarSchemaConfig{cfg})

	pd := BuildPageData(api, cfg, map[string]any{"mapid": "m1", "error": ""})

	var signals map[string]any
	require.NoError(t, json.Unmarshal([]byte(pd.Signals), &signals))
	assert.Equal(t, "draw", signals["mode"])
	assert.Equal(t, "", signals["areatext"])
	assert.EqualValues(t, 0, signals["zoom"])
	assert.Equal(t, false, signals["isready"])
	assert.Equal(t, "m1", signals["mapid"])
	assert.NotContains(t, signals, "id")
	assert.NotContains(t, signals, "tags")

	assert.Equal(t, "/api/v1/editor/sketches", pd.Routes.Create)
	assert.Equal(t, "/api/v1/editor/sketches/{id}", pd.Routes.Delete)
	assert.Equal(t, "/api/v1/editor/sketches/{id}/events", pd.Routes.Events)
	assert.Equal(t, "/api/v1/editor/sketches/{id}/click", pd.Routes.Actions["click"])
}

func TestInjectExtensions(t *testing.T) {
	api, _ := newTestAPI(t)
	InjectExtensions(api, []DatastarSchemaConfig{{
		Type:     reflect.TypeOf(SketchState{}),
		BasePath: "/api/v1/editor/sketches",
	}})

	schema := api.OpenAPI().Components.Schemas.Map()["SketchState"]
	require.NotNil(t, schema)
	assert.Equal(t, DatastarSchema{BasePath: "/api/v1/editor/sketches"}, schema.Extensions["x-datastar"])
	assert.Equal(t, "isready", schema.Properties["ready"].Extensions["x-signal"])
	assert.Equal(t, "id", schema.Properties["id"].Extensions["x-card"])
}
