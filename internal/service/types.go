package service

import (
	"time"

	"github.com/joeblew999/plat-sketch/internal/controller"
	"github.com/joeblew999/plat-sketch/internal/geo"
	"github.com/joeblew999/plat-sketch/internal/humastar"
	"github.com/joeblew999/plat-sketch/internal/mapview"
	"github.com/joeblew999/plat-sketch/internal/style"
)

// MapState is the public view of a mounted map.
// Single source of truth: Huma reads tags for OpenAPI + validation, and the
// editor page derives its initial Datastar signals from the same schema.
type MapState struct {
	ID           string        `json:"id" doc:"Map ID" card:"id" example:"0b7d6c8e-2f5a-4a8e-9d3c-1f2e3d4c5b6a"`
	Created      time.Time     `json:"created" doc:"Mount time"`
	Mode         string        `json:"mode" enum:"draw,placeMarker" doc:"Active interaction mode" example:"draw" default:"draw"`
	Area         *float64      `json:"area,omitempty" doc:"Planar area of the last drawn polygon in square meters, absent in placeMarker mode"`
	AreaText     string        `json:"areaText" doc:"Area display" example:"Area: 1234.56 square meters"`
	Marker       *geo.LonLat   `json:"marker,omitempty" doc:"Last placed marker"`
	CoordsText   string        `json:"coordsText" doc:"Marker display, only in placeMarker mode" example:"Coordinates: 37.77900, -122.42000"`
	Polygon      *PolygonBody  `json:"polygon,omitempty" doc:"Last drawn polygon"`
	Segments     []SegmentBody `json:"segments" doc:"Edges of the last drawn polygon"`
	Features     int           `json:"features" doc:"Number of features in the vector source"`
	Overlays     int           `json:"overlays" doc:"Number of edge labels on the map"`
	Interactions []string      `json:"interactions" doc:"Attached interactions"`
	View         ViewBody      `json:"view" doc:"Current view"`
	Style        StyleBody     `json:"style" doc:"Base map style task"`
}

var (
	mapActions = []humastar.ActionDef{
		{Rel: "delete", Pattern: "/api/v1/maps/%s", Method: "DELETE", Title: "Unmount map"},
		{Rel: "features", Pattern: "/api/v1/maps/%s/features", Method: "GET", Title: "Features as GeoJSON"},
	}
	drawActions = []humastar.ActionDef{
		{Rel: "click", Pattern: "/api/v1/maps/%s/click", Method: "POST", Title: "Add vertex", Schema: "/schemas/PixelBody.json"},
		{Rel: "finish", Pattern: "/api/v1/maps/%s/finish", Method: "POST", Title: "Finish polygon"},
		{Rel: "place-marker", Pattern: "/api/v1/maps/%s/mode", Method: "PUT", Title: controller.ModePlaceMarker.Label(), Schema: "/schemas/ModeBody.json"},
	}
	markerActions = []humastar.ActionDef{
		{Rel: "click", Pattern: "/api/v1/maps/%s/click", Method: "POST", Title: "Place marker", Schema: "/schemas/PixelBody.json"},
		{Rel: "drag", Pattern: "/api/v1/maps/%s/drag", Method: "POST", Title: "Move feature", Schema: "/schemas/DragBody.json"},
		{Rel: "draw", Pattern: "/api/v1/maps/%s/mode", Method: "PUT", Title: controller.ModeDraw.Label(), Schema: "/schemas/ModeBody.json"},
	}
	styleActions = []humastar.ActionDef{
		{Rel: "stylesheet", Pattern: "/api/v1/maps/%s/style", Method: "GET", Title: "Base map style"},
	}
)

// Actions lists what can be done with the map in its current mode.
func (m MapState) Actions() []humastar.Action {
	actions := humastar.ActionsFor(m.ID, mapActions)
	switch controller.Mode(m.Mode) {
	case controller.ModeDraw:
		actions = append(actions, humastar.ActionsFor(m.ID, drawActions)...)
	case controller.ModePlaceMarker:
		actions = append(actions, humastar.ActionsFor(m.ID, markerActions)...)
	}
	if m.Style.Status == string(style.StatusApplied) {
		actions = append(actions, humastar.ActionsFor(m.ID, styleActions)...)
	}
	return actions
}

// PolygonBody is a drawn polygon in lon/lat.
type PolygonBody struct {
	Coordinates [][]float64 `json:"coordinates" doc:"Closed outer ring as [lon, lat] pairs"`
	WKT         string      `json:"wkt" doc:"Projected polygon as WKT"`
	Valid       bool        `json:"valid" doc:"Whether the polygon is simple"`
}

// SegmentBody is one labelled polygon edge.
type SegmentBody struct {
	From     geo.LonLat `json:"from" doc:"Edge start"`
	To       geo.LonLat `json:"to" doc:"Edge end"`
	Midpoint geo.LonLat `json:"midpoint" doc:"Label anchor"`
	Length   float64    `json:"length" doc:"Planar length in meters"`
	Label    string     `json:"label" doc:"Label text" example:"152.87 m"`
}

// ViewBody is the map view.
type ViewBody struct {
	Center geo.LonLat `json:"center" doc:"View center"`
	Zoom   float64    `json:"zoom" minimum:"0" maximum:"28" doc:"Zoom level" example:"12"`
	Width  int        `json:"width" doc:"Viewport width in pixels" example:"1024"`
	Height int        `json:"height" doc:"Viewport height in pixels" example:"768"`
}

// StyleBody reports the style task.
type StyleBody struct {
	Status string `json:"status" enum:"disabled,pending,applied,failed,cancelled" doc:"Style task status" example:"applied"`
	Error  string `json:"error,omitempty" doc:"Failure cause"`
}

// OverlayBody is an edge-length label.
type OverlayBody struct {
	ID          string     `json:"id" doc:"Overlay ID"`
	Text        string     `json:"text" doc:"Label text" example:"152.87 m"`
	Position    geo.LonLat `json:"position" doc:"Anchor coordinate"`
	Pixel       PixelBody  `json:"pixel" doc:"Anchor in viewport pixels"`
	Positioning string     `json:"positioning" doc:"Anchor positioning" example:"center-center"`
	Offset      [2]int     `json:"offset" doc:"Pixel offset [x, y]"`
}

// PixelBody is a viewport position, origin top-left.
type PixelBody struct {
	X float64 `json:"x" doc:"Pixels from the left edge" example:"512"`
	Y float64 `json:"y" doc:"Pixels from the top edge" example:"384"`
}

// Pixel converts to a map pixel.
func (p PixelBody) Pixel() mapview.Pixel { return mapview.Pixel{p.X, p.Y} }

// MountBody overrides the mount defaults.
type MountBody struct {
	Center *geo.LonLat `json:"center,omitempty" doc:"Initial center"`
	Zoom   *float64    `json:"zoom,omitempty" minimum:"0" maximum:"28" doc:"Initial zoom"`
	Width  int         `json:"width,omitempty" minimum:"0" maximum:"16384" doc:"Viewport width in pixels"`
	Height int         `json:"height,omitempty" minimum:"0" maximum:"16384" doc:"Viewport height in pixels"`
}

// Options converts the body to mount options.
func (b MountBody) Options() MountOptions {
	return MountOptions{Center: b.Center, Zoom: b.Zoom, Width: b.Width, Height: b.Height}
}

// ModeBody selects an interaction mode.
type ModeBody struct {
	Mode string `json:"mode" required:"true" enum:"draw,placeMarker" doc:"Interaction mode" example:"placeMarker"`
}

// DragBody is a pointer drag gesture.
type DragBody struct {
	From PixelBody `json:"from" doc:"Pointer down position"`
	To   PixelBody `json:"to" doc:"Pointer up position"`
}

// ViewUpdateBody changes the view. Omitted fields are unchanged.
type ViewUpdateBody struct {
	Center *geo.LonLat `json:"center,omitempty" doc:"New center"`
	Zoom   *float64    `json:"zoom,omitempty" minimum:"0" maximum:"28" doc:"New zoom"`
	Width  int         `json:"width,omitempty" minimum:"0" maximum:"16384" doc:"Viewport width in pixels"`
	Height int         `json:"height,omitempty" minimum:"0" maximum:"16384" doc:"Viewport height in pixels"`
	PanX   float64     `json:"panX,omitempty" doc:"Drag the map content right by this many pixels"`
	PanY   float64     `json:"panY,omitempty" doc:"Drag the map content down by this many pixels"`
}

// Update converts the body to a controller view update.
func (b ViewUpdateBody) Update() controller.ViewUpdate {
	return controller.ViewUpdate{
		Center: b.Center, Zoom: b.Zoom,
		Width: b.Width, Height: b.Height,
		PanX: b.PanX, PanY: b.PanY,
	}
}

// NewMapState builds the public state of a session.
func NewMapState(sess *Session) MapState {
	s := sess.State()
	out := MapState{
		ID:           sess.ID,
		Created:      sess.Created,
		Mode:         string(s.Mode),
		Area:         s.Area,
		AreaText:     s.AreaText(),
		Marker:       s.Marker,
		CoordsText:   s.CoordsText(),
		Segments:     make([]SegmentBody, 0, len(s.Segments)),
		Features:     s.Features,
		Overlays:     s.Overlays,
		Interactions: s.Interactions,
		View: ViewBody{
			Center: s.Center,
			Zoom:   s.Zoom,
			Width:  s.Width,
			Height: s.Height,
		},
		Style: StyleBody{Status: string(s.StyleStatus), Error: s.StyleError},
	}
	if out.Interactions == nil {
		out.Interactions = []string{}
	}
	for _, seg := range s.Segments {
		out.Segments = append(out.Segments, SegmentBody{
			From:     geo.ToLonLat(seg.From),
			To:       geo.ToLonLat(seg.To),
			Midpoint: geo.ToLonLat(seg.Midpoint),
			Length:   seg.Length,
			Label:    geo.FormatLength(seg.Length),
		})
	}
	if len(s.Polygon) > 0 {
		p := &PolygonBody{WKT: s.PolygonWKT, Valid: s.PolygonValid}
		for _, pt := range s.Polygon[0] {
			ll := geo.ToLonLat(pt)
			p.Coordinates = append(p.Coordinates, []float64{ll.Lon, ll.Lat})
		}
		out.Polygon = p
	}
	return out
}

// NewOverlayBodies lists a session's edge labels.
func NewOverlayBodies(sess *Session) []OverlayBody {
	overlays := sess.Overlays()
	pixels := sess.OverlayPixels()
	out := make([]OverlayBody, 0, len(overlays))
	for i, o := range overlays {
		body := OverlayBody{
			ID:          o.ID,
			Text:        o.Text,
			Position:    geo.ToLonLat(o.Position),
			Positioning: o.Positioning,
			Offset:      o.Offset,
		}
		if i < len(pixels) {
			body.Pixel = PixelBody{X: pixels[i][0], Y: pixels[i][1]}
		}
		out = append(out, body)
	}
	return out
}
