// Package editor contains Datastar SSE handlers for the map editor UI.
package editor

import (
	"github.com/joeblew999/plat-sketch/internal/controller"
	"github.com/joeblew999/plat-sketch/internal/geo"
	"github.com/joeblew999/plat-sketch/internal/humastar"
	"github.com/joeblew999/plat-sketch/internal/service"
)

// BasePath is the root of the editor endpoints.
const BasePath = "/api/v1/editor/maps"

// Button colours for the mode controls.
const (
	ActiveButton   = "#007bff"
	InactiveButton = "black"
)

// MoveTolerance is how far, in pixels, the pointer may move between down and
// up for the gesture to still count as a click.
const MoveTolerance = 1.0

// ModeButton is one entry of the "controls" fragment.
type ModeButton struct {
	Mode       string
	Label      string
	Background string
	Active     bool
}

// ControlsData renders the "controls" fragment.
type ControlsData struct {
	Base    string
	MapID   string
	Buttons []ModeButton
}

// OverlayLabel is one entry of the "overlays" fragment, positioned in
// viewport pixels with the overlay offset applied.
type OverlayLabel struct {
	ID   string
	Text string
	Left float64
	Top  float64
}

// MapPage renders the "map-page" shell.
type MapPage struct {
	Title    string
	Page     humastar.PageData
	Base     string
	MapID    string
	Controls ControlsData
	Overlays []OverlayLabel
	TilesURL string
	StyleURL string
	Layer    string
	Center   geo.LonLat
	Zoom     float64

	// UnmountURL is called when the page is hidden.
	UnmountURL    string
	MoveTolerance float64
}

// NewControls builds the mode buttons, highlighting the active mode.
func NewControls(mapID string, active controller.Mode) ControlsData {
	data := ControlsData{Base: BasePath, MapID: mapID}
	for _, m := range controller.Modes {
		b := ModeButton{Mode: string(m), Label: m.Label(), Background: InactiveButton}
		if m == active {
			b.Active = true
			b.Background = ActiveButton
		}
		data.Buttons = append(data.Buttons, b)
	}
	return data
}

// NewOverlayLabels positions a session's edge labels for the viewport.
func NewOverlayLabels(sess *service.Session) []OverlayLabel {
	bodies := service.NewOverlayBodies(sess)
	out := make([]OverlayLabel, 0, len(bodies))
	for _, o := range bodies {
		out = append(out, OverlayLabel{
			ID:   o.ID,
			Text: o.Text,
			Left: o.Pixel.X + float64(o.Offset[0]),
			Top:  o.Pixel.Y + float64(o.Offset[1]),
		})
	}
	return out
}

// NewMapPage builds the page shell data for a mounted map. The style is
// proxied through the REST API so the access key never reaches the browser.
func NewMapPage(sess *service.Session, page humastar.PageData) MapPage {
	st := sess.State()
	var styleURL string
	if st.StyleStatus != controller.StyleDisabled {
		styleURL = "/api/v1/maps/" + sess.ID + "/style"
	}
	return MapPage{
		Title:    "plat-sketch",
		Page:     page,
		Base:     BasePath,
		MapID:    sess.ID,
		Controls: NewControls(sess.ID, st.Mode),
		Overlays: NewOverlayLabels(sess),
		TilesURL: "/api/v1/maps/" + sess.ID + "/tiles/{z}/{x}/{y}",
		StyleURL: styleURL,
		Layer:    service.SketchLayer,
		Center:   st.Center,
		Zoom:     st.Zoom,

		UnmountURL:    BasePath + "/" + sess.ID,
		MoveTolerance: MoveTolerance,
	}
}

// StateSignals is the signal patch describing a session.
func StateSignals(sess *service.Session) map[string]any {
	st := sess.State()
	area := 0.0
	if st.Area != nil {
		area = *st.Area
	}
	coords := []float64{}
	if st.Marker != nil {
		coords = []float64{st.Marker.Lon, st.Marker.Lat}
	}
	return map[string]any{
		"mapid":       sess.ID,
		"mode":        string(st.Mode),
		"area":        area,
		"areatext":    st.AreaText(),
		"coords":      coords,
		"coordstext":  st.CoordsText(),
		"stylestatus": string(st.StyleStatus),
		"features":    st.Features,
		"overlays":    st.Overlays,
		"error":       "",
	}
}
