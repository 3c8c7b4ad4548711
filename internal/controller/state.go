package controller

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/joeblew999/plat-sketch/internal/geo"
	"github.com/joeblew999/plat-sketch/internal/mapview"
	"github.com/joeblew999/plat-sketch/internal/style"
)

// StyleDisabled is reported when no style task was started.
const StyleDisabled style.Status = "disabled"

// State is a point-in-time copy of everything the UI displays.
type State struct {
	Mounted   bool
	Destroyed bool
	Mode      Mode

	// Area is nil until a polygon is drawn and after switching to placeMarker.
	Area         *float64
	Polygon      orb.Polygon
	PolygonWKT   string
	PolygonValid bool
	Segments     []geo.Segment
	Marker       *geo.LonLat

	Features     int
	Overlays     int
	Interactions []string

	Center geo.LonLat
	Zoom   float64
	Width  int
	Height int

	StyleStatus style.Status
	StyleError  string
}

// AreaText is the area display, empty when there is no area.
func (s State) AreaText() string {
	if s.Area == nil {
		return ""
	}
	return geo.FormatArea(*s.Area)
}

// CoordsText is the marker display, shown only in placeMarker mode.
func (s State) CoordsText() string {
	if s.Marker == nil || s.Mode != ModePlaceMarker {
		return ""
	}
	return geo.FormatCoords(*s.Marker)
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Mounted:      c.mounted,
		Destroyed:    c.destroyed,
		Mode:         c.mode,
		PolygonWKT:   c.polygonWKT,
		PolygonValid: c.polygonValid,
		Segments:     append([]geo.Segment(nil), c.segments...),
		Interactions: c.interactionNames(),
		StyleStatus:  StyleDisabled,
	}
	if c.area != nil {
		a := *c.area
		s.Area = &a
	}
	if c.polygon != nil {
		s.Polygon = orb.Clone(c.polygon).(orb.Polygon)
	}
	if c.marker != nil {
		m := *c.marker
		s.Marker = &m
	}
	if c.source != nil {
		s.Features = c.source.Len()
	}
	if c.m != nil {
		s.Overlays = len(c.m.Overlays())
		v := c.m.View()
		s.Center = geo.ToLonLat(v.Center())
		s.Zoom = v.Zoom()
		s.Width, s.Height = v.Size()
	}
	if c.task != nil {
		s.StyleStatus = c.task.Status()
		if _, err := c.task.Result(); err != nil {
			s.StyleError = err.Error()
		}
	}
	return s
}

// Overlays returns copies of the edge labels in creation order.
func (c *Controller) Overlays() []mapview.Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		return nil
	}
	var out []mapview.Overlay
	for _, o := range c.m.Overlays() {
		out = append(out, *o)
	}
	return out
}

// OverlayPixels returns the viewport pixel of each overlay anchor, in the
// same order as Overlays.
func (c *Controller) OverlayPixels() []mapview.Pixel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		return nil
	}
	var out []mapview.Pixel
	for _, o := range c.m.Overlays() {
		out = append(out, c.m.View().PixelFromCoordinate(o.Position))
	}
	return out
}

// FeatureCollection returns the vector source as GeoJSON in lon/lat.
func (c *Controller) FeatureCollection() *geojson.FeatureCollection {
	c.mu.Lock()
	defer c.mu.Unlock()

	fc := geojson.NewFeatureCollection()
	if c.source == nil {
		return fc
	}
	for _, f := range c.source.Features() {
		g := project.Geometry(orb.Clone(f.Geometry), toLonLatPoint)
		gf := geojson.NewFeature(g)
		gf.ID = f.ID
		for k, v := range f.Properties {
			gf.Properties[k] = v
		}
		if f.Style != nil && f.Style.Icon != nil {
			gf.Properties["icon"] = f.Style.Icon.Src
			gf.Properties["iconScale"] = f.Style.Icon.Scale
		}
		fc.Append(gf)
	}
	return fc
}

// StyleDocument returns the style task result.
func (c *Controller) StyleDocument() (*style.Document, style.Status, error) {
	c.mu.Lock()
	task := c.task
	c.mu.Unlock()

	if task == nil {
		return nil, StyleDisabled, nil
	}
	doc, err := task.Result()
	return doc, task.Status(), err
}

// StyleTask exposes the running style task, nil when disabled.
func (c *Controller) StyleTask() *style.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task
}

func toLonLatPoint(p orb.Point) orb.Point {
	ll := geo.ToLonLat(p)
	return orb.Point{ll.Lon, ll.Lat}
}
