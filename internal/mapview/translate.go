package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// HitTolerance is the pixel radius for picking point features.
const HitTolerance = 8

// Translate drags features of a fixed collection. Features added to a source
// after the interaction was created are not draggable.
type Translate struct {
	features []*Feature
	m        *Map
	dragging *Feature
	last     orb.Point
}

// NewTranslate creates a translate interaction over features.
func NewTranslate(features []*Feature) *Translate {
	return &Translate{features: append([]*Feature(nil), features...)}
}

func (t *Translate) Name() string { return "translate" }

func (t *Translate) SetMap(m *Map) {
	if m == nil {
		t.dragging = nil
	}
	t.m = m
}

// Dragging returns the feature currently being moved, if any.
func (t *Translate) Dragging() *Feature { return t.dragging }

func (t *Translate) HandleEvent(ev MapBrowserEvent) bool {
	if t.m == nil {
		return true
	}
	switch ev.Type {
	case EventPointerDown:
		if f := t.featureAt(ev); f != nil {
			t.dragging = f
			t.last = ev.Coordinate
			return false
		}
	case EventPointerDrag:
		if t.dragging != nil {
			dx, dy := ev.Coordinate[0]-t.last[0], ev.Coordinate[1]-t.last[1]
			t.dragging.Geometry = translateGeometry(t.dragging.Geometry, dx, dy)
			t.last = ev.Coordinate
			return false
		}
	case EventPointerUp:
		if t.dragging != nil {
			t.dragging = nil
			return false
		}
	}
	return true
}

// featureAt returns the topmost feature under the event, most recent first.
func (t *Translate) featureAt(ev MapBrowserEvent) *Feature {
	view := t.m.View()
	for i := len(t.features) - 1; i >= 0; i-- {
		f := t.features[i]
		switch g := f.Geometry.(type) {
		case orb.Point:
			if view.PixelFromCoordinate(g).Distance(ev.Pixel) <= HitTolerance {
				return f
			}
		case orb.Polygon:
			if planar.PolygonContains(g, ev.Coordinate) {
				return f
			}
		case orb.MultiPolygon:
			if planar.MultiPolygonContains(g, ev.Coordinate) {
				return f
			}
		}
	}
	return nil
}

// translateGeometry shifts g by dx, dy. Slice backed geometries are moved in
// place; points are returned by value.
func translateGeometry(g orb.Geometry, dx, dy float64) orb.Geometry {
	shift := func(ps []orb.Point) {
		for i := range ps {
			ps[i][0] += dx
			ps[i][1] += dy
		}
	}
	switch g := g.(type) {
	case orb.Point:
		return orb.Point{g[0] + dx, g[1] + dy}
	case orb.MultiPoint:
		shift(g)
	case orb.LineString:
		shift(g)
	case orb.Ring:
		shift(g)
	case orb.Polygon:
		for _, r := range g {
			shift(r)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			for _, r := range p {
				shift(r)
			}
		}
	}
	return g
}
