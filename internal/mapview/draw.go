package mapview

import (
	"github.com/paulmach/orb"
)

// SnapTolerance is the pixel distance to the first vertex that closes a sketch.
const SnapTolerance = 12

// Draw sketches polygons and adds finished ones to its source.
type Draw struct {
	source  *VectorSource
	m       *Map
	sketch  []orb.Point
	onEnd   []drawListener
	nextKey ListenerKey
}

type drawListener struct {
	key ListenerKey
	fn  func(DrawEvent)
}

// NewDraw creates a polygon draw interaction writing into source.
func NewDraw(source *VectorSource) *Draw {
	return &Draw{source: source}
}

func (d *Draw) Name() string { return "draw" }

// SetMap attaches d; detaching aborts any unfinished sketch.
func (d *Draw) SetMap(m *Map) {
	if m == nil {
		d.Abort()
	}
	d.m = m
}

// OnDrawEnd registers fn to run once per finished polygon.
func (d *Draw) OnDrawEnd(fn func(DrawEvent)) ListenerKey {
	d.nextKey++
	d.onEnd = append(d.onEnd, drawListener{key: d.nextKey, fn: fn})
	return d.nextKey
}

// UnDrawEnd removes a listener registered with OnDrawEnd.
func (d *Draw) UnDrawEnd(key ListenerKey) {
	for i, l := range d.onEnd {
		if l.key == key {
			d.onEnd = append(d.onEnd[:i], d.onEnd[i+1:]...)
			return
		}
	}
}

// SketchLen is the number of vertices in the unfinished sketch.
func (d *Draw) SketchLen() int { return len(d.sketch) }

func (d *Draw) HandleEvent(ev MapBrowserEvent) bool {
	if d.m == nil {
		return true
	}
	switch ev.Type {
	case EventClick:
		if len(d.sketch) >= 3 && d.nearFirst(ev.Pixel) {
			d.Finish()
			return true
		}
		d.appendVertex(ev.Coordinate)
	case EventDblClick:
		d.Finish()
		return false
	}
	return true
}

// Finish closes the sketch into a polygon. It reports false and keeps the
// sketch when fewer than three vertices exist.
func (d *Draw) Finish() bool {
	if len(d.sketch) < 3 {
		return false
	}
	ring := make(orb.Ring, 0, len(d.sketch)+1)
	ring = append(ring, d.sketch...)
	ring = append(ring, d.sketch[0])
	d.sketch = nil

	f := NewFeature(orb.Polygon{ring})
	d.source.AddFeature(f)

	ev := DrawEvent{Feature: f}
	for _, l := range append([]drawListener(nil), d.onEnd...) {
		l.fn(ev)
	}
	return true
}

// Abort discards the unfinished sketch.
func (d *Draw) Abort() { d.sketch = nil }

func (d *Draw) nearFirst(px Pixel) bool {
	first := d.m.View().PixelFromCoordinate(d.sketch[0])
	return first.Distance(px) <= SnapTolerance
}

// appendVertex skips a repeat of the last vertex, which the click pair before
// a double click produces.
func (d *Draw) appendVertex(c orb.Point) {
	if n := len(d.sketch); n > 0 && d.sketch[n-1].Equal(c) {
		return
	}
	d.sketch = append(d.sketch, c)
}
