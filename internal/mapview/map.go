package mapview

import (
	"errors"
	"sort"

	"github.com/joeblew999/plat-sketch/internal/style"
)

// ErrDetached is returned when operating on a map without a target.
var ErrDetached = errors.New("map has no target")

type listener struct {
	key ListenerKey
	typ EventType
	fn  func(MapBrowserEvent)
}

// Map binds a view, layers, overlays and interactions to a target container.
type Map struct {
	target       string
	view         *View
	layers       []*VectorLayer
	overlays     []*Overlay
	interactions []Interaction
	listeners    []listener
	nextKey      ListenerKey
	style        *style.Document
}

// NewMap creates a map rendering into target.
func NewMap(target string, view *View) *Map {
	return &Map{target: target, view: view}
}

func (m *Map) Target() string { return m.target }
func (m *Map) View() *View     { return m.view }

// Style returns the applied base style, nil until one is applied.
func (m *Map) Style() *style.Document { return m.style }

// SetTarget rebinds the map. An empty target detaches it and releases every
// layer, overlay, interaction and listener.
func (m *Map) SetTarget(target string) {
	m.target = target
	if target != "" {
		return
	}
	for _, i := range m.interactions {
		i.SetMap(nil)
	}
	m.interactions = nil
	m.layers = nil
	m.overlays = nil
	m.listeners = nil
	m.style = nil
}

// AddLayer inserts l keeping layers ordered by ZIndex.
func (m *Map) AddLayer(l *VectorLayer) {
	m.layers = append(m.layers, l)
	sort.SliceStable(m.layers, func(i, j int) bool {
		return m.layers[i].ZIndex < m.layers[j].ZIndex
	})
}

func (m *Map) Layers() []*VectorLayer {
	out := make([]*VectorLayer, len(m.layers))
	copy(out, m.layers)
	return out
}

func (m *Map) AddOverlay(o *Overlay) {
	m.overlays = append(m.overlays, o)
}

func (m *Map) Overlays() []*Overlay {
	out := make([]*Overlay, len(m.overlays))
	copy(out, m.overlays)
	return out
}

// AddInteraction attaches i on top of the interaction stack.
func (m *Map) AddInteraction(i Interaction) {
	m.interactions = append(m.interactions, i)
	i.SetMap(m)
}

// RemoveInteraction detaches i. It reports whether i was attached.
func (m *Map) RemoveInteraction(i Interaction) bool {
	for idx, cur := range m.interactions {
		if cur == i {
			m.interactions = append(m.interactions[:idx], m.interactions[idx+1:]...)
			i.SetMap(nil)
			return true
		}
	}
	return false
}

// Interactions returns the attached interactions, oldest first.
func (m *Map) Interactions() []Interaction {
	out := make([]Interaction, len(m.interactions))
	copy(out, m.interactions)
	return out
}

// On registers fn for events of type typ.
func (m *Map) On(typ EventType, fn func(MapBrowserEvent)) ListenerKey {
	m.nextKey++
	m.listeners = append(m.listeners, listener{key: m.nextKey, typ: typ, fn: fn})
	return m.nextKey
}

// Un removes a listener registered with On.
func (m *Map) Un(key ListenerKey) {
	for idx, l := range m.listeners {
		if l.key == key {
			m.listeners = append(m.listeners[:idx], m.listeners[idx+1:]...)
			return
		}
	}
}

// Dispatch delivers ev to interactions newest first, then to listeners
// unless an interaction stopped propagation.
func (m *Map) Dispatch(ev MapBrowserEvent) {
	if m.target == "" {
		return
	}
	ev.Coordinate = m.view.CoordinateFromPixel(ev.Pixel)

	for i := len(m.interactions) - 1; i >= 0; i-- {
		if !m.interactions[i].HandleEvent(ev) {
			return
		}
	}
	for _, l := range append([]listener(nil), m.listeners...) {
		if l.typ == ev.Type {
			l.fn(ev)
		}
	}
}

// ApplyStyle records doc as the base map style.
func (m *Map) ApplyStyle(doc *style.Document) error {
	if m.target == "" {
		return ErrDetached
	}
	m.style = doc
	return nil
}
