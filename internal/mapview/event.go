package mapview

import "github.com/paulmach/orb"

// EventType names a map browser event.
type EventType string

const (
	EventClick       EventType = "click"
	EventDblClick    EventType = "dblclick"
	EventPointerDown EventType = "pointerdown"
	EventPointerDrag EventType = "pointerdrag"
	EventPointerUp   EventType = "pointerup"
)

// MapBrowserEvent is a pointer event in viewport and map coordinates.
// Coordinate is filled in by Map.Dispatch from the view.
type MapBrowserEvent struct {
	Type       EventType
	Pixel      Pixel
	Coordinate orb.Point
}

// DrawEvent is emitted when a sketch is finished.
type DrawEvent struct {
	Feature *Feature
}

// ListenerKey identifies a registration so it can be removed.
type ListenerKey uint64

// Interaction receives map browser events before map listeners.
type Interaction interface {
	// Name identifies the interaction kind, e.g. "draw".
	Name() string
	// HandleEvent returns false to stop propagation.
	HandleEvent(ev MapBrowserEvent) bool
	// SetMap is called with the owning map on attach and nil on detach.
	SetMap(m *Map)
}
