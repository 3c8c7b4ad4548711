package mapview

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Icon is an image drawn at a point feature.
type Icon struct {
	Src   string  `json:"src"`
	Scale float64 `json:"scale"`
}

// Style overrides the layer style for one feature.
type Style struct {
	Icon *Icon `json:"icon,omitempty"`
}

// Feature is a geometry in projected coordinates plus optional style.
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Style      *Style
	Properties map[string]any
}

// NewFeature wraps g in a feature with a fresh id.
func NewFeature(g orb.Geometry) *Feature {
	return &Feature{
		ID:         uuid.NewString(),
		Geometry:   g,
		Properties: map[string]any{},
	}
}

// VectorSource is an ordered collection of features. Features are not
// deduplicated.
type VectorSource struct {
	features []*Feature
}

func NewVectorSource() *VectorSource {
	return &VectorSource{}
}

func (s *VectorSource) AddFeature(f *Feature) {
	s.features = append(s.features, f)
}

// Features returns a snapshot of the current features in insertion order.
func (s *VectorSource) Features() []*Feature {
	out := make([]*Feature, len(s.features))
	copy(out, s.features)
	return out
}

// Feature looks a feature up by id.
func (s *VectorSource) Feature(id string) (*Feature, bool) {
	for _, f := range s.features {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

func (s *VectorSource) Len() int { return len(s.features) }

func (s *VectorSource) Clear() { s.features = nil }

// VectorLayer renders a source at a stacking position.
type VectorLayer struct {
	Source *VectorSource
	ZIndex int
}

// Overlay is a positioned text element anchored to a map coordinate.
type Overlay struct {
	ID          string
	Position    orb.Point
	Text        string
	Positioning string
	Offset      [2]int
}

// NewLabel creates a text overlay centered above position.
func NewLabel(position orb.Point, text string) *Overlay {
	return &Overlay{
		ID:          uuid.NewString(),
		Position:    position,
		Text:        text,
		Positioning: "center-center",
		Offset:      [2]int{0, -15},
	}
}
