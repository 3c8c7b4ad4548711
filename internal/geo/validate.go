package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	sf "github.com/peterstace/simplefeatures/geom"
)

// ErrEmptyPolygon is returned when there is no ring to validate.
var ErrEmptyPolygon = errors.New("polygon has no rings")

// ValidatePolygon converts p into a simple features polygon and checks that
// it is valid (closed, non self-intersecting rings). The WKT is returned even
// when validation fails so callers can still display the geometry.
func ValidatePolygon(p orb.Polygon) (string, error) {
	if len(p) == 0 || len(p[0]) == 0 {
		return "", ErrEmptyPolygon
	}

	rings := make([]sf.LineString, 0, len(p))
	for _, r := range p {
		r = CloseRing(r)
		flat := make([]float64, 0, len(r)*2)
		for _, pt := range r {
			flat = append(flat, pt[0], pt[1])
		}
		ls, err := sf.NewLineString(sf.NewSequence(flat, sf.DimXY), sf.DisableAllValidations)
		if err != nil {
			return "", fmt.Errorf("building ring: %w", err)
		}
		rings = append(rings, ls)
	}

	// Unvalidated first so the WKT is available for invalid shapes.
	raw, err := sf.NewPolygon(rings, sf.DisableAllValidations)
	if err != nil {
		return "", fmt.Errorf("building polygon: %w", err)
	}
	wkt := raw.AsText()
	if _, err := sf.NewPolygon(rings); err != nil {
		return wkt, fmt.Errorf("invalid polygon: %w", err)
	}
	return wkt, nil
}
