package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Segment is one edge of a measured ring.
type Segment struct {
	From     orb.Point
	To       orb.Point
	Midpoint orb.Point
	Length   float64
}

// Measurement is the planar measurement of a polygon's outer ring.
type Measurement struct {
	Segments []Segment
	Total    float64
	Area     float64
}

// MeasureRing measures each consecutive vertex pair of a ring, excluding the
// closing duplicate, and the planar area enclosed by it. Open rings are closed
// before measuring.
func MeasureRing(ring orb.Ring) Measurement {
	ring = CloseRing(ring)

	var m Measurement
	for i := 0; i+1 < len(ring); i++ {
		a, b := ring[i], ring[i+1]
		length := planar.Distance(a, b)
		m.Total += length
		m.Segments = append(m.Segments, Segment{
			From:     a,
			To:       b,
			Midpoint: Midpoint(a, b),
			Length:   length,
		})
	}
	if len(ring) > 0 {
		m.Area = planar.Area(orb.Polygon{ring})
	}
	return m
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b orb.Point) orb.Point {
	return orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
}

// CloseRing returns ring with the first vertex appended when it is not closed.
func CloseRing(ring orb.Ring) orb.Ring {
	if len(ring) == 0 || ring.Closed() {
		return ring
	}
	closed := make(orb.Ring, len(ring), len(ring)+1)
	copy(closed, ring)
	return append(closed, ring[0])
}

// FormatLength renders an edge length label.
func FormatLength(meters float64) string {
	return fmt.Sprintf("%.2f m", meters)
}

// FormatArea renders the polygon area display.
func FormatArea(sqMeters float64) string {
	return fmt.Sprintf("Area: %.2f square meters", sqMeters)
}

// FormatCoords renders the marker display, latitude first.
func FormatCoords(ll LonLat) string {
	return fmt.Sprintf("Coordinates: %.5f, %.5f", ll.Lat, ll.Lon)
}
