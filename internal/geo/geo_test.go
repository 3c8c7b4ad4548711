package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromLonLat_MatchesWebMercator(t *testing.T) {
	for _, ll := range []LonLat{
		{Lon: -122.42, Lat: 37.779},
		{Lon: 0, Lat: 0},
		{Lon: 151.2093, Lat: -33.8688},
	} {
		got := FromLonLat(ll)
		want := project.WGS84.ToMercator(orb.Point{ll.Lon, ll.Lat})
		assert.InDelta(t, want[0], got[0], 1e-2, "x for %+v", ll)
		assert.InDelta(t, want[1], got[1], 1e-2, "y for %+v", ll)
	}
}

func TestToLonLat_RoundTrip(t *testing.T) {
	in := LonLat{Lon: -122.42, Lat: 37.779}
	out := ToLonLat(FromLonLat(in))
	assert.InDelta(t, in.Lon, out.Lon, 1e-7)
	assert.InDelta(t, in.Lat, out.Lat, 1e-7)
}

func TestParseLonLat(t *testing.T) {
	ll, err := ParseLonLat("-122.42, 37.779")
	require.NoError(t, err)
	assert.Equal(t, LonLat{Lon: -122.42, Lat: 37.779}, ll)

	for _, bad := range []string{"", "1", "a,b", "1,2,3", "200,0", "0,-91"} {
		_, err := ParseLonLat(bad)
		assert.ErrorIs(t, err, ErrInvalidCoordinates, "input %q", bad)
	}
}

func unitSquare() orb.Ring {
	return orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
}

func TestMeasureRing_UnitSquare(t *testing.T) {
	m := MeasureRing(unitSquare())

	require.Len(t, m.Segments, 4)
	for _, s := range m.Segments {
		assert.InDelta(t, 1.0, s.Length, 1e-12)
	}
	assert.InDelta(t, 4.0, m.Total, 1e-12)
	assert.InDelta(t, 1.0, m.Area, 1e-12)
	assert.Equal(t, orb.Point{0.5, 0}, m.Segments[0].Midpoint)
	assert.Equal(t, orb.Point{0, 0.5}, m.Segments[3].Midpoint)
}

func TestMeasureRing_TotalIsSumOfSegments(t *testing.T) {
	ring := orb.Ring{{3, 1}, {10, 4}, {7, 12}, {-2, 9}, {-5, 2}, {3, 1}}
	m := MeasureRing(ring)

	require.Len(t, m.Segments, len(ring)-1)
	var sum float64
	for i, s := range m.Segments {
		dx := ring[i+1][0] - ring[i][0]
		dy := ring[i+1][1] - ring[i][1]
		assert.InDelta(t, math.Hypot(dx, dy), s.Length, 1e-9)
		sum += s.Length
	}
	assert.InDelta(t, sum, m.Total, 1e-9)
	assert.Greater(t, m.Area, 0.0)
}

func TestMeasureRing_ClosesOpenRing(t *testing.T) {
	open := orb.Ring{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	m := MeasureRing(open)
	assert.Len(t, m.Segments, 4)
	assert.InDelta(t, 4.0, m.Area, 1e-12)
}

func TestMeasureRing_ClockwiseAreaIsPositive(t *testing.T) {
	cw := orb.Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	assert.InDelta(t, 1.0, MeasureRing(cw).Area, 1e-12)
}

func TestMeasureRing_Degenerate(t *testing.T) {
	collinear := orb.Ring{{0, 0}, {1, 1}, {2, 2}, {0, 0}}
	m := MeasureRing(collinear)
	assert.InDelta(t, 0.0, m.Area, 1e-12)
	assert.Len(t, m.Segments, 3)

	assert.Empty(t, MeasureRing(nil).Segments)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1.00 m", FormatLength(1))
	assert.Equal(t, "1234.57 m", FormatLength(1234.5678))
	assert.Equal(t, "Area: 1.00 square meters", FormatArea(1))
	assert.Equal(t, "Coordinates: 37.77900, -122.42000", FormatCoords(LonLat{Lon: -122.42, Lat: 37.779}))
}

func TestValidatePolygon(t *testing.T) {
	wkt, err := ValidatePolygon(orb.Polygon{unitSquare()})
	require.NoError(t, err)
	assert.Contains(t, wkt, "POLYGON")

	bowtie := orb.Polygon{{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}}
	wkt, err = ValidatePolygon(bowtie)
	assert.Error(t, err)
	assert.Equal(t, "POLYGON((0 0,1 1,1 0,0 1,0 0))", wkt, "WKT is kept for invalid polygons")

	// an open ring is closed before validation
	wkt, err = ValidatePolygon(orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}}})
	require.NoError(t, err)
	assert.Equal(t, "POLYGON((0 0,2 0,2 2,0 2,0 0))", wkt)

	_, err = ValidatePolygon(nil)
	assert.ErrorIs(t, err, ErrEmptyPolygon)
}
