// Package geo holds the projection and planar measurement helpers used by the
// sketch map. Map geometry lives in EPSG:3857 (web mercator metres); marker
// coordinates shown to users are EPSG:4326 longitude/latitude.
package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when a "lon,lat" string cannot be parsed.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// LonLat is a geographic coordinate in degrees.
type LonLat struct {
	Lon float64 `json:"longitude"`
	Lat float64 `json:"latitude"`
}

var (
	toMercator = wgs84.EPSG().Transform(4326, 3857)
	toGeodetic = wgs84.EPSG().Transform(3857, 4326)
)

// FromLonLat projects a longitude/latitude into map coordinates.
func FromLonLat(ll LonLat) orb.Point {
	x, y, _ := toMercator(ll.Lon, ll.Lat, 0)
	return orb.Point{x, y}
}

// ToLonLat converts a map coordinate back to longitude/latitude.
func ToLonLat(p orb.Point) LonLat {
	lon, lat, _ := toGeodetic(p[0], p[1], 0)
	return LonLat{Lon: lon, Lat: lat}
}

// ParseLonLat parses a string in the format "lon,lat".
func ParseLonLat(s string) (LonLat, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return LonLat{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return LonLat{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return LonLat{}, ErrInvalidCoordinates
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return LonLat{}, ErrInvalidCoordinates
	}
	return LonLat{Lon: lon, Lat: lat}, nil
}
