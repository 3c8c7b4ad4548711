package service

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

const (
	// SketchLayer is the MVT layer name holding drawn polygons and markers.
	SketchLayer = "sketch"
	// MaxTileZoom is the deepest zoom served.
	MaxTileZoom = 22
)

// TileService renders a map's features as Mapbox Vector Tiles. Tiles are
// rendered on every request.
type TileService struct {
	layer string
}

// NewTileService creates a tile renderer writing into SketchLayer.
func NewTileService() *TileService {
	return &TileService{layer: SketchLayer}
}

// ValidTile reports whether z/x/y addresses an existing tile.
func ValidTile(z, x, y int) bool {
	if z < 0 || z > MaxTileZoom || x < 0 || y < 0 {
		return false
	}
	n := 1 << uint(z)
	return x < n && y < n
}

// Render encodes the lon/lat features intersecting the tile as a gzipped MVT.
// It returns nil when no feature reaches the tile.
func (s *TileService) Render(fc *geojson.FeatureCollection, z, x, y int) ([]byte, error) {
	if !ValidTile(z, x, y) {
		return nil, fmt.Errorf("invalid tile %d/%d/%d", z, x, y)
	}
	tile := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
	tileBound := tile.Bound()

	clipped := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if f.Geometry == nil || !geometryIntersectsTile(f.Geometry, tileBound) {
			continue
		}
		// Clip and ProjectToTile mutate geometry in place
		clone := geojson.NewFeature(orb.Clone(f.Geometry))
		clone.ID = f.ID
		for k, v := range f.Properties {
			clone.Properties[k] = v
		}
		clipped.Append(clone)
	}
	if len(clipped.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(s.layer, clipped)
	if epsilon := simplifyEpsilon(tile.Z); epsilon > 0 {
		layer.Simplify(simplify.DouglasPeucker(epsilon))
	}
	layer.Clip(tileBound)
	layer.ProjectToTile(tile)
	layer.RemoveEmpty(0.5, 0.5)
	if len(layer.Features) == 0 {
		return nil, nil
	}

	data, err := mvt.MarshalGzipped(mvt.Layers{layer})
	if err != nil {
		return nil, fmt.Errorf("encoding tile %d/%d/%d: %w", z, x, y, err)
	}
	return data, nil
}

// geometryIntersectsTile rejects features whose bounds miss the tile, and
// polygons that only overlap the tile's bounding box.
func geometryIntersectsTile(geom orb.Geometry, tileBound orb.Bound) bool {
	if !geom.Bound().Intersects(tileBound) {
		return false
	}

	switch g := geom.(type) {
	case orb.Point:
		return tileBound.Contains(g)
	case orb.Polygon:
		for _, ring := range g {
			for _, p := range ring {
				if tileBound.Contains(p) {
					return true
				}
			}
		}
		corners := []orb.Point{
			tileBound.Min,
			{tileBound.Max[0], tileBound.Min[1]},
			tileBound.Max,
			{tileBound.Min[0], tileBound.Max[1]},
			tileBound.Center(),
		}
		for _, p := range corners {
			if planar.PolygonContains(g, p) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// simplifyEpsilon returns the Douglas-Peucker tolerance in degrees. Sketches
// are small, so only low zooms are simplified.
func simplifyEpsilon(zoom maptile.Zoom) float64 {
	switch {
	case zoom >= 10:
		return 0
	case zoom >= 6:
		return 0.0001
	default:
		return 0.001
	}
}
