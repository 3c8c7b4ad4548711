// Package mapview holds the map host primitives: the view, vector features,
// overlays and the pointer interactions that edit them.
//
// A Map and everything attached to it is owned by a single caller that
// serializes access; none of the types here are safe for concurrent use.
package mapview

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	// maxResolution is the Web Mercator resolution at zoom 0 for 256px tiles.
	maxResolution = 156543.03392804097

	MinZoom = 0
	MaxZoom = 28

	DefaultWidth  = 1024
	DefaultHeight = 768
)

// Pixel is a viewport position, origin top-left, y down.
type Pixel [2]float64

// Distance returns the euclidean pixel distance to q.
func (p Pixel) Distance(q Pixel) float64 {
	return math.Hypot(p[0]-q[0], p[1]-q[1])
}

// View maps between viewport pixels and projected (EPSG:3857) coordinates.
type View struct {
	center orb.Point
	zoom   float64
	width  int
	height int
}

// NewView creates a view centered on a projected coordinate.
func NewView(center orb.Point, zoom float64) *View {
	v := &View{center: center, width: DefaultWidth, height: DefaultHeight}
	v.SetZoom(zoom)
	return v
}

func (v *View) Center() orb.Point { return v.center }
func (v *View) Zoom() float64     { return v.zoom }
func (v *View) Size() (int, int)  { return v.width, v.height }

func (v *View) SetCenter(c orb.Point) { v.center = c }

// SetZoom clamps z to the supported range.
func (v *View) SetZoom(z float64) {
	v.zoom = math.Max(MinZoom, math.Min(MaxZoom, z))
}

// SetSize sets the viewport size; non-positive dimensions are ignored.
func (v *View) SetSize(width, height int) {
	if width > 0 {
		v.width = width
	}
	if height > 0 {
		v.height = height
	}
}

// Resolution is the number of projected meters per pixel.
func (v *View) Resolution() float64 {
	return maxResolution / math.Pow(2, v.zoom)
}

// CoordinateFromPixel converts a viewport pixel to a projected coordinate.
func (v *View) CoordinateFromPixel(px Pixel) orb.Point {
	res := v.Resolution()
	return orb.Point{
		v.center[0] + (px[0]-float64(v.width)/2)*res,
		v.center[1] - (px[1]-float64(v.height)/2)*res,
	}
}

// PixelFromCoordinate converts a projected coordinate to a viewport pixel.
func (v *View) PixelFromCoordinate(c orb.Point) Pixel {
	res := v.Resolution()
	return Pixel{
		(c[0]-v.center[0])/res + float64(v.width)/2,
		(v.center[1]-c[1])/res + float64(v.height)/2,
	}
}

// Pan moves the view as if the map content were dragged by dx, dy pixels.
func (v *View) Pan(dx, dy float64) {
	res := v.Resolution()
	v.center = orb.Point{v.center[0] - dx*res, v.center[1] + dy*res}
}
