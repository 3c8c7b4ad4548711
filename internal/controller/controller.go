// Package controller owns one map and switches its interaction between polygon
// drawing and marker placement.
//
// All map access goes through the controller's mutex, so events, mode
// switches and style application run one at a time per map.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-sketch/internal/geo"
	"github.com/joeblew999/plat-sketch/internal/mapview"
	"github.com/joeblew999/plat-sketch/internal/style"
)

const (
	DefaultTarget      = "map"
	DefaultZoom        = 12
	DefaultMarkerIcon  = "https://tiles.locationiq.com/static/images/marker.png"
	DefaultMarkerScale = 0.25

	// vectorLayerZIndex stacks drawn features above the base map.
	vectorLayerZIndex = 1
)

// DefaultCenter is San Francisco.
var DefaultCenter = geo.LonLat{Lon: -122.42, Lat: 37.779}

var (
	ErrNotMounted     = errors.New("map not mounted")
	ErrDestroyed      = errors.New("map destroyed")
	ErrAlreadyMounted = errors.New("map already mounted")
	// ErrInteraction reports a broken mode/interaction pairing.
	ErrInteraction = errors.New("interaction does not match mode")
)

// ChangeKind names what a controller operation changed.
type ChangeKind string

const (
	ChangeMounted   ChangeKind = "mounted"
	ChangeMode      ChangeKind = "mode"
	ChangeDrawEnd   ChangeKind = "drawend"
	ChangeMarker    ChangeKind = "marker"
	ChangeTranslate ChangeKind = "translate"
	ChangeView      ChangeKind = "view"
	ChangeStyle     ChangeKind = "style"
	ChangeDestroyed ChangeKind = "unmounted"
)

// StyleLoader starts asynchronous style tasks.
type StyleLoader interface {
	Start(ctx context.Context, url string, apply func(*style.Document) error) *style.Task
}

// Config holds mount parameters.
type Config struct {
	Target string
	Center geo.LonLat
	Zoom   float64
	Width  int
	Height int

	// StyleURL is the full style endpoint including the access key. No style
	// task is started when it is empty or Styles is nil.
	StyleURL string
	Styles   StyleLoader

	MarkerIcon  string
	MarkerScale float64

	Logger zerolog.Logger
	// OnChange is called after an operation, outside the controller lock.
	OnChange func(ChangeKind)
}

// Controller exclusively owns a map, its vector source and layer, the active
// interaction and the style task.
type Controller struct {
	cfg Config
	log zerolog.Logger

	mu        sync.Mutex
	pending   []ChangeKind
	mounted   bool
	destroyed bool

	m         *mapview.Map
	source    *mapview.VectorSource
	layer     *mapview.VectorLayer
	clickKey  mapview.ListenerKey
	mode      Mode
	draw      *mapview.Draw
	drawKey   mapview.ListenerKey
	translate *mapview.Translate
	task      *style.Task

	area         *float64
	polygon      orb.Polygon
	polygonWKT   string
	polygonValid bool
	segments     []geo.Segment
	marker       *geo.LonLat
}

// New creates an unmounted controller, filling unset config with defaults.
func New(cfg Config) *Controller {
	if cfg.Target == "" {
		cfg.Target = DefaultTarget
	}
	if cfg.MarkerIcon == "" {
		cfg.MarkerIcon = DefaultMarkerIcon
	}
	if cfg.MarkerScale == 0 {
		cfg.MarkerScale = DefaultMarkerScale
	}
	return &Controller{
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "controller").Logger(),
	}
}

// Mount creates the map, adds the vector layer, subscribes the click handler,
// attaches the draw interaction and starts the style task. The style task
// outlives ctx cancellation and stops on Destroy.
func (c *Controller) Mount(ctx context.Context) error {
	return c.update(func() error {
		if c.destroyed {
			return ErrDestroyed
		}
		if c.mounted {
			return ErrAlreadyMounted
		}

		view := mapview.NewView(geo.FromLonLat(c.cfg.Center), c.cfg.Zoom)
		view.SetSize(c.cfg.Width, c.cfg.Height)
		c.m = mapview.NewMap(c.cfg.Target, view)
		c.source = mapview.NewVectorSource()
		c.layer = &mapview.VectorLayer{Source: c.source, ZIndex: vectorLayerZIndex}
		c.m.AddLayer(c.layer)
		c.clickKey = c.m.On(mapview.EventClick, c.handleClick)

		c.attach(ModeDraw)
		if err := c.checkInteractions(); err != nil {
			return err
		}
		c.mounted = true

		if c.cfg.StyleURL != "" && c.cfg.Styles != nil {
			task := c.cfg.Styles.Start(context.WithoutCancel(ctx), c.cfg.StyleURL, c.applyStyle)
			c.task = task
			go func() {
				<-task.Done()
				c.notify(ChangeStyle)
			}()
		}

		c.log.Debug().Str("target", c.cfg.Target).Float64("zoom", c.cfg.Zoom).Msg("map mounted")
		c.pending = append(c.pending, ChangeMounted)
		return nil
	})
}

// Destroy cancels the style task, detaches the interaction and click handler
// and detaches the map from its target. Calling it again is a no-op.
func (c *Controller) Destroy() {
	_ = c.update(func() error {
		if !c.mounted || c.destroyed {
			return nil
		}
		if c.task != nil {
			c.task.Cancel()
		}
		c.detach()
		c.m.Un(c.clickKey)
		c.m.SetTarget("")
		c.destroyed = true
		c.log.Debug().Msg("map destroyed")
		c.pending = append(c.pending, ChangeDestroyed)
		return nil
	})
}

// SetMode switches the active interaction. Selecting the current mode is a
// no-op.
func (c *Controller) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	return c.update(func() error {
		if err := c.ready(); err != nil {
			return err
		}
		if mode == c.mode {
			return nil
		}
		c.detach()
		c.attach(mode)
		c.log.Debug().Str("mode", string(mode)).Msg("mode changed")
		c.pending = append(c.pending, ChangeMode)
		return c.checkInteractions()
	})
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Interactions names the interactions attached to the map.
func (c *Controller) Interactions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interactionNames()
}

// Click forwards a single click at a viewport pixel.
func (c *Controller) Click(px mapview.Pixel) error {
	return c.dispatch(mapview.MapBrowserEvent{Type: mapview.EventClick, Pixel: px})
}

// DoubleClick forwards a double click at a viewport pixel.
func (c *Controller) DoubleClick(px mapview.Pixel) error {
	return c.dispatch(mapview.MapBrowserEvent{Type: mapview.EventDblClick, Pixel: px})
}

// Drag forwards a pointer drag gesture from one pixel to another.
func (c *Controller) Drag(from, to mapview.Pixel) error {
	return c.update(func() error {
		if err := c.ready(); err != nil {
			return err
		}
		c.m.Dispatch(mapview.MapBrowserEvent{Type: mapview.EventPointerDown, Pixel: from})
		moved := c.translate != nil && c.translate.Dragging() != nil
		c.m.Dispatch(mapview.MapBrowserEvent{Type: mapview.EventPointerDrag, Pixel: to})
		c.m.Dispatch(mapview.MapBrowserEvent{Type: mapview.EventPointerUp, Pixel: to})
		if moved {
			c.pending = append(c.pending, ChangeTranslate)
		}
		return nil
	})
}

// FinishDrawing completes the current sketch. It reports false when there is
// no sketch with at least three vertices.
func (c *Controller) FinishDrawing() (bool, error) {
	var finished bool
	err := c.update(func() error {
		if err := c.ready(); err != nil {
			return err
		}
		if c.draw != nil {
			finished = c.draw.Finish()
		}
		return nil
	})
	return finished, err
}

// ViewUpdate changes the view. Nil fields and zero sizes are left unchanged;
// the pan is applied last.
type ViewUpdate struct {
	Center *geo.LonLat
	Zoom   *float64
	Width  int
	Height int
	PanX   float64
	PanY   float64
}

// SetView applies u to the map view.
func (c *Controller) SetView(u ViewUpdate) error {
	return c.update(func() error {
		if err := c.ready(); err != nil {
			return err
		}
		v := c.m.View()
		if u.Center != nil {
			v.SetCenter(geo.FromLonLat(*u.Center))
		}
		if u.Zoom != nil {
			v.SetZoom(*u.Zoom)
		}
		v.SetSize(u.Width, u.Height)
		if u.PanX != 0 || u.PanY != 0 {
			v.Pan(u.PanX, u.PanY)
		}
		c.pending = append(c.pending, ChangeView)
		return nil
	})
}

func (c *Controller) dispatch(ev mapview.MapBrowserEvent) error {
	return c.update(func() error {
		if err := c.ready(); err != nil {
			return err
		}
		c.m.Dispatch(ev)
		return nil
	})
}

// update runs fn under the lock and reports queued changes after unlocking.
func (c *Controller) update(fn func() error) error {
	c.mu.Lock()
	err := fn()
	changes := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, kind := range changes {
		c.notify(kind)
	}
	return err
}

func (c *Controller) notify(kind ChangeKind) {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(kind)
	}
}

func (c *Controller) ready() error {
	switch {
	case c.destroyed:
		return ErrDestroyed
	case !c.mounted:
		return ErrNotMounted
	}
	return nil
}

// attach adds the interaction for mode. Must hold mu.
func (c *Controller) attach(mode Mode) {
	switch mode {
	case ModeDraw:
		c.draw = mapview.NewDraw(c.source)
		c.drawKey = c.draw.OnDrawEnd(c.handleDrawEnd)
		c.m.AddInteraction(c.draw)
	case ModePlaceMarker:
		c.translate = mapview.NewTranslate(c.source.Features())
		c.m.AddInteraction(c.translate)
		c.area = nil
	}
	c.mode = mode
}

// detach removes whichever interaction is attached. Must hold mu.
func (c *Controller) detach() {
	if c.draw != nil {
		c.draw.UnDrawEnd(c.drawKey)
		c.m.RemoveInteraction(c.draw)
		c.draw = nil
	}
	if c.translate != nil {
		c.m.RemoveInteraction(c.translate)
		c.translate = nil
	}
}

func (c *Controller) checkInteractions() error {
	names := c.interactionNames()
	if len(names) != 1 || names[0] != c.mode.interaction() {
		return fmt.Errorf("%w: mode %s has %v", ErrInteraction, c.mode, names)
	}
	return nil
}

func (c *Controller) interactionNames() []string {
	if c.m == nil {
		return nil
	}
	var names []string
	for _, i := range c.m.Interactions() {
		names = append(names, i.Name())
	}
	return names
}

// handleClick places a marker. It runs inside Map.Dispatch under mu.
func (c *Controller) handleClick(ev mapview.MapBrowserEvent) {
	if c.mode != ModePlaceMarker {
		return
	}
	ll := geo.ToLonLat(ev.Coordinate)
	c.marker = &ll

	f := mapview.NewFeature(ev.Coordinate)
	f.Style = &mapview.Style{Icon: &mapview.Icon{Src: c.cfg.MarkerIcon, Scale: c.cfg.MarkerScale}}
	f.Properties["kind"] = "marker"
	c.source.AddFeature(f)

	c.log.Debug().Float64("lon", ll.Lon).Float64("lat", ll.Lat).Msg("marker placed")
	c.pending = append(c.pending, ChangeMarker)
}

// handleDrawEnd labels every edge of the finished polygon and records its
// area. It runs inside Map.Dispatch under mu.
func (c *Controller) handleDrawEnd(ev mapview.DrawEvent) {
	poly, ok := ev.Feature.Geometry.(orb.Polygon)
	if !ok || len(poly) == 0 {
		c.log.Warn().Str("feature", ev.Feature.ID).Msg("draw end without polygon")
		return
	}
	ev.Feature.Properties["kind"] = "polygon"

	m := geo.MeasureRing(poly[0])
	for _, seg := range m.Segments {
		c.m.AddOverlay(mapview.NewLabel(seg.Midpoint, geo.FormatLength(seg.Length)))
	}
	c.log.Info().Str("total_length", fmt.Sprintf("%.2f", m.Total)).Msg("polygon drawn")

	area := m.Area
	c.area = &area
	c.polygon = orb.Clone(poly).(orb.Polygon)
	c.segments = m.Segments

	wkt, err := geo.ValidatePolygon(c.polygon)
	c.polygonWKT = wkt
	c.polygonValid = err == nil
	if err != nil {
		c.log.Debug().Err(err).Msg("drawn polygon is not simple")
	}

	c.pending = append(c.pending, ChangeDrawEnd)
}

// applyStyle runs on the style task goroutine.
func (c *Controller) applyStyle(doc *style.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	return c.m.ApplyStyle(doc)
}
