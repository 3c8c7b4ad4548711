package service

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-sketch/internal/controller"
	"github.com/joeblew999/plat-sketch/internal/geo"
	"github.com/joeblew999/plat-sketch/internal/mapview"
)

func newTestSessions(t *testing.T) *SessionService {
	t.Helper()
	svc := NewSessionService(Defaults{
		Center: controller.DefaultCenter,
		Zoom:   controller.DefaultZoom,
		Width:  800,
		Height: 600,
	}, nil, zerolog.Nop())
	t.Cleanup(svc.Close)
	return svc
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	a := bus.Subscribe()
	b := bus.Subscribe()
	assert.Equal(t, 2, bus.Len())

	bus.Publish(Event{Resource: "maps", Action: "mode", ID: "m1"})
	assert.Equal(t, "mode", (<-a).Action)
	assert.Equal(t, "m1", (<-b).ID)

	bus.Unsubscribe(a)
	bus.Unsubscribe(a)
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, bus.Len())
}

func TestEventBus_SlowSubscriberSkipped(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	for i := 0; i < 100; i++ {
		bus.Publish(Event{Action: "view"})
	}
	assert.Len(t, ch, cap(ch))
}

func TestSessionService_MountGetList(t *testing.T) {
	svc := newTestSessions(t)
	events := svc.Bus().Subscribe()

	a, err := svc.Mount(context.Background(), MountOptions{})
	require.NoError(t, err)
	zoom := 3.0
	b, err := svc.Mount(context.Background(), MountOptions{Zoom: &zoom, Width: 320})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	got, err := svc.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)

	s := b.State()
	assert.Equal(t, 3.0, s.Zoom)
	assert.Equal(t, 320, s.Width)
	assert.Equal(t, 600, s.Height)

	select {
	case ev := <-events:
		assert.Equal(t, Event{Resource: "maps", Action: "mounted", ID: a.ID}, ev)
	case <-time.After(time.Second):
		t.Fatal("no mounted event")
	}
}

func TestSessionService_IndependentSessions(t *testing.T) {
	svc := newTestSessions(t)
	a, err := svc.Mount(context.Background(), MountOptions{})
	require.NoError(t, err)
	b, err := svc.Mount(context.Background(), MountOptions{})
	require.NoError(t, err)

	require.NoError(t, a.SetMode(controller.ModePlaceMarker))
	require.NoError(t, a.Click(mapview.Pixel{10, 10}))

	assert.Equal(t, controller.ModeDraw, b.Mode())
	assert.Zero(t, b.State().Features)
}

func TestSessionService_Unmount(t *testing.T) {
	svc := newTestSessions(t)
	sess, err := svc.Mount(context.Background(), MountOptions{})
	require.NoError(t, err)

	require.NoError(t, svc.Unmount(sess.ID))
	assert.True(t, sess.State().Destroyed)
	_, err = svc.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Unmount(sess.ID), ErrNotFound)
}

func TestSessionService_Close(t *testing.T) {
	svc := newTestSessions(t)
	sess, err := svc.Mount(context.Background(), MountOptions{})
	require.NoError(t, err)

	svc.Close()
	assert.Zero(t, svc.Len())
	assert.True(t, sess.State().Destroyed)
	_, err = svc.Mount(context.Background(), MountOptions{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewMapState(t *testing.T) {
	svc := newTestSessions(t)
	sess, err := svc.Mount(context.Background(), MountOptions{})
	require.NoError(t, err)

	for _, px := range []mapview.Pixel{{100, 100}, {200, 100}, {200, 200}, {100, 200}, {100, 100}} {
		require.NoError(t, sess.Click(px))
	}

	st := NewMapState(sess)
	assert.Equal(t, sess.ID, st.ID)
	assert.Equal(t, "draw", st.Mode)
	require.NotNil(t, st.Area)
	assert.NotEmpty(t, st.AreaText)
	assert.Empty(t, st.CoordsText)
	require.Len(t, st.Segments, 4)
	assert.Equal(t, geo.FormatLength(st.Segments[0].Length), st.Segments[0].Label)
	require.NotNil(t, st.Polygon)
	assert.Len(t, st.Polygon.Coordinates, 5)
	assert.Equal(t, []string{"draw"}, st.Interactions)
	assert.Equal(t, "disabled", st.Style.Status)

	overlays := NewOverlayBodies(sess)
	require.Len(t, overlays, 4)
	assert.InDelta(t, 150, overlays[0].Pixel.X, 1e-6)
	assert.Equal(t, [2]int{0, -15}, overlays[0].Offset)
}

func TestValidTile(t *testing.T) {
	assert.True(t, ValidTile(0, 0, 0))
	assert.True(t, ValidTile(2, 3, 3))
	assert.False(t, ValidTile(2, 4, 0))
	assert.False(t, ValidTile(-1, 0, 0))
	assert.False(t, ValidTile(MaxTileZoom+1, 0, 0))
}

func sketchCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	poly := orb.Polygon{{
		{-122.43, 37.77}, {-122.41, 37.77}, {-122.41, 37.79}, {-122.43, 37.79}, {-122.43, 37.77},
	}}
	pf := geojson.NewFeature(poly)
	pf.Properties["kind"] = "polygon"
	fc.Append(pf)
	mf := geojson.NewFeature(orb.Point{-122.42, 37.779})
	mf.Properties["kind"] = "marker"
	fc.Append(mf)
	return fc
}

func TestTileService_Render(t *testing.T) {
	svc := NewTileService()
	tile := maptile.At(orb.Point{-122.42, 37.779}, 12)

	data, err := svc.Render(sketchCollection(), int(tile.Z), int(tile.X), int(tile.Y))
	require.NoError(t, err)
	require.NotEmpty(t, data)

	layers, err := mvt.UnmarshalGzipped(data)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, SketchLayer, layers[0].Name)
	assert.Len(t, layers[0].Features, 2)
}

func TestTileService_EmptyTile(t *testing.T) {
	svc := NewTileService()
	tile := maptile.At(orb.Point{151.2, -33.8}, 12)

	data, err := svc.Render(sketchCollection(), int(tile.Z), int(tile.X), int(tile.Y))
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = svc.Render(sketchCollection(), 1, 5, 0)
	assert.Error(t, err)
}

func TestTileService_DoesNotMutateInput(t *testing.T) {
	svc := NewTileService()
	fc := sketchCollection()
	tile := maptile.At(orb.Point{-122.42, 37.779}, 14)

	_, err := svc.Render(fc, int(tile.Z), int(tile.X), int(tile.Y))
	require.NoError(t, err)
	assert.Equal(t, orb.Point{-122.42, 37.779}, fc.Features[1].Geometry)
}
