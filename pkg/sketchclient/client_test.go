//go:build integration

// Integration test for the REST client.
// Requires a running server: task run
//
// Run: go test -tags=integration ./pkg/sketchclient/
package sketchclient_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/joeblew999/plat-sketch/internal/service"
	"github.com/joeblew999/plat-sketch/pkg/sketchclient"
)

func baseURL() string {
	if u := os.Getenv("SKETCH_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8087"
}

func client() *sketchclient.Client {
	return sketchclient.New(baseURL())
}

func mount(t *testing.T) service.MapState {
	t.Helper()
	_, st, err := client().MountMap(context.Background(), service.MountBody{Width: 1024, Height: 768})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client().DeleteMap(context.Background(), st.ID) })
	return st
}

func TestHealth(t *testing.T) {
	_, body, err := client().Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Fatalf("status=%q, want ok", body.Status)
	}
}

func TestListMaps(t *testing.T) {
	mount(t)
	_, page, err := client().ListMaps(context.Background(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total < 1 {
		t.Fatalf("total=%d, want >= 1", page.Total)
	}
}

func TestDrawSquare(t *testing.T) {
	ctx := context.Background()
	st := mount(t)

	for _, px := range [][2]float64{{400, 300}, {500, 300}, {500, 400}, {400, 400}} {
		if _, _, err := client().Click(ctx, st.ID, px[0], px[1]); err != nil {
			t.Fatal(err)
		}
	}
	_, done, err := client().Finish(ctx, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !done.Finished || done.Map.Area == nil {
		t.Fatalf("finished=%v area=%v, want a finished polygon", done.Finished, done.Map.Area)
	}
	if len(done.Map.Segments) != 4 {
		t.Fatalf("segments=%d, want 4", len(done.Map.Segments))
	}

	_, overlays, err := client().Overlays(ctx, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(overlays) != 4 {
		t.Fatalf("overlays=%d, want 4", len(overlays))
	}
}

func TestPlaceMarker(t *testing.T) {
	ctx := context.Background()
	st := mount(t)

	if _, _, err := client().SetMode(ctx, st.ID, "placeMarker"); err != nil {
		t.Fatal(err)
	}
	_, after, err := client().Click(ctx, st.ID, 512, 384)
	if err != nil {
		t.Fatal(err)
	}
	if after.Marker == nil || after.CoordsText == "" {
		t.Fatalf("marker=%v coords=%q, want a placed marker", after.Marker, after.CoordsText)
	}

	_, fc, err := client().Features(ctx, st.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("features=%d, want 1", len(fc.Features))
	}
}

func TestGetMap_NotFound(t *testing.T) {
	_, _, err := client().GetMap(context.Background(), "nope")
	var apiErr *sketchclient.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err=%v, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", apiErr.Status)
	}
}
