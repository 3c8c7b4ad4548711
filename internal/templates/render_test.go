package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type button struct {
	Mode       string
	Label      string
	Background string
}

func TestNew_EmbeddedFragments(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	for _, name := range []string{"controls", "overlays", "status", "map-page"} {
		assert.NotNil(t, r.templates.Lookup(name), name)
	}
}

func TestRender_Controls(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.Render("controls", map[string]any{
		"Base":  "/api/v1/editor/maps",
		"MapID": "m1",
		"Buttons": []button{
			{Mode: "draw", Label: "Draw Polygon", Background: "#007bff"},
			{Mode: "placeMarker", Label: "Place Marker", Background: "black"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, html, `style="background: #007bff"`)
	assert.Contains(t, html, ">Draw Polygon</button>")
	assert.Contains(t, html, ">Place Marker</button>")
	assert.Contains(t, html, "data-on:click=")
}

func TestRender_OverlaysEscapesText(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html := r.MustRender("overlays", []map[string]any{
		{"ID": "a", "Text": "<b>12.00 m</b>", "Left": 10.0, "Top": -5.0},
	})
	assert.Contains(t, html, "left: 10.0px; top: -5.0px")
	assert.Contains(t, html, "&lt;b&gt;12.00 m&lt;/b&gt;")
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	_, err = r.Render("nope", nil)
	assert.Error(t, err)
	assert.Panics(t, func() { r.MustRender("nope", nil) })
}

func TestNewFromDir_OverridesEmbedded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "status.html"),
		[]byte(`{{define "status"}}<p>custom</p>{{end}}`), 0o644))

	r, err := NewFromDir(dir)
	require.NoError(t, err)

	html, err := r.Render("status", nil)
	require.NoError(t, err)
	assert.Equal(t, "<p>custom</p>", strings.TrimSpace(html))
	assert.NotNil(t, r.templates.Lookup("controls"), "embedded fragments stay available")
}

func TestNewFromDir_Missing(t *testing.T) {
	_, err := NewFromDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReload_EmptyDir(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	require.NoError(t, r.Reload(t.TempDir()))
	assert.NotNil(t, r.templates.Lookup("map-page"))
}
