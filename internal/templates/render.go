// Package templates handles HTML template rendering for Datastar SSE responses
// and the map page shell.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sync"
)

//go:embed fragments/*.html
var embedded embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	// px formats a pixel offset for inline styles
	"px": func(v float64) string {
		return fmt.Sprintf("%.1fpx", v)
	},
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New creates a renderer from the fragments compiled into the binary.
func New() (*Renderer, error) {
	tmpl, err := parseEmbedded()
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// NewFromDir creates a renderer from fragmentsDir, e.g. web/templates/fragments.
// Templates found there replace the embedded ones with the same name.
func NewFromDir(fragmentsDir string) (*Renderer, error) {
	r := &Renderer{}
	if err := r.Reload(fragmentsDir); err != nil {
		return nil, err
	}
	return r, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// MustRender renders a template and panics on error.
// Use only when you're certain the template exists.
func (r *Renderer) MustRender(name string, data any) string {
	s, err := r.Render(name, data)
	if err != nil {
		panic(err)
	}
	return s
}

// Reload re-parses the embedded fragments and overlays fragmentsDir on top
// (useful for dev hot-reload).
func (r *Renderer) Reload(fragmentsDir string) error {
	tmpl, err := parseEmbedded()
	if err != nil {
		return err
	}

	pattern := filepath.Join(fragmentsDir, "*.html")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		if _, err := os.Stat(fragmentsDir); err != nil {
			return fmt.Errorf("fragments dir: %w", err)
		}
	} else if tmpl, err = tmpl.ParseFiles(matches...); err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}

func parseEmbedded() (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(embedded, "fragments/*.html")
}
