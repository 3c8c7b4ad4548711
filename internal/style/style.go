// Package style fetches and applies the remote vector-tile style document that
// themes the base map.
package style

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrInvalidStyle is returned when the style document is malformed.
	ErrInvalidStyle = errors.New("invalid style document")
	// ErrFetch is returned when the style service answers with a non-2xx status.
	ErrFetch = errors.New("style fetch failed")
)

// Document is a Mapbox GL style document. Only the fields the server inspects
// are decoded; Raw keeps the original bytes for proxying to the browser.
type Document struct {
	Version int                        `json:"version"`
	Name    string                     `json:"name,omitempty"`
	Sources map[string]json.RawMessage `json:"sources"`
	Layers  []Layer                    `json:"layers"`
	Sprite  string                     `json:"sprite,omitempty"`
	Glyphs  string                     `json:"glyphs,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Layer is the subset of a style layer needed for summaries.
type Layer struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
}

// Parse decodes and validates a style document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStyle, err)
	}
	if doc.Version != 8 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidStyle, doc.Version)
	}
	if doc.Sources == nil {
		return nil, fmt.Errorf("%w: missing sources", ErrInvalidStyle)
	}
	if doc.Layers == nil {
		return nil, fmt.Errorf("%w: missing layers", ErrInvalidStyle)
	}
	for i, l := range doc.Layers {
		if l.ID == "" || l.Type == "" {
			return nil, fmt.Errorf("%w: layer %d needs id and type", ErrInvalidStyle, i)
		}
	}
	doc.Raw = append(json.RawMessage(nil), data...)
	return &doc, nil
}

// BuildURL appends the access key to the style endpoint.
func BuildURL(base, key string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing style url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("style url must be http(s), got %q", u.Scheme)
	}
	if key != "" {
		q := u.Query()
		q.Set("key", key)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
