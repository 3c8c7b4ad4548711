// Package sketchclient is a Go client for the plat-sketch REST API.
package sketchclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-sketch/internal/api"
	"github.com/joeblew999/plat-sketch/internal/humastar"
	"github.com/joeblew999/plat-sketch/internal/service"
)

// Client calls a plat-sketch server. Every method returns the raw response
// alongside the decoded body.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL, e.g. http://localhost:8087.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// APIError is a non-2xx answer, decoded from the server's problem document.
type APIError struct {
	Status int
	Model  huma.ErrorModel
}

func (e *APIError) Error() string {
	if e.Model.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Model.Title, e.Model.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
}

func (c *Client) Health(ctx context.Context) (*http.Response, api.HealthBody, error) {
	var out api.HealthBody
	resp, err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return resp, out, err
}

func (c *Client) ListMaps(ctx context.Context, offset, limit int) (*http.Response, humastar.PageBody[service.MapState], error) {
	var out humastar.PageBody[service.MapState]
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/maps?offset=%d&limit=%d", offset, limit), nil, &out)
	return resp, out, err
}

func (c *Client) MountMap(ctx context.Context, body service.MountBody) (*http.Response, service.MapState, error) {
	var out service.MapState
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/maps", body, &out)
	return resp, out, err
}

func (c *Client) GetMap(ctx context.Context, id string) (*http.Response, service.MapState, error) {
	var out service.MapState
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/maps/"+id, nil, &out)
	return resp, out, err
}

func (c *Client) DeleteMap(ctx context.Context, id string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, "/api/v1/maps/"+id, nil, nil)
}

func (c *Client) SetMode(ctx context.Context, id, mode string) (*http.Response, service.MapState, error) {
	var out service.MapState
	resp, err := c.do(ctx, http.MethodPut, "/api/v1/maps/"+id+"/mode", service.ModeBody{Mode: mode}, &out)
	return resp, out, err
}

func (c *Client) Click(ctx context.Context, id string, x, y float64) (*http.Response, service.MapState, error) {
	var out service.MapState
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/maps/"+id+"/click", service.PixelBody{X: x, Y: y}, &out)
	return resp, out, err
}

func (c *Client) DoubleClick(ctx context.Context, id string, x, y float64) (*http.Response, service.MapState, error) {
	var out service.MapState
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/maps/"+id+"/dblclick", service.PixelBody{X: x, Y: y}, &out)
	return resp, out, err
}

func (c *Client) Drag(ctx context.Context, id string, from, to service.PixelBody) (*http.Response, service.MapState, error) {
	var out service.MapState
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/maps/"+id+"/drag", service.DragBody{From: from, To: to}, &out)
	return resp, out, err
}

func (c *Client) Finish(ctx context.Context, id string) (*http.Response, api.FinishBody, error) {
	var out api.FinishBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/maps/"+id+"/finish", nil, &out)
	return resp, out, err
}

func (c *Client) SetView(ctx context.Context, id string, body service.ViewUpdateBody) (*http.Response, service.MapState, error) {
	var out service.MapState
	resp, err := c.do(ctx, http.MethodPut, "/api/v1/maps/"+id+"/view", body, &out)
	return resp, out, err
}

func (c *Client) Overlays(ctx context.Context, id string) (*http.Response, []service.OverlayBody, error) {
	var out []service.OverlayBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/maps/"+id+"/overlays", nil, &out)
	return resp, out, err
}

// Features returns the map's vector source in lon/lat.
func (c *Client) Features(ctx context.Context, id string) (*http.Response, *geojson.FeatureCollection, error) {
	var raw json.RawMessage
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/maps/"+id+"/features", nil, &raw)
	if err != nil {
		return resp, nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return resp, nil, fmt.Errorf("decoding features: %w", err)
	}
	return resp, fc, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.Model)
		return resp, apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp, nil
}
