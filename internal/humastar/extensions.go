// extensions.go — Injects x-datastar extensions into OpenAPI schemas.
//
// At server startup, InjectExtensions walks registered schemas and adds:
//   - x-datastar (per-schema): signal prefix and base path
//   - x-signal, x-input, x-sse, x-card (per-property): from Go struct tags
//
// These extensions make the OpenAPI spec carry all Datastar metadata, so
// downstream consumers (the page data builder, API clients) read from the
// spec instead of re-walking struct tags.
package humastar

import (
	"reflect"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// DatastarSchema defines per-schema Datastar metadata.
// This is injected as the "x-datastar" extension on OpenAPI schemas.
type DatastarSchema struct {
	Prefix   string `json:"prefix"`   // Signal prefix, empty for top-level signals
	BasePath string `json:"basePath"` // Editor endpoint root
}

// DatastarSchemaConfig registers a Go type for Datastar extensions.
type DatastarSchemaConfig struct {
	Type     reflect.Type
	Prefix   string // Signal prefix
	BasePath string // API path prefix for route discovery (e.g. "/api/v1/editor/maps")
}

// InjectExtensions walks the OpenAPI schema registry and adds x-datastar,
// x-signal, x-input, and x-sse extensions from Go struct tags.
// Call after all routes are registered so schemas exist.
func InjectExtensions(api huma.API, configs []DatastarSchemaConfig) {
	schemas := api.OpenAPI().Components.Schemas.Map()

	for _, cfg := range configs {
		name := cfg.Type.Name()
		schema, ok := schemas[name]
		if !ok {
			continue
		}

		// Per-schema extension
		if schema.Extensions == nil {
			schema.Extensions = map[string]any{}
		}
		schema.Extensions["x-datastar"] = DatastarSchema{
			Prefix:   cfg.Prefix,
			BasePath: cfg.BasePath,
		}

		// Per-property extensions from struct tags
		injectPropertyExtensions(schema, cfg.Type)
	}
}

func injectPropertyExtensions(schema *huma.Schema, t reflect.Type) {
	for i := range t.NumField() {
		sf := t.Field(i)

		// Find the matching property in the schema
		jsonName := sf.Tag.Get("json")
		if idx := strings.IndexByte(jsonName, ','); idx >= 0 {
			jsonName = jsonName[:idx]
		}
		if jsonName == "" || jsonName == "-" {
			continue
		}

		prop, ok := schema.Properties[jsonName]
		if !ok {
			continue
		}

		// Collect custom tags
		ext := map[string]any{}

		if sig := sf.Tag.Get("signal"); sig != "" {
			ext["x-signal"] = sig
		}
		if inp := sf.Tag.Get("input"); inp != "" {
			ext["x-input"] = inp
		}
		if sse := sf.Tag.Get("sse"); sse != "" {
			ext["x-sse"] = sse
		}
		if card := sf.Tag.Get("card"); card != "" {
			ext["x-card"] = card
		}

		if len(ext) > 0 {
			if prop.Extensions == nil {
				prop.Extensions = map[string]any{}
			}
			for k, v := range ext {
				prop.Extensions[k] = v
			}
		}
	}
}
