package humastar

import (
	"fmt"
	"strings"
)

// Action is a state-dependent hypermedia link. Bodies implementing Actor get
// one Link header per action, e.g.
//
//	</api/v1/maps/42/mode>; rel="place-marker"; method="PUT"; title="Place Marker"
type Action struct {
	Rel    string
	Href   string
	Method string
	Title  string
	Schema string // JSON Schema URL of the request body
}

// Actor is implemented by response bodies whose available actions depend on
// their state.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as an RFC 8288 Link value with method, title
// and schema extension parameters.
func (a Action) LinkHeader() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<%s>; rel="%s"`, a.Href, a.Rel)
	for _, p := range [][2]string{{"method", a.Method}, {"title", a.Title}, {"schema", a.Schema}} {
		if p[1] != "" {
			fmt.Fprintf(&b, `; %s="%s"`, p[0], p[1])
		}
	}
	return b.String()
}

// ActionDef is an action template; Pattern holds one %s for the resource ID.
type ActionDef struct {
	Rel     string
	Pattern string
	Method  string
	Title   string
	Schema  string
}

// ActionsFor expands defs for one resource.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, id),
			Method: d.Method,
			Title:  d.Title,
			Schema: d.Schema,
		}
	}
	return actions
}
