package humastar

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// EntryPath is the API entry point that links to every collection.
const EntryPath = "/health"

// Links stores the generated RFC 8288 link headers keyed by operation path.
// Register Transformer on the Huma config before routes, then call Build once
// every route is registered.
type Links struct {
	mu    sync.RWMutex
	links map[string][]string
}

// NewLinks creates an empty link registry.
func NewLinks() *Links {
	return &Links{links: map[string][]string{}}
}

// Build walks the OpenAPI spec and generates hypermedia links.
func (l *Links) Build(api huma.API) {
	oapi := api.OpenAPI()
	links := map[string][]string{}
	add := func(from, to, rel string) { addLink(links, from, to, rel) }

	// Collection paths have no {param}, item paths do. Editor (Datastar SSE)
	// endpoints are skipped.
	type pathInfo struct {
		path string
		tags []string
	}
	var collections, items []pathInfo

	for p, pi := range oapi.Paths {
		tags := primaryTags(pi)
		if hasTag(tags, "editor") {
			continue
		}
		info := pathInfo{path: p, tags: tags}
		if strings.Contains(p, "{") {
			items = append(items, info)
		} else {
			collections = append(collections, info)
		}
	}

	// 1. Item → parent (rel="collection" + rel="up")
	for _, item := range items {
		parent := path.Dir(item.path)
		if _, ok := oapi.Paths[parent]; ok {
			add(item.path, parent, "collection")
			add(item.path, parent, "up")
		}
	}

	// 2. Collection → item template (rel="item")
	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item.path) == coll.path {
				add(coll.path, item.path, "item")
			}
		}
	}

	// 2b. Collection → entry point (rel="up")
	for _, coll := range collections {
		if coll.path == EntryPath {
			continue
		}
		add(coll.path, EntryPath, "up")
	}

	// 3. Action rels from HTTP methods (IANA standard)
	for _, coll := range collections {
		if oapi.Paths[coll.path].Post != nil {
			add(coll.path, coll.path, "create-form")
		}
	}
	for _, item := range items {
		pi := oapi.Paths[item.path]
		if pi.Put != nil || pi.Patch != nil {
			add(item.path, item.path, "edit")
			add(item.path, item.path, "edit-form")
		}
	}

	// 4. Cross-link collections sharing a tag
	for i, a := range collections {
		for j, b := range collections {
			if i == j {
				continue
			}
			if sharedTag(a.tags, b.tags) != "" {
				add(a.path, b.path, lastSegment(b.path))
			}
		}
	}

	// 5. Entry point links to all collections + IANA discovery rels
	for _, coll := range collections {
		if coll.path == EntryPath {
			continue
		}
		add(EntryPath, coll.path, lastSegment(coll.path))
	}
	add(EntryPath, "/openapi.json", "describedby")
	add(EntryPath, "/openapi.json", "service-desc")
	add(EntryPath, "/docs", "service-doc")

	// 6. describedby per resource: JSON Schema fragment in the OpenAPI spec
	for _, all := range [][]pathInfo{collections, items} {
		for _, pi := range all {
			if ref := getResponseSchemaRef(oapi.Paths[pi.path]); ref != "" {
				add(pi.path, "/openapi.json#/components/schemas/"+ref, "describedby")
			}
		}
	}

	// 7. Document the links on the operations themselves
	for p, pi := range oapi.Paths {
		headers, ok := links[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op == nil {
				continue
			}
			injectResponseLinks(op, headers)
		}
	}

	l.mu.Lock()
	l.links = links
	l.mu.Unlock()
}

// For returns the link headers generated for an operation path.
func (l *Links) For(opPath string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.links[opPath]
}

// Root returns the entry point links, for use by non-Huma handlers.
func (l *Links) Root() []string {
	return l.For(EntryPath)
}

// Transformer returns a Huma Transformer that injects the generated links,
// a self link on item endpoints, pagination links and state-dependent
// action links at runtime.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}

		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}

		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}

		return v, nil
	}
}

// --- helpers ---

func addLink(links map[string][]string, from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	for _, existing := range links[from] {
		if existing == val {
			return
		}
	}
	links[from] = append(links[from], val)
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sharedTag(a, b []string) string {
	for _, at := range a {
		for _, bt := range b {
			if at == bt {
				return at
			}
		}
	}
	return ""
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

// injectResponseLinks adds OpenAPI Link objects to the operation's success response
// so the OpenAPI document itself describes the relationships.
func injectResponseLinks(op *huma.Operation, headers []string) {
	if op.Responses == nil {
		return
	}
	// Find the success response (2xx).
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

func getResponseSchemaRef(pi *huma.PathItem) string {
	if pi.Get == nil || pi.Get.Responses == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") || resp.Content == nil {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				// Extract schema name from $ref like "#/components/schemas/Foo"
				parts := strings.Split(mt.Schema.Ref, "/")
				return parts[len(parts)-1]
			}
		}
	}
	return ""
}

func parseLinkHeader(h string) (rel, href string) {
	// Parse `<url>; rel="name"` format.
	parts := strings.SplitN(h, ";", 2)
	if len(parts) < 2 {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(parts[0]), "<>")
	relPart := strings.TrimSpace(parts[1])
	if strings.HasPrefix(relPart, `rel="`) {
		rel = strings.Trim(relPart[4:], `"`)
	}
	return rel, href
}
