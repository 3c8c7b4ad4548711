package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"reflect"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-sketch/internal/api"
	"github.com/joeblew999/plat-sketch/internal/api/editor"
	"github.com/joeblew999/plat-sketch/internal/controller"
	"github.com/joeblew999/plat-sketch/internal/humastar"
	"github.com/joeblew999/plat-sketch/internal/service"
	"github.com/joeblew999/plat-sketch/internal/style"
	"github.com/joeblew999/plat-sketch/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host   string
	Port   string
	WebDir string // Path to web/ directory for static files and template overrides

	Defaults service.Defaults
	// StyleLoader fetches the base map style; nil disables it.
	StyleLoader controller.StyleLoader
	Logger      zerolog.Logger
}

// Server is the sketch HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	links    *humastar.Links
	services *api.Services
	renderer *templates.Renderer
	log      zerolog.Logger
}

// mapSchema registers the map state for Datastar page data.
var mapSchema = humastar.DatastarSchemaConfig{
	Type:     reflect.TypeOf(service.MapState{}),
	BasePath: editor.BasePath,
}

// New creates a new sketch server.
func New(cfg Config) (*Server, error) {
	log := cfg.Logger.With().Str("component", "server").Logger()
	mux := http.NewServeMux()
	links := humastar.NewLinks()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-sketch API", api.Version)
	humaConfig.Info.Description = "Interactive map sketching: draw polygons with edge lengths and area, place markers."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	humaAPI := humago.New(mux, humaConfig)

	sessions := service.NewSessionService(cfg.Defaults, cfg.StyleLoader, cfg.Logger)
	services := &api.Services{
		Sessions: sessions,
		Tiles:    service.NewTileService(),
	}

	// Embedded fragments, optionally overridden from the web directory
	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		if _, statErr := os.Stat(fragmentsDir); statErr == nil {
			if renderer, err = templates.NewFromDir(fragmentsDir); err != nil {
				return nil, fmt.Errorf("loading templates: %w", err)
			}
			log.Info().Str("dir", fragmentsDir).Msg("loaded fragment templates")
		}
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		links:    links,
		services: services,
		renderer: renderer,
		log:      log,
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Sessions returns the map session registry.
func (s *Server) Sessions() *service.SessionService {
	return s.services.Sessions
}

// Close destroys every mounted map, cancelling pending style fetches.
func (s *Server) Close() error {
	s.services.Sessions.Close()
	return nil
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.services.Sessions).RegisterRoutes(s.humaAPI)

	// Register Editor SSE routes using Huma + Datastar SDK
	maps := editor.NewMapHandler(s.services.Sessions, s.renderer, s.config.Logger)
	maps.RegisterRoutes(s.humaAPI)
	editor.NewEventHandler(maps).RegisterRoutes(s.humaAPI)

	// All operations are registered; derive links and Datastar metadata.
	s.links.Build(s.humaAPI)
	humastar.InjectExtensions(s.humaAPI, []humastar.DatastarSchemaConfig{mapSchema})

	// Static files
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	// Page routes
	s.mux.HandleFunc("/map", s.handleMap)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range s.links.Root() {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "plat-sketch",
		"status":  "running",
		"map":     "/map",
	})
}

// handleMap mounts a fresh map, or reopens ?id=, and renders the page shell.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions := s.services.Sessions
	var sess *service.Session
	var err error
	if id := r.URL.Query().Get("id"); id != "" {
		sess, err = sessions.Get(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	} else {
		sess, err = sessions.Mount(r.Context(), service.MountOptions{})
		if err != nil {
			s.log.Error().Err(err).Msg("mounting map for page")
			http.Error(w, "could not mount map", http.StatusServiceUnavailable)
			return
		}
	}

	page := humastar.BuildPageData(s.humaAPI, mapSchema, pageSignals(sess))
	html, err := s.renderer.Render("map-page", editor.NewMapPage(sess, page))
	if err != nil {
		s.log.Error().Err(err).Msg("rendering map page")
		http.Error(w, "could not render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// pageSignals are the UI signals that are not part of the map schema.
func pageSignals(sess *service.Session) map[string]any {
	signals := editor.StateSignals(sess)
	st := sess.State()
	for k, v := range map[string]any{
		"px": 0, "py": 0,
		"fromx": 0, "fromy": 0, "tox": 0, "toy": 0,
		"lon": st.Center.Lon, "lat": st.Center.Lat, "zoom": st.Zoom,
		"width": st.Width, "height": st.Height,
		"success": "",
	} {
		signals[k] = v
	}
	return signals
}

// NewStyleLoader adapts a style.Loader to the controller.
func NewStyleLoader(l *style.Loader) controller.StyleLoader {
	if l == nil {
		return nil
	}
	return l
}
