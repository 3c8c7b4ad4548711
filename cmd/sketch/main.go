package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-sketch/internal/controller"
	"github.com/joeblew999/plat-sketch/internal/geo"
	"github.com/joeblew999/plat-sketch/internal/server"
	"github.com/joeblew999/plat-sketch/internal/service"
	"github.com/joeblew999/plat-sketch/internal/style"
)

// Options defines all CLI flags and env vars for the sketch server.
// Flags: --host, --port, --web-dir, --style-url, --style-key, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_WEB_DIR, SERVICE_STYLE_KEY, ...
type Options struct {
	Host         string `doc:"Host to bind to" default:"0.0.0.0"`
	Port         int    `doc:"Port to listen on" short:"p" default:"8087"`
	WebDir       string `doc:"Path to web/ directory (static files, template overrides)" default:"web"`
	StyleURL     string `doc:"Base map style document URL, e.g. https://tiles.locationiq.com/v3/streets/vector.json (needs --style-key). Empty disables the base map style"`
	StyleKey     string `doc:"Access key appended to the style URL as ?key="`
	StyleTimeout string `doc:"Style fetch timeout" default:"30s"`
	Center       string `doc:"Initial map center as lon,lat" default:"-122.42,37.779"`
	Zoom         int    `doc:"Initial zoom level" default:"12"`
	MarkerIcon   string `doc:"Marker icon URL" default:"https://tiles.locationiq.com/static/images/marker.png"`
	LogLevel     string `doc:"Log level: trace, debug, info, warn, error" default:"info"`
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(lvl).With().Timestamp().Logger()
}

// styleURL returns the full style endpoint, empty when disabled.
func styleURL(opts *Options) (string, error) {
	if opts.StyleURL == "" {
		return "", nil
	}
	if opts.StyleKey == "" {
		return opts.StyleURL, nil
	}
	return style.BuildURL(opts.StyleURL, opts.StyleKey)
}

func newStyleLoader(opts *Options, log zerolog.Logger) (*style.Loader, error) {
	timeout, err := time.ParseDuration(opts.StyleTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid --style-timeout: %w", err)
	}
	return style.NewLoader(timeout, log), nil
}

func newServer(opts *Options, log zerolog.Logger) (*server.Server, error) {
	center, err := geo.ParseLonLat(opts.Center)
	if err != nil {
		return nil, fmt.Errorf("invalid --center: %w", err)
	}
	url, err := styleURL(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid style url: %w", err)
	}
	loader, err := newStyleLoader(opts, log)
	if err != nil {
		return nil, err
	}
	if opts.StyleURL != "" && opts.StyleKey == "" && !strings.Contains(opts.StyleURL, "key=") {
		log.Warn().Str("style_url", opts.StyleURL).Msg("style url has no access key, set --style-key or SERVICE_STYLE_KEY")
	}

	return server.New(server.Config{
		Host:   opts.Host,
		Port:   fmt.Sprintf("%d", opts.Port),
		WebDir: opts.WebDir,
		Defaults: service.Defaults{
			Center:      center,
			Zoom:        float64(opts.Zoom),
			Width:       1024,
			Height:      768,
			StyleURL:    url,
			MarkerIcon:  opts.MarkerIcon,
			MarkerScale: controller.DefaultMarkerScale,
		},
		StyleLoader: server.NewStyleLoader(loader),
		Logger:      log,
	})
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		log := newLogger(opts.LogLevel)
		srv, err := newServer(opts, log)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid configuration")
		}

		addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
		httpServer := &http.Server{Addr: addr, Handler: srv}

		hooks.OnStart(func() {
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			log.Info().
				Str("server", baseURL).
				Str("page", baseURL+"/map").
				Str("docs", baseURL+"/docs").
				Str("openapi", baseURL+"/openapi.json").
				Bool("style", opts.StyleURL != "").
				Msg("plat-sketch server starting")

			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("server error")
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("shutdown")
			}
			srv.Close()
		})
	})

	cli.Root().Use = "sketch"
	cli.Root().Short = "Interactive map sketching: polygons with measurements and markers"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			log := newLogger("error")
			srv, err := newServer(opts, log)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// style subcommand: fetch and validate the base map style once
	styleCmd := &cobra.Command{
		Use:   "style",
		Short: "Fetch and validate the configured base map style",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			log := newLogger(opts.LogLevel)
			url, err := styleURL(opts)
			if err == nil && url == "" {
				err = errors.New("no --style-url configured")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			loader, err := newStyleLoader(opts, log)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			doc, err := loader.Fetch(cmd.Context(), url)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("style %q: version %d, %d sources, %d layers\n",
				doc.Name, doc.Version, len(doc.Sources), len(doc.Layers))
		}),
	}
	cli.Root().AddCommand(styleCmd)

	cli.Run()
}
