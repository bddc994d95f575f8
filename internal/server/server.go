package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/apex/log"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/benatfroemming/mapping-tool/internal/api"
	"github.com/benatfroemming/mapping-tool/internal/api/viewer"
	"github.com/benatfroemming/mapping-tool/internal/app"
	"github.com/benatfroemming/mapping-tool/internal/config"
	"github.com/benatfroemming/mapping-tool/internal/db"
	"github.com/benatfroemming/mapping-tool/internal/ingest"
	"github.com/benatfroemming/mapping-tool/internal/mapsync"
	"github.com/benatfroemming/mapping-tool/internal/service"
	"github.com/benatfroemming/mapping-tool/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // web/ directory with static files and templates
	App     config.Config
}

// Server is the mapping tool HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	catalog  *db.Catalog
	ctrl     *app.Controller
	mirror   *mapsync.Mirror
	bus      *service.EventBus
	renderer *templates.Renderer
}

// New creates a server with an empty layer store.
func New(cfg Config) *Server {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("mapping-tool API", "1.0.0")
	humaConfig.Info.Description = "Load GeoJSON layers, color them by attribute and inspect their statistics."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// no $schema property in responses
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	palette := cfg.App.Palette
	store := service.NewLayerService(palette)
	mirror := mapsync.NewMirror()
	bus := service.NewEventBus()
	store.Subscribe(bus.Publish)

	ctrl := app.New(
		store,
		mapsync.NewAdapter(mirror, palette, cfg.App.Fit),
		ingest.New(cfg.App.IngestLimit),
		service.NewSampleService(cfg.DataDir),
	)

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humaAPI,
		ctrl:    ctrl,
		mirror:  mirror,
		bus:     bus,
	}

	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		r, err := templates.New(fragmentsDir)
		if err != nil {
			log.WithError(err).Warn("viewer disabled")
		} else {
			s.renderer = r
			log.WithField("dir", fragmentsDir).Info("loaded fragment templates")
		}
	}

	// the catalog lives in memory and is rebuilt from the store on start
	conn, err := db.Open(db.Config{})
	if err != nil {
		log.WithError(err).Warn("feature catalog disabled")
	} else if catalog, err := db.NewCatalog(conn); err != nil {
		log.WithError(err).Warn("feature catalog disabled")
		conn.Close()
	} else if err := catalog.Attach(store); err != nil {
		log.WithError(err).Warn("feature catalog disabled")
		conn.Close()
	} else {
		s.db = conn
		s.catalog = catalog
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Controller returns the application controller.
func (s *Server) Controller() *app.Controller {
	return s.ctrl
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	api.RegisterRoutes(s.humaAPI, &api.Services{Controller: s.ctrl, Map: s.mirror})
	api.NewInfoHandler(s.config.DataDir, s.catalog != nil).RegisterRoutes(s.humaAPI)
	api.NewCatalogHandler(s.catalog).RegisterRoutes(s.humaAPI)

	if s.renderer != nil {
		viewer.NewEventHandler(s.ctrl, s.mirror, s.bus, s.renderer).RegisterRoutes(s.humaAPI)
		viewer.NewLayerHandler(s.ctrl, s.renderer).RegisterRoutes(s.humaAPI)
		viewer.NewSampleHandler(s.ctrl, s.renderer).RegisterRoutes(s.humaAPI)
	}

	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	s.mux.HandleFunc("/{$}", s.handleViewer)
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	if s.config.WebDir == "" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.config.WebDir, "templates", "viewer.html"))
}
