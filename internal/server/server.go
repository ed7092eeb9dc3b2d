package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/printdesk/printdesk/internal/config"
	"github.com/printdesk/printdesk/internal/storage"
	"github.com/printdesk/printdesk/internal/vnc"
	"github.com/printdesk/printdesk/pkg/assets"
	"github.com/printdesk/printdesk/pkg/middleware"
	"github.com/printdesk/printdesk/pkg/router"
	"github.com/printdesk/printdesk/pkg/websockify"
)

// Printer prints and opens local files.
type Printer interface {
	Print(ctx context.Context, path string) error
	Open(ctx context.Context, path string) error
}

// Options holds the server's collaborators. Config, Store, Printer,
// Connections and Frontend are required.
type Options struct {
	Config      *config.Config
	Store       storage.Store
	Printer     Printer
	Connections *vnc.Store

	// Frontend holds index.html, assets/ and .vite/manifest.json.
	Frontend fs.FS

	// Router overrides the default route table.
	Router *router.Router

	// Proxy overrides the websockify proxy built from Config.VNC.
	Proxy *websockify.Proxy

	// Registry receives all collectors. Default: a new registry.
	Registry *prometheus.Registry

	Logger *slog.Logger
}

// Server is the printdesk HTTP server.
type Server struct {
	config        *config.Config
	store         storage.Store
	printer       Printer
	connections   *vnc.Store
	frontend      fs.FS
	router        *router.Router
	shell         *Shell
	proxy         *websockify.Proxy
	limiter       *middleware.RateLimiter
	registry      *prometheus.Registry
	fingerprinted map[string]bool
	logger        *slog.Logger
	started       time.Time

	handler    http.Handler
	httpServer *http.Server
}

// New builds the server and its route table.
func New(opts Options) (*Server, error) {
	switch {
	case opts.Config == nil:
		return nil, errors.New("server: config is required")
	case opts.Store == nil:
		return nil, errors.New("server: store is required")
	case opts.Printer == nil:
		return nil, errors.New("server: printer is required")
	case opts.Connections == nil:
		return nil, errors.New("server: connections store is required")
	case opts.Frontend == nil:
		return nil, errors.New("server: frontend is required")
	}

	s := &Server{
		config:      opts.Config,
		store:       opts.Store,
		printer:     opts.Printer,
		connections: opts.Connections,
		frontend:    opts.Frontend,
		router:      opts.Router,
		proxy:       opts.Proxy,
		registry:    opts.Registry,
		logger:      opts.Logger,
		started:     time.Now(),
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "server")
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	shell, err := NewShell(s.frontend)
	if err != nil {
		return nil, err
	}
	s.shell = shell

	manifest, err := assets.LoadFS(s.frontend, assets.ManifestPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("server: %w", err)
		}
		s.logger.Warn("no build manifest, serving unbundled views", "path", assets.ManifestPath)
		manifest = nil
	}
	s.fingerprinted = emittedFiles(manifest)

	if s.router == nil {
		load := router.StaticLoader("/")
		if manifest != nil {
			load = router.ManifestLoader(manifest, "/")
		}
		s.router, err = router.New(router.DefaultRoutes(load), router.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
	}

	if s.proxy == nil {
		s.proxy = websockify.New(proxyConfig(s.config),
			websockify.WithRegistry(s.registry),
			websockify.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, _ int, err error) {
				s.writeError(w, r, err, "E604")
			}),
		)
	}
	s.limiter = middleware.NewRateLimiter(s.config.RateLimit.UploadsPerMinute, s.config.RateLimit.Burst)
	s.limiter.OnLimited = func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, nil, "E306")
	}

	s.handler = s.routes()
	return s, nil
}

func proxyConfig(cfg *config.Config) websockify.Config {
	return websockify.Config{
		DefaultTarget:     cfg.VNC.DefaultTarget,
		AllowCustomTarget: cfg.CustomTargetAllowed(),
		BufferSize:        cfg.VNC.BufferSize,
		DialTimeout:       config.Duration(cfg.VNC.DialTimeout),
		ReadTimeout:       config.Duration(cfg.VNC.ReadTimeout),
		WriteTimeout:      config.Duration(cfg.VNC.WriteTimeout),
		HeartbeatInterval: config.Duration(cfg.VNC.HeartbeatInterval),
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(s.logger))
	r.Use(middleware.OpenTelemetry(middleware.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
	})))
	r.Use(middleware.NewMetrics(middleware.WithRegistry(s.registry)).Handler)

	r.Get("/healthz", s.handleHealth)
	if s.config.Server.Metrics {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	r.Get("/assets/*", s.serveAsset)

	r.Route("/files", func(r chi.Router) {
		r.Get("/", s.handleListFiles)
		r.With(s.limiter.Handler).Post("/", s.handleUpload)
		r.Get("/{filename}", s.handleDownload)
		r.Delete("/{filename}", s.handleDelete)
	})
	r.Post("/print", s.handlePrint)
	r.Post("/preopen", s.handlePreopen)

	r.Route("/api", func(r chi.Router) {
		r.Get("/routes", s.handleRoutes)
		r.Route("/vnc/connections", func(r chi.Router) {
			r.Get("/", s.handleListConnections)
			r.Post("/", s.handleAddConnection)
			r.Put("/{index}", s.handleUpdateConnection)
			r.Delete("/{index}", s.handleDeleteConnection)
		})
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: http.StatusText(http.StatusNotFound)})
		})
	})

	r.Handle("/websockify", s.proxy)

	r.Get("/*", s.handleShell)
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Router returns the view route table.
func (s *Server) Router() *router.Router {
	return s.router
}

// Proxy returns the websockify proxy.
func (s *Server) Proxy() *websockify.Proxy {
	return s.proxy
}

// Registry returns the metrics registry.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting connections, closes open proxy sessions and
// waits for in-flight requests up to the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout())
	defer cancel()

	// Hijacked WebSocket connections are not tracked by http.Server.
	s.proxy.Close()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}
