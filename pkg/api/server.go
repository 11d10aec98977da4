package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nodemedic/nodemedic/pkg/cache"
	"github.com/nodemedic/nodemedic/pkg/deps"
	"github.com/nodemedic/nodemedic/pkg/typosquat"
)

const (
	DefaultDepth          = 2
	DefaultMaxDepth       = 6
	DefaultMaxUploadBytes = 32 << 20
	DefaultGraphTTL       = time.Hour

	shutdownTimeout = 10 * time.Second
)

// Options configures a [Server].
type Options struct {
	Resolver deps.Resolver
	Finder   typosquat.Finder

	// Cache stores resolved graphs under Keyer.GraphKey. A nil cache
	// disables graph caching.
	Cache    cache.Cache
	Keyer    cache.Keyer
	GraphTTL time.Duration

	// Resolve is the base resolver configuration; depth comes from the
	// request.
	Resolve deps.Options

	DefaultDepth   int
	MaxDepth       int
	MaxUploadBytes int64

	// Gatherer backs /metrics. Defaults to the prometheus default registry.
	Gatherer prometheus.Gatherer

	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Cache == nil {
		o.Cache = cache.NewNullCache()
	}
	if o.Keyer == nil {
		o.Keyer = cache.NewDefaultKeyer()
	}
	if o.GraphTTL <= 0 {
		o.GraphTTL = DefaultGraphTTL
	}
	if o.DefaultDepth <= 0 {
		o.DefaultDepth = DefaultDepth
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if o.Gatherer == nil {
		o.Gatherer = prometheus.DefaultGatherer
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Server serves the nodemedic backend API.
type Server struct {
	opts   Options
	logger *log.Logger
	router chi.Router
}

// New builds the server and its routes.
func New(opts Options) *Server {
	opts = opts.withDefaults()
	s := &Server{opts: opts, logger: opts.Logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", s.handlePing)
		r.Get("/dependencies/*", s.handleDependencies)
		r.Post("/upload", s.handleUpload)
		r.Get("/typosquats/*", s.handleTyposquats)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no route for " + r.URL.Path, Code: "NOT_FOUND"})
	})
	return r
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
