// Package server implements `forcetree serve`: a chi HTTP API that renders
// ecosystems through the pipeline and hosts live views whose frames stream to
// browsers over Server-Sent Events.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/forcetree/pkg/pipeline"
	"github.com/matzehuels/forcetree/pkg/render/forcetree"
	"github.com/matzehuels/forcetree/pkg/store"
)

// Defaults for Options.
const (
	DefaultMaxViews    = 64
	DefaultMaxBodySize = 10 << 20
	shutdownTimeout    = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	Runner *pipeline.Runner
	// Store receives view snapshots; nil keeps them in memory.
	Store  store.Store
	Logger *log.Logger

	// Defaults seeds every render request; request parameters override it.
	Defaults pipeline.Options
	// ViewOptions configure live views.
	ViewOptions []forcetree.Option

	MaxViews    int
	MaxBodySize int64
	// IdleTimeout disposes views that had no subscriber for this long.
	// Zero keeps views until they are deleted.
	IdleTimeout time.Duration
}

// Server serves the HTTP API. Create it with New and release it with Close.
type Server struct {
	opts   Options
	runner *pipeline.Runner
	store  store.Store
	logger *log.Logger
	router chi.Router

	base   context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	views map[string]*liveView
	wg    sync.WaitGroup
}

// New builds a server and starts its idle reaper when configured.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(nil, nil, opts.Logger)
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.MaxViews <= 0 {
		opts.MaxViews = DefaultMaxViews
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}

	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:   opts,
		runner: opts.Runner,
		store:  opts.Store,
		logger: opts.Logger,
		base:   base,
		cancel: cancel,
		views:  make(map[string]*liveView),
	}
	s.router = s.routes()

	if opts.IdleTimeout > 0 {
		s.wg.Add(1)
		go s.reap(opts.IdleTimeout)
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/render", s.handleRender)

	r.Route("/views", func(r chi.Router) {
		r.Get("/", s.handleListViews)
		r.Post("/", s.handleCreateView)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleViewPage)
			r.Delete("/", s.handleDeleteView)
			r.Get("/events", s.handleEvents)
			r.Get("/layout", s.handleViewLayout)
			r.Post("/drag", s.handleDrag)
			r.Post("/hover", s.handleHover)
			r.Post("/click", s.handleClick)
			r.Post("/zoom", s.handleZoom)
			r.Post("/settle", s.handleSettle)
			r.Post("/snapshot", s.handleSnapshot)
		})
	})

	r.Route("/layouts", func(r chi.Router) {
		r.Get("/", s.handleListLayouts)
		r.Get("/{id}", s.handleGetLayout)
		r.Delete("/{id}", s.handleDeleteLayout)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then disposes every
// view and shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "views", s.viewCount())
	// Disposing views closes every event stream, so Shutdown is not held
	// open by SSE clients.
	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close disposes every live view and stops the reaper. The store is not
// closed; it belongs to the caller.
func (s *Server) Close() {
	s.cancel()
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*liveView)
	s.mu.Unlock()

	for _, lv := range views {
		lv.dispose(s.logger)
	}
	s.wg.Wait()
}

func (s *Server) reap(idle time.Duration) {
	defer s.wg.Done()
	t := time.NewTicker(max(idle/2, time.Second))
	defer t.Stop()
	for {
		select {
		case <-s.base.Done():
			return
		case now := <-t.C:
			for _, lv := range s.idleViews(now, idle) {
				s.logger.Debug("disposing idle view", "view", lv.view.ID())
				lv.dispose(s.logger)
			}
		}
	}
}
