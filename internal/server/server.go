// Package server exposes editing sessions over HTTP.
//
// Preview frames connect with a WebSocket per window and speak the frame
// protocol as JSON text messages. The editor drives the scene graph and
// the materializer through a small JSON API. Routes exist both for the
// default session and for any session by id:
//
//	GET    /healthz
//	GET    /frames/{frameID}/ws?page=<pageID>
//	GET    /api/scene
//	POST   /api/materialize
//	POST   /api/reorder
//	...
//	GET    /api/sessions/{sessionID}/scene
//	GET    /api/sessions/{sessionID}/frames/{frameID}/ws
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/ghostcanvas/pkg/cache"
	"github.com/matzehuels/ghostcanvas/pkg/session"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// DefaultSession serves the routes without a session id.
	DefaultSession string
	// AllowedOrigins restricts frame sockets; empty allows any origin.
	AllowedOrigins []string
	// Cache keeps rendered scene diagrams. Nil disables it.
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// Server routes HTTP and WebSocket traffic to sessions.
type Server struct {
	sessions       *session.Registry
	defaultSession string
	cache          cache.Cache
	keyer          cache.Keyer
	logger         *log.Logger
	upgrader       websocket.Upgrader
	router         chi.Router
}

// New creates a Server over reg.
func New(reg *session.Registry, opts Options) *Server {
	s := &Server{
		sessions:       reg,
		defaultSession: opts.DefaultSession,
		cache:          opts.Cache,
		keyer:          opts.Keyer,
		logger:         opts.Logger,
	}
	if s.cache == nil {
		s.cache = cache.NewNullCache()
	}
	if s.keyer == nil {
		s.keyer = cache.NewDefaultKeyer()
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	s.router = s.routes()
	return s
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool { return set[r.Header.Get("Origin")] }
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Post("/", s.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Use(s.withSession(func(r *http.Request) string { return chi.URLParam(r, "sessionID") }))
			r.Delete("/", s.handleCloseSession)
			r.Get("/frames/{frameID}/ws", s.handleFrameSocket)
			s.sessionRoutes(r)
		})
	})

	def := s.withSession(func(*http.Request) string { return s.defaultSession })
	r.With(def).Get("/frames/{frameID}/ws", s.handleFrameSocket)
	r.Route("/api", func(r chi.Router) {
		r.Use(def)
		s.sessionRoutes(r)
	})
	return r
}

func (s *Server) sessionRoutes(r chi.Router) {
	r.Get("/scene", s.handleScene)
	r.Get("/scene.{format:dot|svg}", s.handleSceneDiagram)
	r.Post("/nodes", s.handleAddNode)
	r.Patch("/nodes/{nodeID}", s.handleUpdateNode)
	r.Delete("/nodes/{nodeID}", s.handleRemoveNode)
	r.Put("/nodes/{nodeID}/layout", s.handleSetLayout)
	r.Post("/nodes/{nodeID}/ungroup", s.handleUngroup)
	r.Put("/selection", s.handleSelect)
	r.Post("/group", s.handleGroup)
	r.Get("/synth/{nodeID}", s.handleSynth)
	r.Post("/materialize", s.handleMaterialize)
	r.Post("/reorder", s.handleReorder)
	r.Put("/toggles", s.handleToggles)
	r.Post("/navigate", s.handleNavigate)
}

// ServeHTTP implements http.Handler.
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}
