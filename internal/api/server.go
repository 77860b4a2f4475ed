// Package api serves the UI adapter surface: status, inbound signals, user
// actions and a WebSocket stream of outbound notifications.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	bwerrors "git.home.luguber.info/inful/bridgewatch/internal/errors"
	"git.home.luguber.info/inful/bridgewatch/internal/logfields"
)

const requestTimeout = 30 * time.Second

// Server is the HTTP server for UI adapters.
type Server struct {
	Addr string

	svc         Service
	metrics     http.Handler
	metricsPath string
	router      *chi.Mux
	server      *http.Server
	upgrader    websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener

	// Hijacked WebSocket connections are not tracked by http.Server, so
	// Shutdown ends them through streamCtx and waits on streams.
	streamCtx  context.Context
	stopStream context.CancelFunc
	streams    sync.WaitGroup
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics mounts a metrics handler at path.
func WithMetrics(path string, h http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metrics = h
	}
}

// NewServer creates a server bound to addr once started.
func NewServer(addr string, svc Service, opts ...Option) *Server {
	s := &Server{
		Addr:   addr,
		svc:    svc,
		router: chi.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Browser extensions connect from chrome-extension:// origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.streamCtx, s.stopStream = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	// The event stream is long lived and stays outside the request timeout.
	s.router.Get("/events", s.handleEvents)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)

		r.Post("/signals", s.handleSignal)
		r.Post("/discover", s.handleDiscover)
		r.Post("/cancel", s.handleCancel)
		r.Post("/test", s.handleTest)
		r.Put("/settings", s.handleUpdateSettings)
		r.Post("/wipe-logs", s.handleWipeLogs)

		if s.metrics != nil && s.metricsPath != "" {
			r.Handle(s.metricsPath, s.metrics)
		}
	})
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler { return s.router }

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return bwerrors.Wrap(err, bwerrors.CategoryDaemon, bwerrors.SeverityFatal,
			fmt.Sprintf("listen on %s", s.Addr))
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	slog.Info("HTTP server listening", slog.String("addr", ln.Addr().String()))
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", logfields.Error(err))
		}
	}()
	return nil
}

// ListenAddr returns the bound address, or "" before Start.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server and closes every event stream.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopStream()
	s.mu.Unlock()

	err := s.server.Shutdown(ctx)

	drained := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		if err == nil {
			err = fmt.Errorf("event streams still open: %w", ctx.Err())
		}
	}
	return err
}

// trackStream registers a WebSocket stream unless the server is shutting down.
func (s *Server) trackStream() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamCtx.Err() != nil {
		return false
	}
	s.streams.Add(1)
	return true
}

// Response is the envelope every JSON endpoint returns.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// Success writes a success envelope.
func (s *Server) Success(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, Response{Success: true, Data: data})
}

// Error writes an error envelope.
func (s *Server) Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	slog.Debug("Request failed",
		logfields.Path(r.URL.Path), logfields.StatusCode(code), slog.String("message", message))
	writeJSON(w, code, Response{Success: false, Error: message})
}

// statusFor maps classified errors onto HTTP status codes.
func statusFor(err error) int {
	switch bwerrors.GetCategory(err) {
	case bwerrors.CategoryValidation, bwerrors.CategoryConfig:
		return http.StatusBadRequest
	case bwerrors.CategoryNetwork, bwerrors.CategoryIdentity:
		return http.StatusBadGateway
	case bwerrors.CategoryStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
