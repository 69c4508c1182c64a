// Package ingress implements the loopback HTTP control surface spec.md §4.5
// describes: a single short-lived-request server that hands heavy work
// (enqueueing a download) off to the registry/scheduler before replying.
package ingress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"download-engine/internal/registry"
	"download-engine/internal/security"
)

// AppName and AppVersion are reported by /, /health, and /register.
const (
	AppName    = "download-engine"
	AppVersion = "1.0.0"
)

// Server is the loopback-only control surface. One goroutine runs
// http.Serve; requests are short, so no worker pool is needed beyond what
// net/http already provides per-connection.
type Server struct {
	logger   *slog.Logger
	registry *registry.Registry
	audit    *security.AuditLogger
	router   *chi.Mux
	listener net.Listener
}

// NewServer wires the ingress router. reg is where /add_download hands work
// off; audit records every request per spec.md's "no authentication beyond
// loopback binding" threat model, so the access trail is the only record.
func NewServer(logger *slog.Logger, reg *registry.Registry, audit *security.AuditLogger) *Server {
	s := &Server{
		logger:   logger,
		registry: reg,
		audit:    audit,
		router:   chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.loopbackOnly)
	s.router.Use(s.auditMiddleware)

	s.router.Get("/", s.handleHealth)
	s.router.Get("/health", s.handleHealth)
	s.router.Post("/add_download", s.handleAddDownload)
	s.router.Post("/register", s.handleRegister)
}

// loopbackOnly enforces spec.md §4.5's bind posture as a second layer, in
// case the listener is ever reached through a proxy that forwards
// RemoteAddr unexpectedly: any source IP that isn't localhost is rejected.
func (s *Server) loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if s.audit != nil {
			host, _, _ := net.SplitHostPort(r.RemoteAddr)
			s.audit.Log(host, r.UserAgent(), r.Method+" "+r.URL.Path, rec.status, "")
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Start binds strictly to loopback and serves in the background. It returns
// once the listener is bound, so callers know immediately whether the port
// was available.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ingress: bind %s: %w", addr, err)
	}
	s.listener = ln

	go func() {
		if err := http.Serve(ln, s.router); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("ingress server stopped", "error", err)
		}
	}()
	s.logger.Info("ingress listening", "addr", addr)
	return nil
}

// Stop closes the listener, ending the background Serve goroutine.
func (s *Server) Stop(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- s.listener.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("ingress: stop timed out")
	}
}

