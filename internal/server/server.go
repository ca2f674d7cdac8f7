package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/illarion/microkv/pkg/microkv"
)

const (
	DefaultAddr            = "127.0.0.1:7420"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	MaxValueSize           = 1 << 20 // 1 MiB request body limit

	// DefaultNamespace is the path segment for the store's default namespace.
	DefaultNamespace = "_"
	RequestIDHeader  = "X-Request-ID"
)

// Store is the part of the engine the server needs.
type Store interface {
	Namespaces() ([]string, error)
	Namespace(name string) *microkv.Namespace
	Commit() error
}

// Server serves a Store over HTTP.
type Server struct {
	store    Store
	logger   *slog.Logger
	shutdown time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithShutdownTimeout bounds graceful shutdown in Run.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdown = d
	}
}

// New creates a Server for store.
func New(store Store, opts ...Option) *Server {
	s := &Server{
		store:    store,
		logger:   slog.New(slog.DiscardHandler),
		shutdown: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes wrapped in request id and logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/namespaces", s.handleNamespaces)
	mux.HandleFunc("GET /v1/ns/{ns}/keys", s.handleKeys)
	mux.HandleFunc("DELETE /v1/ns/{ns}", s.handleClear)
	mux.HandleFunc("GET /v1/ns/{ns}/kv/{key}", s.handleGet)
	mux.HandleFunc("PUT /v1/ns/{ns}/kv/{key}", s.handlePut)
	mux.HandleFunc("DELETE /v1/ns/{ns}/kv/{key}", s.handleDelete)
	mux.HandleFunc("POST /v1/commit", s.handleCommit)
	return s.requestID(s.logging(mux))
}

// Run listens on addr and serves until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		IdleTimeout:  DefaultIdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "starting server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server gracefully", "timeout", s.shutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// NamespaceFromPath maps a path segment to a namespace name. "_" is the
// default namespace; any other run of underscores drops one, so "__"
// names the namespace "_".
func NamespaceFromPath(segment string) string {
	if underscores(segment) {
		return segment[1:]
	}
	return segment
}

// NamespaceToPath maps a namespace name to its path segment. It is the
// inverse of NamespaceFromPath.
func NamespaceToPath(name string) string {
	if name == microkv.DefaultNamespace || underscores(name) {
		return DefaultNamespace + name
	}
	return name
}

func underscores(s string) bool {
	return s != "" && strings.Trim(s, "_") == ""
}
