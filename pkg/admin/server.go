package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/getimposd/imposd/pkg/engine"
	"github.com/getimposd/imposd/pkg/logging"
	"github.com/getimposd/imposd/pkg/metrics"
)

// DefaultPort is the conventional management API port.
const DefaultPort = 2525

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 30 * time.Second
)

// Server is the management API server. It owns no imposter state of its
// own; every operation is translated into a call on the engine registry.
type Server struct {
	registry *engine.Registry
	metrics  *metrics.Registry
	ring     *logging.RingHandler
	log      *slog.Logger

	host      string
	version   string
	options   map[string]any
	startTime time.Time

	httpServer *http.Server

	mu       sync.Mutex
	port     int
	listener net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithHost sets the bind address. Empty means all interfaces.
func WithHost(host string) Option {
	return func(s *Server) { s.host = host }
}

// WithVersion sets the version string reported by GET /config.
func WithVersion(version string) Option {
	return func(s *Server) {
		if version != "" {
			s.version = version
		}
	}
}

// WithOptions sets the effective server options reported by GET /config.
func WithOptions(options map[string]any) Option {
	return func(s *Server) { s.options = options }
}

// WithLogRing connects the in-memory log ring served by GET /logs.
func WithLogRing(ring *logging.RingHandler) Option {
	return func(s *Server) { s.ring = ring }
}

// NewServer creates a management API server for the given registry. The
// server is inert until Start; tests can drive Handler directly.
func NewServer(registry *engine.Registry, port int, opts ...Option) *Server {
	s := &Server{
		registry:  registry,
		metrics:   metrics.Init(),
		log:       logging.Nop(),
		port:      port,
		version:   "dev",
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Handler:      s.withMiddleware(mux),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)

	// Imposter collection
	mux.HandleFunc("GET /imposters", s.handleListImposters)
	mux.HandleFunc("POST /imposters", s.handleCreateImposter)
	mux.HandleFunc("PUT /imposters", s.handleReplaceAllImposters)
	mux.HandleFunc("DELETE /imposters", s.handleDeleteAllImposters)

	// Single imposter
	mux.HandleFunc("GET /imposters/{port}", s.handleGetImposter)
	mux.HandleFunc("DELETE /imposters/{port}", s.handleDeleteImposter)
	mux.HandleFunc("DELETE /imposters/{port}/requests", s.handleClearRequests)
	mux.HandleFunc("DELETE /imposters/{port}/proxy/responses", s.handleClearProxyResponses)

	// Stub editing
	mux.HandleFunc("POST /imposters/{port}/stubs", s.handleAddStub)
	mux.HandleFunc("PUT /imposters/{port}/stubs", s.handleReplaceAllStubs)
	mux.HandleFunc("PUT /imposters/{port}/stubs/{index}", s.handleReplaceStub)
	mux.HandleFunc("DELETE /imposters/{port}/stubs/{index}", s.handleRemoveStub)

	// Diagnostics
	mux.HandleFunc("GET /config", s.handleConfig)
	mux.HandleFunc("GET /logs", s.handleLogs)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the fully assembled handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start binds the admin port and begins serving in the background. The
// bind itself is synchronous so callers see address errors immediately.
func (s *Server) Start() error {
	s.mu.Lock()
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	s.mu.Unlock()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("management API: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	port := s.port
	s.mu.Unlock()

	s.log.Info("management API listening", "host", s.host, "port", port)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("management API server error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down, waiting for in-flight requests up to the
// context deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Port returns the bound port, which differs from the requested one when
// the server was started on port 0.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}
