package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/slotbot/internal/instrumentation"
)

const (
	// DefaultReadHeaderTimeout bounds how long a client may take to send headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// MCPEndpointPath is where the MCP streamable HTTP transport is mounted.
	MCPEndpointPath = "/mcp"
)

// HTTPConfig configures an HTTPServer.
type HTTPConfig struct {
	Addr               string
	CORSAllowedOrigins []string

	// MCPServer, when set, is served under MCPEndpointPath.
	MCPServer *mcpserver.MCPServer

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// HTTPServer serves the chat API, the health probes and optionally MCP.
type HTTPServer struct {
	engine *gin.Engine
	health *HealthChecker
	mcp    *mcpserver.StreamableHTTPServer
	logger *slog.Logger
	addr   string

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewHTTPServer builds the gin engine with all routes registered.
func NewHTTPServer(cfg HTTPConfig, chat *ChatHandler, health *HealthChecker) *HTTPServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if health == nil {
		health = NewHealthChecker(nil)
	}

	engine := gin.New()
	engine.Use(
		RequestID(),
		RequestLogger(logger, cfg.Metrics),
		Recovery(logger),
		CORS(cfg.CORSAllowedOrigins),
	)

	chat.RegisterRoutes(engine)
	health.RegisterRoutes(engine)

	s := &HTTPServer{
		engine: engine,
		health: health,
		logger: logger,
		addr:   cfg.Addr,
	}

	if cfg.MCPServer != nil {
		s.mcp = mcpserver.NewStreamableHTTPServer(cfg.MCPServer,
			mcpserver.WithEndpointPath(MCPEndpointPath),
		)
		engine.Any(MCPEndpointPath, gin.WrapH(s.mcp))
	}

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", "addr", ln.Addr().String(), "mcp", s.mcp != nil)
	return srv.Serve(ln)
}

// Shutdown marks the server as shutting down and drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.MarkShuttingDown()

	var errs []error
	if s.mcp != nil {
		if err := s.mcp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mcp shutdown: %w", err))
		}
	}

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Addr returns the bound address once started, or the configured one.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
