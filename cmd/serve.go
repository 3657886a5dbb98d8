package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/slotbot/internal/config"
	"github.com/teemow/slotbot/internal/instrumentation"
	"github.com/teemow/slotbot/internal/server"
)

// Transport types
const (
	transportHTTP  = "http"
	transportStdio = "stdio"
)

var serveFlagKeys = map[string]string{
	"calendar-id":          config.KeyCalendarID,
	"credentials":          config.KeyCredentialsFile,
	"timezone":             config.KeyTimezone,
	"http-addr":            config.KeyHTTPAddr,
	"cors-allowed-origins": config.KeyCORSAllowedOrigins,
	"intent-classifier":    config.KeyIntentClassifier,
	"metrics-enabled":      config.KeyMetricsEnabled,
	"metrics-addr":         config.KeyMetricsAddr,
}

func newServeCmd() *cobra.Command {
	var (
		transport  string
		disableMCP bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the slotbot server",
		Long: `Start slotbot as an HTTP chat API or as an MCP server.

Transports:
  - http: POST /chat, health probes and, unless --disable-mcp is set, the MCP
    streamable HTTP endpoint under /mcp (default)
  - stdio: MCP over standard input and output, for local AI assistants

CALENDAR_ID and GOOGLE_SERVICE_JSON are required. Set LLM_API_KEY (or
GEMINI_API_KEY) to use a language model for extraction and intent routing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, serveFlagKeys)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cmd.Context(), cfg, transport, !disableMCP)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportHTTP, "Transport type: http or stdio")
	cmd.Flags().BoolVar(&disableMCP, "disable-mcp", false, "Do not serve MCP under /mcp (http transport only)")
	cmd.Flags().String("calendar-id", "", "Google Calendar id to book on. Can also use CALENDAR_ID env var.")
	cmd.Flags().String("credentials", "", "Path to the service account credentials file. Can also use GOOGLE_SERVICE_JSON env var.")
	cmd.Flags().String("timezone", "", "Timezone for times given without offset (default Asia/Kolkata). Can also use DEFAULT_TIMEZONE env var.")
	cmd.Flags().String("http-addr", config.DefaultHTTPAddr, "HTTP server address. Can also use HTTP_ADDR env var.")
	cmd.Flags().String("cors-allowed-origins", "", "Comma-separated origins allowed to call the chat API. Can also use CORS_ALLOWED_ORIGINS env var.")
	cmd.Flags().String("intent-classifier", config.ClassifierLLM, "Intent classifier: llm or keyword. Can also use INTENT_CLASSIFIER env var.")
	cmd.Flags().Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, transport string, mcpEnabled bool) error {
	switch transport {
	case transportHTTP, transportStdio:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", transport, transportHTTP, transportStdio)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	instrConfig := cfg.Instrumentation
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", "error", err)
		}
	}()

	audit := instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)
	dispatcher, err := newDispatcher(shutdownCtx, cfg, provider.Metrics(), audit, logger)
	if err != nil {
		return err
	}
	mcpSrv := server.NewMCPServer(dispatcher, version)

	if transport == transportStdio {
		return runStdioServer(mcpSrv)
	}

	if cfg.MetricsEnabled && provider.Enabled() && provider.PrometheusEnabled() {
		metricsServer, err := startMetricsServer(cfg.MetricsAddr, provider)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("error during metrics server shutdown", "error", err)
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	}

	httpCfg := server.HTTPConfig{
		Addr:               cfg.HTTPAddr,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:            provider.Metrics(),
		Logger:             logger,
	}
	if mcpEnabled {
		httpCfg.MCPServer = mcpSrv
	}
	health := server.NewHealthChecker(map[string]string{
		"version":           version,
		"timezone":          cfg.Timezone,
		"intent_classifier": cfg.IntentClassifier,
	})
	httpSrv := server.NewHTTPServer(httpCfg, server.NewChatHandler(dispatcher, logger), health)

	return runHTTPServer(shutdownCtx, httpSrv, logger)
}

func startMetricsServer(addr string, provider *instrumentation.Provider) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		slog.Info("metrics server started", "addr", metricsServer.Addr())
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, srv *server.HTTPServer, logger *slog.Logger) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
