// Package adforge is the public API for embedding the campaign pipeline server.
//
// Consumers import this package to construct and run the server without
// forking it:
//
//	app, err := adforge.New(
//	    adforge.WithVersion(version),
//	    adforge.WithLogger(logger),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: adforge (root) imports
// internal/*, but internal/* never imports adforge (root).
package adforge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/adforge-ai/adforge/api"
	"github.com/adforge-ai/adforge/internal/auth"
	"github.com/adforge-ai/adforge/internal/config"
	"github.com/adforge-ai/adforge/internal/gateway"
	"github.com/adforge-ai/adforge/internal/mcp"
	"github.com/adforge-ai/adforge/internal/pipeline"
	"github.com/adforge-ai/adforge/internal/ratelimit"
	"github.com/adforge-ai/adforge/internal/server"
	"github.com/adforge-ai/adforge/internal/telemetry"
	"github.com/adforge-ai/adforge/ui"
)

// App is the campaign pipeline server lifecycle. Construct with New(),
// run with Run(). App has no public fields — use New() options to
// configure it.
type App struct {
	cfg          config.Config
	srv          *server.Server
	limiter      ratelimit.Limiter
	otelShutdown func(context.Context) error
	logger       *slog.Logger
	version      string
}

// New initialises the server: loads configuration, wires the pipeline,
// the gateway client, auth, MCP, and the HTTP server. It does NOT start
// any goroutines or accept connections — call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.gatewayURL != "" {
		cfg.GatewayURL = o.gatewayURL
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger := o.logger
	if logger == nil {
		logger = newLogger(cfg.LogLevel)
	}

	logger.Info("adforge starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Create JWT manager.
	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.SessionTTL)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("auth: %w", err)
	}

	// Invocation gateway — external override takes priority over the
	// HTTP client. An empty gateway URL is allowed; invocations then fail
	// with a "not configured" error until one is set.
	var invoker pipeline.Invoker
	if o.invoker != nil {
		invoker = o.invoker
	} else {
		if cfg.GatewayURL == "" {
			logger.Warn("gateway URL not configured; agent runs will fail until ADFORGE_GATEWAY_URL is set")
		}
		invoker = gateway.NewClient(cfg.GatewayURL, cfg.GatewayKey, cfg.GatewayTimeout)
	}

	// SSE broker. Wired as the pipeline event hook so every run/campaign
	// event reaches /v1/subscribe clients.
	broker := server.NewBroker(logger)

	// Pipeline service over the in-memory session.
	svc, err := pipeline.NewService(
		pipeline.NewSession(),
		invoker,
		gateway.NewPromptRegistry(),
		logger,
		broker.Publish,
	)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	// MCP server.
	mcpSrv := mcp.New(svc, version, logger)

	// UI filesystem.
	uiFS, err := ui.DistFS()
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("ui: %w", err)
	}
	if uiFS != nil {
		logger.Info("ui: embedded SPA loaded")
	}

	// Rate limiter.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	srv := server.New(server.ServerConfig{
		Pipeline:            svc,
		JWTMgr:              jwtMgr,
		Logger:              logger,
		Limiter:             limiter,
		Broker:              broker,
		MCPServer:           mcpSrv.MCPServer(),
		GoogleClientID:      cfg.GoogleClientID,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		UIFS:                uiFS,
		OpenAPISpec:         api.OpenAPISpec,
	})

	return &App{
		cfg:          cfg,
		srv:          srv,
		limiter:      limiter,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or a fatal
// server error occurs. On return, Shutdown has been performed — callers
// should not call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown drains in-flight HTTP requests and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("adforge shutting down")

	if err := a.srv.Shutdown(ctx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}
	_ = a.limiter.Close()
	_ = a.otelShutdown(context.Background())

	a.logger.Info("adforge stopped")
	return nil
}

// newLogger builds the default JSON logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
