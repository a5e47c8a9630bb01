package adforge

import (
	"log/slog"

	"github.com/adforge-ai/adforge/internal/pipeline"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	port       int
	gatewayURL string
	logger     *slog.Logger
	version    string
	invoker    pipeline.Invoker
}

// WithPort overrides the TCP port from config (ADFORGE_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithGatewayURL overrides the generation gateway URL from config
// (ADFORGE_GATEWAY_URL env var).
func WithGatewayURL(url string) Option {
	return func(o *resolvedOptions) { o.gatewayURL = url }
}

// WithLogger sets the structured logger for the App.
// If not set, a JSON logger at the configured level is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithInvoker replaces the HTTP gateway client with a custom invoker.
// Only the last call wins. Useful for embedding the server with an
// in-process generation backend or for tests.
func WithInvoker(inv pipeline.Invoker) Option {
	return func(o *resolvedOptions) { o.invoker = inv }
}
