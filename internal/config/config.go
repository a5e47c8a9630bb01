// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration for the campaign server and
// the generation worker.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Gateway settings. GatewayURL may be empty: the invocation path then
	// reports a "not configured" error per call instead of failing startup.
	GatewayURL     string
	GatewayKey     string // Shared key sent as X-Adforge-Key; optional.
	GatewayTimeout time.Duration

	// Google Sign-In.
	GoogleClientID string

	// Session JWT settings.
	JWTPrivateKeyPath string // Path to Ed25519 private key PEM file.
	JWTPublicKeyPath  string // Path to Ed25519 public key PEM file.
	SessionTTL        time.Duration

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Rate limiting.
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// Worker settings (cmd/adforge-worker).
	WorkerPort          int
	WorkerKeyHash       string // Argon2id hash of the shared key; empty disables worker auth.
	WorkerAllowedOrigin string
	GeminiAPIKey        string
	GeminiModel         string
	GeminiBaseURL       string // Override for tests; empty selects the public endpoint.
	WorkerTimeout       time.Duration

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{}

	var err error
	load := func(dst *int, key string, def int) {
		if err == nil {
			*dst, err = envInt(key, def)
		}
	}
	loadDur := func(dst *time.Duration, key string, def time.Duration) {
		if err == nil {
			*dst, err = envDuration(key, def)
		}
	}
	loadBool := func(dst *bool, key string, def bool) {
		if err == nil {
			*dst, err = envBool(key, def)
		}
	}
	loadFloat := func(dst *float64, key string, def float64) {
		if err == nil {
			*dst, err = envFloat(key, def)
		}
	}

	load(&cfg.Port, "ADFORGE_PORT", 8080)
	loadDur(&cfg.ReadTimeout, "ADFORGE_READ_TIMEOUT", 30*time.Second)
	loadDur(&cfg.WriteTimeout, "ADFORGE_WRITE_TIMEOUT", 120*time.Second)
	cfg.GatewayURL = envStr("ADFORGE_GATEWAY_URL", "")
	cfg.GatewayKey = envStr("ADFORGE_GATEWAY_KEY", "")
	loadDur(&cfg.GatewayTimeout, "ADFORGE_GATEWAY_TIMEOUT", 90*time.Second)
	cfg.GoogleClientID = envStr("ADFORGE_GOOGLE_CLIENT_ID", "")
	cfg.JWTPrivateKeyPath = envStr("ADFORGE_JWT_PRIVATE_KEY", "")
	cfg.JWTPublicKeyPath = envStr("ADFORGE_JWT_PUBLIC_KEY", "")
	loadDur(&cfg.SessionTTL, "ADFORGE_SESSION_TTL", 24*time.Hour)
	cfg.OTELEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	loadBool(&cfg.OTELInsecure, "OTEL_EXPORTER_OTLP_INSECURE", false)
	cfg.ServiceName = envStr("OTEL_SERVICE_NAME", "adforge")
	loadBool(&cfg.RateLimitEnabled, "ADFORGE_RATE_LIMIT_ENABLED", true)
	loadFloat(&cfg.RateLimitRPS, "ADFORGE_RATE_LIMIT_RPS", 1)
	load(&cfg.RateLimitBurst, "ADFORGE_RATE_LIMIT_BURST", 5)
	load(&cfg.WorkerPort, "ADFORGE_WORKER_PORT", 8787)
	cfg.WorkerKeyHash = envStr("ADFORGE_WORKER_KEY_HASH", "")
	cfg.WorkerAllowedOrigin = envStr("ADFORGE_WORKER_ALLOWED_ORIGIN", "*")
	cfg.GeminiAPIKey = envStr("GEMINI_API_KEY", "")
	cfg.GeminiModel = envStr("GEMINI_MODEL", "gemini-1.5-flash")
	cfg.GeminiBaseURL = envStr("GEMINI_BASE_URL", "")
	loadDur(&cfg.WorkerTimeout, "ADFORGE_WORKER_TIMEOUT", 60*time.Second)
	cfg.LogLevel = envStr("ADFORGE_LOG_LEVEL", "info")

	var maxBody int
	load(&maxBody, "ADFORGE_MAX_REQUEST_BODY_BYTES", 1*1024*1024) // 1 MB default
	cfg.MaxRequestBodyBytes = int64(maxBody)

	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that configuration values are internally consistent.
// The gateway URL is deliberately not required here — its absence is a
// per-invocation error, not a startup failure.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: ADFORGE_PORT must be a valid TCP port, got %d", c.Port)
	}
	if c.WorkerPort <= 0 || c.WorkerPort > 65535 {
		return fmt.Errorf("config: ADFORGE_WORKER_PORT must be a valid TCP port, got %d", c.WorkerPort)
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: ADFORGE_MAX_REQUEST_BODY_BYTES must be positive")
	}
	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0) {
		return fmt.Errorf("config: rate limit RPS and burst must be positive when enabled")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: ADFORGE_SESSION_TTL must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
