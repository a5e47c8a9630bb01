package model

import (
	"time"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeNotReady      = "AGENT_NOT_READY"
	ErrCodeNotConfigured = "GATEWAY_NOT_CONFIGURED"
	ErrCodeGatewayError  = "GATEWAY_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// AuthGoogleRequest is the request body for POST /auth/google.
// Credential is the ID token produced by Google Identity Services in the
// browser sign-in flow.
type AuthGoogleRequest struct {
	Credential string `json:"credential"`
}

// AuthGoogleResponse is the response body for POST /auth/google.
type AuthGoogleResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
}

// RunAgentRequest is the request body for POST /v1/agents/{agent}/run.
// Params are agent-specific free-form parameters assembled by the caller;
// the server adds the campaign snapshot and upstream outputs itself.
type RunAgentRequest struct {
	Params map[string]any `json:"params,omitempty"`
}

// AgentStatusView is the per-agent readiness/completion view returned by
// the status endpoints.
type AgentStatusView struct {
	Agent           AgentName   `json:"agent"`
	Ready           bool        `json:"ready"`
	Complete        bool        `json:"complete"`
	Pending         []AgentName `json:"pending"`
	StaleDownstream []AgentName `json:"stale_downstream,omitempty"`
	HasOutput       bool        `json:"has_output"`
}

// RunAgentResponse is the response body for a successful agent run.
type RunAgentResponse struct {
	Agent  AgentName   `json:"agent"`
	Output AgentOutput `json:"output"`
	Reply  string      `json:"reply,omitempty"`
	Logs   []string    `json:"logs,omitempty"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
