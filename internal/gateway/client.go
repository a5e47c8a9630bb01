// Package gateway implements the client half of the Agent Invocation
// Gateway contract: a single JSON POST to the configured generation worker,
// returning a reply plus an optional structured payload and execution logs.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adforge-ai/adforge/internal/model"
)

// ErrNotConfigured is returned when no worker endpoint URL is configured.
// Detected before any network attempt; fatal to the call, not the process.
var ErrNotConfigured = errors.New("gateway: endpoint URL not configured")

// Input is the agent-specific portion of a gateway request: the prompt
// template reference, the caller-assembled parameters, and the outputs of
// every prerequisite agent.
type Input struct {
	PromptTemplateID string                                `json:"prompt_template_id"`
	Temperature      float64                               `json:"temperature"`
	Params           map[string]any                        `json:"params,omitempty"`
	ParentOutputs    map[model.AgentName]model.AgentOutput `json:"parent_outputs,omitempty"`
}

// Request is the wire request to the generation worker.
type Request struct {
	Role         model.AgentName `json:"role"`
	System       string          `json:"system"`
	Input        Input           `json:"input"`
	CampaignData model.Campaign  `json:"campaignData"`
}

// Response is the wire response from the generation worker. Structured is
// the worker's best-effort JSON extraction from the reply text and may be
// absent; callers must not assume it is present or well-formed.
type Response struct {
	Reply      string          `json:"reply"`
	Structured json.RawMessage `json:"structured,omitempty"`
	Logs       []string        `json:"logs,omitempty"`
}

// errorBody is the worker's failure envelope.
type errorBody struct {
	Error string   `json:"error"`
	Logs  []string `json:"logs,omitempty"`
}

// CallError is a failed gateway invocation: a non-2xx status, a worker-side
// error envelope, or a malformed body. Prior pipeline state is never
// mutated when a CallError is returned.
type CallError struct {
	StatusCode int
	Message    string
	Logs       []string
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway: call failed (status %d): %s", e.StatusCode, e.Message)
	}
	return "gateway: call failed: " + e.Message
}

// Client invokes the generation worker over HTTP.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a gateway client for the given worker endpoint.
// An empty endpoint is allowed at construction; Invoke reports
// ErrNotConfigured per call so the server can surface a clear error
// instead of failing at startup.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Invoke POSTs the request to the worker and decodes the response.
// Network failures, non-2xx statuses, and undecodable bodies all come back
// as errors; the caller decides how to surface them.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	if c.endpoint == "" {
		return nil, ErrNotConfigured
	}

	body := new(bytes.Buffer)
	if err := json.NewEncoder(body).Encode(req); err != nil {
		return nil, fmt.Errorf("gateway: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-Adforge-Key", c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("gateway: read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var eb errorBody
		if jerr := json.Unmarshal(raw, &eb); jerr == nil && eb.Error != "" {
			return nil, &CallError{StatusCode: httpResp.StatusCode, Message: eb.Error, Logs: eb.Logs}
		}
		return nil, &CallError{StatusCode: httpResp.StatusCode, Message: string(raw)}
	}

	// A 2xx body can still carry an error envelope; some worker failure
	// paths report with status 200.
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error != "" {
		return nil, &CallError{Message: eb.Error, Logs: eb.Logs}
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("gateway: decode response: %w", err)
	}
	return &resp, nil
}
