package adforge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the server (e.g. "http://localhost:8080").
	BaseURL string

	// Token is a session token obtained from POST /auth/google. Required for
	// all endpoints except Health and AuthGoogle.
	Token string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	// Agent runs can take considerably longer; size accordingly.
	Timeout time.Duration
}

// Client is an HTTP client for the campaign pipeline API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("adforge: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  httpClient,
	}, nil
}

// AuthGoogle exchanges a Google Identity Services credential for a session
// and stores the resulting token on the client for subsequent calls.
func (c *Client) AuthGoogle(ctx context.Context, credential string) (*Session, error) {
	body := map[string]string{"credential": credential}
	var resp Session
	if err := c.post(ctx, "/auth/google", body, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

// SetCampaign replaces the active campaign. All recorded agent outputs are
// cleared server-side. Returns the stored (normalized) campaign.
func (c *Client) SetCampaign(ctx context.Context, campaign Campaign) (*Campaign, error) {
	var resp Campaign
	if err := c.put(ctx, "/v1/campaign", campaign, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Campaign retrieves the active campaign.
func (c *Client) Campaign(ctx context.Context) (*Campaign, error) {
	var resp Campaign
	if err := c.get(ctx, "/v1/campaign", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Agents returns the status of every pipeline agent in pipeline order.
func (c *Client) Agents(ctx context.Context) ([]AgentStatus, error) {
	var resp []AgentStatus
	if err := c.get(ctx, "/v1/agents", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Agent returns the status of a single agent.
func (c *Client) Agent(ctx context.Context, agent string) (*AgentStatus, error) {
	var resp AgentStatus
	if err := c.get(ctx, "/v1/agents/"+agent, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Output returns the recorded output of a completed agent.
func (c *Client) Output(ctx context.Context, agent string) (*RunResult, error) {
	var resp RunResult
	if err := c.get(ctx, "/v1/agents/"+agent+"/output", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Run executes an agent with optional agent-specific parameters.
// Fails with an AGENT_NOT_READY error (see IsNotReady) while any
// prerequisite is incomplete.
func (c *Client) Run(ctx context.Context, agent string, params map[string]any) (*RunResult, error) {
	body := map[string]any{}
	if len(params) > 0 {
		body["params"] = params
	}
	var resp RunResult
	if err := c.post(ctx, "/v1/agents/"+agent+"/run", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks the server's health status. This endpoint does not require
// authentication and will work even if the client has no token.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

// apiEnvelope is the server's standard response wrapper.
type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// apiErrorEnvelope is the server's standard error response wrapper.
type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			Pending []string `json:"pending"`
		} `json:"details"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	return c.send(ctx, http.MethodPost, path, body, dest)
}

func (c *Client) put(ctx context.Context, path string, body any, dest any) error {
	return c.send(ctx, http.MethodPut, path, body, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	return c.send(ctx, http.MethodGet, path, nil, dest)
}

func (c *Client) send(ctx context.Context, method, path string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("adforge: marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("adforge: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("adforge: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("adforge: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return nil
	}

	// Unwrap the server's { "data": ... } envelope.
	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("adforge: decode response envelope: %w", err)
	}

	if envelope.Data == nil {
		// Fallback: some endpoints may not wrap in "data".
		return json.Unmarshal(bodyBytes, dest)
	}

	return json.Unmarshal(envelope.Data, dest)
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Pending = envelope.Error.Details.Pending
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}

	return apiErr
}
