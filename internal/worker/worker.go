// Package worker implements the generation worker: the server half of the
// Agent Invocation Gateway contract. It accepts a role, system instruction,
// and input parameters, forwards the assembled prompt to the Gemini API,
// and returns the reply with a best-effort structured JSON extraction.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/adforge-ai/adforge/internal/auth"
)

// Generator produces a text reply for a prompt. Implemented by
// GeminiClient; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
	Model() string
}

// Handler is the HTTP handler for POST /v1/generate.
type Handler struct {
	gen            Generator
	logger         *slog.Logger
	allowedOrigin  string
	keyHash        string // Argon2id hash of the shared worker key; empty disables auth.
	requestTimeout time.Duration
}

// Config holds Handler construction parameters.
type Config struct {
	Generator     Generator
	Logger        *slog.Logger
	AllowedOrigin string // CORS Access-Control-Allow-Origin; empty means "*".
	KeyHash       string // Optional Argon2id hash for X-Adforge-Key auth.
	Timeout       time.Duration
}

// NewHandler creates the worker HTTP handler.
func NewHandler(cfg Config) *Handler {
	origin := cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Handler{
		gen:            cfg.Generator,
		logger:         cfg.Logger,
		allowedOrigin:  origin,
		keyHash:        cfg.KeyHash,
		requestTimeout: timeout,
	}
}

// generateRequest is the wire request. Input and CampaignData stay raw:
// their shape is caller-defined and only ever re-serialized into the prompt.
type generateRequest struct {
	Role         string          `json:"role"`
	System       string          `json:"system"`
	Input        json.RawMessage `json:"input"`
	CampaignData json.RawMessage `json:"campaignData"`
}

type generateResponse struct {
	Reply      string          `json:"reply"`
	Structured json.RawMessage `json:"structured,omitempty"`
	Logs       []string        `json:"logs"`
}

type generateError struct {
	Error string   `json:"error"`
	Logs  []string `json:"logs,omitempty"`
}

// ServeHTTP handles CORS preflight and POST /v1/generate.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.setCORS(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
		// Fall through.
	default:
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	if h.keyHash != "" {
		ok, err := auth.VerifyKey(r.Header.Get("X-Adforge-Key"), h.keyHash)
		if err != nil || !ok {
			h.writeError(w, http.StatusUnauthorized, "invalid worker key", nil)
			return
		}
	}

	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	if req.Role == "" || len(req.Input) == 0 {
		h.writeError(w, http.StatusBadRequest, "Missing required fields: role and input", nil)
		return
	}

	prompt, temperature := buildPrompt(req)

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	start := time.Now()
	reply, err := h.gen.Generate(ctx, prompt, temperature)
	if err != nil {
		h.logger.Error("generation failed", "role", req.Role, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error(),
			[]string{"Role: " + req.Role, "Model: " + h.gen.Model()})
		return
	}

	structured := ExtractJSON(reply)
	h.logger.Info("generation complete",
		"role", req.Role,
		"model", h.gen.Model(),
		"reply_len", len(reply),
		"structured", structured != nil,
		"duration_ms", time.Since(start).Milliseconds())

	h.writeJSON(w, http.StatusOK, generateResponse{
		Reply:      reply,
		Structured: structured,
		Logs: []string{
			"Role: " + req.Role,
			"Model: " + h.gen.Model(),
			"Response length: " + strconv.Itoa(len(reply)) + " chars",
		},
	})
}

// buildPrompt assembles the full prompt: system text, campaign snapshot,
// then the caller's request.
func buildPrompt(req generateRequest) (string, float64) {
	system := req.System
	if system == "" {
		system = "You are a " + req.Role + " assistant."
	}

	campaign := "{}"
	if len(req.CampaignData) > 0 {
		campaign = string(req.CampaignData)
	}

	// If the input carries a temperature hint, honour it.
	var hint struct {
		Temperature float64 `json:"temperature"`
	}
	_ = json.Unmarshal(req.Input, &hint)

	prompt := system + "\n\nCampaign Data: " + campaign + "\n\nUser Request: " + string(req.Input)
	return prompt, hint.Temperature
}

func (h *Handler) setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", h.allowedOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Adforge-Key")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string, logs []string) {
	h.writeJSON(w, status, generateError{Error: msg, Logs: logs})
}
