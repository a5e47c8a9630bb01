package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/adforge-ai/adforge/internal/auth"
	"github.com/adforge-ai/adforge/internal/gateway"
	"github.com/adforge-ai/adforge/internal/model"
	"github.com/adforge-ai/adforge/internal/pipeline"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	pipeline            *pipeline.Service
	jwtMgr              *auth.JWTManager
	googleClientID      string
	broker              *Broker
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	openAPISpec         []byte
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): Broker.
type HandlersDeps struct {
	Pipeline            *pipeline.Service
	JWTMgr              *auth.JWTManager
	GoogleClientID      string
	Broker              *Broker
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
	OpenAPISpec         []byte
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		pipeline:            d.Pipeline,
		jwtMgr:              d.JWTMgr,
		googleClientID:      d.GoogleClientID,
		broker:              d.Broker,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		openAPISpec:         d.OpenAPISpec,
	}
}

// HandleAuthGoogle handles POST /auth/google.
// Exchanges a Google Identity Services credential for a session token.
func (h *Handlers) HandleAuthGoogle(w http.ResponseWriter, r *http.Request) {
	var req model.AuthGoogleRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.Credential == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "credential is required")
		return
	}

	user, err := auth.ParseGoogleCredential(req.Credential, h.googleClientID)
	if err != nil {
		h.logger.Warn("google credential rejected", "error", err,
			"request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credential")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueSession(user)
	if err != nil {
		h.writeInternalError(w, r, "failed to issue session token", err)
		return
	}

	h.logger.Info("session issued", "subject", user.Sub, "email", user.Email)
	writeJSON(w, r, http.StatusOK, model.AuthGoogleResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Email:     user.Email,
		Name:      user.Name,
	})
}

// HandlePutCampaign handles PUT /v1/campaign.
// Replacing the campaign clears every recorded agent output.
func (h *Handlers) HandlePutCampaign(w http.ResponseWriter, r *http.Request) {
	var c model.Campaign
	if err := decodeJSON(w, r, &c, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	stored, err := h.pipeline.SetCampaign(c)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, stored)
}

// HandleGetCampaign handles GET /v1/campaign.
func (h *Handlers) HandleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, ok := h.pipeline.Campaign()
	if !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "no campaign set")
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

// HandleListAgents handles GET /v1/agents.
// Returns the status of every agent in canonical pipeline order.
func (h *Handlers) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	statuses := h.pipeline.StatusAll()
	views := make([]model.AgentStatusView, 0, len(statuses))
	for _, st := range statuses {
		views = append(views, statusView(st))
	}
	writeJSON(w, r, http.StatusOK, views)
}

// HandleGetAgent handles GET /v1/agents/{agent}.
func (h *Handlers) HandleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, ok := h.parseAgent(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, statusView(h.pipeline.StatusOf(agent)))
}

// HandleGetAgentOutput handles GET /v1/agents/{agent}/output.
func (h *Handlers) HandleGetAgentOutput(w http.ResponseWriter, r *http.Request) {
	agent, ok := h.parseAgent(w, r)
	if !ok {
		return
	}
	output, ok := h.pipeline.Output(agent)
	if !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound,
			"no output recorded for agent: "+string(agent))
		return
	}
	writeJSON(w, r, http.StatusOK, model.RunAgentResponse{Agent: agent, Output: output})
}

// HandleRunAgent handles POST /v1/agents/{agent}/run.
func (h *Handlers) HandleRunAgent(w http.ResponseWriter, r *http.Request) {
	agent, ok := h.parseAgent(w, r)
	if !ok {
		return
	}

	var req model.RunAgentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	result, err := h.pipeline.Run(r.Context(), agent, req.Params)
	if err != nil {
		h.writeRunError(w, r, agent, err)
		return
	}

	writeJSON(w, r, http.StatusOK, model.RunAgentResponse{
		Agent:  result.Agent,
		Output: result.Output,
		Reply:  result.Reply,
		Logs:   result.Logs,
	})
}

// writeRunError maps pipeline and gateway failures onto the API contract.
func (h *Handlers) writeRunError(w http.ResponseWriter, r *http.Request, agent model.AgentName, err error) {
	var notReady *pipeline.NotReadyError
	var callErr *gateway.CallError

	switch {
	case errors.Is(err, pipeline.ErrNoCampaign):
		writeError(w, r, http.StatusConflict, model.ErrCodeInvalidInput,
			"no campaign set; submit a campaign before running agents")
	case errors.As(err, &notReady):
		writeErrorDetails(w, r, http.StatusConflict, model.ErrCodeNotReady,
			err.Error(), map[string]any{"pending": notReady.Pending})
	case errors.Is(err, gateway.ErrNotConfigured):
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeNotConfigured,
			"generation gateway URL is not configured")
	case errors.As(err, &callErr):
		writeErrorDetails(w, r, http.StatusBadGateway, model.ErrCodeGatewayError,
			callErr.Message, map[string]any{"logs": callErr.Logs})
	default:
		h.writeInternalError(w, r, "agent run failed: "+string(agent), err)
	}
}

// HandleSubscribe handles GET /v1/subscribe (SSE).
func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError,
			"event stream not available")
		return
	}

	// ResponseController reaches the underlying writer through the
	// middleware wrappers' Unwrap methods.
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Warn("sse: streaming not supported", "error", err,
			"request_id", RequestIDFromContext(r.Context()))
		return
	}

	// Disable the server's WriteTimeout for this long-lived connection.
	// Without this, idle SSE connections are killed after WriteTimeout.
	_ = rc.SetWriteDeadline(time.Time{})

	ch := h.broker.Subscribe()
	defer h.broker.Unsubscribe(ch)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
				return
			}
			_ = rc.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(event); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, model.HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	})
}

// HandleOpenAPISpec handles GET /openapi.yaml.
func (h *Handlers) HandleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if len(h.openAPISpec) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(h.openAPISpec)
}

// --- Shared helpers ---

func (h *Handlers) parseAgent(w http.ResponseWriter, r *http.Request) (model.AgentName, bool) {
	agent, err := model.ParseAgentName(r.PathValue("agent"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, err.Error())
		return "", false
	}
	return agent, true
}

func statusView(st pipeline.Status) model.AgentStatusView {
	return model.AgentStatusView{
		Agent:           st.Agent,
		Ready:           st.Ready,
		Complete:        st.Complete,
		Pending:         st.Pending,
		StaleDownstream: st.StaleDownstream,
		HasOutput:       st.Complete,
	}
}

func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, msg)
}
