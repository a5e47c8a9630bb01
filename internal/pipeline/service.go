package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/adforge-ai/adforge/internal/gateway"
	"github.com/adforge-ai/adforge/internal/model"
)

// Invoker is the Agent Invocation Gateway seen from the pipeline: an opaque
// request/response call to the remote generation service. The concrete
// implementation is gateway.Client; tests substitute fakes.
type Invoker interface {
	Invoke(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

// EventType classifies pipeline lifecycle events.
type EventType string

const (
	EventCampaignReplaced EventType = "campaign_replaced"
	EventRunCompleted     EventType = "run_completed"
	EventRunFailed        EventType = "run_failed"
)

// Event is a pipeline lifecycle notification delivered to the event hook
// (the SSE broker in the server wiring).
type Event struct {
	Type       EventType       `json:"type"`
	Agent      model.AgentName `json:"agent,omitempty"`
	CampaignID string          `json:"campaign_id,omitempty"`
	Error      string          `json:"error,omitempty"`
	At         time.Time       `json:"at"`
}

// Status is the readiness/completion view of one agent.
type Status struct {
	Agent    model.AgentName
	Ready    bool
	Complete bool
	// Pending lists the direct prerequisites not yet complete.
	Pending []model.AgentName
	// StaleDownstream lists completed descendants whose output predates
	// this agent's current output. Informational only: re-running an
	// upstream agent does not invalidate downstream completions.
	StaleDownstream []model.AgentName
	Output          model.AgentOutput
}

// RunResult is the outcome of a successful agent run.
type RunResult struct {
	Agent  model.AgentName
	Output model.AgentOutput
	Reply  string
	Logs   []string
}

// Service is the orchestration surface over the session store, the
// dependency graph, and the invocation gateway. It is the only component
// allowed to mutate the (campaign, outputs) pair.
type Service struct {
	session *Session
	invoker Invoker
	prompts *gateway.PromptRegistry
	logger  *slog.Logger
	onEvent func(Event)

	runCounter otelmetric.Int64Counter
}

// NewService wires the orchestration surface. The dependency table is
// validated here so a malformed edit fails at construction, not mid-run.
// onEvent may be nil.
func NewService(session *Session, invoker Invoker, prompts *gateway.PromptRegistry, logger *slog.Logger, onEvent func(Event)) (*Service, error) {
	if err := ValidateGraph(); err != nil {
		return nil, err
	}
	meter := otel.GetMeterProvider().Meter("adforge/pipeline")
	runCounter, err := meter.Int64Counter("adforge.agent.runs",
		otelmetric.WithDescription("Agent run attempts by agent and result"))
	if err != nil {
		return nil, fmt.Errorf("pipeline: create run counter: %w", err)
	}
	return &Service{
		session:    session,
		invoker:    invoker,
		prompts:    prompts,
		logger:     logger,
		onEvent:    onEvent,
		runCounter: runCounter,
	}, nil
}

// SetCampaign validates and installs a new active campaign, clearing all
// recorded outputs as a side effect.
func (s *Service) SetCampaign(c model.Campaign) (model.Campaign, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return model.Campaign{}, err
	}
	s.session.SetCampaign(c)
	s.logger.Info("campaign replaced", "campaign_id", c.ID, "name", c.Name)
	s.emit(Event{Type: EventCampaignReplaced, CampaignID: c.ID.String(), At: time.Now().UTC()})
	return c, nil
}

// Campaign returns the active campaign, or false when none is set.
func (s *Service) Campaign() (model.Campaign, bool) {
	return s.session.Campaign()
}

// Output returns the recorded output for agent.
func (s *Service) Output(agent model.AgentName) (model.AgentOutput, bool) {
	return s.session.Output(agent)
}

// Pending returns the direct prerequisites of agent that have not recorded
// output. Empty for agents with no prerequisites.
func (s *Service) Pending(agent model.AgentName) []model.AgentName {
	var pending []model.AgentName
	for _, dep := range PrerequisitesOf(agent) {
		if !s.session.IsComplete(dep) {
			pending = append(pending, dep)
		}
	}
	return pending
}

// Ready reports whether agent can run now: a campaign exists and every
// direct prerequisite is complete. Readiness never recurses — a complete
// prerequisite was itself gated by this check when it ran, so topological
// order over the whole graph holds by induction.
func (s *Service) Ready(agent model.AgentName) bool {
	if _, ok := s.session.Campaign(); !ok {
		return false
	}
	return len(s.Pending(agent)) == 0
}

// StatusOf returns the full readiness/completion view for one agent.
func (s *Service) StatusOf(agent model.AgentName) Status {
	output, hasOutput := s.session.Output(agent)
	st := Status{
		Agent:    agent,
		Ready:    s.Ready(agent),
		Complete: hasOutput,
		Pending:  s.Pending(agent),
	}
	if hasOutput {
		st.Output = output
		st.StaleDownstream = s.staleDownstream(agent)
	}
	return st
}

// StatusAll returns the status of every agent in canonical pipeline order.
func (s *Service) StatusAll() []Status {
	agents := model.Agents()
	out := make([]Status, 0, len(agents))
	for _, a := range agents {
		out = append(out, s.StatusOf(a))
	}
	return out
}

// staleDownstream lists completed descendants of agent whose output was
// recorded before agent's current output.
func (s *Service) staleDownstream(agent model.AgentName) []model.AgentName {
	recordedAt, ok := s.session.RecordedAt(agent)
	if !ok {
		return nil
	}
	var stale []model.AgentName
	for _, d := range DownstreamOf(agent) {
		at, complete := s.session.RecordedAt(d)
		if complete && at.Before(recordedAt) {
			stale = append(stale, d)
		}
	}
	return stale
}

// Run executes one agent: asserts readiness, invokes the gateway with the
// campaign snapshot, the caller's parameters, and every prerequisite's
// output, and records the result on success. A failed invocation leaves all
// prior state untouched, so retry is always safe.
func (s *Service) Run(ctx context.Context, agent model.AgentName, params map[string]any) (*RunResult, error) {
	if !agent.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agent)
	}
	campaign, ok := s.session.Campaign()
	if !ok {
		return nil, ErrNoCampaign
	}
	if pending := s.Pending(agent); len(pending) > 0 {
		return nil, &NotReadyError{Agent: agent, Pending: pending}
	}

	prompt := s.prompts.For(agent)

	parentOutputs := make(map[model.AgentName]model.AgentOutput)
	for _, dep := range PrerequisitesOf(agent) {
		if out, ok := s.session.Output(dep); ok {
			parentOutputs[dep] = out
		}
	}

	req := gateway.Request{
		Role:   agent,
		System: prompt.System,
		Input: gateway.Input{
			PromptTemplateID: prompt.ID,
			Temperature:      prompt.Temperature,
			Params:           params,
			ParentOutputs:    parentOutputs,
		},
		CampaignData: campaign,
	}

	start := time.Now()
	resp, err := s.invoker.Invoke(ctx, req)
	if err != nil {
		s.recordRun(ctx, agent, "error")
		s.logger.Warn("agent run failed",
			"agent", agent, "campaign_id", campaign.ID,
			"duration_ms", time.Since(start).Milliseconds(), "error", err)
		s.emit(Event{
			Type: EventRunFailed, Agent: agent,
			CampaignID: campaign.ID.String(), Error: err.Error(), At: time.Now().UTC(),
		})
		return nil, err
	}

	// The worker's JSON extraction is best-effort: tolerate an absent
	// structured payload by falling back to the raw reply text.
	output := resp.Structured
	if len(output) == 0 {
		fallback, merr := json.Marshal(map[string]string{"reply": resp.Reply})
		if merr != nil {
			return nil, fmt.Errorf("pipeline: encode fallback output: %w", merr)
		}
		output = fallback
	}

	s.session.RecordOutput(agent, output)
	s.recordRun(ctx, agent, "ok")
	s.logger.Info("agent run complete",
		"agent", agent, "campaign_id", campaign.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"structured", len(resp.Structured) > 0)
	s.emit(Event{
		Type: EventRunCompleted, Agent: agent,
		CampaignID: campaign.ID.String(), At: time.Now().UTC(),
	})

	return &RunResult{Agent: agent, Output: output, Reply: resp.Reply, Logs: resp.Logs}, nil
}

func (s *Service) recordRun(ctx context.Context, agent model.AgentName, result string) {
	s.runCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("agent", string(agent)),
		attribute.String("result", result),
	))
}

func (s *Service) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
