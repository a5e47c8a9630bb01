package pipeline

import (
	"errors"
	"fmt"

	"github.com/adforge-ai/adforge/internal/model"
)

var (
	// ErrNoCampaign is returned when an operation requires an active
	// campaign and none has been set.
	ErrNoCampaign = errors.New("no active campaign")

	// ErrUnknownAgent is returned for an agent name outside the closed
	// enumeration.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrAgentNotReady is returned when a run is requested for an agent
	// whose prerequisites are not all complete. The run path gates on
	// readiness itself, so seeing this error means the caller bypassed
	// the status surface; state is never mutated on this path.
	ErrAgentNotReady = errors.New("agent not ready")
)

// NotReadyError wraps ErrAgentNotReady with the list of prerequisites that
// are still pending, so the caller can display what is missing.
type NotReadyError struct {
	Agent   model.AgentName
	Pending []model.AgentName
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("agent %s not ready: pending prerequisites %v", e.Agent, e.Pending)
}

func (e *NotReadyError) Unwrap() error { return ErrAgentNotReady }
