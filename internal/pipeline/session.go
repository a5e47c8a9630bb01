package pipeline

import (
	"sync"
	"time"

	"github.com/adforge-ai/adforge/internal/model"
)

// Session owns the single active campaign and the per-agent output map for
// one user session. All mutation goes through the Service; nothing outside
// this package touches the maps directly.
//
// HTTP handlers run concurrently, so the store guards itself with a
// RWMutex. Concurrent re-runs of the same agent resolve last-writer-wins,
// which is safe because outputs are wholesale overwrites.
type Session struct {
	mu         sync.RWMutex
	campaign   *model.Campaign
	outputs    map[model.AgentName]model.AgentOutput
	recordedAt map[model.AgentName]time.Time
}

// NewSession returns an empty session: no campaign, no outputs.
func NewSession() *Session {
	return &Session{
		outputs:    make(map[model.AgentName]model.AgentOutput),
		recordedAt: make(map[model.AgentName]time.Time),
	}
}

// SetCampaign replaces the active campaign and clears every agent output.
// Outputs are meaningless against a new campaign; the invariant that no
// output outlives its campaign is enforced here, not by callers.
func (s *Session) SetCampaign(c model.Campaign) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaign = &c
	s.outputs = make(map[model.AgentName]model.AgentOutput)
	s.recordedAt = make(map[model.AgentName]time.Time)
}

// Campaign returns a copy of the active campaign, or false when none is set.
func (s *Session) Campaign() (model.Campaign, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.campaign == nil {
		return model.Campaign{}, false
	}
	return *s.campaign, true
}

// RecordOutput stores the output for agent, overwriting any previous one.
// Recording marks the agent complete.
func (s *Session) RecordOutput(agent model.AgentName, payload model.AgentOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[agent] = payload
	s.recordedAt[agent] = time.Now().UTC()
}

// Output returns the recorded output for agent. Absence is a normal state,
// not an error.
func (s *Session) Output(agent model.AgentName) (model.AgentOutput, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, ok := s.outputs[agent]
	return out, ok
}

// IsComplete reports whether agent has recorded output for the current
// campaign.
func (s *Session) IsComplete(agent model.AgentName) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.outputs[agent]
	return ok
}

// RecordedAt returns when agent's current output was recorded.
func (s *Session) RecordedAt(agent model.AgentName) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.recordedAt[agent]
	return t, ok
}

// Outputs returns a snapshot of every recorded output keyed by agent.
func (s *Session) Outputs() map[model.AgentName]model.AgentOutput {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[model.AgentName]model.AgentOutput, len(s.outputs))
	for k, v := range s.outputs {
		snap[k] = v
	}
	return snap
}
