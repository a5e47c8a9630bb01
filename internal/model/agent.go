package model

import (
	"encoding/json"
	"fmt"
)

// AgentName identifies one stage of the campaign pipeline. The set is closed:
// adding a stage means adding a constant here and an edge in the pipeline
// dependency table, both compile-time checked by the pipeline tests.
type AgentName string

const (
	AgentMarketingStrategist AgentName = "marketing_strategist"
	AgentCreativeStrategist  AgentName = "creative_strategist"
	AgentVideoDirector       AgentName = "video_director"
	AgentDesigner            AgentName = "designer"
	AgentPromptGenerator     AgentName = "prompt_generator"
	AgentCopywriter          AgentName = "copywriter"
	AgentMediaBuyer          AgentName = "media_buyer"
	AgentDataOps             AgentName = "data_ops"
	AgentCompliance          AgentName = "compliance"
	AgentCompetitorAnalysis  AgentName = "competitor_analysis"
	AgentCampaignScheduler   AgentName = "campaign_scheduler"
)

// agentOrder is the canonical pipeline listing order, matching the order
// stages appear in the product UI.
var agentOrder = []AgentName{
	AgentMarketingStrategist,
	AgentCreativeStrategist,
	AgentVideoDirector,
	AgentDesigner,
	AgentPromptGenerator,
	AgentCopywriter,
	AgentMediaBuyer,
	AgentDataOps,
	AgentCompliance,
	AgentCompetitorAnalysis,
	AgentCampaignScheduler,
}

// Agents returns every known agent in canonical pipeline order.
// The returned slice is a copy.
func Agents() []AgentName {
	out := make([]AgentName, len(agentOrder))
	copy(out, agentOrder)
	return out
}

// Valid reports whether a is a known agent.
func (a AgentName) Valid() bool {
	for _, known := range agentOrder {
		if a == known {
			return true
		}
	}
	return false
}

// ParseAgentName converts a wire string into an AgentName, rejecting
// anything outside the closed enumeration.
func ParseAgentName(s string) (AgentName, error) {
	a := AgentName(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown agent %q", s)
	}
	return a, nil
}

// AgentOutput is the structured payload produced by one agent run. The shape
// is agent-defined and opaque to the pipeline; only presence matters for
// readiness. Overwritten wholesale on re-run, never merged.
type AgentOutput = json.RawMessage
