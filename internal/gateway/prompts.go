package gateway

import (
	"github.com/adforge-ai/adforge/internal/model"
)

// Prompt is one versioned prompt template: the role-specific system
// instruction text and the sampling temperature for that stage.
type Prompt struct {
	ID          string
	System      string
	Temperature float64
}

// PromptRegistry maps each agent to its current prompt template.
type PromptRegistry struct {
	prompts map[model.AgentName]Prompt
}

// defaultSystem is used for any agent without a registered template.
const defaultSystem = "You are a marketing campaign assistant. Output JSON only."

// builtinPrompts is the v1 template set. Prompt text quality is not a goal
// of this layer; templates exist so every run carries a stable, versioned
// instruction identity the worker can log.
var builtinPrompts = map[model.AgentName]Prompt{
	model.AgentMarketingStrategist: {
		ID:          "marketing_strategist_v1",
		System:      "You are a Marketing Strategist focused on acquisition and ROI. Produce audiences, hypotheses, and a budget split. Output JSON only.",
		Temperature: 0.3,
	},
	model.AgentCreativeStrategist: {
		ID:          "creative_strategist_v1",
		System:      "You are a senior creative strategist. Produce creative briefs with hooks, tone, and format recommendations. Output MUST be JSON only and conform to the schema.",
		Temperature: 0.4,
	},
	model.AgentVideoDirector: {
		ID:          "video_director_v1",
		System:      "You are a video director for short-form performance ads. Produce scene-by-scene scripts with timing, on-screen text, and production specs. Output JSON only.",
		Temperature: 0.5,
	},
	model.AgentDesigner: {
		ID:          "designer_v1",
		System:      "You are a performance ad designer. Produce design specs, thumbnail concepts, and asset requirements per placement. Output JSON only.",
		Temperature: 0.4,
	},
	model.AgentPromptGenerator: {
		ID:          "prompt_generator_v1",
		System:      "You generate image and video generation prompts for ad creative production. Output JSON only.",
		Temperature: 0.6,
	},
	model.AgentCopywriter: {
		ID:          "copywriter_v1",
		System:      "You are a direct-response copywriter. Produce short-form and long-form ad copy, landing page copy, and email subjects. Output JSON only.",
		Temperature: 0.5,
	},
	model.AgentMediaBuyer: {
		ID:          "media_buyer_v1",
		System:      "You are a media buyer. Produce a test matrix with budgets, target metrics, early-stop rules, and scaling thresholds. Output JSON only.",
		Temperature: 0.2,
	},
	model.AgentDataOps: {
		ID:          "data_ops_v1",
		System:      "You are a marketing data engineer. Produce pixel event plans, UTM templates, and dashboard configuration. Output JSON only.",
		Temperature: 0.2,
	},
	model.AgentCompliance: {
		ID:          "compliance_v1",
		System:      "You are an ad compliance reviewer. Flag claims that need substantiation, list required disclaimers, and note per-channel restrictions. Output JSON only.",
		Temperature: 0.1,
	},
	model.AgentCompetitorAnalysis: {
		ID:          "competitor_analysis_v1",
		System:      "You are a competitive intelligence analyst for paid acquisition. Summarize competitor ads, market gaps, and the bid landscape. Output JSON only.",
		Temperature: 0.3,
	},
	model.AgentCampaignScheduler: {
		ID:          "campaign_scheduler_v1",
		System:      "You are a campaign launch coordinator. Produce a launch schedule reconciling the media plan, tracking setup, and compliance edits. Output JSON only.",
		Temperature: 0.2,
	},
}

// NewPromptRegistry returns the built-in v1 template set.
func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{prompts: builtinPrompts}
}

// For returns the prompt template for agent, falling back to a generic
// template for agents without one.
func (r *PromptRegistry) For(agent model.AgentName) Prompt {
	if p, ok := r.prompts[agent]; ok {
		return p
	}
	return Prompt{ID: string(agent) + "_generic_v1", System: defaultSystem, Temperature: 0.7}
}
