package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adforge-ai/adforge/internal/model"
)

func TestValidateGraph(t *testing.T) {
	require.NoError(t, ValidateGraph())
}

func TestGraphCoversEveryAgent(t *testing.T) {
	for _, agent := range model.Agents() {
		_, ok := prerequisites[agent]
		assert.True(t, ok, "agent %s missing from dependency table", agent)
	}
	assert.Len(t, prerequisites, len(model.Agents()))
}

func TestPrerequisitesOf(t *testing.T) {
	tests := []struct {
		agent model.AgentName
		want  []model.AgentName
	}{
		{model.AgentMarketingStrategist, []model.AgentName{}},
		{model.AgentPromptGenerator, []model.AgentName{}},
		{model.AgentCompetitorAnalysis, []model.AgentName{}},
		{model.AgentCreativeStrategist, []model.AgentName{model.AgentMarketingStrategist}},
		{model.AgentDesigner, []model.AgentName{model.AgentCreativeStrategist, model.AgentVideoDirector}},
		{model.AgentCampaignScheduler, []model.AgentName{model.AgentMediaBuyer, model.AgentDataOps, model.AgentCompliance}},
	}
	for _, tt := range tests {
		t.Run(string(tt.agent), func(t *testing.T) {
			assert.Equal(t, tt.want, PrerequisitesOf(tt.agent))
		})
	}
}

func TestPrerequisitesOfReturnsCopy(t *testing.T) {
	deps := PrerequisitesOf(model.AgentDesigner)
	require.NotEmpty(t, deps)
	deps[0] = "mutated"
	assert.Equal(t, model.AgentCreativeStrategist, PrerequisitesOf(model.AgentDesigner)[0])
}

func TestPrerequisitesOfUnknownAgent(t *testing.T) {
	assert.Empty(t, PrerequisitesOf("landing_page"))
}

func TestDownstreamOf(t *testing.T) {
	// marketing_strategist feeds everything except the three root agents.
	got := DownstreamOf(model.AgentMarketingStrategist)
	want := []model.AgentName{
		model.AgentCreativeStrategist,
		model.AgentVideoDirector,
		model.AgentDesigner,
		model.AgentCopywriter,
		model.AgentMediaBuyer,
		model.AgentDataOps,
		model.AgentCompliance,
		model.AgentCampaignScheduler,
	}
	assert.Equal(t, want, got)

	// Leaf agents have no dependents.
	assert.Empty(t, DownstreamOf(model.AgentCampaignScheduler))
	assert.Empty(t, DownstreamOf(model.AgentPromptGenerator))
	assert.Empty(t, DownstreamOf(model.AgentCompetitorAnalysis))
}

func TestDownstreamOfTransitive(t *testing.T) {
	// compliance depends on designer only through the creative chain;
	// video_director reaches it via designer.
	got := DownstreamOf(model.AgentVideoDirector)
	assert.Contains(t, got, model.AgentDesigner)
	assert.Contains(t, got, model.AgentCompliance)
	assert.NotContains(t, got, model.AgentMediaBuyer)
}
