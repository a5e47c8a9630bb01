package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adforge-ai/adforge/internal/gateway"
	"github.com/adforge-ai/adforge/internal/model"
	"github.com/adforge-ai/adforge/internal/testutil"
)

// fakeInvoker returns canned responses keyed by agent, recording every
// request it sees.
type fakeInvoker struct {
	responses map[model.AgentName]*gateway.Response
	err       error
	requests  []gateway.Request
}

func (f *fakeInvoker) Invoke(_ context.Context, req gateway.Request) (*gateway.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if resp, ok := f.responses[req.Role]; ok {
		return resp, nil
	}
	return &gateway.Response{
		Reply:      "ok",
		Structured: json.RawMessage(`{"agent":"` + string(req.Role) + `"}`),
	}, nil
}

func testCampaign() model.Campaign {
	cpa := 25.0
	return model.Campaign{
		ID:   uuid.New(),
		Name: "Summer Launch",
		Product: model.Product{
			Name:  "Trail Shoe X",
			Price: 99.0,
		},
		Goals:  model.Goals{PrimaryKPI: model.KPICPA, TargetCPA: &cpa},
		Geo:    []string{"US", "CA"},
		Budget: model.Budget{Daily: 100, Total: 3000},
		Status: model.CampaignDraft,
	}
}

func newTestService(t *testing.T, invoker Invoker, onEvent func(Event)) *Service {
	t.Helper()
	svc, err := NewService(NewSession(), invoker, gateway.NewPromptRegistry(), testutil.TestLogger(), onEvent)
	require.NoError(t, err)
	return svc
}

func TestRunRequiresCampaign(t *testing.T) {
	svc := newTestService(t, &fakeInvoker{}, nil)
	_, err := svc.Run(context.Background(), model.AgentMarketingStrategist, nil)
	assert.ErrorIs(t, err, ErrNoCampaign)
}

func TestRunUnknownAgent(t *testing.T) {
	svc := newTestService(t, &fakeInvoker{}, nil)
	_, err := svc.Run(context.Background(), "landing_page", nil)
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestRunNotReady(t *testing.T) {
	svc := newTestService(t, &fakeInvoker{}, nil)
	_, err := svc.SetCampaign(testCampaign())
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), model.AgentCampaignScheduler, nil)
	var notReady *NotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.ErrorIs(t, err, ErrAgentNotReady)
	assert.Equal(t, model.AgentCampaignScheduler, notReady.Agent)
	assert.Equal(t, []model.AgentName{
		model.AgentMediaBuyer, model.AgentDataOps, model.AgentCompliance,
	}, notReady.Pending)
}

func TestRunRootAgentImmediatelyReady(t *testing.T) {
	inv := &fakeInvoker{}
	svc := newTestService(t, inv, nil)
	_, err := svc.SetCampaign(testCampaign())
	require.NoError(t, err)

	for _, root := range []model.AgentName{
		model.AgentMarketingStrategist, model.AgentPromptGenerator, model.AgentCompetitorAnalysis,
	} {
		assert.True(t, svc.Ready(root), "root agent %s should be ready", root)
		result, err := svc.Run(context.Background(), root, nil)
		require.NoError(t, err)
		assert.Equal(t, root, result.Agent)
		assert.NotEmpty(t, result.Output)
	}
}

func TestReadinessUnlocksInDependencyOrder(t *testing.T) {
	svc := newTestService(t, &fakeInvoker{}, nil)
	_, err := svc.SetCampaign(testCampaign())
	require.NoError(t, err)

	assert.False(t, svc.Ready(model.AgentCreativeStrategist))

	_, err = svc.Run(context.Background(), model.AgentMarketingStrategist, nil)
	require.NoError(t, err)
	assert.True(t, svc.Ready(model.AgentCreativeStrategist))

	// designer needs both creative_strategist and video_director.
	_, err = svc.Run(context.Background(), model.AgentCreativeStrategist, nil)
	require.NoError(t, err)
	assert.False(t, svc.Ready(model.AgentDesigner))
	assert.Equal(t, []model.AgentName{model.AgentVideoDirector}, svc.Pending(model.AgentDesigner))

	_, err = svc.Run(context.Background(), model.AgentVideoDirector, nil)
	require.NoError(t, err)
	assert.True(t, svc.Ready(model.AgentDesigner))
}

func TestRunPassesCampaignParamsAndParentOutputs(t *testing.T) {
	inv := &fakeInvoker{responses: map[model.AgentName]*gateway.Response{
		model.AgentMarketingStrategist: {
			Reply:      "done",
			Structured: json.RawMessage(`{"audiences":["hikers"]}`),
		},
	}}
	svc := newTestService(t, inv, nil)
	campaign, err := svc.SetCampaign(testCampaign())
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), model.AgentMarketingStrategist, nil)
	require.NoError(t, err)

	params := map[string]any{"tone": "energetic"}
	_, err = svc.Run(context.Background(), model.AgentCreativeStrategist, params)
	require.NoError(t, err)

	require.Len(t, inv.requests, 2)
	req := inv.requests[1]
	assert.Equal(t, model.AgentCreativeStrategist, req.Role)
	assert.Equal(t, campaign.ID, req.CampaignData.ID)
	assert.Equal(t, params, req.Input.Params)
	assert.Equal(t, "creative_strategist_v1", req.Input.PromptTemplateID)
	assert.NotEmpty(t, req.System)
	require.Contains(t, req.Input.ParentOutputs, model.AgentMarketingStrategist)
	assert.JSONEq(t, `{"audiences":["hikers"]}`, string(req.Input.ParentOutputs[model.AgentMarketingStrategist]))
}

func TestRunFailureLeavesStateUntouched(t *testing.T) {
	inv := &fakeInvoker{err: &gateway.CallError{StatusCode: 500, Message: "worker exploded"}}
	svc := newTestService(t, inv, nil)
	_, err := svc.SetCampaign(testCampaign())
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), model.AgentMarketingStrategist, nil)
	var callErr *gateway.CallError
	require.ErrorAs(t, err, &callErr)

	st := svc.StatusOf(model.AgentMarketingStrategist)
	assert.False(t, st.Complete)
	assert.True(t, st.Ready, "failed run must not consume readiness")
	_, ok := svc.Output(model.AgentMarketingStrategist)
	assert.False(t, ok)
}

func TestRunFallsBackToReplyWhenNoStructuredPayload(t *testing.T) {
	inv := &fakeInvoker{responses: map[model.AgentName]*gateway.Response{
		model.AgentPromptGenerator: {Reply: "plain text only"},
	}}
	svc := newTestService(t, inv, nil)
	_, err := svc.SetCampaign(testCampaign())
	require.NoError(t, err)

	result, err := svc.Run(context.Background(), model.AgentPromptGenerator, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"reply":"plain text only"}`, string(result.Output))

	stored, ok := svc.Output(model.AgentPromptGenerator)
	require.True(t, ok)
	assert.JSONEq(t, `{"reply":"plain text only"}`, string(stored))
}

func TestSetCampaignClearsOutputs(t *testing.T) {
	svc := newTestService(t, &fakeInvoker{}, nil)
	_, err := svc.SetCampaign(testCampaign())
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), model.AgentMarketingStrategist, nil)
	require.NoError(t, err)
	require.True(t, svc.StatusOf(model.AgentMarketingStrategist).Complete)

	_, err = svc.SetCampaign(testCampaign())
	require.NoError(t, err)

	for _, st := range svc.StatusAll() {
		assert.False(t, st.Complete, "agent %s should be reset", st.Agent)
	}
	assert.False(t, svc.Ready(model.AgentCreativeStrategist))
}

func TestSetCampaignRejectsInvalid(t *testing.T) {
	svc := newTestService(t, &fakeInvoker{}, nil)
	bad := testCampaign()
	bad.Geo = nil
	_, err := svc.SetCampaign(bad)
	assert.Error(t, err)

	_, ok := svc.Campaign()
	assert.False(t, ok, "invalid campaign must not be installed")
}

func TestRerunOverwritesOutputAndMarksDownstreamStale(t *testing.T) {
	inv := &fakeInvoker{}
	svc := newTestService(t, inv, nil)
	_, err := svc.SetCampaign(testCampaign())
	require.NoError(t, err)

	ctx := context.Background()
	for _, agent := range []model.AgentName{
		model.AgentMarketingStrategist, model.AgentCreativeStrategist, model.AgentCopywriter,
	} {
		_, err = svc.Run(ctx, agent, nil)
		require.NoError(t, err)
	}

	// Re-running upstream does not invalidate downstream completions,
	// but flags them as stale.
	inv.responses = map[model.AgentName]*gateway.Response{
		model.AgentMarketingStrategist: {Reply: "v2", Structured: json.RawMessage(`{"rev":2}`)},
	}
	_, err = svc.Run(ctx, model.AgentMarketingStrategist, nil)
	require.NoError(t, err)

	assert.True(t, svc.StatusOf(model.AgentCreativeStrategist).Complete)
	assert.True(t, svc.StatusOf(model.AgentCopywriter).Complete)

	st := svc.StatusOf(model.AgentMarketingStrategist)
	assert.JSONEq(t, `{"rev":2}`, string(st.Output))
	assert.Contains(t, st.StaleDownstream, model.AgentCreativeStrategist)
	assert.Contains(t, st.StaleDownstream, model.AgentCopywriter)
	assert.NotContains(t, st.StaleDownstream, model.AgentMediaBuyer)
}

func TestStatusAllCanonicalOrder(t *testing.T) {
	svc := newTestService(t, &fakeInvoker{}, nil)
	statuses := svc.StatusAll()
	require.Len(t, statuses, len(model.Agents()))
	for i, agent := range model.Agents() {
		assert.Equal(t, agent, statuses[i].Agent)
	}
	// No campaign: nothing is ready, not even root agents.
	for _, st := range statuses {
		assert.False(t, st.Ready)
	}
}

func TestEventsEmitted(t *testing.T) {
	var events []Event
	inv := &fakeInvoker{}
	svc := newTestService(t, inv, func(ev Event) { events = append(events, ev) })

	campaign, err := svc.SetCampaign(testCampaign())
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), model.AgentMarketingStrategist, nil)
	require.NoError(t, err)

	inv.err = errors.New("network down")
	_, err = svc.Run(context.Background(), model.AgentPromptGenerator, nil)
	require.Error(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, EventCampaignReplaced, events[0].Type)
	assert.Equal(t, campaign.ID.String(), events[0].CampaignID)
	assert.Equal(t, EventRunCompleted, events[1].Type)
	assert.Equal(t, model.AgentMarketingStrategist, events[1].Agent)
	assert.Equal(t, EventRunFailed, events[2].Type)
	assert.Equal(t, "network down", events[2].Error)
}
