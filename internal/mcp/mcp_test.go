package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adforge-ai/adforge/internal/gateway"
	"github.com/adforge-ai/adforge/internal/model"
	"github.com/adforge-ai/adforge/internal/pipeline"
	"github.com/adforge-ai/adforge/internal/testutil"
)

type fakeInvoker struct{}

func (fakeInvoker) Invoke(_ context.Context, req gateway.Request) (*gateway.Response, error) {
	return &gateway.Response{
		Reply:      "done",
		Structured: json.RawMessage(`{"agent":"` + string(req.Role) + `"}`),
	}, nil
}

func newTestMCP(t *testing.T) *Server {
	t.Helper()
	svc, err := pipeline.NewService(pipeline.NewSession(), fakeInvoker{}, gateway.NewPromptRegistry(), testutil.TestLogger(), nil)
	require.NoError(t, err)
	return New(svc, "test", testutil.TestLogger())
}

func toolRequest(args map[string]any) mcplib.CallToolRequest {
	var req mcplib.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcplib.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcplib.TextContent)
	require.True(t, ok)
	return text.Text
}

const campaignJSON = `{
	"name": "Summer Launch",
	"product": {"name": "Trail Shoe X", "price": 99},
	"goals": {"primary_kpi": "CPA", "target_cpa": 25},
	"geo": ["US"],
	"budget": {"daily": 100, "total": 3000},
	"status": "draft"
}`

func TestMCPServerConstructed(t *testing.T) {
	s := newTestMCP(t)
	assert.NotNil(t, s.MCPServer())
}

func TestCampaignToolReadWithoutCampaign(t *testing.T) {
	s := newTestMCP(t)
	res, err := s.handleCampaign(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "no campaign set")
}

func TestCampaignToolSetThenRead(t *testing.T) {
	s := newTestMCP(t)

	res, err := s.handleCampaign(context.Background(), toolRequest(map[string]any{"campaign": campaignJSON}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	assert.Contains(t, resultText(t, res), `"status": "set"`)

	res, err = s.handleCampaign(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Summer Launch")
}

func TestCampaignToolRejectsInvalid(t *testing.T) {
	s := newTestMCP(t)

	res, err := s.handleCampaign(context.Background(), toolRequest(map[string]any{"campaign": "{not json"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleCampaign(context.Background(), toolRequest(map[string]any{"campaign": `{"name":""}`}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "campaign rejected")
}

func TestStatusTool(t *testing.T) {
	s := newTestMCP(t)

	// Whole pipeline.
	res, err := s.handleStatus(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, `"campaign_set": false`)
	assert.Contains(t, text, string(model.AgentCampaignScheduler))

	// Single agent.
	res, err = s.handleStatus(context.Background(), toolRequest(map[string]any{"agent": "designer"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"ready": false`)

	// Unknown agent.
	res, err = s.handleStatus(context.Background(), toolRequest(map[string]any{"agent": "landing_page"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestRunTool(t *testing.T) {
	s := newTestMCP(t)

	res, err := s.handleCampaign(context.Background(), toolRequest(map[string]any{"campaign": campaignJSON}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	res, err = s.handleRun(context.Background(), toolRequest(map[string]any{
		"agent":  "marketing_strategist",
		"params": `{"focus":"ROI"}`,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	assert.Contains(t, resultText(t, res), `"agent": "marketing_strategist"`)

	// Gated agent reports its pending prerequisites.
	res, err = s.handleRun(context.Background(), toolRequest(map[string]any{"agent": "campaign_scheduler"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "media_buyer")
}

func TestRunToolValidation(t *testing.T) {
	s := newTestMCP(t)

	res, err := s.handleRun(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleRun(context.Background(), toolRequest(map[string]any{"agent": "copywriter", "params": "{bad"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "invalid params JSON")
}

func TestOutputTool(t *testing.T) {
	s := newTestMCP(t)

	res, err := s.handleOutput(context.Background(), toolRequest(map[string]any{"agent": "copywriter"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleCampaign(context.Background(), toolRequest(map[string]any{"campaign": campaignJSON}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	res, err = s.handleRun(context.Background(), toolRequest(map[string]any{"agent": "prompt_generator"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	res, err = s.handleOutput(context.Background(), toolRequest(map[string]any{"agent": "prompt_generator"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"agent": "prompt_generator"`)
}

func TestPipelineStatusResource(t *testing.T) {
	s := newTestMCP(t)

	contents, err := s.handlePipelineStatus(context.Background(), mcplib.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcplib.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "adforge://pipeline/status", text.URI)
	assert.Contains(t, text.Text, `"campaign_set": false`)
}
