// Package mcp implements the Model Context Protocol server for the
// campaign pipeline.
//
// The MCP server exposes the same capabilities as the HTTP API through
// MCP resources and tools, allowing MCP-compatible AI agents to drive
// the campaign pipeline.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/adforge-ai/adforge/internal/model"
	"github.com/adforge-ai/adforge/internal/pipeline"
)

// Server wraps the MCP server around the pipeline service.
type Server struct {
	mcpServer *mcpserver.MCPServer
	pipeline  *pipeline.Service
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(svc *pipeline.Service, version string, logger *slog.Logger) *Server {
	s := &Server{
		pipeline: svc,
		logger:   logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"adforge",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerResources() {
	// adforge://pipeline/status — readiness and completion of every agent.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"adforge://pipeline/status",
			"Pipeline Status",
			mcplib.WithResourceDescription("Readiness and completion state of every pipeline agent"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handlePipelineStatus,
	)
}

func (s *Server) registerTools() {
	// adforge_campaign — install or inspect the active campaign.
	s.mcpServer.AddTool(
		mcplib.NewTool("adforge_campaign",
			mcplib.WithDescription("Set the active campaign from a JSON document, or read the current one. Setting a campaign clears all recorded agent outputs."),
			mcplib.WithString("campaign", mcplib.Description("Campaign JSON. Omit to read the current campaign.")),
		),
		s.handleCampaign,
	)

	// adforge_status — readiness/completion of one agent or all agents.
	s.mcpServer.AddTool(
		mcplib.NewTool("adforge_status",
			mcplib.WithDescription("Report readiness and completion for one agent, or the whole pipeline if no agent is given"),
			mcplib.WithString("agent", mcplib.Description("Agent name, e.g. media_buyer")),
		),
		s.handleStatus,
	)

	// adforge_run — execute one agent.
	s.mcpServer.AddTool(
		mcplib.NewTool("adforge_run",
			mcplib.WithDescription("Run a pipeline agent. Fails if the agent's prerequisites have not completed."),
			mcplib.WithString("agent", mcplib.Description("Agent name"), mcplib.Required()),
			mcplib.WithString("params", mcplib.Description("Agent-specific parameters as a JSON object")),
		),
		s.handleRun,
	)

	// adforge_output — fetch a recorded output.
	s.mcpServer.AddTool(
		mcplib.NewTool("adforge_output",
			mcplib.WithDescription("Fetch the recorded output of a completed agent"),
			mcplib.WithString("agent", mcplib.Description("Agent name"), mcplib.Required()),
		),
		s.handleOutput,
	)
}

func (s *Server) handlePipelineStatus(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(s.statusReport(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal pipeline status: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "adforge://pipeline/status",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleCampaign(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	raw := request.GetString("campaign", "")

	if raw == "" {
		c, ok := s.pipeline.Campaign()
		if !ok {
			return errorResult("no campaign set"), nil
		}
		return jsonResult(c)
	}

	var c model.Campaign
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return errorResult(fmt.Sprintf("invalid campaign JSON: %v", err)), nil
	}
	stored, err := s.pipeline.SetCampaign(c)
	if err != nil {
		return errorResult(fmt.Sprintf("campaign rejected: %v", err)), nil
	}

	s.logger.Info("mcp: campaign set", "campaign_id", stored.ID, "name", stored.Name)
	return jsonResult(map[string]any{
		"status":   "set",
		"campaign": stored,
	})
}

func (s *Server) handleStatus(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("agent", "")
	if name == "" {
		return jsonResult(s.statusReport())
	}

	agent, err := model.ParseAgentName(name)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(statusView(s.pipeline.StatusOf(agent)))
}

func (s *Server) handleRun(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("agent", "")
	if name == "" {
		return errorResult("agent is required"), nil
	}
	agent, err := model.ParseAgentName(name)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	var params map[string]any
	if raw := request.GetString("params", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return errorResult(fmt.Sprintf("invalid params JSON: %v", err)), nil
		}
	}

	result, err := s.pipeline.Run(ctx, agent, params)
	if err != nil {
		return errorResult(fmt.Sprintf("run failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"agent":  result.Agent,
		"output": json.RawMessage(result.Output),
		"reply":  result.Reply,
		"logs":   result.Logs,
	})
}

func (s *Server) handleOutput(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("agent", "")
	if name == "" {
		return errorResult("agent is required"), nil
	}
	agent, err := model.ParseAgentName(name)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	output, ok := s.pipeline.Output(agent)
	if !ok {
		return errorResult("no output recorded for agent: " + name), nil
	}
	return jsonResult(map[string]any{
		"agent":  agent,
		"output": json.RawMessage(output),
	})
}

// agentStatus is the wire shape for one agent's status.
type agentStatus struct {
	Agent           model.AgentName   `json:"agent"`
	Ready           bool              `json:"ready"`
	Complete        bool              `json:"complete"`
	Pending         []model.AgentName `json:"pending"`
	StaleDownstream []model.AgentName `json:"stale_downstream,omitempty"`
}

func statusView(st pipeline.Status) agentStatus {
	return agentStatus{
		Agent:           st.Agent,
		Ready:           st.Ready,
		Complete:        st.Complete,
		Pending:         st.Pending,
		StaleDownstream: st.StaleDownstream,
	}
}

func (s *Server) statusReport() map[string]any {
	statuses := s.pipeline.StatusAll()
	views := make([]agentStatus, 0, len(statuses))
	for _, st := range statuses {
		views = append(views, statusView(st))
	}
	_, hasCampaign := s.pipeline.Campaign()
	return map[string]any{
		"campaign_set": hasCampaign,
		"agents":       views,
	}
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
