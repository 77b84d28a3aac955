package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/selfai-labs/selfai/internal/domain/agent"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.createAgentTool(),
		s.removeAgentTool(),
		s.listAgentsTool(),
		s.generatePostTool(),
		s.approvePostTool(),
		s.rejectPostTool(),
		s.listPendingTool(),
	)
}

func (s *Server) createAgentTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("create_agent",
		mcplib.WithDescription("Create a new AI companion agent"),
		mcplib.WithString("name",
			mcplib.Required(),
			mcplib.Description("Display name for the agent"),
		),
		mcplib.WithString("personality",
			mcplib.Description("Suggested tone: helpful, witty, analytical, bold, or creative"),
		),
		mcplib.WithString("expertise",
			mcplib.Description("Comma-separated expertise tags, e.g. \"DeFi, AI\""),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleCreateAgent}
}

func (s *Server) removeAgentTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("remove_agent",
		mcplib.WithDescription("Remove an agent and discard its pending drafts"),
		mcplib.WithString("agent_id",
			mcplib.Required(),
			mcplib.Description("The agent ID to remove"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleRemoveAgent}
}

func (s *Server) listAgentsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_agents",
		mcplib.WithDescription("List all agents with their lifetime post counts"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListAgents}
}

func (s *Server) generatePostTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("generate_post",
		mcplib.WithDescription("Generate post content for an agent and queue it for review"),
		mcplib.WithString("agent_id",
			mcplib.Required(),
			mcplib.Description("The agent to generate content for"),
		),
		mcplib.WithString("context",
			mcplib.Description("Optional generation prompt; defaults to the agent's expertise"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGeneratePost}
}

func (s *Server) approvePostTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("approve_post",
		mcplib.WithDescription("Approve a pending draft, crediting its agent"),
		mcplib.WithString("draft_id",
			mcplib.Required(),
			mcplib.Description("The draft ID to approve"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleApprovePost}
}

func (s *Server) rejectPostTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("reject_post",
		mcplib.WithDescription("Reject and discard a pending draft"),
		mcplib.WithString("draft_id",
			mcplib.Required(),
			mcplib.Description("The draft ID to reject"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleRejectPost}
}

func (s *Server) listPendingTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_pending_drafts",
		mcplib.WithDescription("List drafts awaiting review, oldest first"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListPending}
}

func (s *Server) handleCreateAgent(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return mcplib.NewToolResultError("agent manager not configured"), nil
	}
	args := req.GetArguments()
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcplib.NewToolResultError("name is required"), nil
	}
	personality, _ := args["personality"].(string)
	expertiseRaw, _ := args["expertise"].(string)

	create := agent.CreateRequest{
		Name:        name,
		Personality: agent.Personality(personality),
		Expertise:   splitTags(expertiseRaw),
	}
	a, err := s.deps.Agents.AddAgent(ctx, create)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to create agent", err), nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal agent", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleRemoveAgent(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return mcplib.NewToolResultError("agent manager not configured"), nil
	}
	id, result := agentIDArg(req)
	if result != nil {
		return result, nil
	}
	if err := s.deps.Agents.RemoveAgent(ctx, id); err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to remove agent %d", id), err,
		), nil
	}
	return toolResultJSON(fmt.Sprintf(`{"removed":%d}`, id)), nil
}

func (s *Server) handleListAgents(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return mcplib.NewToolResultError("agent manager not configured"), nil
	}
	data, err := json.Marshal(s.deps.Agents.ListAgents())
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal agents", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGeneratePost(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Posts == nil {
		return mcplib.NewToolResultError("post workflow not configured"), nil
	}
	id, result := agentIDArg(req)
	if result != nil {
		return result, nil
	}
	contextHint, _ := req.GetArguments()["context"].(string)

	d, err := s.deps.Posts.GeneratePost(ctx, id, contextHint)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("generation failed", err), nil
	}
	if d == nil {
		return mcplib.NewToolResultError(fmt.Sprintf("agent %d not found", id)), nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal draft", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleApprovePost(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Posts == nil {
		return mcplib.NewToolResultError("post workflow not configured"), nil
	}
	args := req.GetArguments()
	draftID, ok := args["draft_id"].(string)
	if !ok || draftID == "" {
		return mcplib.NewToolResultError("draft_id is required"), nil
	}
	if !s.deps.Posts.ApprovePost(ctx, draftID) {
		return mcplib.NewToolResultError(fmt.Sprintf("draft %s not found", draftID)), nil
	}
	return toolResultJSON(fmt.Sprintf(`{"draft_id":%q,"outcome":"approved"}`, draftID)), nil
}

func (s *Server) handleRejectPost(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Posts == nil {
		return mcplib.NewToolResultError("post workflow not configured"), nil
	}
	args := req.GetArguments()
	draftID, ok := args["draft_id"].(string)
	if !ok || draftID == "" {
		return mcplib.NewToolResultError("draft_id is required"), nil
	}
	if !s.deps.Posts.RejectPost(ctx, draftID) {
		return mcplib.NewToolResultError(fmt.Sprintf("draft %s not found", draftID)), nil
	}
	return toolResultJSON(fmt.Sprintf(`{"draft_id":%q,"outcome":"rejected"}`, draftID)), nil
}

func (s *Server) handleListPending(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Posts == nil {
		return mcplib.NewToolResultError("post workflow not configured"), nil
	}
	data, err := json.Marshal(s.deps.Posts.PendingDrafts())
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal drafts", err), nil
	}
	return toolResultJSON(string(data)), nil
}

// agentIDArg parses the agent_id argument, returning an error result on failure.
func agentIDArg(req mcplib.CallToolRequest) (int64, *mcplib.CallToolResult) { //nolint:gocritic // hugeParam: mcp-go handler signature
	raw, ok := req.GetArguments()["agent_id"].(string)
	if !ok || raw == "" {
		return 0, mcplib.NewToolResultError("agent_id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, mcplib.NewToolResultError("agent_id must be an integer")
	}
	return id, nil
}

// splitTags parses a comma-separated tag list.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	return agent.NormalizeExpertise(parts)
}
