// Package mcp exposes the agent workflow over the Model Context Protocol,
// so external AI assistants can manage agents and review drafts.
package mcp

import (
	"context"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/selfai-labs/selfai/internal/domain/agent"
	"github.com/selfai-labs/selfai/internal/domain/draft"
)

// AgentManager is the registry surface the MCP tools need.
type AgentManager interface {
	AddAgent(ctx context.Context, req agent.CreateRequest) (*agent.Agent, error)
	RemoveAgent(ctx context.Context, id int64) error
	ListAgents() []agent.Agent
}

// PostWorkflow is the generation and review surface the MCP tools need.
type PostWorkflow interface {
	GeneratePost(ctx context.Context, agentID int64, contextHint string) (*draft.Draft, error)
	ApprovePost(ctx context.Context, draftID string) bool
	RejectPost(ctx context.Context, draftID string) bool
	PendingDrafts() []draft.Draft
}

// ServerConfig holds MCP server configuration.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
}

// ServerDeps holds the workflow surfaces exposed as MCP tools.
type ServerDeps struct {
	Agents AgentManager
	Posts  PostWorkflow
}

// Server hosts the MCP server over streamable HTTP.
type Server struct {
	cfg        ServerConfig
	deps       ServerDeps
	mcpServer  *mcpserver.MCPServer
	httpServer *mcpserver.StreamableHTTPServer
}

// NewServer creates the MCP server and registers all tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(
			cfg.Name,
			cfg.Version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(true, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server for handler-level tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start serves MCP over streamable HTTP in the background.
func (s *Server) Start() error {
	s.httpServer = mcpserver.NewStreamableHTTPServer(s.mcpServer)
	go func() {
		slog.Info("mcp server listening", "addr", s.cfg.Addr)
		if err := s.httpServer.Start(s.cfg.Addr); err != nil {
			slog.Error("mcp server stopped", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the MCP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// toolResultJSON wraps a JSON payload as a text tool result.
func toolResultJSON(data string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(data)
}
