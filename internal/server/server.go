// Package server is the tool adapter layer: it declares one MCP tool per
// Notion operation and maps each invocation onto one client method. Failures
// never escape a tool boundary; they become error envelopes.
package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"notion-mcp/internal/config"
	"notion-mcp/internal/notion"
	"notion-mcp/internal/version"
)

// API is the client surface the tool handlers call. *notion.Client
// implements it; tests substitute a stub.
type API interface {
	Search(ctx context.Context, params notion.SearchParams) (*notion.ListResponse, error)
	GetDatabase(ctx context.Context, databaseID string) (json.RawMessage, error)
	QueryDatabase(ctx context.Context, databaseID string, params notion.QueryDatabaseParams) (*notion.ListResponse, error)
	CreateDatabase(ctx context.Context, params notion.CreateDatabaseParams) (json.RawMessage, error)
	CreatePage(ctx context.Context, params notion.CreatePageParams) (json.RawMessage, error)
	GetPage(ctx context.Context, pageID string) (json.RawMessage, error)
	UpdatePage(ctx context.Context, pageID string, params notion.UpdatePageParams) (json.RawMessage, error)
	GetBlock(ctx context.Context, blockID string) (json.RawMessage, error)
	GetBlockChildren(ctx context.Context, blockID string, startCursor string, pageSize int) (*notion.ListResponse, error)
	AppendBlockChildren(ctx context.Context, blockID string, children json.RawMessage) (json.RawMessage, error)
	DeleteBlock(ctx context.Context, blockID string) (json.RawMessage, error)
	ListUsers(ctx context.Context, startCursor string, pageSize int) (*notion.ListResponse, error)
	GetUser(ctx context.Context, userID string) (json.RawMessage, error)
}

// Server adapts the Notion client into MCP tools.
type Server struct {
	api      API
	logger   *zap.Logger
	maxBytes int
}

// New constructs a Server.
func New(api API, logger *zap.Logger, cfg config.Config) *Server {
	return &Server{api: api, logger: logger, maxBytes: cfg.ResultMaxBytes}
}

// MCPServer assembles an MCP server with every tool registered.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	m := mcpserver.NewMCPServer("notion-mcp", version.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	for _, def := range s.toolDefs() {
		m.AddTool(def.tool, s.instrument(def.tool.Name, def.handler))
	}
	return m
}

func (s *Server) instrument(name string, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		s.logger.Debug("tool call started", zap.String("tool", name))
		res, err := handler(ctx, req)
		s.logger.Debug("tool call finished",
			zap.String("tool", name),
			zap.Duration("duration", time.Since(start)),
			zap.Bool("is_error", res != nil && res.IsError))
		return res, err
	}
}
