// Package mcp exposes the synchronous tool catalog over the Model Context
// Protocol so desktop assistants can call Greenroom tools directly. Async
// research tools stay API-only; MCP callers have no way to poll a job.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"greenroom/internal/auth"
	"greenroom/internal/db/repositories"
	"greenroom/internal/logging"
	"greenroom/internal/services"
	"greenroom/internal/tools"
	"greenroom/internal/version"
)

type Server struct {
	registry  *tools.Registry
	executor  *services.ExecutorService
	repos     *repositories.Repositories
	logger    *logging.Logger
	mcpServer *server.MCPServer
}

func New(registry *tools.Registry, executor *services.ExecutorService, repos *repositories.Repositories, logger *logging.Logger) *Server {
	return &Server{
		registry: registry,
		executor: executor,
		repos:    repos,
		logger:   logger,
	}
}

// ServeStdio registers the sync tools and serves MCP over stdin/stdout
// until the client disconnects. Requests run as the local identity.
func (s *Server) ServeStdio() error {
	localUser, err := auth.EnsureLocalUser(s.repos)
	if err != nil {
		return fmt.Errorf("failed to provision local user: %w", err)
	}

	s.mcpServer = server.NewMCPServer(
		"Greenroom",
		version.GetVersion(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	registered := 0
	for _, tool := range s.registry.List() {
		if tool.Async {
			continue
		}
		s.addTool(tool, localUser.ID)
		registered++
	}
	s.logger.Debug("MCP server exposing %d synchronous tools", registered)

	return server.ServeStdio(s.mcpServer)
}

func (s *Server) addTool(tool *tools.Tool, userID int64) {
	mcpTool := mcp.NewToolWithRawSchema(tool.Name, tool.Description, tool.InputSchema)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := json.Marshal(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
		}

		result, err := s.executor.Execute(ctx, tool.Name, userID, input)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !result.Success {
			return mcp.NewToolResultError(result.Error), nil
		}

		return mcp.NewToolResultText(string(result.Data)), nil
	}

	s.mcpServer.AddTool(mcpTool, handler)
}
