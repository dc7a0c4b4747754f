// Package mcpserver exposes the answer pipeline as a Model Context Protocol tool over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"errors"

	"github.com/hyperjump/nyaya/internal/answer"
	"github.com/hyperjump/nyaya/internal/cli"
	"github.com/hyperjump/nyaya/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ToolAsk is the name of the question answering tool.
const ToolAsk = "ask_legal_question"

// Asker answers one legal question.
type Asker interface {
	Ask(ctx context.Context, query string) (*answer.Result, error)
}

// New builds an MCP server with the ask tool registered.
func New(asker Asker, version string, logger *zap.Logger) *server.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := server.NewMCPServer("nyaya", version, server.WithToolCapabilities(true))
	s.AddTool(askTool(), handleAsk(asker, logger))
	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func askTool() mcp.Tool {
	return mcp.NewTool(ToolAsk,
		mcp.WithDescription("Answer a question about Indian criminal law (IPC/BNS) with citations to the statute sections used. "+
			"Refuses when no provision in the corpus supports an answer."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The legal question, e.g. \"What is the punishment for theft?\" or \"Section 303 BNS\""),
		),
		mcp.WithString("format",
			mcp.Description("Result format: markdown (default) or json"),
			mcp.Enum("markdown", "json"),
		),
	)
}

func handleAsk(asker Asker, logger *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return mcp.NewToolResultError("Error: query parameter is required"), nil
		}
		format := cli.OutputMarkdown
		if request.GetString("format", "markdown") == "json" {
			format = cli.OutputJSON
		}

		res, err := asker.Ask(ctx, query)
		if err != nil {
			if errors.Is(err, models.ErrEmptyQuery) {
				return mcp.NewToolResultError("Error: query parameter is required"), nil
			}
			logger.Error("mcp ask failed", zap.Error(err))
			return mcp.NewToolResultError("Error: the question could not be answered right now"), nil
		}

		var buf bytes.Buffer
		if err := cli.WriteAnswer(&buf, &res.Response, format); err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(buf.String()), nil
	}
}
