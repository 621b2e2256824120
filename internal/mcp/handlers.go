package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tempohq/tempo/internal/tools"
)

// handlerFor routes an MCP tool call through the registry. The registry
// already folds every failure into the result envelope, so the handler
// only translates envelopes into MCP results.
func (s *Server) handlerFor(name string) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := s.registry.Execute(ctx, name, request.GetArguments())

		if !res.Success {
			msg := res.Error
			if res.RequiresConfirmation {
				msg += ". This action needs interactive confirmation; ask for it in the tempo chat instead."
			}
			return mcp.NewToolResultError(msg), nil
		}

		return mcp.NewToolResultText(formatResult(res)), nil
	}
}

// formatResult renders a successful result for agent consumption: the
// human summary first, then the structured data as JSON.
func formatResult(res *tools.Result) string {
	var sb strings.Builder
	if res.UserMessage != "" {
		sb.WriteString(res.UserMessage)
	}
	if res.Data != nil {
		data, err := json.MarshalIndent(res.Data, "", "  ")
		if err == nil {
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.Write(data)
		}
	}
	if sb.Len() == 0 {
		sb.WriteString("Done.")
	}
	return sb.String()
}
