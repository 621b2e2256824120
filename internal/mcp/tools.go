package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tempohq/tempo/internal/tools"
)

// convertTool renders a registry definition as an MCP tool. The
// parameter types mirror the registry's schema vocabulary.
func convertTool(def tools.Definition) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(def.Description)}

	for _, p := range def.Params {
		var propOpts []mcp.PropertyOption
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		if p.Description != "" {
			propOpts = append(propOpts, mcp.Description(p.Description))
		}
		if len(p.Enum) > 0 {
			propOpts = append(propOpts, mcp.Enum(p.Enum...))
		}

		switch p.Type {
		case "number", "integer":
			opts = append(opts, mcp.WithNumber(p.Name, propOpts...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(p.Name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, propOpts...))
		}
	}

	return mcp.NewTool(def.Name, opts...)
}
