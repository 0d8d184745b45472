package serve

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zero-day-ai/sarcasm/dispatch"
	"github.com/zero-day-ai/sarcasm/tool"
)

// NewMCPServer exposes every tool of d as an MCP tool. String results are
// returned as text content; structured results as their JSON encoding.
func NewMCPServer(d *dispatch.Dispatcher, name, version string, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}

	s := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
	)

	for _, desc := range d.ListTools() {
		t, err := mcpTool(desc)
		if err != nil {
			logger.Error("skipping tool with unencodable schema", "tool", desc.Name, "error", err)
			continue
		}
		s.AddTool(t, callHandler(d, desc.Name))
	}

	return s
}

func mcpTool(desc tool.Descriptor) (mcp.Tool, error) {
	schema, err := json.Marshal(desc.InputSchema)
	if err != nil {
		return mcp.Tool{}, err
	}

	t := mcp.NewToolWithRawSchema(desc.Name, desc.Description, schema)
	if desc.Title != "" {
		t.Annotations.Title = desc.Title
	}
	return t, nil
}

func callHandler(d *dispatch.Dispatcher, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := convertArgs(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := d.RunTool(ctx, name, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var content string

		switch v := res.Content.(type) {
		case string:
			content = v
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			content = string(data)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(content),
			},
		}, nil
	}
}

// convertArgs normalizes MCP arguments into a JSON object map. Absent
// arguments become an empty map.
func convertArgs(val any) (map[string]any, error) {
	if val == nil {
		return map[string]any{}, nil
	}

	data, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}

	var args map[string]any
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
