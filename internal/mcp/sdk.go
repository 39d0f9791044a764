package mcp

import (
	"context"
	"encoding/json"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer registers the tool catalog on a go-sdk server. Every call is
// routed through d, so stdio clients and the HTTP endpoint share one code path.
func NewServer(d *Dispatcher, name, version string) *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{Name: name, Version: version}, nil)
	for _, tool := range d.Tools() {
		toolName := tool.Name
		server.AddTool(&sdk.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
			var args json.RawMessage
			if req.Params != nil {
				args = req.Params.Arguments
			}
			return d.sdkResult(ctx, toolName, args), nil
		})
	}
	return server
}

// ServeStdio serves the server over stdin/stdout until ctx is canceled or the
// client disconnects.
func ServeStdio(ctx context.Context, server *sdk.Server) error {
	return server.Run(ctx, &sdk.StdioTransport{})
}

// sdkResult converts a dispatcher outcome to the go-sdk result type. Failures
// become tool errors carrying the message so the agent can react to them.
func (d *Dispatcher) sdkResult(ctx context.Context, name string, args json.RawMessage) *sdk.CallToolResult {
	result, err := d.CallTool(ctx, name, args)
	if err != nil {
		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
			IsError: true,
		}
	}
	out := &sdk.CallToolResult{IsError: result.IsError}
	for _, c := range result.Content {
		switch c.Type {
		case "text":
			out.Content = append(out.Content, &sdk.TextContent{Text: c.Text})
		case "resource":
			out.Content = append(out.Content, &sdk.EmbeddedResource{Resource: &sdk.ResourceContents{
				URI:      c.Resource.URI,
				MIMEType: c.Resource.MIMEType,
				Text:     c.Resource.Text,
			}})
		}
	}
	return out
}
