package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/auccello/amanda-go/internal/config"
	"github.com/auccello/amanda-go/internal/logger"
	"github.com/auccello/amanda-go/pkg/tools"
)

// MCPClientInterface defines the methods the agent expects from an MCP
// client.
type MCPClientInterface interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// mcpTool adapts a tool discovered on an MCP server to the tools.Tool
// interface, so MCP tools and built-in tools share one registry.
type mcpTool struct {
	name        string
	description string
	schema      json.RawMessage
	client      MCPClientInterface
}

func (t *mcpTool) Name() string                { return t.name }
func (t *mcpTool) Description() string         { return t.description }
func (t *mcpTool) Parameters() json.RawMessage { return t.schema }

func (t *mcpTool) Run(ctx context.Context, args string) (string, error) {
	var toolArgs map[string]any
	if err := json.Unmarshal([]byte(args), &toolArgs); err != nil {
		return "", fmt.Errorf("mcp tool %s: bad arguments: %w", t.name, err)
	}
	result, err := t.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: t.name, Arguments: toolArgs},
	})
	if err != nil {
		return "", fmt.Errorf("mcp tool %s: %w", t.name, err)
	}
	text := firstText(result.Content)
	if result.IsError {
		if text == "" {
			text = "tool execution resulted in an error without specific text"
		}
		return "", fmt.Errorf("mcp tool %s: %s", t.name, text)
	}
	if text == "" {
		raw, merr := json.Marshal(result)
		if merr != nil {
			return "", fmt.Errorf("mcp tool %s: format result: %w", t.name, merr)
		}
		text = string(raw)
	}
	return text, nil
}

func firstText(content []mcp.Content) string {
	for _, item := range content {
		if tc, ok := item.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// RegisterMCPServers connects to each configured MCP server and registers
// its tools in the registry. Servers that fail to connect are skipped with
// a log line; they never block startup. The returned clients should be
// closed on shutdown.
func RegisterMCPServers(ctx context.Context, servers []config.MCPServerConfig, registry *tools.ToolManager) []MCPClientInterface {
	clients := make([]MCPClientInterface, 0, len(servers))
	for _, serverCfg := range servers {
		mcpC, err := newMCPClient(serverCfg)
		if err != nil {
			logger.L.Error("failed to create MCP client", "name", serverCfg.Name, "error", err)
			continue
		}

		if serverCfg.Type != config.ClientTypeStdio {
			if err := mcpC.Start(ctx); err != nil {
				logger.L.Error("failed to start MCP client transport", "name", serverCfg.Name, "error", err)
				closeQuietly(mcpC, serverCfg.Name)
				continue
			}
		}
		if _, err := mcpC.Initialize(ctx, mcp.InitializeRequest{
			Params: mcp.InitializeParams{Capabilities: mcp.ClientCapabilities{}},
		}); err != nil {
			logger.L.Error("failed to initialize MCP client", "name", serverCfg.Name, "error", err)
			closeQuietly(mcpC, serverCfg.Name)
			continue
		}
		logger.L.Info("MCP server initialized", "name", serverCfg.Name)
		clients = append(clients, mcpC)

		serverTools, err := mcpC.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			logger.L.Warn("failed to list tools for MCP client", "name", serverCfg.Name, "error", err)
			continue
		}
		for _, st := range serverTools.Tools {
			registry.RegisterTool(&mcpTool{
				name:        st.Name,
				description: st.Description,
				schema:      toolSchema(st),
				client:      mcpC,
			})
			logger.L.Info("registered tool from MCP server", "tool", st.Name, "name", serverCfg.Name)
		}
	}
	return clients
}

func newMCPClient(serverCfg config.MCPServerConfig) (*client.Client, error) {
	switch serverCfg.Type {
	case config.ClientTypeSSE:
		var opts []transport.ClientOption
		if len(serverCfg.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(serverCfg.Headers))
		}
		return client.NewSSEMCPClient(serverCfg.URL, opts...)
	case config.ClientTypeStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(serverCfg.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(serverCfg.Headers))
		}
		return client.NewStreamableHttpClient(serverCfg.URL, opts...)
	case config.ClientTypeStdio:
		var env []string
		for k, v := range serverCfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		return client.NewStdioMCPClient(serverCfg.Command, env, serverCfg.Args...)
	default:
		return nil, fmt.Errorf("unsupported MCP server type %q (want sse, streamable_http or stdio)", serverCfg.Type)
	}
}

func toolSchema(t mcp.Tool) json.RawMessage {
	if len(t.RawInputSchema) > 0 && string(t.RawInputSchema) != "null" {
		return t.RawInputSchema
	}
	raw, err := json.Marshal(t.InputSchema)
	if err != nil || string(raw) == "{}" || string(raw) == "null" {
		return tools.EmptySchema
	}
	return raw
}

func closeQuietly(c MCPClientInterface, name string) {
	if err := c.Close(); err != nil {
		logger.L.Warn("MCP client close error", "name", name, "error", err)
	}
}
