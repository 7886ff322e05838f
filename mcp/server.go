package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperengineering/mandrill"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server with template tools. The API key is resolved
// once at startup and used for every call.
type Server struct {
	client    *mandrill.Client
	apiKey    string
	mcpServer *server.MCPServer
}

// ToolResult represents the result of a tool call.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInfo represents a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

const (
	toolInspect = "mandrill_inspect"
	toolRender  = "mandrill_render"
	toolFix     = "mandrill_fix"
)

// NewServer creates a new MCP server with the template tools registered.
func NewServer(client *mandrill.Client, apiKey string) *Server {
	s := &Server{
		client: client,
		apiKey: apiKey,
	}

	s.mcpServer = server.NewMCPServer(
		"mandrill",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()

	return s
}

// Run serves MCP over stdin/stdout until stdin closes.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes a raw JSON-RPC message and returns a response.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: toolInspect, Description: "Fetch a template and return its stored code or plain-text part"},
		{Name: toolRender, Description: "Render a template with merge variables and return the HTML"},
		{Name: toolFix, Description: "Strip merge-tag boilerplate from a template and publish it"},
	}
}

// CallTool executes a tool by name with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	switch name {
	case toolInspect:
		return s.handleInspect(ctx, args)
	case toolRender:
		return s.handleRender(ctx, args)
	case toolFix:
		return s.handleFix(ctx, args)
	default:
		return &ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(toolInspect,
		mcp.WithDescription("Fetch a Mandrill template and return its code exactly as stored. Set text to return the plain-text part instead."),
		mcp.WithString("template",
			mcp.Description("Template name"),
			mcp.Required(),
		),
		mcp.WithBoolean("text",
			mcp.Description("Return the plain-text part instead of the code (default: false)"),
		),
	), s.wrap(s.handleInspect))

	s.mcpServer.AddTool(mcp.NewTool(toolRender,
		mcp.WithDescription("Render a Mandrill template through the API with handlebars merge variables and return the HTML."),
		mcp.WithString("template",
			mcp.Description("Template name"),
			mcp.Required(),
		),
		mcp.WithArray("vars",
			mcp.Description("Merge variables as name:content strings. Malformed entries are ignored."),
			mcp.WithStringItems(),
		),
	), s.wrap(s.handleRender))

	s.mcpServer.AddTool(mcp.NewTool(toolFix,
		mcp.WithDescription("Remove *|MC_...|* merge tags and the http:// prefix of {{link}} from a template, then publish it. Clean templates are not updated."),
		mcp.WithString("template",
			mcp.Description("Template name"),
			mcp.Required(),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Report the cleaned template without publishing (default: false)"),
		),
	), s.wrap(s.handleFix))
}

type toolHandler func(ctx context.Context, args map[string]any) (*ToolResult, error)

func (s *Server) wrap(h toolHandler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := h(ctx, req.GetArguments())
		if err != nil {
			return nil, err
		}
		return toMCPResult(result), nil
	}
}

func toMCPResult(r *ToolResult) *mcp.CallToolResult {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: r.Content,
			},
		},
	}
	if r.IsError {
		result.IsError = true
	}
	return result
}

// Internal handlers

func (s *Server) handleInspect(ctx context.Context, args map[string]any) (*ToolResult, error) {
	cmd, res := s.command(mandrill.OpInspect, args, nil)
	if res != nil {
		return res, nil
	}

	info, err := s.client.Inspect(ctx, cmd)
	if err != nil {
		return s.failure(err), nil
	}

	if wantText, _ := args["text"].(bool); wantText {
		if info.Text == nil {
			return &ToolResult{Content: fmt.Sprintf("%s has no text part", cmd.Target)}, nil
		}
		return &ToolResult{Content: *info.Text}, nil
	}
	return &ToolResult{Content: info.Code}, nil
}

func (s *Server) handleRender(ctx context.Context, args map[string]any) (*ToolResult, error) {
	vars := mandrill.ParseVariables(toStringSlice(args["vars"]))
	cmd, res := s.command(mandrill.OpRender, args, vars)
	if res != nil {
		return res, nil
	}

	rendered, err := s.client.Render(ctx, cmd)
	if err != nil {
		return s.failure(err), nil
	}
	return &ToolResult{Content: rendered.HTML}, nil
}

func (s *Server) handleFix(ctx context.Context, args map[string]any) (*ToolResult, error) {
	cmd, res := s.command(mandrill.OpFix, args, nil)
	if res != nil {
		return res, nil
	}

	fix := s.client.Fix
	if dryRun, _ := args["dry_run"].(bool); dryRun {
		fix = s.client.FixDryRun
	}
	result, err := fix(ctx, cmd)
	if err != nil {
		return s.failure(err), nil
	}
	return &ToolResult{Content: formatFixResult(result)}, nil
}

// command builds the Command for one tool call, or an error result.
func (s *Server) command(op mandrill.Operation, args map[string]any, vars []mandrill.VariableReplacement) (mandrill.Command, *ToolResult) {
	target, ok := args["template"].(string)
	if !ok || strings.TrimSpace(target) == "" {
		return mandrill.Command{}, &ToolResult{Content: "template is required", IsError: true}
	}

	cmd := mandrill.Command{Operation: op, APIKey: s.apiKey, Target: target, Vars: vars}
	if err := cmd.Validate(); err != nil {
		return mandrill.Command{}, s.failure(err)
	}
	return cmd, nil
}

func (s *Server) failure(err error) *ToolResult {
	msg := mandrill.Describe(err)
	if s.apiKey != "" {
		msg = strings.ReplaceAll(msg, s.apiKey, "[REDACTED]")
	}
	return &ToolResult{Content: msg, IsError: true}
}

// Formatting functions

func formatFixResult(r *mandrill.FixResult) string {
	switch r.State {
	case mandrill.FixDone:
		return fmt.Sprintf("updated %s (%s)", r.Target, describeDetection(r.Detection))
	case mandrill.FixPending:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("would update %s (%s)\n\nCode:\n%s\n", r.Target, describeDetection(r.Detection), r.Code))
		if r.Text != nil {
			sb.WriteString(fmt.Sprintf("\nText:\n%s\n", *r.Text))
		}
		return sb.String()
	default:
		return fmt.Sprintf("%s is clean; nothing to update", r.Target)
	}
}

func describeDetection(d mandrill.Detection) string {
	var found []string
	if d.MergeTag {
		found = append(found, "merge tags")
	}
	if d.TrackedLink {
		found = append(found, "http://{{link}}")
	}
	if len(found) == 0 {
		return "nothing matched"
	}
	return strings.Join(found, ", ")
}

// toStringSlice converts various array types to []string.
// Handles []any, []string, and nil.
func toStringSlice(v any) []string {
	if v == nil {
		return nil
	}

	switch arr := v.(type) {
	case []string:
		return arr
	case []any:
		result := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}
