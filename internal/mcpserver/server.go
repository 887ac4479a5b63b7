// server.go — MCP tool surface over one engine.
// Lets an AI assistant pull the render export, per-component reports,
// suggestions and slow components, and diff two prop bags on demand.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/brennhill/renderlens/internal/diff"
	"github.com/brennhill/renderlens/internal/engine"
)

// Server wraps an MCP server whose tools read from eng.
type Server struct {
	eng *engine.Engine
	mcp *server.MCPServer
}

// New registers every tool for eng.
func New(eng *engine.Engine, version string) *Server {
	s := &Server{
		eng: eng,
		mcp: server.NewMCPServer("renderlens", version, server.WithToolCapabilities(true)),
	}

	s.mcp.AddTool(mcp.NewTool("get_render_export",
		mcp.WithDescription("Returns the full render history, component hierarchy and per-component timing metrics"),
	), s.handleExport)

	s.mcp.AddTool(mcp.NewTool("get_component_report",
		mcp.WithDescription("Returns hierarchy position, metrics, render history and suggestions for one component"),
		mcp.WithString("component_id",
			mcp.Required(),
			mcp.Description("Stable id of the component instance")),
	), s.handleReport)

	s.mcp.AddTool(mcp.NewTool("get_suggestions",
		mcp.WithDescription("Explains why a component re-renders and how to avoid it, ranked by severity"),
		mcp.WithString("component_id",
			mcp.Required(),
			mcp.Description("Stable id of the component instance")),
	), s.handleSuggestions)

	s.mcp.AddTool(mcp.NewTool("get_slow_components",
		mcp.WithDescription("Lists components with renders over the slow threshold, slowest average first"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of components to return (default: 10)")),
	), s.handleSlow)

	s.mcp.AddTool(mcp.NewTool("diff_props",
		mcp.WithDescription("Compares two JSON prop objects and classifies each changed key"),
		mcp.WithString("prev",
			mcp.Required(),
			mcp.Description("Previous props as a JSON object")),
		mcp.WithString("next",
			mcp.Required(),
			mcp.Description("Next props as a JSON object")),
		mcp.WithString("strategy",
			mcp.Description("shallow, deep, fast-deep or custom (default: shallow)")),
	), s.handleDiff)

	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves MCP over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleExport(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.eng.Export())
}

func (s *Server) handleReport(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := requireString(request, "component_id")
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(s.eng.Report(id))
}

func (s *Server) handleSuggestions(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := requireString(request, "component_id")
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(map[string]any{
		"component_id": id,
		"suggestions":  s.eng.Suggestions(id),
	})
}

func (s *Server) handleSlow(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 10
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		if n, ok := args["limit"].(float64); ok && n >= 1 {
			limit = int(n)
		}
	}
	return jsonResult(map[string]any{
		"threshold_ms": s.eng.Monitor().Threshold(),
		"components":   s.eng.SlowComponents(limit),
	})
}

func (s *Server) handleDiff(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawPrev, errResult := requireString(request, "prev")
	if errResult != nil {
		return errResult, nil
	}
	rawNext, errResult := requireString(request, "next")
	if errResult != nil {
		return errResult, nil
	}

	var prev, next map[string]any
	if err := json.Unmarshal([]byte(rawPrev), &prev); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("prev is not a JSON object: %v", err)), nil
	}
	if err := json.Unmarshal([]byte(rawNext), &next); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("next is not a JSON object: %v", err)), nil
	}

	strategyName := ""
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		strategyName, _ = args["strategy"].(string)
	}
	strategy, err := diff.ParseStrategy(strategyName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(diff.Diff(prev, next, diff.Options{Strategy: strategy}))
}

func requireString(request mcp.CallToolRequest, key string) (string, *mcp.CallToolResult) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return "", mcp.NewToolResultError("Invalid arguments format")
	}
	v, _ := args[key].(string)
	if v == "" {
		return "", mcp.NewToolResultError(fmt.Sprintf("%s is required", key))
	}
	return v, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
