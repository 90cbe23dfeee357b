package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tablemerge/internal/etl"
	"tablemerge/internal/log"
	"tablemerge/internal/profile"
	"tablemerge/internal/service"
)

// Server is the MCP server for tablemerge.
// It exposes merge tools, the profile catalog and a merge prompt so agents
// can run merges the same way the command line does.
type Server struct {
	mcp      *server.MCPServer
	profiles *profile.Catalog
	merge    *service.MergeService
	newJob   func(service.JobRequest) (*etl.MergeJob, error)
	preview  func(ctx context.Context, ref string, rows int) (*etl.Table, error)
}

// Deps holds the dependencies passed from the app layer.
type Deps struct {
	Profiles *profile.Catalog
	Merge    *service.MergeService
	NewJob   func(service.JobRequest) (*etl.MergeJob, error)
	Preview  func(ctx context.Context, ref string, rows int) (*etl.Table, error)
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	s := &Server{
		profiles: deps.Profiles,
		merge:    deps.Merge,
		newJob:   deps.NewJob,
		preview:  deps.Preview,
	}

	s.mcp = server.NewMCPServer(
		"tablemerge",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerMergeTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// ServeStdio serves on stdin/stdout until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult reports a failed merge to the agent as a tool error rather
// than a protocol error, so the message reaches the model.
func errorResult(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	log.G(ctx).WithField("tool", tool).WithError(err).Warn("tool failed")
	return mcp.NewToolResultError(err.Error())
}

func boolPtr(b bool) *bool { return &b }
