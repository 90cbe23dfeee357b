package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"tablemerge/internal/etl"
	"tablemerge/internal/service"
)

func (s *Server) registerMergeTools() {
	s.mcp.AddTool(mcp.NewTool("list_profiles",
		mcp.WithDescription("List the merge profiles (methods): join keys, overlay columns and output schema"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListProfiles)

	s.mcp.AddTool(mcp.NewTool("list_formats",
		mcp.WithDescription("List the supported source and destination types with their reference examples and options"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListFormats)

	s.mcp.AddTool(mcp.NewTool("preview_table",
		mcp.WithDescription("Read a table reference (file path, sqlite://, mysql://, postgres://, mongodb://) and return its header and first rows"),
		mcp.WithString("ref", mcp.Description("Table reference"), mcp.Required()),
		mcp.WithNumber("rows", mcp.Description("Maximum rows to return"), mcp.DefaultNumber(20), mcp.Min(1)),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handlePreviewTable)

	s.mcp.AddTool(mcp.NewTool("merge_tables",
		mcp.WithDescription("DESTRUCTIVE: Merge a secondary table into a primary table on the profile's join key and write the result to the destination, replacing it."),
		mcp.WithString("primary", mcp.Description("Primary (one) table reference"), mcp.Required()),
		mcp.WithString("secondary", mcp.Description("Secondary (many) table reference"), mcp.Required()),
		mcp.WithString("destination", mcp.Description("Output table reference"), mcp.Required()),
		mcp.WithString("profile", mcp.Description("Merge profile name (use list_profiles)")),
		mcp.WithString("extraColumns", mcp.Description("Columns outside the output schema"), mcp.Enum("error", "drop", "append")),
		mcp.WithString("mode", mcp.Description("Database destinations only"), mcp.Enum("replace", "append")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleMergeTables)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent merge runs, newest first"),
		mcp.WithString("jobKey", mcp.Description("Only runs of this job key")),
		mcp.WithNumber("limit", mcp.Description("Maximum runs"), mcp.DefaultNumber(20), mcp.Min(1)),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListRuns)
}

func (s *Server) handleListProfiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.profiles.List())
}

func (s *Server) handleListFormats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"sources":      etl.ListSources(),
		"destinations": etl.ListDestinations(),
	})
}

func (s *Server) handlePreviewTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := req.GetString("ref", "")
	if ref == "" {
		return errorResult(ctx, "preview_table", fmt.Errorf("ref is required")), nil
	}
	t, err := s.preview(ctx, ref, req.GetInt("rows", 20))
	if err != nil {
		return errorResult(ctx, "preview_table", err), nil
	}
	return jsonResult(map[string]any{
		"name":   t.Name,
		"header": t.Header,
		"rows":   t.Records,
	})
}

func (s *Server) handleMergeTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jr := service.JobRequest{
		Primary:      req.GetString("primary", ""),
		Secondary:    req.GetString("secondary", ""),
		Output:       req.GetString("destination", ""),
		Profile:      req.GetString("profile", ""),
		ExtraColumns: req.GetString("extraColumns", ""),
		Mode:         req.GetString("mode", ""),
	}
	if jr.Primary == "" || jr.Secondary == "" || jr.Output == "" {
		return errorResult(ctx, "merge_tables", fmt.Errorf("primary, secondary and destination are required")), nil
	}

	job, err := s.newJob(jr)
	if err != nil {
		return errorResult(ctx, "merge_tables", err), nil
	}
	result, err := s.merge.Run(ctx, job, service.TriggerMCP)
	if err != nil {
		return errorResult(ctx, "merge_tables", err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := s.merge.ListRuns(req.GetString("jobKey", ""), req.GetInt("limit", 20))
	if err != nil {
		return errorResult(ctx, "list_runs", err), nil
	}
	return jsonResult(runs)
}
