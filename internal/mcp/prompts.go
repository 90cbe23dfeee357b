package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("merge_tables",
		mcp.WithPromptDescription("Guide through checking two tables and merging them with a profile"),
		mcp.WithArgument("primary",
			mcp.ArgumentDescription("Primary (one) table reference"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("secondary",
			mcp.ArgumentDescription("Secondary (many) table reference"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("destination",
			mcp.ArgumentDescription("Output table reference"),
			mcp.RequiredArgument(),
		),
	), s.handleMergePrompt)
}

func (s *Server) handleMergePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	primary := req.Params.Arguments["primary"]
	secondary := req.Params.Arguments["secondary"]
	destination := req.Params.Arguments["destination"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Merge %s into %s", secondary, primary),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Merge the secondary table "%s" into the primary table "%s" and write the result to "%s". Follow these steps:

1. Use preview_table on both inputs and note their headers
2. Use list_profiles and pick the profile whose keys exist in both headers (available: %s)
3. If the output columns differ from the profile's output schema, decide between extraColumns drop and append
4. Run merge_tables and report the stats and any warnings (no-match, unmatched-secondary)

Do not run merge_tables if a key column is missing from either table.`,
						secondary, primary, destination, strings.Join(s.profiles.Names(), ", ")),
				},
			},
		},
	}, nil
}
