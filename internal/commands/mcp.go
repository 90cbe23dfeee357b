package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"tablemerge/internal/app"
)

// MCPCommand serves the MCP tools on stdin/stdout.
func MCPCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "run as an MCP server on stdin/stdout",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withApp(ctx, cmd, func(ctx context.Context, a *app.App) error {
				return a.ServeMCP(ctx)
			})
		},
	}
}
