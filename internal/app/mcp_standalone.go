package app

import (
	"context"

	mcpserver "tablemerge/internal/mcp"
	"tablemerge/internal/log"
)

// ServeMCP runs the MCP server on stdin/stdout until ctx is cancelled or
// the client disconnects.
func (a *App) ServeMCP(ctx context.Context) error {
	srv := mcpserver.New(mcpserver.Deps{
		Profiles: a.profiles,
		Merge:    a.merge,
		NewJob:   a.NewJob,
		Preview:  a.Preview,
	})
	log.G(ctx).Info("starting MCP stdio server")
	return srv.ServeStdio(ctx)
}
