package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tablemerge/internal/commands"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if err := commands.New(version).Run(ctx, os.Args); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "tablemerge: %v\n", err)
		os.Exit(1)
	}
	cancel()
}
