package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/quorumtrade/quorumtrade/internal/cli"
	"github.com/quorumtrade/quorumtrade/internal/display"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		display.DisplayError(err)
		os.Exit(1)
	}
}
