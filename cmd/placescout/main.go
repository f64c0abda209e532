package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/use-agent/placescout/cmd/placescout/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	commands.ExecuteContext(ctx)
}
