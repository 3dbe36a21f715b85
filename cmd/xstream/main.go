package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"xstream-backend/cmd/xstream/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	commands.ExecuteContext(ctx)
}
