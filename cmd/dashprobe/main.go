// File: cmd/dashprobe/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/dashprobe/cmd"
	"github.com/xkilldash9x/dashprobe/internal/observability"
)

// Allows mocking os.Exit in tests.
var osExit = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	stop()
	osExit(code)
}

func run(ctx context.Context) int {
	defer observability.Sync()
	return cmd.ExitCode(cmd.Execute(ctx))
}
