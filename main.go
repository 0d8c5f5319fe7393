// ./main.go
package main

import (
	"context"
	"os"

	"github.com/xkilldash9x/dashprobe/cmd"
)

// main runs the CLI without signal handling; cmd/dashprobe is the installed binary.
func main() {
	os.Exit(cmd.ExitCode(cmd.Execute(context.Background())))
}
