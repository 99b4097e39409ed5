// Package main is the entrypoint for the employee records service. It wires
// the serve, migrate, import and template subcommands, loads configuration
// and initializes logging.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	err := rootCommand().ExecuteContext(context.Background())
	_ = syncLogs()
	if err != nil {
		os.Exit(1)
	}
}
