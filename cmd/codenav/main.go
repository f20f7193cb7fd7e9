package main

import (
	"log/slog"
	"os"

	"codenav/internal/slogutil"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := slogutil.NewLogger(os.Stderr, slog.LevelError)
		logger.Error("command failed", "error", err.Error())
		os.Exit(1)
	}
}
