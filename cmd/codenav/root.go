package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"codenav/internal/config"
	"codenav/internal/slogutil"
	"codenav/internal/version"
)

var (
	configFlag   string
	logLevelFlag string
	logFileFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "codenav",
	Short: "Code navigation server for AI assistants",
	Long: `codenav answers code navigation queries against a SCIP symbol index:
call hierarchies, type hierarchies, references, diagnostics, and rename
plans. It serves them over the Model Context Protocol with size-bounded
responses, spilling anything truncated into a pageable overflow store.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("codenav version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default <project>/.codenav/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Log file path (default stderr)")
}

// loadConfig resolves the effective configuration for a project root,
// honoring the --config override.
func loadConfig(projectRoot string) (*config.Config, error) {
	if configFlag != "" {
		return config.LoadConfigFile(configFlag)
	}
	return config.LoadConfig(projectRoot)
}

// newLogger builds the command logger from config plus the --log-level and
// --log-file overrides. The returned closer is non-nil when logging goes to
// a file.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	levelStr := cfg.Logging.Level
	if logLevelFlag != "" {
		levelStr = logLevelFlag
	}
	level := slogutil.LevelFromString(levelStr)

	file := cfg.Logging.File
	if logFileFlag != "" {
		file = logFileFlag
	}
	if file == "" {
		return slogutil.NewLogger(os.Stderr, level), nil, nil
	}

	logger, closer, err := slogutil.NewFileLoggerWithRotation(file, level, cfg.Logging.MaxSize, cfg.Logging.MaxBackups)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logger, closer, nil
}
