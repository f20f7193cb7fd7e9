package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"codenav/internal/config"
)

func TestLoadConfigUsesProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	navDir := filepath.Join(tmpDir, ".codenav")
	if err := os.MkdirAll(navDir, 0755); err != nil {
		t.Fatalf("Failed to create .codenav dir: %v", err)
	}

	content := `{"graph": {"maxDepth": 3}}`
	if err := os.WriteFile(filepath.Join(navDir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := loadConfig(tmpDir)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Graph.MaxDepth != 3 {
		t.Errorf("Expected maxDepth=3 from project config, got %d", cfg.Graph.MaxDepth)
	}
}

func TestLoadConfigFlagOverridesRoot(t *testing.T) {
	// With --config set the project root's own config is ignored.
	override := filepath.Join(t.TempDir(), "override.json")
	if err := os.WriteFile(override, []byte(`{"budget": {"hardCap": 123}}`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	configFlag = override
	defer func() { configFlag = "" }()

	cfg, err := loadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Budget.HardCap != 123 {
		t.Errorf("Expected hardCap=123 from --config file, got %d", cfg.Budget.HardCap)
	}
}

func TestNewLoggerDefaultsToStderr(t *testing.T) {
	logger, closer, err := newLogger(config.DefaultConfig())
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	if logger == nil {
		t.Fatal("Expected a logger, got nil")
	}
	if closer != nil {
		t.Error("Expected nil closer when logging to stderr")
	}
	// Default level is info, so debug records are filtered.
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug to be disabled at the default level")
	}
}

func TestNewLoggerFileAndLevelFlags(t *testing.T) {
	logFileFlag = filepath.Join(t.TempDir(), "logs", "codenav.log")
	logLevelFlag = "debug"
	defer func() {
		logFileFlag = ""
		logLevelFlag = ""
	}()

	logger, closer, err := newLogger(config.DefaultConfig())
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	if closer == nil {
		t.Fatal("Expected a closer for file logging")
	}
	defer closer.Close()

	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug to be enabled with --log-level=debug")
	}
	if _, err := os.Stat(logFileFlag); err != nil {
		t.Errorf("Expected log file to exist: %v", err)
	}
}
