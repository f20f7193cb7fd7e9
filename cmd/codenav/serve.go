package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"codenav/internal/budget"
	"codenav/internal/envelope"
	"codenav/internal/index/scipidx"
	"codenav/internal/mcp"
	"codenav/internal/overflow"
	"codenav/internal/project"
	"codenav/internal/version"
)

var serveProject string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server.

The server reads JSON-RPC 2.0 messages from stdin and answers on stdout,
so it is meant to be launched by an MCP client rather than by hand. Logs
go to stderr or the configured log file, never stdout.

Tools exposed to clients:
  get_call_hierarchy   callers and callees around a source position
  get_type_hierarchy   implementations, overrides and base types
  find_references      every reference to a symbol
  get_diagnostics      analyzer findings recorded in the index
  rename_symbol        a rename edit plan grouped per file
  read_overflow_page   page through truncated result sets
  get_status           project, index and overflow store status`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveProject, "project", ".", "Project root directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(serveProject)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// stdout is the protocol channel, so the logger must not touch it.
	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	name := filepath.Base(root)
	language := ""
	externalsPath := cfg.Externals.AllowlistPath

	decl, err := project.LoadDeclaration(root)
	if err != nil {
		return err
	}
	if decl != nil {
		name = decl.Name
		language = decl.Language
		if decl.IndexPath != "" {
			cfg.Index.ScipPath = decl.IndexPath
		}
		if decl.ExternalsPath != "" {
			externalsPath = decl.ExternalsPath
		}
	} else {
		logger.Warn("no PROJECT.toml found, using defaults", "root", root)
		if lang, _, ok := project.DetectLanguage(root); ok {
			language = string(lang)
		}
	}

	idx, err := scipidx.Load(root, cfg.Index, logger)
	if err != nil {
		return err
	}
	stats := idx.Stats()
	freshness := &envelope.IndexFreshness{
		Path:      stats.Path,
		IndexedAt: stats.IndexedAt.Format(time.RFC3339),
		Documents: stats.Documents,
		Symbols:   stats.Symbols,
	}

	ext, err := project.LoadExternals(filepath.Join(root, externalsPath))
	if err != nil {
		return err
	}
	if ext.Len() > 0 {
		logger.Info("externals allow-list loaded", "entries", ext.Len())
	}

	store, err := overflow.New(root, cfg.Overflow, logger)
	if err != nil {
		return fmt.Errorf("failed to open overflow store: %w", err)
	}
	defer store.Close()

	server := mcp.NewServer(mcp.Options{
		Version:         version.Version,
		ProjectName:     name,
		ProjectLanguage: language,
		Index:           idx,
		Freshness:       freshness,
		Store:           store,
		Graph:           cfg.Graph,
		Budget:          budget.FromConfig(cfg.Budget),
		AllowExternal:   ext.Allow,
		Logger:          logger,
	})

	if err := server.Start(); err != nil {
		logger.Error("MCP server error", "error", err.Error())
		return err
	}
	return nil
}
