package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"codenav/internal/overflow"
)

var (
	overflowDir  string
	overflowPage int
)

var overflowCmd = &cobra.Command{
	Use:   "overflow <id>",
	Short: "Read a page of a stored overflow record",
	Long: `Read one page of a truncated result set by its overflow id.

Truncated responses name their overflow id in the first advisory. This
command reads the same store the server writes to, so full result sets
can be pulled from a shell as well as over MCP.`,
	Args: cobra.ExactArgs(1),
	RunE: runOverflow,
}

func init() {
	rootCmd.AddCommand(overflowCmd)
	overflowCmd.Flags().StringVar(&overflowDir, "project", ".", "Project root directory")
	overflowCmd.Flags().IntVar(&overflowPage, "page", 1, "1-based page number")
}

func runOverflow(cmd *cobra.Command, args []string) error {
	id := args[0]

	root, err := filepath.Abs(overflowDir)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	store, err := overflow.New(root, cfg.Overflow, logger)
	if err != nil {
		return fmt.Errorf("failed to open overflow store: %w", err)
	}
	defer store.Close()

	page, err := store.GetPage(cmd.Context(), id, overflowPage)
	if errors.Is(err, overflow.ErrNotFound) {
		return fmt.Errorf("overflow record %s page %d not found (records expire after %ds)",
			id, overflowPage, cfg.Overflow.TTLSeconds)
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
