package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"codenav/internal/config"
	"codenav/internal/index/scipidx"
	"codenav/internal/overflow"
	"codenav/internal/project"
	"codenav/internal/version"
)

var (
	statusDir    string
	statusFormat string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project, index and store status",
	Long: `Show what codenav knows about a project: its declaration, whether it
is registered in the workspace, the state of its SCIP index, and what the
overflow store currently holds.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusDir, "project", ".", "Project root directory")
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format: human or json")
}

type statusReport struct {
	Version    string          `json:"version"`
	Root       string          `json:"root"`
	Project    *projectStatus  `json:"project,omitempty"`
	Index      *indexStatus    `json:"index,omitempty"`
	IndexError string          `json:"indexError,omitempty"`
	Overflow   *overflowStatus `json:"overflow,omitempty"`
	Registry   *registryStatus `json:"registry,omitempty"`
	ElapsedMs  int64           `json:"elapsedMs"`
}

type projectStatus struct {
	Name       string `json:"name"`
	Language   string `json:"language,omitempty"`
	Declared   bool   `json:"declared"`
	Registered bool   `json:"registered"`
}

type indexStatus struct {
	Path      string `json:"path"`
	Tool      string `json:"tool,omitempty"`
	IndexedAt string `json:"indexedAt,omitempty"`
	Documents int    `json:"documents"`
	Symbols   int    `json:"symbols"`
}

type overflowStatus struct {
	Driver  string `json:"driver"`
	Records int    `json:"records"`
	Bytes   int64  `json:"payloadBytes"`
}

type registryStatus struct {
	Path     string `json:"path"`
	Projects int    `json:"projects"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	start := time.Now()

	root, err := filepath.Abs(statusDir)
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

	report := statusReport{Version: version.Version, Root: root}
	report.Project = gatherProjectStatus(root, &report)
	gatherIndexStatus(root, cfg, logger, &report)
	gatherOverflowStatus(cmd, root, cfg, logger, &report)
	report.ElapsedMs = time.Since(start).Milliseconds()

	if statusFormat == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	printStatus(&report)
	return nil
}

func gatherProjectStatus(root string, report *statusReport) *projectStatus {
	ps := &projectStatus{Name: filepath.Base(root)}

	decl, err := project.LoadDeclaration(root)
	if err == nil && decl != nil {
		ps.Name = decl.Name
		ps.Language = decl.Language
		ps.Declared = true
	} else if lang, _, ok := project.DetectLanguage(root); ok {
		ps.Language = string(lang)
	}

	regPath, err := project.DefaultRegistryPath()
	if err != nil {
		return ps
	}
	reg, err := project.LoadRegistry(regPath)
	if err != nil {
		return ps
	}
	report.Registry = &registryStatus{Path: regPath, Projects: len(reg.Projects)}
	ps.Registered = reg.Get(ps.Name) != nil

	return ps
}

func gatherIndexStatus(root string, cfg *config.Config, logger *slog.Logger, report *statusReport) {
	idx, err := scipidx.Load(root, cfg.Index, logger)
	if err != nil {
		report.IndexError = err.Error()
		return
	}
	stats := idx.Stats()
	report.Index = &indexStatus{
		Path:      stats.Path,
		Tool:      stats.Tool,
		IndexedAt: stats.IndexedAt.Format(time.RFC3339),
		Documents: stats.Documents,
		Symbols:   stats.Symbols,
	}
}

func gatherOverflowStatus(cmd *cobra.Command, root string, cfg *config.Config, logger *slog.Logger, report *statusReport) {
	store, err := overflow.New(root, cfg.Overflow, logger)
	if err != nil {
		return
	}
	defer store.Close()

	st, err := store.Stats(cmd.Context())
	if err != nil {
		return
	}
	report.Overflow = &overflowStatus{
		Driver:  cfg.Overflow.Driver,
		Records: st.Records,
		Bytes:   st.PayloadBytes,
	}
}

func printStatus(report *statusReport) {
	fmt.Printf("codenav %s\n\n", report.Version)

	if p := report.Project; p != nil {
		fmt.Printf("Project:   %s", p.Name)
		if p.Language != "" {
			fmt.Printf(" (%s)", project.LanguageDisplayName(project.Language(p.Language)))
		}
		if !p.Declared {
			fmt.Printf("  [no PROJECT.toml]")
		}
		fmt.Println()
		fmt.Printf("Root:      %s\n", report.Root)
		if p.Registered {
			fmt.Printf("Registry:  registered")
		} else {
			fmt.Printf("Registry:  not registered")
		}
		if r := report.Registry; r != nil {
			fmt.Printf(" (%d project(s) in %s)", r.Projects, r.Path)
		}
		fmt.Println()
	}

	if report.IndexError != "" {
		fmt.Printf("Index:     unavailable: %s\n", report.IndexError)
	} else if ix := report.Index; ix != nil {
		fmt.Printf("Index:     %s\n", ix.Path)
		fmt.Printf("           %d document(s), %d symbol(s)", ix.Documents, ix.Symbols)
		if ix.Tool != "" {
			fmt.Printf(", indexed by %s", ix.Tool)
		}
		fmt.Println()
		if ix.IndexedAt != "" {
			fmt.Printf("           indexed at %s\n", ix.IndexedAt)
		}
	}

	if o := report.Overflow; o != nil {
		fmt.Printf("Overflow:  %d record(s), %d byte(s) [%s]\n", o.Records, o.Bytes, o.Driver)
	}

	fmt.Printf("\n(Query took %dms)\n", report.ElapsedMs)
}
