package project

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"codenav/internal/index"
)

// Externals is the allow-list of important external symbols. External
// symbols normally appear in graphs only as unexpanded edges; allow-listed
// ones are surfaced as leaf nodes.
type Externals struct {
	packages map[string]bool
	names    map[string]bool
}

// externalsFile is the on-disk YAML shape.
type externalsFile struct {
	Version  int      `yaml:"version"`
	Packages []string `yaml:"packages"`
	Symbols  []string `yaml:"symbols"`
}

// LoadExternals reads an externals.yaml allow-list. A missing file yields
// an empty allow-list.
func LoadExternals(path string) (*Externals, error) {
	ext := &Externals{
		packages: make(map[string]bool),
		names:    make(map[string]bool),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ext, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read externals allow-list: %w", err)
	}

	var f externalsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse externals allow-list: %w", err)
	}
	if f.Version > 1 {
		return nil, fmt.Errorf("unsupported externals schema version %d", f.Version)
	}

	for _, p := range f.Packages {
		ext.packages[p] = true
	}
	for _, s := range f.Symbols {
		ext.names[s] = true
	}

	return ext, nil
}

// Allow reports whether an external symbol is on the allow-list, matching
// by exact symbol name or by the package field of its SCIP identifier.
func (e *Externals) Allow(ref index.SymbolRef) bool {
	if e == nil {
		return false
	}
	if e.names[ref.Name] {
		return true
	}
	if pkg := packageOf(ref.ID); pkg != "" && e.packages[pkg] {
		return true
	}
	return false
}

// Len returns the number of allow-list entries.
func (e *Externals) Len() int {
	if e == nil {
		return 0
	}
	return len(e.packages) + len(e.names)
}

// packageOf extracts the package field from a SCIP symbol identifier:
// "<scheme> <manager> <package> <version> <descriptor>". Local symbols
// have no package.
func packageOf(id string) string {
	parts := strings.SplitN(id, " ", 5)
	if len(parts) < 5 {
		return ""
	}
	return parts[2]
}
