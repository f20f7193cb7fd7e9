// Package project handles on-disk project metadata: the PROJECT.toml
// declaration, the workspace registry, and the important-externals
// allow-list consulted when external symbols show up in a graph.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// DeclarationFile is the default filename for a project declaration.
const DeclarationFile = "PROJECT.toml"

// Declaration describes one navigable project: what it is called, what it
// is written in, and where its SCIP index lives.
type Declaration struct {
	// Name is the human-readable project name
	Name string `toml:"name"`

	// Language is the primary language (optional, detected if empty)
	Language string `toml:"language,omitempty"`

	// IndexPath is the SCIP index location relative to the project root
	IndexPath string `toml:"index_path,omitempty"`

	// EntryPoints are the files navigation usually starts from
	EntryPoints []string `toml:"entry_points,omitempty"`

	// ExternalsPath points at the important-externals allow-list
	ExternalsPath string `toml:"externals,omitempty"`
}

// LoadDeclaration reads PROJECT.toml from the project root. Returns
// (nil, nil) when the file does not exist.
func LoadDeclaration(root string) (*Declaration, error) {
	path := filepath.Join(root, DeclarationFile)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", DeclarationFile, err)
	}

	var decl Declaration
	if err := toml.Unmarshal(data, &decl); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", DeclarationFile, err)
	}

	if decl.Name == "" {
		return nil, fmt.Errorf("%s missing required 'name' field", DeclarationFile)
	}
	if decl.IndexPath == "" {
		decl.IndexPath = "index.scip"
	}

	return &decl, nil
}

// Write saves the declaration as PROJECT.toml under the project root.
func (d *Declaration) Write(root string) error {
	data, err := toml.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", DeclarationFile, err)
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(root, DeclarationFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", DeclarationFile, err)
	}

	return nil
}

// NewDeclaration builds a starter declaration for a project root, detecting
// the language when none is given.
func NewDeclaration(root, name, language string) *Declaration {
	if name == "" {
		name = filepath.Base(root)
	}
	if language == "" {
		if lang, _, ok := DetectLanguage(root); ok {
			language = string(lang)
		}
	}
	return &Declaration{
		Name:      name,
		Language:  language,
		IndexPath: "index.scip",
	}
}
