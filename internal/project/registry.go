package project

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// RegistryFile is the workspace registry filename.
const RegistryFile = "workspace.toml"

// Registry is the workspace-wide list of registered projects, stored in
// the user's codenav directory.
type Registry struct {
	// UpdatedAt is when the registry was last modified
	UpdatedAt time.Time `toml:"updated_at"`

	// Projects is the list of registered projects
	Projects []RegistryEntry `toml:"projects"`

	path string
}

// RegistryEntry is one registered project.
type RegistryEntry struct {
	// Name is the project name from its declaration
	Name string `toml:"name"`

	// Root is the absolute filesystem path to the project root
	Root string `toml:"root"`

	// Language is the project's primary language
	Language string `toml:"language,omitempty"`

	// RegisteredAt is when the project was registered
	RegisteredAt time.Time `toml:"registered_at"`
}

// DefaultRegistryPath returns the registry location in the user's home
// directory.
func DefaultRegistryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".codenav", RegistryFile), nil
}

// LoadRegistry reads the registry from disk. A missing file yields an
// empty registry bound to the same path.
func LoadRegistry(path string) (*Registry, error) {
	reg := &Registry{path: path}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return reg, nil
	}

	if _, err := toml.DecodeFile(path, reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}

	return reg, nil
}

// Save writes the registry back to the path it was loaded from.
func (r *Registry) Save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("failed to create registry file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(r); err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	return nil
}

// Add registers a project. Names and roots must be unique.
func (r *Registry) Add(name, root, language string) (*RegistryEntry, error) {
	for _, p := range r.Projects {
		if p.Name == name {
			return nil, fmt.Errorf("project %q already registered", name)
		}
		if p.Root == root {
			return nil, fmt.Errorf("project at %q already registered (as %q)", root, p.Name)
		}
	}

	entry := RegistryEntry{
		Name:         name,
		Root:         root,
		Language:     language,
		RegisteredAt: time.Now().UTC(),
	}

	r.Projects = append(r.Projects, entry)
	r.UpdatedAt = time.Now().UTC()

	return &entry, nil
}

// Remove deletes a project from the registry by name.
func (r *Registry) Remove(name string) error {
	for i, p := range r.Projects {
		if p.Name == name {
			r.Projects = append(r.Projects[:i], r.Projects[i+1:]...)
			r.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("project %q not found", name)
}

// Get returns a registered project by name.
func (r *Registry) Get(name string) *RegistryEntry {
	for i := range r.Projects {
		if r.Projects[i].Name == name {
			return &r.Projects[i]
		}
	}
	return nil
}
