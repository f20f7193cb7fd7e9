package project

import (
	"os"
	"path/filepath"
	"testing"

	"codenav/internal/index"
)

func writeExternals(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "externals.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExternals(t *testing.T) {
	path := writeExternals(t, `version: 1
packages:
  - System.IO
  - Newtonsoft.Json
symbols:
  - SaveChanges
`)

	ext, err := LoadExternals(path)
	if err != nil {
		t.Fatalf("LoadExternals() error = %v", err)
	}
	if ext.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ext.Len())
	}

	tests := []struct {
		name string
		ref  index.SymbolRef
		want bool
	}{
		{
			name: "allow-listed package",
			ref:  index.SymbolRef{ID: "scip-dotnet nuget System.IO 8.0 File#WriteAllText().", Name: "WriteAllText"},
			want: true,
		},
		{
			name: "allow-listed symbol name",
			ref:  index.SymbolRef{ID: "scip-dotnet nuget EFCore 8.0 DbContext#SaveChanges().", Name: "SaveChanges"},
			want: true,
		},
		{
			name: "unlisted external",
			ref:  index.SymbolRef{ID: "scip-dotnet nuget System.Text 8.0 Encoding#GetBytes().", Name: "GetBytes"},
			want: false,
		},
		{
			name: "local symbol",
			ref:  index.SymbolRef{ID: "local 12", Name: "tmp"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ext.Allow(tt.ref); got != tt.want {
				t.Errorf("Allow(%s) = %v, want %v", tt.ref.ID, got, tt.want)
			}
		})
	}
}

func TestLoadExternalsMissingFile(t *testing.T) {
	ext, err := LoadExternals(filepath.Join(t.TempDir(), "externals.yaml"))
	if err != nil {
		t.Fatalf("LoadExternals() on missing file error = %v", err)
	}
	if ext.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ext.Len())
	}
	if ext.Allow(index.SymbolRef{ID: "scip-dotnet nuget System.IO 8.0 File#", Name: "File"}) {
		t.Error("empty allow-list should allow nothing")
	}
}

func TestLoadExternalsUnsupportedVersion(t *testing.T) {
	path := writeExternals(t, "version: 2\n")
	if _, err := LoadExternals(path); err == nil {
		t.Error("LoadExternals() with version 2 should fail")
	}
}

func TestExternalsNilSafe(t *testing.T) {
	var ext *Externals
	if ext.Allow(index.SymbolRef{Name: "anything"}) {
		t.Error("nil Externals should allow nothing")
	}
	if ext.Len() != 0 {
		t.Error("nil Externals Len should be 0")
	}
}
