package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"codenav/internal/project"
)

func TestGatherProjectStatusDeclared(t *testing.T) {
	// Point the workspace registry at an empty home directory.
	t.Setenv("HOME", t.TempDir())

	root := t.TempDir()
	decl := project.NewDeclaration(root, "demo", "go")
	if err := decl.Write(root); err != nil {
		t.Fatalf("Failed to write declaration: %v", err)
	}

	var report statusReport
	ps := gatherProjectStatus(root, &report)

	if ps.Name != "demo" {
		t.Errorf("Expected name='demo', got %q", ps.Name)
	}
	if ps.Language != "go" {
		t.Errorf("Expected language='go', got %q", ps.Language)
	}
	if !ps.Declared {
		t.Error("Expected Declared=true with PROJECT.toml present")
	}
	if ps.Registered {
		t.Error("Expected Registered=false with an empty registry")
	}
	if report.Registry == nil {
		t.Fatal("Expected registry status to be populated")
	}
	if report.Registry.Projects != 0 {
		t.Errorf("Expected 0 registered projects, got %d", report.Registry.Projects)
	}
}

func TestGatherProjectStatusUndeclared(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	root := t.TempDir()
	var report statusReport
	ps := gatherProjectStatus(root, &report)

	if ps.Name != filepath.Base(root) {
		t.Errorf("Expected name=%q (directory name), got %q", filepath.Base(root), ps.Name)
	}
	if ps.Declared {
		t.Error("Expected Declared=false without PROJECT.toml")
	}
}

func TestStatusReportJSON(t *testing.T) {
	report := statusReport{
		Version:   "0.3.0",
		Root:      "/work/demo",
		Project:   &projectStatus{Name: "demo", Language: "go", Declared: true},
		Overflow:  &overflowStatus{Driver: "sqlite", Records: 2, Bytes: 512},
		ElapsedMs: 7,
	}

	data, err := json.Marshal(&report)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded["version"] != "0.3.0" {
		t.Errorf("Expected version='0.3.0', got %v", decoded["version"])
	}
	if _, ok := decoded["index"]; ok {
		t.Error("Expected index section to be omitted when no index was loaded")
	}
	overflow, ok := decoded["overflow"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected overflow section in JSON output")
	}
	if overflow["payloadBytes"] != float64(512) {
		t.Errorf("Expected payloadBytes=512, got %v", overflow["payloadBytes"])
	}
}
