package project

import (
	"path/filepath"
	"testing"
)

func TestRegistryAddAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), RegistryFile)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}
	if len(reg.Projects) != 0 {
		t.Fatalf("fresh registry has %d projects", len(reg.Projects))
	}

	if _, err := reg.Add("payments", "/srv/payments", "csharp"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := reg.Add("billing", "/srv/billing", "go"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if got := reg.Get("payments"); got == nil || got.Root != "/srv/payments" {
		t.Errorf("Get(payments) = %+v", got)
	}
	if got := reg.Get("missing"); got != nil {
		t.Errorf("Get(missing) = %+v, want nil", got)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), RegistryFile))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Add("payments", "/srv/payments", ""); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.Add("payments", "/srv/other", ""); err == nil {
		t.Error("Add() with duplicate name should fail")
	}
	if _, err := reg.Add("other", "/srv/payments", ""); err == nil {
		t.Error("Add() with duplicate root should fail")
	}
}

func TestRegistryRemove(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), RegistryFile))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Add("payments", "/srv/payments", ""); err != nil {
		t.Fatal(err)
	}

	if err := reg.Remove("payments"); err != nil {
		t.Errorf("Remove() error = %v", err)
	}
	if err := reg.Remove("payments"); err == nil {
		t.Error("Remove() of absent project should fail")
	}
}

func TestRegistrySaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", RegistryFile)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Add("payments", "/srv/payments", "csharp"); err != nil {
		t.Fatal(err)
	}
	if err := reg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() after save error = %v", err)
	}
	if len(loaded.Projects) != 1 {
		t.Fatalf("reloaded registry has %d projects, want 1", len(loaded.Projects))
	}
	entry := loaded.Projects[0]
	if entry.Name != "payments" || entry.Root != "/srv/payments" || entry.Language != "csharp" {
		t.Errorf("reloaded entry = %+v", entry)
	}
	if entry.RegisteredAt.IsZero() {
		t.Error("RegisteredAt not preserved")
	}
	if loaded.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not preserved")
	}
}
