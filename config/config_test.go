package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesOnlyNamedSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quill.toml")
	body := "[solver]\nvelocity_iterations = 16\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Solver.VelocityIterations != 16 {
		t.Fatalf("expected overridden velocity_iterations = 16, got %d", cfg.Solver.VelocityIterations)
	}
	if cfg.World.FixedDT != Default().World.FixedDT {
		t.Fatalf("expected unnamed world section to keep its default fixed_dt")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quill.toml")

	original := Default()
	original.World.GravityY = -20
	original.Broadphase.Margin = 0.25

	if err := Save(path, original); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.World.GravityY != -20 {
		t.Fatalf("expected gravity_y to round-trip, got %v", loaded.World.GravityY)
	}
	if loaded.Broadphase.Margin != 0.25 {
		t.Fatalf("expected margin to round-trip, got %v", loaded.Broadphase.Margin)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/quill.toml"); err == nil {
		t.Fatalf("expected an error loading a missing file")
	}
}
