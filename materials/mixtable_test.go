package materials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quillphysics/quill/body"
)

func TestMixFallsBackToProductWithoutOverride(t *testing.T) {
	table := NewMixTable()
	a := body.Material{ID: 1, Friction: 0.5, Restitution: 0.5}
	b := body.Material{ID: 2, Friction: 0.4, Restitution: 0.2}

	m := table.Mix(a, b)
	if m.Friction != 0.2 {
		t.Fatalf("expected product fallback 0.2, got %f", m.Friction)
	}
}

func TestSetOverrideWinsOverDefaultMix(t *testing.T) {
	table := NewMixTable()
	a := body.Material{ID: 1, Friction: 0.5}
	b := body.Material{ID: 2, Friction: 0.4}
	table.SetOverride(1, 2, body.Material{Friction: 0.9})

	m := table.Mix(a, b)
	if m.Friction != 0.9 {
		t.Fatalf("expected override friction 0.9, got %f", m.Friction)
	}

	// Order of ids passed to Mix should not matter.
	m2 := table.Mix(b, a)
	if m2.Friction != 0.9 {
		t.Fatalf("expected override to apply regardless of argument order, got %f", m2.Friction)
	}
}

func TestMixTableTOMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "materials.toml")

	table := NewMixTable()
	table.SetOverride(3, 7, body.Material{Restitution: 0.9, Friction: 0.1})

	if err := SaveMixTableTOML(path, table); err != nil {
		t.Fatalf("SaveMixTableTOML failed: %v", err)
	}

	loaded, err := LoadMixTableTOML(path)
	if err != nil {
		t.Fatalf("LoadMixTableTOML failed: %v", err)
	}

	m := loaded.Mix(body.Material{ID: 3}, body.Material{ID: 7})
	if m.Restitution != 0.9 || m.Friction != 0.1 {
		t.Fatalf("expected round-tripped override restitution=0.9 friction=0.1, got %+v", m)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}
