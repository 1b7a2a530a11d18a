package materials

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/quillphysics/quill/body"
)

// mixTableFile is the on-disk TOML shape: a flat list of overrides,
// each naming the two material ids it applies to plus the mixed
// coefficients to use instead of the default product rule.
type mixTableFile struct {
	Override []overrideEntry `toml:"override"`
}

type overrideEntry struct {
	MaterialA       uint32  `toml:"material_a"`
	MaterialB       uint32  `toml:"material_b"`
	Restitution     float64 `toml:"restitution"`
	Friction        float64 `toml:"friction"`
	SpinFriction    float64 `toml:"spin_friction"`
	RollingFriction float64 `toml:"rolling_friction"`
	NormalStiffness float64 `toml:"normal_stiffness"`
	NormalDamping   float64 `toml:"normal_damping"`
}

// LoadMixTableTOML reads a designer-editable override file, grounded on
// the same sectioned-TOML config pattern package config uses.
func LoadMixTableTOML(path string) (*MixTable, error) {
	var file mixTableFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, err
	}

	table := NewMixTable()
	for _, e := range file.Override {
		table.SetOverride(e.MaterialA, e.MaterialB, body.Material{
			ID:              e.MaterialA,
			Restitution:     e.Restitution,
			Friction:        e.Friction,
			SpinFriction:    e.SpinFriction,
			RollingFriction: e.RollingFriction,
			NormalStiffness: e.NormalStiffness,
			NormalDamping:   e.NormalDamping,
		})
	}
	return table, nil
}

// SaveMixTableTOML round-trips a MixTable back to the same format.
func SaveMixTableTOML(path string, table *MixTable) error {
	file := mixTableFile{Override: make([]overrideEntry, 0, len(table.overrides))}
	for key, m := range table.overrides {
		file.Override = append(file.Override, overrideEntry{
			MaterialA:       key.A,
			MaterialB:       key.B,
			Restitution:     m.Restitution,
			Friction:        m.Friction,
			SpinFriction:    m.SpinFriction,
			RollingFriction: m.RollingFriction,
			NormalStiffness: m.NormalStiffness,
			NormalDamping:   m.NormalDamping,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(file)
}
