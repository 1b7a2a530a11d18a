package meshio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the human-editable sidecar that describes how a paged
// mesh's submeshes are stored, per spec.md §6: either embedded in one
// file and indexed by byte offset, or external as one sibling file per
// submesh. The binary Mesh format itself never encodes this -- paging
// is purely a manifest-level concern so the same WriteTo/ReadFrom pair
// works for both layouts.
type Manifest struct {
	Name      string          `yaml:"name"`
	Embedded  bool            `yaml:"embedded"`
	DataFile  string          `yaml:"data_file,omitempty"` // set when Embedded
	Submeshes []SubmeshEntry  `yaml:"submeshes"`
}

// SubmeshEntry names one page. For an embedded manifest, Offset/Length
// locate it inside DataFile; for an external manifest, File names the
// sibling file directly and Offset/Length are zero.
type SubmeshEntry struct {
	Index  int    `yaml:"index"`
	File   string `yaml:"file,omitempty"`
	Offset int64  `yaml:"offset,omitempty"`
	Length int64  `yaml:"length,omitempty"`
}

// LoadManifest reads a paged-mesh manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("meshio: parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// SaveManifest writes m to path.
func SaveManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("meshio: encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("meshio: write manifest %s: %w", path, err)
	}
	return nil
}

// ExternalFile resolves the sibling file name for submesh index under
// an external manifest, per spec.md §6's "sibling-named by integer
// index" rule: <basename>.<index>.mesh next to the manifest itself.
func (m *Manifest) ExternalFile(baseName string, index int) string {
	return fmt.Sprintf("%s.%d.mesh", baseName, index)
}

// Page locates the manifest entry for a submesh index, or (nil, false)
// if the page was never registered -- the "unloaded page" state spec.md
// §7 describes, which callers treat as empty rather than an error.
func (m *Manifest) Page(index int) (*SubmeshEntry, bool) {
	for i := range m.Submeshes {
		if m.Submeshes[i].Index == index {
			return &m.Submeshes[i], true
		}
	}
	return nil, false
}
