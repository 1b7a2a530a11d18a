// Package materials keeps the per-material-pair override table spec.md
// §4.3 step 6 and §6 describe: narrowphase mixes restitution/friction/
// stiffness/damping by product by default, unless a designer-supplied
// override exists for that unordered pair of material ids.
package materials

import "github.com/quillphysics/quill/body"

// PairKey is an unordered pair of material ids, normalized so A <= B.
type PairKey struct {
	A, B uint32
}

func makeKey(a, b uint32) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// MixTable holds designer overrides on top of body.Mix's default
// product rule.
type MixTable struct {
	overrides map[PairKey]body.Material
}

func NewMixTable() *MixTable {
	return &MixTable{overrides: make(map[PairKey]body.Material)}
}

func (t *MixTable) SetOverride(materialA, materialB uint32, mixed body.Material) {
	t.overrides[makeKey(materialA, materialB)] = mixed
}

func (t *MixTable) RemoveOverride(materialA, materialB uint32) {
	delete(t.overrides, makeKey(materialA, materialB))
}

// Mix returns the override for (a.ID, b.ID) if one was registered,
// otherwise falls back to body.Mix's product rule.
func (t *MixTable) Mix(a, b body.Material) body.Material {
	if override, ok := t.overrides[makeKey(a.ID, b.ID)]; ok {
		return override
	}
	return body.Mix(a, b)
}
