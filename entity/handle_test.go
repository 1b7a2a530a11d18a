package entity

import "testing"

func TestStoreCreateDestroyRecyclesGeneration(t *testing.T) {
	s := NewStore()

	a := s.Create()
	if !s.IsAlive(a) {
		t.Fatalf("freshly created handle should be alive")
	}

	s.Destroy(a)
	if s.IsAlive(a) {
		t.Fatalf("destroyed handle should not be alive")
	}

	b := s.Create()
	if b.Index != a.Index {
		t.Fatalf("expected recycled index %d, got %d", a.Index, b.Index)
	}
	if b.Generation == a.Generation {
		t.Fatalf("recycled slot must bump generation, got same %d", b.Generation)
	}

	// The old handle must remain stale even though the index was reused.
	if s.IsAlive(a) {
		t.Fatalf("stale handle must not alias the recycled slot")
	}
	if !s.IsAlive(b) {
		t.Fatalf("new handle for recycled slot should be alive")
	}
}

func TestStoreLen(t *testing.T) {
	s := NewStore()
	h1 := s.Create()
	h2 := s.Create()
	if s.Len() != 2 {
		t.Fatalf("expected len 2, got %d", s.Len())
	}
	s.Destroy(h1)
	if s.Len() != 1 {
		t.Fatalf("expected len 1 after destroy, got %d", s.Len())
	}
	_ = h2
}

func TestDirtySetTouchAndChangedSince(t *testing.T) {
	d := NewDirtySet()
	h := Handle{Index: 3, Generation: 1}

	if d.Sequence(h) != 0 {
		t.Fatalf("untouched handle should have sequence 0")
	}

	d.Touch(h)
	baseline := d.Sequence(h)
	if baseline != 1 {
		t.Fatalf("expected sequence 1 after one touch, got %d", baseline)
	}

	if d.ChangedSince(h, baseline) {
		t.Fatalf("should not report changed relative to its own current sequence")
	}

	d.Touch(h)
	if !d.ChangedSince(h, baseline) {
		t.Fatalf("should report changed after a second touch")
	}
}
