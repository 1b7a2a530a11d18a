package meshio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func quadMesh() *Mesh {
	// Two triangles sharing one interior edge, forming a flat quad in
	// the XZ plane -- the shared edge should come out boundary=false.
	vertices := []mgl64.Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1},
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}
	return BuildFromTriangles(vertices, indices)
}

func TestBuildFromTrianglesDerivesSharedEdge(t *testing.T) {
	m := quadMesh()

	if len(m.EdgeVertices) != 5 {
		t.Fatalf("expected 5 edges for a two-triangle quad, got %d", len(m.EdgeVertices))
	}

	boundaryCount := 0
	for _, b := range m.BoundaryEdges {
		if b {
			boundaryCount++
		}
	}
	if boundaryCount != 4 {
		t.Fatalf("expected 4 boundary edges and 1 interior edge, got %d boundary", boundaryCount)
	}
}

func TestBuildFromTrianglesPopulatesAABBTree(t *testing.T) {
	m := quadMesh()
	if len(m.TriangleAABBs) == 0 {
		t.Fatalf("expected a non-empty AABB tree")
	}
	root := m.TriangleAABBs[0]
	if root.Min.X() > 0 || root.Max.X() < 1 {
		t.Fatalf("expected root AABB to span the whole quad, got %+v", root)
	}
}

func TestMeshSerializeRoundTrips(t *testing.T) {
	original := quadMesh()

	var buf bytes.Buffer
	if _, err := original.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	var decoded Mesh
	if _, err := decoded.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	if len(decoded.Vertices) != len(original.Vertices) {
		t.Fatalf("vertex count mismatch after round trip")
	}
	for i := range original.Vertices {
		if decoded.Vertices[i] != original.Vertices[i] {
			t.Fatalf("vertex %d mismatch: got %v want %v", i, decoded.Vertices[i], original.Vertices[i])
		}
	}
	if len(decoded.BoundaryEdges) != len(original.BoundaryEdges) {
		t.Fatalf("boundary bitset length mismatch")
	}
	for i := range original.BoundaryEdges {
		if decoded.BoundaryEdges[i] != original.BoundaryEdges[i] {
			t.Fatalf("boundary bit %d mismatch", i)
		}
	}
	if len(decoded.TriangleAABBs) != len(original.TriangleAABBs) {
		t.Fatalf("AABB tree size mismatch")
	}
}

func TestManifestRoundTripsEmbedded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terrain.yaml")

	original := &Manifest{
		Name:     "terrain",
		Embedded: true,
		DataFile: "terrain.bin",
		Submeshes: []SubmeshEntry{
			{Index: 0, Offset: 0, Length: 1024},
			{Index: 1, Offset: 1024, Length: 2048},
		},
	}
	if err := SaveManifest(path, original); err != nil {
		t.Fatalf("SaveManifest: %v", err)
	}

	loaded, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if loaded.Name != "terrain" || !loaded.Embedded || loaded.DataFile != "terrain.bin" {
		t.Fatalf("unexpected manifest header after round trip: %+v", loaded)
	}
	page, ok := loaded.Page(1)
	if !ok || page.Length != 2048 {
		t.Fatalf("expected page 1 to round trip with length 2048, got %+v", page)
	}
	if _, ok := loaded.Page(99); ok {
		t.Fatalf("expected an unregistered page to report not-found")
	}
}

func TestManifestExternalFileNaming(t *testing.T) {
	m := &Manifest{Name: "rocks", Embedded: false}
	if got := m.ExternalFile("rocks", 3); got != "rocks.3.mesh" {
		t.Fatalf("unexpected external file name: %s", got)
	}
}

func TestLoadManifestMissingFileErrors(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(os.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Fatalf("expected an error loading a missing manifest")
	}
}
