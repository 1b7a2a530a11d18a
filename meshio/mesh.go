// Package meshio implements the triangle-mesh binary format spec.md §6
// describes: a fixed sequence of length-prefixed arrays (vertices,
// indices, precomputed face normals, edge topology tables, boundary/
// convex-edge bitsets, and a flattened AABB tree) plus a YAML sidecar
// manifest describing how a paged mesh's submeshes are stored.
package meshio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quillphysics/quill/body"
)

// Mesh is one triangle mesh's full precomputed topology, built once at
// load time and treated as immutable and shareable across islands per
// spec.md §5's "mesh data is immutable after construction" policy.
type Mesh struct {
	Vertices []mgl64.Vec3
	Indices  []uint32 // triangle index triples, flattened

	// FaceNormals holds one precomputed unit normal per triangle.
	FaceNormals []mgl64.Vec3

	// EdgeVertices holds, per edge, the two vertex indices it spans.
	EdgeVertices [][2]uint32
	// VertexEdges holds, per vertex, the edges incident to it.
	VertexEdges [][]uint32

	// FaceEdges holds, per triangle, its three edge indices.
	FaceEdges [][3]uint32
	// EdgeFaces holds, per edge, the (up to two) adjacent triangle
	// indices; a boundary edge's second slot is ^uint32(0).
	EdgeFaces [][2]uint32

	// AdjacentFaceNormals mirrors EdgeFaces: the two faces' precomputed
	// normals, kept alongside the topology so convex-edge classification
	// never has to re-look-up FaceNormals at query time.
	AdjacentFaceNormals [][2]mgl64.Vec3

	// BoundaryEdges[i] is set when EdgeFaces[i]'s second face is absent.
	BoundaryEdges []bool
	// ConvexEdges[i] is set when the dihedral angle between the edge's
	// two adjacent faces is convex, used by narrowphase to reject
	// contacts against an interior mesh edge a shape is sliding across.
	ConvexEdges []bool

	// TriangleAABBs is a flattened bounding-volume tree over triangles:
	// index 0 is the root, leaves occupy the last len(Indices)/3 slots.
	// Node children follow the canonical binary-heap layout (2i+1, 2i+2)
	// so no explicit child pointers need to be serialized.
	TriangleAABBs []body.AABB
}

const noFace = ^uint32(0)

// BuildTriangleAABBTree computes TriangleAABBs as a complete binary
// heap over per-triangle AABBs, bottom-up union. A heap layout keeps
// the serialized tree reload-free: child indices are derived, not
// stored.
func (m *Mesh) BuildTriangleAABBTree() {
	triCount := len(m.Indices) / 3
	if triCount == 0 {
		m.TriangleAABBs = nil
		return
	}
	size := heapSizeFor(triCount)
	tree := make([]body.AABB, size)
	leafStart := size - triCount

	for t := 0; t < triCount; t++ {
		i0, i1, i2 := m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]
		v0, v1, v2 := m.Vertices[i0], m.Vertices[i1], m.Vertices[i2]
		tree[leafStart+t] = triangleAABB(v0, v1, v2)
	}
	for i := leafStart - 1; i >= 0; i-- {
		left, right := 2*i+1, 2*i+2
		box := tree[left]
		if right < size {
			box = box.Union(tree[right])
		}
		tree[i] = box
	}
	m.TriangleAABBs = tree
}

func heapSizeFor(leaves int) int {
	size := 1
	for size < leaves {
		size *= 2
	}
	return 2*size - 1
}

func triangleAABB(v0, v1, v2 mgl64.Vec3) body.AABB {
	min := mgl64.Vec3{minOf3(v0.X(), v1.X(), v2.X()), minOf3(v0.Y(), v1.Y(), v2.Y()), minOf3(v0.Z(), v1.Z(), v2.Z())}
	max := mgl64.Vec3{maxOf3(v0.X(), v1.X(), v2.X()), maxOf3(v0.Y(), v1.Y(), v2.Y()), maxOf3(v0.Z(), v1.Z(), v2.Z())}
	return body.AABB{Min: min, Max: max}
}

func minOf3(a, b, c float64) float64 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func maxOf3(a, b, c float64) float64 {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}

// WriteTo serializes Mesh in the exact array sequence spec.md §6 names:
// vertices, indices, normals, edge→vertex, vertex→edge, adjacent-face
// normals, face→edge, edge→face, boundary bitset, convex bitset, AABB
// tree. Every array is length-prefixed with a uint64 count; bool arrays
// are packed 32 bits per uint32.
func (m *Mesh) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	writeVec3Slice(cw, m.Vertices)
	writeUint32Slice(cw, m.Indices)
	writeVec3Slice(cw, m.FaceNormals)

	writeUint64(cw, uint64(len(m.EdgeVertices)))
	for _, e := range m.EdgeVertices {
		writeUint32(cw, e[0])
		writeUint32(cw, e[1])
	}

	writeUint64(cw, uint64(len(m.VertexEdges)))
	for _, edges := range m.VertexEdges {
		writeUint32Slice(cw, edges)
	}

	writeUint64(cw, uint64(len(m.AdjacentFaceNormals)))
	for _, pair := range m.AdjacentFaceNormals {
		writeVec3(cw, pair[0])
		writeVec3(cw, pair[1])
	}

	writeUint64(cw, uint64(len(m.FaceEdges)))
	for _, f := range m.FaceEdges {
		writeUint32(cw, f[0])
		writeUint32(cw, f[1])
		writeUint32(cw, f[2])
	}

	writeUint64(cw, uint64(len(m.EdgeFaces)))
	for _, e := range m.EdgeFaces {
		writeUint32(cw, e[0])
		writeUint32(cw, e[1])
	}

	writeBoolSlice(cw, m.BoundaryEdges)
	writeBoolSlice(cw, m.ConvexEdges)

	writeUint64(cw, uint64(len(m.TriangleAABBs)))
	for _, box := range m.TriangleAABBs {
		writeVec3(cw, box.Min)
		writeVec3(cw, box.Max)
	}

	return cw.n, cw.err
}

// ReadFrom deserializes a Mesh written by WriteTo, in the same order.
func (m *Mesh) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}

	m.Vertices = readVec3Slice(cr)
	m.Indices = readUint32Slice(cr)
	m.FaceNormals = readVec3Slice(cr)

	edgeCount := readUint64(cr)
	m.EdgeVertices = make([][2]uint32, edgeCount)
	for i := range m.EdgeVertices {
		m.EdgeVertices[i] = [2]uint32{readUint32(cr), readUint32(cr)}
	}

	vertexCount := readUint64(cr)
	m.VertexEdges = make([][]uint32, vertexCount)
	for i := range m.VertexEdges {
		m.VertexEdges[i] = readUint32Slice(cr)
	}

	adjCount := readUint64(cr)
	m.AdjacentFaceNormals = make([][2]mgl64.Vec3, adjCount)
	for i := range m.AdjacentFaceNormals {
		m.AdjacentFaceNormals[i] = [2]mgl64.Vec3{readVec3(cr), readVec3(cr)}
	}

	faceCount := readUint64(cr)
	m.FaceEdges = make([][3]uint32, faceCount)
	for i := range m.FaceEdges {
		m.FaceEdges[i] = [3]uint32{readUint32(cr), readUint32(cr), readUint32(cr)}
	}

	edgeFaceCount := readUint64(cr)
	m.EdgeFaces = make([][2]uint32, edgeFaceCount)
	for i := range m.EdgeFaces {
		m.EdgeFaces[i] = [2]uint32{readUint32(cr), readUint32(cr)}
	}

	m.BoundaryEdges = readBoolSlice(cr)
	m.ConvexEdges = readBoolSlice(cr)

	aabbCount := readUint64(cr)
	m.TriangleAABBs = make([]body.AABB, aabbCount)
	for i := range m.TriangleAABBs {
		m.TriangleAABBs[i] = body.AABB{Min: readVec3(cr), Max: readVec3(cr)}
	}

	if cr.err != nil {
		return cr.n, fmt.Errorf("meshio: read mesh: %w", cr.err)
	}
	return cr.n, nil
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) write(buf []byte) {
	if cw.err != nil {
		return
	}
	n, err := cw.w.Write(buf)
	cw.n += int64(n)
	cw.err = err
}

type countingReader struct {
	r   io.Reader
	n   int64
	err error
}

func (cr *countingReader) read(buf []byte) {
	if cr.err != nil {
		return
	}
	n, err := io.ReadFull(cr.r, buf)
	cr.n += int64(n)
	cr.err = err
}

func writeUint64(cw *countingWriter, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	cw.write(buf[:])
}

func readUint64(cr *countingReader) uint64 {
	var buf [8]byte
	cr.read(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

func writeUint32(cw *countingWriter, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	cw.write(buf[:])
}

func readUint32(cr *countingReader) uint32 {
	var buf [4]byte
	cr.read(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

func writeFloat64(cw *countingWriter, v float64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	cw.write(buf[:])
}

func readFloat64(cr *countingReader) float64 {
	var buf [8]byte
	cr.read(buf[:])
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
}

func writeVec3(cw *countingWriter, v mgl64.Vec3) {
	writeFloat64(cw, v.X())
	writeFloat64(cw, v.Y())
	writeFloat64(cw, v.Z())
}

func readVec3(cr *countingReader) mgl64.Vec3 {
	return mgl64.Vec3{readFloat64(cr), readFloat64(cr), readFloat64(cr)}
}

func writeVec3Slice(cw *countingWriter, vs []mgl64.Vec3) {
	writeUint64(cw, uint64(len(vs)))
	for _, v := range vs {
		writeVec3(cw, v)
	}
}

func readVec3Slice(cr *countingReader) []mgl64.Vec3 {
	count := readUint64(cr)
	out := make([]mgl64.Vec3, count)
	for i := range out {
		out[i] = readVec3(cr)
	}
	return out
}

func writeUint32Slice(cw *countingWriter, vs []uint32) {
	writeUint64(cw, uint64(len(vs)))
	for _, v := range vs {
		writeUint32(cw, v)
	}
}

func readUint32Slice(cr *countingReader) []uint32 {
	count := readUint64(cr)
	out := make([]uint32, count)
	for i := range out {
		out[i] = readUint32(cr)
	}
	return out
}

// writeBoolSlice packs bools 32 bits per uint32, per spec.md §6.
func writeBoolSlice(cw *countingWriter, bs []bool) {
	writeUint64(cw, uint64(len(bs)))
	for i := 0; i < len(bs); i += 32 {
		var word uint32
		end := i + 32
		if end > len(bs) {
			end = len(bs)
		}
		for j := i; j < end; j++ {
			if bs[j] {
				word |= 1 << uint(j-i)
			}
		}
		writeUint32(cw, word)
	}
}

func readBoolSlice(cr *countingReader) []bool {
	count := readUint64(cr)
	out := make([]bool, count)
	words := (int(count) + 31) / 32
	for w := 0; w < words; w++ {
		word := readUint32(cr)
		base := w * 32
		for bit := 0; bit < 32 && base+bit < int(count); bit++ {
			out[base+bit] = word&(1<<uint(bit)) != 0
		}
	}
	return out
}
