package meshio

import (
	"github.com/go-gl/mathgl/mgl64"
)

// BuildFromTriangles derives every precomputed table a Mesh needs from
// a bare vertex/index buffer: face normals, edge topology, adjacent-
// face normals, boundary/convex bitsets, and the AABB tree. This is
// the one-time cost spec.md §6 says happens at load/import, never per
// step.
func BuildFromTriangles(vertices []mgl64.Vec3, indices []uint32) *Mesh {
	m := &Mesh{Vertices: vertices, Indices: indices}
	triCount := len(indices) / 3

	m.FaceNormals = make([]mgl64.Vec3, triCount)
	m.FaceEdges = make([][3]uint32, triCount)

	type edgeKey struct{ a, b uint32 }
	edgeIndex := map[edgeKey]uint32{}
	normalizeKey := func(a, b uint32) edgeKey {
		if a > b {
			a, b = b, a
		}
		return edgeKey{a, b}
	}

	for t := 0; t < triCount; t++ {
		i0, i1, i2 := indices[t*3], indices[t*3+1], indices[t*3+2]
		v0, v1, v2 := vertices[i0], vertices[i1], vertices[i2]
		normal := v1.Sub(v0).Cross(v2.Sub(v0))
		if normal.Len() > 1e-12 {
			normal = normal.Normalize()
		}
		m.FaceNormals[t] = normal

		corners := [3]uint32{i0, i1, i2}
		for side := 0; side < 3; side++ {
			a, b := corners[side], corners[(side+1)%3]
			key := normalizeKey(a, b)
			edgeIdx, ok := edgeIndex[key]
			if !ok {
				edgeIdx = uint32(len(m.EdgeVertices))
				edgeIndex[key] = edgeIdx
				m.EdgeVertices = append(m.EdgeVertices, [2]uint32{key.a, key.b})
				m.EdgeFaces = append(m.EdgeFaces, [2]uint32{noFace, noFace})
				m.AdjacentFaceNormals = append(m.AdjacentFaceNormals, [2]mgl64.Vec3{})
			}
			m.FaceEdges[t][side] = edgeIdx

			pair := &m.EdgeFaces[edgeIdx]
			normals := &m.AdjacentFaceNormals[edgeIdx]
			if pair[0] == noFace {
				pair[0] = uint32(t)
				normals[0] = normal
			} else {
				pair[1] = uint32(t)
				normals[1] = normal
			}
		}
	}

	m.VertexEdges = make([][]uint32, len(vertices))
	for edgeIdx, ev := range m.EdgeVertices {
		m.VertexEdges[ev[0]] = append(m.VertexEdges[ev[0]], uint32(edgeIdx))
		m.VertexEdges[ev[1]] = append(m.VertexEdges[ev[1]], uint32(edgeIdx))
	}

	m.BoundaryEdges = make([]bool, len(m.EdgeFaces))
	m.ConvexEdges = make([]bool, len(m.EdgeFaces))
	for i, pair := range m.EdgeFaces {
		if pair[1] == noFace {
			m.BoundaryEdges[i] = true
			continue
		}
		n0, n1 := m.AdjacentFaceNormals[i][0], m.AdjacentFaceNormals[i][1]
		// A shared edge is convex when the two faces fold away from
		// each other (their normals diverge along the edge direction),
		// approximated here by the faces' normals pointing apart
		// rather than toward each other across the shared edge.
		ev := m.EdgeVertices[i]
		edgeDir := vertices[ev[1]].Sub(vertices[ev[0]])
		if edgeDir.Len() > 1e-12 {
			edgeDir = edgeDir.Normalize()
		}
		cross := n0.Cross(n1)
		m.ConvexEdges[i] = cross.Dot(edgeDir) >= 0
	}

	m.BuildTriangleAABBTree()
	return m
}
