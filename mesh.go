// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package subdiv

import (
	"errors"
	"fmt"
)

// Mesh construction errors.
var (
	// ErrInvalidIndex is returned when a face references a vertex that does not exist.
	ErrInvalidIndex = errors.New("subdiv: face references out-of-range vertex")

	// ErrNonManifold is returned when an edge is shared by more than two faces
	// or by two faces with inconsistent winding.
	ErrNonManifold = errors.New("subdiv: mesh is not an orientable 2-manifold")
)

// Boundary is the twin sentinel for half-edges on the mesh boundary.
const Boundary int32 = -1

// Mesh is one subdivision level of a quad mesh in half-edge form.
//
// The topology is encoded as three flat integer arrays indexed by half-edge:
// origin vertex, undirected edge id, and twin half-edge (Boundary if none).
// Half-edges of a face occupy four consecutive indices, so the face cycle is
// pure index arithmetic — see Face, Next and Prev.
//
// Coordinates are stored as separate x/y/z arrays indexed by point id. After
// refinement the point id space of the next level is partitioned as
// [0,v) old vertices, [v,v+f) face points, [v+f,v+f+e) edge points.
//
// A Mesh is immutable once fully computed and may be shared freely across
// goroutines for reading.
type Mesh struct {
	verts []int32
	edges []int32
	twins []int32

	x, y, z []float32

	numVerts int
	numFaces int
	numEdges int
}

// Face returns the face a half-edge belongs to.
func Face(h int32) int32 { return h >> 2 }

// Next returns the next half-edge within the face cycle.
func Next(h int32) int32 {
	if h&3 == 3 {
		return h - 3
	}
	return h + 1
}

// Prev returns the previous half-edge within the face cycle.
func Prev(h int32) int32 {
	if h&3 == 0 {
		return h + 3
	}
	return h - 1
}

// NewLevel allocates an empty mesh level with the given element counts.
// Coordinate arrays hold numVerts points; for a refined level this already
// spans old vertices, face points and edge points. All topology slots are
// zero and all coordinate accumulators start at zero, which is the
// precondition the refinement passes rely on.
func NewLevel(numVerts, numFaces, numEdges int) *Mesh {
	hd := 4 * numFaces
	return &Mesh{
		verts:    make([]int32, hd),
		edges:    make([]int32, hd),
		twins:    make([]int32, hd),
		x:        make([]float32, numVerts),
		y:        make([]float32, numVerts),
		z:        make([]float32, numVerts),
		numVerts: numVerts,
		numFaces: numFaces,
		numEdges: numEdges,
	}
}

// NumVerts returns the number of vertices.
func (m *Mesh) NumVerts() int { return m.numVerts }

// NumFaces returns the number of quad faces.
func (m *Mesh) NumFaces() int { return m.numFaces }

// NumEdges returns the number of undirected edges.
func (m *Mesh) NumEdges() int { return m.numEdges }

// NumHalfEdges returns the number of half-edges, always 4*NumFaces.
func (m *Mesh) NumHalfEdges() int { return len(m.verts) }

// Vert returns the origin vertex of half-edge h.
func (m *Mesh) Vert(h int32) int32 { return m.verts[h] }

// Edge returns the undirected edge id of half-edge h.
func (m *Mesh) Edge(h int32) int32 { return m.edges[h] }

// Twin returns the opposite half-edge of h, or Boundary if h lies on the
// mesh boundary.
func (m *Mesh) Twin(h int32) int32 { return m.twins[h] }

// Point returns the coordinates of point id i.
// Point ids cover old vertices, then face points, then edge points.
func (m *Mesh) Point(i int32) Vec3 {
	return Vec3{X: m.x[i], Y: m.y[i], Z: m.z[i]}
}

// Verts exposes the origin-vertex array. The slice is shared with the mesh
// and must not be modified.
func (m *Mesh) Verts() []int32 { return m.verts }

// Edges exposes the edge-id array. The slice is shared with the mesh and
// must not be modified.
func (m *Mesh) Edges() []int32 { return m.edges }

// Twins exposes the twin array. The slice is shared with the mesh and must
// not be modified.
func (m *Mesh) Twins() []int32 { return m.twins }

// X exposes the x coordinate array, indexed by point id.
// The slice is shared with the mesh and must not be modified.
func (m *Mesh) X() []float32 { return m.x }

// Y exposes the y coordinate array, indexed by point id.
func (m *Mesh) Y() []float32 { return m.y }

// Z exposes the z coordinate array, indexed by point id.
func (m *Mesh) Z() []float32 { return m.z }

// setPoint stores a point during construction and single-writer passes.
func (m *Mesh) setPoint(i int32, p Vec3) {
	m.x[i] = p.X
	m.y[i] = p.Y
	m.z[i] = p.Z
}

// valence returns the valence of the origin vertex of h — the number of
// incident faces — if the vertex is interior, or -1 if circulating the
// vertex ring reaches the mesh boundary.
//
// The ring is walked via next(twin(h)), which steps to the next outgoing
// half-edge around the origin. Every interior half-edge of the ring computes
// the same valence; boundary vertices are detected by hitting a Boundary twin
// before the ring closes.
func (m *Mesh) valence(h int32) int32 {
	n := int32(0)
	p := h
	for {
		n++
		t := m.twins[p]
		if t < 0 {
			return -1
		}
		p = Next(t)
		if p == h {
			return n
		}
	}
}

// FromQuads builds a half-edge mesh from a face-vertex quad list.
//
// Each quad lists four vertex indices in consistent (counter-clockwise)
// winding. Twins are matched through directed edges: the twin of the
// half-edge a→b is the half-edge b→a of the neighboring face. An edge used
// by more than one half-edge in the same direction means the mesh is
// non-manifold or inconsistently wound, and construction fails.
//
// Undirected edge ids are assigned densely in half-edge order.
func FromQuads(points []Vec3, quads [][4]int) (*Mesh, error) {
	nv := len(points)
	hd := 4 * len(quads)

	verts := make([]int32, hd)
	for f, q := range quads {
		for i, v := range q {
			if v < 0 || v >= nv {
				return nil, fmt.Errorf("%w: face %d vertex %d", ErrInvalidIndex, f, v)
			}
			verts[4*f+i] = int32(v)
		}
	}

	// Match twins through directed edges. Key packs (origin, destination).
	directed := make(map[uint64]int32, hd)
	for h := int32(0); h < int32(hd); h++ {
		key := uint64(verts[h])<<32 | uint64(uint32(verts[Next(h)]))
		if _, dup := directed[key]; dup {
			return nil, fmt.Errorf("%w: duplicate directed edge %d->%d",
				ErrNonManifold, verts[h], verts[Next(h)])
		}
		directed[key] = h
	}

	twins := make([]int32, hd)
	for h := int32(0); h < int32(hd); h++ {
		rev := uint64(verts[Next(h)])<<32 | uint64(uint32(verts[h]))
		if t, ok := directed[rev]; ok {
			twins[h] = t
		} else {
			twins[h] = Boundary
		}
	}

	// Dense edge ids: a half-edge mints a new id unless its twin already
	// received one (twin has the smaller index).
	edges := make([]int32, hd)
	ne := int32(0)
	for h := int32(0); h < int32(hd); h++ {
		if t := twins[h]; t >= 0 && t < h {
			edges[h] = edges[t]
		} else {
			edges[h] = ne
			ne++
		}
	}

	m := &Mesh{
		verts:    verts,
		edges:    edges,
		twins:    twins,
		x:        make([]float32, nv),
		y:        make([]float32, nv),
		z:        make([]float32, nv),
		numVerts: nv,
		numFaces: len(quads),
		numEdges: int(ne),
	}
	for i, p := range points {
		m.setPoint(int32(i), p)
	}
	return m, nil
}

// Quads returns the face-vertex view of the mesh: one entry of four vertex
// indices per face, in half-edge order. The result is freshly allocated.
func (m *Mesh) Quads() [][4]int {
	quads := make([][4]int, m.numFaces)
	for f := range quads {
		h := int32(4 * f)
		quads[f] = [4]int{
			int(m.verts[h]),
			int(m.verts[h+1]),
			int(m.verts[h+2]),
			int(m.verts[h+3]),
		}
	}
	return quads
}

// Points returns a copy of the coordinate array as Vec3 values, indexed by
// point id.
func (m *Mesh) Points() []Vec3 {
	pts := make([]Vec3, len(m.x))
	for i := range pts {
		pts[i] = Vec3{X: m.x[i], Y: m.y[i], Z: m.z[i]}
	}
	return pts
}
