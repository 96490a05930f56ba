// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package subdiv

// refineTopology derives the four child half-edges 4h..4h+3 of parent h and
// writes them into dst. Pure index arithmetic; each parent owns a disjoint
// region of four output slots, so the pass needs no synchronization.
func refineTopology(src, dst *Mesh, h int32) {
	vd := int32(src.numVerts)
	fd := int32(src.numFaces)
	ed2 := int32(2 * src.numEdges)

	hp := Prev(h)
	ht := src.twins[h]
	thp := src.twins[hp]
	he := src.edges[h]
	ehp := src.edges[hp]

	c0 := 4 * h
	c1 := c0 + 1
	c2 := c0 + 2
	c3 := c0 + 3

	// The two middle children are the spokes minted by the split and are
	// always interior, mutual twins across the h/prev(h) pair. The outer
	// two inherit boundary status from the parent's neighbors.
	if ht < 0 {
		dst.twins[c0] = Boundary
	} else {
		dst.twins[c0] = 4*Next(ht) + 3
	}
	dst.twins[c1] = 4*Next(h) + 2
	dst.twins[c2] = 4*hp + 1
	if thp < 0 {
		dst.twins[c3] = Boundary
	} else {
		dst.twins[c3] = 4 * thp
	}

	// Origins: parent origin, edge point of h's edge, face point of h's
	// face, edge point of the previous edge.
	dst.verts[c0] = src.verts[h]
	dst.verts[c1] = vd + fd + he
	dst.verts[c2] = vd + Face(h)
	dst.verts[c3] = vd + fd + ehp

	// Each half of a split parent edge is claimed by the member of the
	// twin pair with the larger index (boundary half-edges always win
	// against the -1 sentinel). Spokes mint fresh ids above 2*ed, one per
	// parent half-edge, so ids stay globally unique without allocation.
	if h > ht {
		dst.edges[c0] = 2*he + 1
	} else {
		dst.edges[c0] = 2 * he
	}
	dst.edges[c1] = ed2 + h
	dst.edges[c2] = ed2 + hp
	if thp > hp {
		dst.edges[c3] = 2*ehp + 1
	} else {
		dst.edges[c3] = 2 * ehp
	}
}
