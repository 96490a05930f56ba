// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package subdiv

// The three geometric kernels below run one invocation per half-edge of the
// input level and co-write the output coordinate arrays through atomic
// accumulation. Weights are chosen so that the fan-in sums need no
// normalization afterwards. Each kernel may read output values written by
// the previous pass only, which is why the driver places a full barrier
// between passes.

// facePoint adds h's weighted origin to the centroid accumulator of its
// face. Four contributions of weight 1/4 land on every face point, so after
// the pass the accumulator holds the exact centroid.
func facePoint(src, dst *Mesh, h int32) {
	fp := int32(src.numVerts) + Face(h)
	dst.addPoint(fp, src.Point(src.verts[h]).Div(4))
}

// edgePoint computes the new point of h's edge.
//
// Interior edges average the two endpoints and the two adjacent face points:
// both half-edges of the pair contribute their origin plus their own face
// point at weight 1/4. Boundary edges have a single writer and store the
// exact midpoint directly.
func edgePoint(src, dst *Mesh, h int32) {
	vd := int32(src.numVerts)
	ep := vd + int32(src.numFaces) + src.edges[h]

	if src.twins[h] < 0 {
		mid := src.Point(src.verts[h]).Add(src.Point(src.verts[Next(h)])).Div(2)
		dst.setPoint(ep, mid)
		return
	}

	// The face point is final: the face-point pass completed before this
	// pass started.
	sum := src.Point(src.verts[h]).Add(dst.Point(vd + Face(h)))
	dst.addPoint(ep, sum.Div(4))
}

// vertexPoint accumulates h's share of the repositioned origin vertex.
//
// For an interior vertex of valence n, every one of its n incident
// half-edges adds (4E - F + (n-3)V)/n² built from its own edge and face
// point; the n contributions sum to the Catmull-Clark vertex rule
// (avgF + 2*avgMid + (n-3)V)/n with total weight 1.
//
// A boundary vertex is smoothed by its two boundary edges instead: each
// boundary half-edge feeds (E + V)/4 to both endpoints of its edge, giving
// every boundary vertex exactly two contributions that sum to the cubic
// B-spline boundary rule. Interior half-edges whose origin lies on the
// boundary contribute nothing.
func vertexPoint(src, dst *Mesh, h int32) {
	vd := int32(src.numVerts)
	fd := int32(src.numFaces)
	v := src.verts[h]

	if n := src.valence(h); n > 0 {
		nf := float32(n)
		e := dst.Point(vd + fd + src.edges[h])
		f := dst.Point(vd + Face(h))
		p := src.Point(v)
		dst.addPoint(v, e.Mul(4).Sub(f).Add(p.Mul(nf-3)).Div(nf*nf))
		return
	}

	if src.twins[h] >= 0 {
		return
	}

	e := dst.Point(vd + fd + src.edges[h])
	vn := src.verts[Next(h)]
	dst.addPoint(v, e.Add(src.Point(v)).Div(4))
	dst.addPoint(vn, e.Add(src.Point(vn)).Div(4))
}
