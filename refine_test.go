// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package subdiv

import (
	"reflect"
	"testing"
)

// =============================================================================
// Geometric passes
// =============================================================================

// TestRefine_UnitQuadGeometry walks through the canonical single-quad
// scenario: one face point at the centroid, four edge points at the edge
// midpoints, and the four corners moved by the boundary rule.
func TestRefine_UnitQuadGeometry(t *testing.T) {
	r := NewRefiner(WithWorkers(2))
	defer r.Close()

	m := r.Refine(newUnitQuad(t))

	if m.NumVerts() != 9 || m.NumFaces() != 4 {
		t.Fatalf("counts = (%d,%d), want (9,4)", m.NumVerts(), m.NumFaces())
	}

	const eps = 1e-7

	// Face point: id vd+0 = 4, exact centroid.
	if got := m.Point(4); !got.Approx(V3(0.5, 0.5, 0), eps) {
		t.Errorf("face point = %v, want (0.5,0.5,0)", got)
	}

	// Edge points: ids vd+fd+e = 5..8, exact midpoints of edges 0..3.
	wantEdgePoints := []Vec3{
		V3(0.5, 0, 0),
		V3(1, 0.5, 0),
		V3(0.5, 1, 0),
		V3(0, 0.5, 0),
	}
	for e, want := range wantEdgePoints {
		if got := m.Point(int32(5 + e)); !got.Approx(want, eps) {
			t.Errorf("edge point %d = %v, want %v", e, got, want)
		}
	}

	// Corners: each receives two boundary contributions summing to
	// (neighbor + neighbor + 6*old)/8.
	wantCorners := []Vec3{
		V3(0.125, 0.125, 0),
		V3(0.875, 0.125, 0),
		V3(0.875, 0.875, 0),
		V3(0.125, 0.875, 0),
	}
	for v, want := range wantCorners {
		if got := m.Point(int32(v)); !got.Approx(want, eps) {
			t.Errorf("corner %d = %v, want %v", v, got, want)
		}
	}
}

// TestRefine_TwoQuadsSharedEdge verifies the interior edge rule: the shared
// edge produces exactly one edge point averaged from both endpoints and both
// adjacent face points.
func TestRefine_TwoQuadsSharedEdge(t *testing.T) {
	r := NewRefiner()
	defer r.Close()

	src := newTwoQuads(t)
	m := r.Refine(src)

	const eps = 1e-7

	// Face points at ids 6 and 7.
	if got := m.Point(6); !got.Approx(V3(0.5, 0.5, 0), eps) {
		t.Errorf("face point 0 = %v, want (0.5,0.5,0)", got)
	}
	if got := m.Point(7); !got.Approx(V3(1.5, 0.5, 0), eps) {
		t.Errorf("face point 1 = %v, want (1.5,0.5,0)", got)
	}

	// The shared edge 1-4 has id 1; its point id is vd+fd+1 = 9.
	// Interior rule: (v1 + v4 + facePoint0 + facePoint1) / 4.
	sharedID := int32(src.NumVerts()) + int32(src.NumFaces()) + src.Edge(1)
	if sharedID != 9 {
		t.Fatalf("shared edge point id = %d, want 9", sharedID)
	}
	if got := m.Point(sharedID); !got.Approx(V3(1, 0.5, 0), eps) {
		t.Errorf("shared edge point = %v, want (1,0.5,0)", got)
	}

	// Both sub-faces adjacent to the split must reference the same edge
	// point: child 1 of half-edge 1 and child 1 of its twin 7.
	if a, b := m.Vert(4*1+1), m.Vert(4*7+1); a != sharedID || b != sharedID {
		t.Errorf("children reference edge points %d and %d, want %d", a, b, sharedID)
	}

	// The shared-edge endpoints sit on the outer boundary and are smoothed
	// by the boundary rule along it: both stay in place here.
	if got := m.Point(1); !got.Approx(V3(1, 0, 0), eps) {
		t.Errorf("vertex 1 = %v, want (1,0,0)", got)
	}
	if got := m.Point(4); !got.Approx(V3(1, 1, 0), eps) {
		t.Errorf("vertex 4 = %v, want (1,1,0)", got)
	}
}

// TestRefine_CubeCorners exercises the interior vertex rule at valence 3:
// every corner of the closed [-1,1]³ cube contracts to ±5/9 per axis.
func TestRefine_CubeCorners(t *testing.T) {
	r := NewRefiner()
	defer r.Close()

	src := newCube(t)
	m := r.Refine(src)

	const c = 5.0 / 9.0
	const eps = 1e-5

	for v := int32(0); v < 8; v++ {
		old := src.Point(v)
		want := V3(sign(old.X)*c, sign(old.Y)*c, sign(old.Z)*c)
		if got := m.Point(v); !got.Approx(want, eps) {
			t.Errorf("corner %d = %v, want %v", v, got, want)
		}
	}
}

func sign(x float32) float32 {
	if x < 0 {
		return -1
	}
	return 1
}

// TestRefine_GridCenterVertex exercises the interior vertex rule at
// valence 4: the symmetric center of a flat grid must not move.
func TestRefine_GridCenterVertex(t *testing.T) {
	r := NewRefiner()
	defer r.Close()

	m := r.Refine(newGrid3(t))

	if got := m.Point(4); !got.Approx(V3(1, 1, 0), 1e-7) {
		t.Errorf("center vertex = %v, want (1,1,0)", got)
	}
}

// TestRefine_PartitionOfUnity checks that every face point accumulates to
// the exact arithmetic mean of its four corners: the four weighted
// contributions sum to weight 1.
func TestRefine_PartitionOfUnity(t *testing.T) {
	src := newGrid3(t)
	// Perturb heights so the mean is not trivially zero.
	for i := range src.z {
		src.z[i] = float32(i) * 0.25
	}

	r := NewRefiner()
	defer r.Close()
	m := r.Refine(src)

	vd := int32(src.NumVerts())
	for f := int32(0); f < int32(src.NumFaces()); f++ {
		var mean Vec3
		for i := int32(0); i < 4; i++ {
			mean = mean.Add(src.Point(src.Vert(4*f + i)))
		}
		mean = mean.Div(4)

		if got := m.Point(vd + f); !got.Approx(mean, 1e-6) {
			t.Errorf("face point %d = %v, want centroid %v", f, got, mean)
		}
	}
}

// =============================================================================
// Determinism and convergence
// =============================================================================

// TestRefine_Determinism re-runs the pipeline with different worker counts,
// which changes chunk boundaries and thread-to-index assignment. The output
// must be bit-identical. Grid coordinates are dyadic so every accumulation
// is exact regardless of ordering.
func TestRefine_Determinism(t *testing.T) {
	refine := func(workers int) *Mesh {
		r := NewRefiner(WithWorkers(workers))
		defer r.Close()
		return r.RefineTo(newGrid3(t), 2)
	}

	base := refine(1)
	for _, workers := range []int{2, 3, 8} {
		m := refine(workers)
		if !reflect.DeepEqual(m.verts, base.verts) ||
			!reflect.DeepEqual(m.edges, base.edges) ||
			!reflect.DeepEqual(m.twins, base.twins) {
			t.Fatalf("workers=%d: topology differs from single-worker run", workers)
		}
		if !reflect.DeepEqual(m.x, base.x) ||
			!reflect.DeepEqual(m.y, base.y) ||
			!reflect.DeepEqual(m.z, base.z) {
			t.Fatalf("workers=%d: coordinates differ from single-worker run", workers)
		}
	}
}

// TestRefine_BoundaryConvergence subdivides the all-boundary unit quad
// repeatedly. The corner at the origin must creep toward the interior
// monotonically — no oscillation — while staying clear of the centroid.
func TestRefine_BoundaryConvergence(t *testing.T) {
	r := NewRefiner()
	defer r.Close()

	m := newUnitQuad(t)
	prev := m.Point(0)

	for level := 1; level <= 5; level++ {
		m = r.Refine(m)
		got := m.Point(0) // old vertices keep their ids across levels

		if got.X <= prev.X || got.Y <= prev.Y {
			t.Fatalf("level %d: corner %v did not advance from %v", level, got, prev)
		}
		if got.X >= 0.5 || got.Y >= 0.5 {
			t.Fatalf("level %d: corner %v overshot the centroid", level, got)
		}
		if got.X != got.Y {
			t.Errorf("level %d: diagonal symmetry broken: %v", level, got)
		}
		prev = got
	}
}

// TestRefineTo_Depths checks RefineTo against repeated Refine.
func TestRefineTo_Depths(t *testing.T) {
	r := NewRefiner()
	defer r.Close()

	if m := r.RefineTo(newCube(t), 0); m.NumFaces() != 6 {
		t.Errorf("depth 0 must return the input level")
	}

	want := newCube(t)
	for i := 0; i < 3; i++ {
		want = r.Refine(want)
	}
	got := r.RefineTo(newCube(t), 3)

	if got.NumFaces() != want.NumFaces() || got.NumVerts() != want.NumVerts() {
		t.Errorf("RefineTo(3) counts (%d,%d), want (%d,%d)",
			got.NumFaces(), got.NumVerts(), want.NumFaces(), want.NumVerts())
	}
	if !reflect.DeepEqual(got.verts, want.verts) {
		t.Errorf("RefineTo(3) topology differs from three Refine calls")
	}
}
