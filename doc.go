// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package subdiv implements parallel Catmull-Clark subdivision of quad meshes.
//
// # Overview
//
// subdiv refines 2-manifold quadrilateral meshes using a half-edge refinement
// scheme: each subdivision level quadruples the face count and is computed by
// four data-parallel passes (topology, face points, edge points, vertex
// points) over the half-edges of the input level. The mesh topology is encoded
// entirely as dense integer-indexed arrays, so all passes can share the input
// level across workers without synchronization; the only mutable shared state
// is the output level's coordinate arrays, which are updated with lock-free
// atomic accumulation.
//
// # Quick Start
//
//	import "github.com/gogpu/subdiv"
//
//	// Build a half-edge mesh from a face-vertex quad list.
//	mesh, err := subdiv.FromQuads(points, quads)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Subdivide two levels on all CPUs.
//	r := subdiv.NewRefiner()
//	refined := r.RefineTo(mesh, 2)
//
// # Architecture
//
// The library is organized into:
//   - Public API: Mesh, Refiner, FromQuads, Vec3
//   - internal/parallel: work-stealing goroutine pool for pass dispatch
//   - objfile: Wavefront OBJ import/export for quad meshes
//   - gpu: compute-shader refiner via gogpu/wgpu (optional)
//   - preview: wireframe rendering of mesh levels
//
// # Mesh Representation
//
// A Mesh is one subdivision level. Half-edges of a face occupy four
// consecutive indices, so the face cycle is pure index arithmetic and no
// adjacency pointers exist anywhere. Boundary half-edges carry a twin of -1.
// Refinement never mutates its input: each level is immutable once computed
// and the next level is built into a freshly allocated buffer.
//
// # Concurrency
//
// Refine is safe to call from multiple goroutines on the same input mesh.
// Within a pass, execution order is unspecified and does not affect the
// result: writes are either disjoint by construction or commutative atomic
// adds. A pool-completion wait separates consecutive passes, which is required
// for correctness (later passes read values finalized by earlier ones).
package subdiv

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"
)
