// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package subdiv

import (
	"time"

	"github.com/gogpu/subdiv/internal/parallel"
)

// Refiner drives the four-pass subdivision pipeline on the CPU.
//
// Each call to Refine allocates the output level, then dispatches the
// topology, face-point, edge-point and vertex-point passes over the input
// half-edge range. A pool-completion wait separates the passes; skipping it
// would let a pass read accumulators the previous pass has not finished,
// so the ordering here is a correctness requirement, not a tuning choice.
//
// A Refiner owns its worker pool. Call Close when done with it.
// Refiner is safe for concurrent use; levels are never mutated in place.
type Refiner struct {
	pool *parallel.Pool
}

// Option configures a Refiner during creation.
type Option func(*refinerOptions)

// refinerOptions holds optional configuration for Refiner creation.
type refinerOptions struct {
	workers int
}

// WithWorkers sets the number of pool workers.
// Zero or negative selects GOMAXPROCS.
//
// The refined mesh does not depend on the worker count: all concurrent
// writes are disjoint or commutative.
func WithWorkers(n int) Option {
	return func(o *refinerOptions) {
		o.workers = n
	}
}

// NewRefiner creates a Refiner and starts its worker pool.
func NewRefiner(opts ...Option) *Refiner {
	var o refinerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Refiner{pool: parallel.NewPool(o.workers)}
}

// Close shuts down the worker pool. The Refiner must not be used afterwards.
func (r *Refiner) Close() {
	r.pool.Close()
}

// Workers returns the number of pool workers.
func (r *Refiner) Workers() int {
	return r.pool.Workers()
}

// Refine computes one subdivision level of src into a freshly allocated
// mesh and returns it. src is read-only throughout and remains valid.
//
// src must be a well-formed 2-manifold quad mesh (as produced by FromQuads
// or a previous Refine); the passes perform no bounds checks, so malformed
// topology panics or corrupts the output rather than returning an error.
func (r *Refiner) Refine(src *Mesh) *Mesh {
	vd := src.numVerts
	fd := src.numFaces
	ed := src.numEdges
	hd := src.NumHalfEdges()

	start := time.Now()
	dst := NewLevel(vd+fd+ed, 4*fd, 2*ed+hd)

	// Four dispatches over the input half-edges. Every ForEach returns
	// only after the whole range ran, which is the inter-pass barrier.
	r.pool.ForEach(hd, func(lo, hi int) {
		for h := int32(lo); h < int32(hi); h++ {
			refineTopology(src, dst, h)
		}
	})
	r.pool.ForEach(hd, func(lo, hi int) {
		for h := int32(lo); h < int32(hi); h++ {
			facePoint(src, dst, h)
		}
	})
	r.pool.ForEach(hd, func(lo, hi int) {
		for h := int32(lo); h < int32(hi); h++ {
			edgePoint(src, dst, h)
		}
	})
	r.pool.ForEach(hd, func(lo, hi int) {
		for h := int32(lo); h < int32(hi); h++ {
			vertexPoint(src, dst, h)
		}
	})

	Logger().Debug("subdiv: refined level",
		"faces", fd, "halfedges", hd,
		"outVerts", dst.numVerts, "outFaces", dst.numFaces,
		"elapsed", time.Since(start))
	return dst
}

// RefineTo applies Refine depth times and returns the final level.
// Intermediate levels become garbage as soon as the next level is built.
// depth <= 0 returns src unchanged.
func (r *Refiner) RefineTo(src *Mesh, depth int) *Mesh {
	m := src
	for range depth {
		m = r.Refine(m)
	}
	return m
}
