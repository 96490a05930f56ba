// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package subdiv

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// atomicAdd32 adds v to *p with a lock-free compare-exchange loop.
//
// The geometric passes fan several contributions into shared accumulators
// from concurrent workers; addition is commutative, so the accumulated value
// is independent of thread-to-index assignment. This is the CPU equivalent
// of the hardware atomic float add a compute shader would use.
func atomicAdd32(p *float32, v float32) {
	addr := (*uint32)(unsafe.Pointer(p))
	for {
		old := atomic.LoadUint32(addr)
		next := math.Float32bits(math.Float32frombits(old) + v)
		if atomic.CompareAndSwapUint32(addr, old, next) {
			return
		}
	}
}

// addPoint atomically accumulates p into point id i.
func (m *Mesh) addPoint(i int32, p Vec3) {
	atomicAdd32(&m.x[i], p.X)
	atomicAdd32(&m.y[i], p.Y)
	atomicAdd32(&m.z[i], p.Z)
}
