// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package parallel provides the goroutine pool that dispatches the
// subdivision passes across CPU workers.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a pool of goroutines for data-parallel index dispatch.
//
// The pool distributes work items across multiple workers, each with their
// own queue. Workers steal from other workers when their own queue is empty,
// which balances load when some chunks are slower than others (boundary-heavy
// regions of a mesh, for example).
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	// workers is the number of worker goroutines.
	workers int

	// workQueues holds per-worker work queues.
	// Each worker primarily pulls from its own queue but can steal from others.
	workQueues []chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool
}

// chunksPerWorker controls how many chunks ForEach cuts per worker.
// More chunks than workers keeps everyone busy when chunk costs vary.
const chunksPerWorker = 4

// minChunk is the smallest index range worth handing to a worker;
// below this the closure overhead dominates the kernel work.
const minChunk = 64

// NewPool creates a pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// The pool starts immediately and workers begin waiting for work.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Buffer enough slots that ForEach can queue a full dispatch
	// without blocking on slow workers.
	queueSize := chunksPerWorker * 2
	if queueSize < 8 {
		queueSize = 8
	}

	p := &Pool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}

	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// worker is the main loop for each worker goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]

	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return

		case work := <-myQueue:
			if work != nil {
				work()
			}

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
			} else {
				// No work available anywhere, block on own queue.
				select {
				case <-p.done:
					p.drainQueue(myQueue)
					return
				case work := <-myQueue:
					if work != nil {
						work()
					}
				}
			}
		}
	}
}

// drainQueue executes all remaining work in a queue.
func (p *Pool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			if work != nil {
				work()
			}
		default:
			return
		}
	}
}

// steal attempts to take work from another worker's queue.
// Returns nil if no work is available.
func (p *Pool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}

		select {
		case work := <-p.workQueues[i]:
			return work
		default:
			// Queue is empty, try next.
		}
	}
	return nil
}

// Run distributes work items across workers and waits for all to complete.
// If the pool is closed, this is a no-op.
func (p *Pool) Run(work []func()) {
	if len(work) == 0 || !p.running.Load() {
		return
	}

	var completion sync.WaitGroup
	completion.Add(len(work))

	for i, fn := range work {
		workerID := i % p.workers
		workFn := fn

		wrapped := func() {
			defer completion.Done()
			workFn()
		}

		select {
		case p.workQueues[workerID] <- wrapped:
			// Successfully queued.
		case <-p.done:
			// Pool is closing, drop the item.
			completion.Done()
		}
	}

	completion.Wait()
}

// ForEach splits the index range [0, n) into chunks, runs fn over every
// chunk on the pool, and returns once all indices have been processed.
//
// The return doubles as an execution barrier: callers that sequence
// dependent dispatches (the subdivision passes) get the ordering guarantee
// for free. Chunk boundaries depend on the worker count, so fn must produce
// results independent of how indices are grouped.
func (p *Pool) ForEach(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	chunk := n / (p.workers * chunksPerWorker)
	if chunk < minChunk {
		chunk = minChunk
	}

	work := make([]func(), 0, (n+chunk-1)/chunk)
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		s, e := start, end
		work = append(work, func() { fn(s, e) })
	}

	p.Run(work)
}

// Close gracefully shuts down the pool.
// It stops accepting new work, waits for all queued work to complete,
// and then stops all workers.
// Close is safe to call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		// Already closed.
		return
	}

	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}
