// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nin

import (
	"runtime"

	"golang.org/x/sync/semaphore"
)

// executor is the loader's fork-join task spawner: a worker pool bounded to
// a fixed size, the Go analogue of n2's rayon::Scope. Every task the
// orchestrator submits (a chunk to parse, a subninja to recurse into, a
// build to construct) goes through spawn.
//
// spawn must never block its caller. A task already running inside the
// pool (e.g. a subninja's own goroutine) routinely submits further nested
// work of its own (parseManifest spawning one task per chunk) before
// waiting on the result — at parallelism=1 that goroutine is the pool's
// only permit holder, so if spawn blocked (or spun) waiting for a permit
// to free, it would be waiting on itself: the permit can only be released
// by this same goroutine returning, which can't happen until the nested
// spawn it's blocked on succeeds. Acquiring with a blocking (or
// busy-retrying) wait therefore self-deadlocks regardless of how the wait
// is implemented. Instead, spawn only ever takes a permit opportunistically
// (TryAcquire, never blocking); when none is free it runs fn synchronously
// on the calling goroutine instead of deferring it to a new one. Running
// inline adds no concurrency and so can never be the cause of a future
// deadlock, and it still bounds the pool to at most parallelism extra
// goroutines running at once, gracefully degrading to sequential execution
// for work submitted beyond that — the same shape as rayon::join running
// one of its two closures on the calling thread rather than queuing it.
type executor struct {
	sem *semaphore.Weighted
}

// newExecutor creates an executor bounded to parallelism concurrent tasks.
// parallelism <= 0 defaults to runtime.GOMAXPROCS(0).
func newExecutor(parallelism int) *executor {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &executor{sem: semaphore.NewWeighted(int64(parallelism))}
}

// spawn runs fn on a pool goroutine if a slot is immediately free, or
// inline on the calling goroutine otherwise — either way it returns without
// ever waiting on another task. The caller observes completion by
// receiving from a channel fn itself closes over and sends to.
func (e *executor) spawn(fn func()) {
	if e.sem.TryAcquire(1) {
		go func() {
			defer e.sem.Release(1)
			fn()
		}()
		return
	}
	fn()
}

// recvOne drains exactly one result from ch via non-blocking receive with
// cooperative yielding, so the caller never blocks indefinitely on a
// channel fed by a task still queued behind the pool's bound.
func recvOne[T any](ch <-chan T) T {
	for {
		select {
		case v := <-ch:
			return v
		default:
			runtime.Gosched()
		}
	}
}

// collectResults drains exactly n results from ch the same way (spec's
// "try-receive + yield" collector).
func collectResults[T any](ch <-chan T, n int) []T {
	results := make([]T, 0, n)
	for len(results) < n {
		results = append(results, recvOne(ch))
	}
	return results
}
