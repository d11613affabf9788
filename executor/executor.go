// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/ava-labs/countervm/state"
)

// Metrics is notified each time a task is enqueued.
type Metrics interface {
	RecordBlocked()
	RecordExecutable()
}

// Executor sequences the concurrent execution of
// tasks with arbitrary conflicts on-the-fly.
//
// Tasks that write a key run after every previously queued task
// that reads or writes that key. Tasks that only read a key run
// after the previous writer of that key. Tasks with no conflicts
// are executed immediately.
type Executor struct {
	metrics Metrics
	sem     chan struct{}

	added int
	tasks []*task
	keys  map[string]*keyEdges

	outstanding sync.WaitGroup

	err atomic.Error
}

type keyEdges struct {
	writer  int
	written bool
	readers []int
}

// New creates a new [Executor] that accepts up to [items] tasks and runs
// at most [concurrency] of them at once. [metrics] may be nil.
func New(items, concurrency int, metrics Metrics) *Executor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Executor{
		metrics: metrics,
		sem:     make(chan struct{}, concurrency),
		tasks:   make([]*task, items),
		keys:    make(map[string]*keyEdges, items*2),
	}
}

type task struct {
	f func() error

	l        sync.Mutex
	waiters  []*sync.WaitGroup
	executed bool
}

func (e *Executor) dependOn(id int, wg *sync.WaitGroup, deps map[int]struct{}) {
	for dep := range deps {
		if dep == id {
			continue
		}
		dt := e.tasks[dep]
		dt.l.Lock()
		if !dt.executed {
			wg.Add(1)
			dt.waiters = append(dt.waiters, wg)
		}
		dt.l.Unlock()
	}
}

// Run executes [f] after all previously enqueued [f] with
// overlapping [conflicts] are executed.
//
// Run is not safe to call concurrently.
func (e *Executor) Run(conflicts state.Keys, f func() error) {
	if e.added >= len(e.tasks) {
		e.err.CompareAndSwap(nil, ErrTooManyTasks)
		return
	}

	id := e.added
	e.added++
	t := &task{f: f}
	e.tasks[id] = t
	e.outstanding.Add(1)

	deps := map[int]struct{}{}
	for k, p := range conflicts {
		edges, ok := e.keys[k]
		if !ok {
			edges = &keyEdges{}
			e.keys[k] = edges
		}
		if edges.written {
			deps[edges.writer] = struct{}{}
		}
		if p.Has(state.Write) {
			for _, r := range edges.readers {
				deps[r] = struct{}{}
			}
			edges.writer = id
			edges.written = true
			edges.readers = nil
			continue
		}
		edges.readers = append(edges.readers, id)
	}

	wg := &sync.WaitGroup{}
	e.dependOn(id, wg, deps)
	if e.metrics != nil {
		if len(deps) > 0 {
			e.metrics.RecordBlocked()
		} else {
			e.metrics.RecordExecutable()
		}
	}

	go func() {
		wg.Wait()

		defer func() {
			t.l.Lock()
			for _, w := range t.waiters {
				w.Done()
			}
			t.waiters = nil
			t.executed = true
			t.l.Unlock()
			e.outstanding.Done()
		}()

		if e.err.Load() != nil {
			return
		}

		e.sem <- struct{}{}
		err := t.f()
		<-e.sem
		if err != nil {
			e.err.CompareAndSwap(nil, err)
		}
	}()
}

func (e *Executor) Stop() {
	e.err.CompareAndSwap(nil, ErrStopped)
}

// Wait returns as soon as all enqueued [f] are executed.
//
// You should not call [Run] after [Wait] is called.
func (e *Executor) Wait() error {
	e.outstanding.Wait()
	return e.err.Load()
}
