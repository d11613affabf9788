// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/ava-labs/countervm/state"
	"github.com/ava-labs/countervm/storage"
)

// scheduling is non-deterministic, so ordering tests repeat
const iterations = 10

var errTask = errors.New("task failed")

func accountKey() string {
	return string(storage.AccountKey(solana.NewWallet().PublicKey()))
}

func keys(perm state.Permissions, accounts ...string) state.Keys {
	k := make(state.Keys, len(accounts))
	for _, a := range accounts {
		k.Add(a, perm)
	}
	return k
}

// recorder remembers the order in which tasks completed.
type recorder struct {
	l     sync.Mutex
	order []int
}

func (r *recorder) task(i int, before func()) func() error {
	return func() error {
		if before != nil {
			before()
		}
		r.l.Lock()
		r.order = append(r.order, i)
		r.l.Unlock()
		return nil
	}
}

func (r *recorder) filter(keep func(int) bool) []int {
	var out []int
	for _, i := range r.order {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}

type countingMetrics struct {
	blocked    atomic.Int64
	executable atomic.Int64
}

func (m *countingMetrics) RecordBlocked()    { m.blocked.Inc() }
func (m *countingMetrics) RecordExecutable() { m.executable.Inc() }

func TestDisjointAccounts(t *testing.T) {
	require := require.New(t)

	metrics := &countingMetrics{}
	e := New(64, 4, metrics)
	r := &recorder{}
	for i := 0; i < 64; i++ {
		e.Run(keys(state.All, accountKey(), accountKey()), r.task(i, nil))
	}
	require.NoError(e.Wait())
	require.Len(r.order, 64)
	require.Equal(int64(64), metrics.executable.Load())
	require.Zero(metrics.blocked.Load())
}

func TestSharedWriterOrder(t *testing.T) {
	for j := 0; j < iterations; j++ {
		require := require.New(t)

		shared := accountKey()
		e := New(64, 8, nil)
		r := &recorder{}
		slow := make(chan struct{})
		for i := 0; i < 64; i++ {
			k := keys(state.Write, accountKey())
			if i%8 == 0 {
				k.Add(shared, state.Write)
			}
			var before func()
			if i == 0 {
				before = func() { <-slow }
			}
			e.Run(k, r.task(i, before))
		}
		close(slow)
		require.NoError(e.Wait())
		require.Len(r.order, 64)
		require.Equal(
			[]int{0, 8, 16, 24, 32, 40, 48, 56},
			r.filter(func(i int) bool { return i%8 == 0 }),
		)
	}
}

func TestConcurrentReaders(t *testing.T) {
	require := require.New(t)

	shared := accountKey()
	metrics := &countingMetrics{}
	e := New(32, 32, metrics)
	var started sync.WaitGroup
	release := make(chan struct{})
	started.Add(32)
	for i := 0; i < 32; i++ {
		e.Run(keys(state.Read, shared), func() error {
			started.Done()
			<-release
			return nil
		})
	}
	// every reader is running at once
	started.Wait()
	close(release)
	require.NoError(e.Wait())
	require.Zero(metrics.blocked.Load())
}

func TestWriterWaitsForReaders(t *testing.T) {
	for j := 0; j < iterations; j++ {
		require := require.New(t)

		shared := accountKey()
		e := New(40, 4, nil)
		r := &recorder{}
		slow := make(chan struct{})
		for i := 0; i < 40; i++ {
			perm := state.Read
			if i == 20 {
				perm = state.Write
			}
			var before func()
			if i == 19 {
				before = func() { <-slow }
			}
			e.Run(keys(perm, shared), r.task(i, before))
		}
		close(slow)
		require.NoError(e.Wait())
		require.Len(r.order, 40)
		// the writer completes after every earlier reader and before every
		// later one
		require.Equal(20, r.order[20])
	}
}

func TestFailureSkipsRemaining(t *testing.T) {
	require := require.New(t)

	shared := accountKey()
	e := New(100, 4, nil)
	r := &recorder{}
	for i := 0; i < 100; i++ {
		ti := i
		record := r.task(i, nil)
		e.Run(keys(state.Write, shared), func() error {
			if err := record(); err != nil {
				return err
			}
			if ti == 40 {
				return errTask
			}
			return nil
		})
	}
	require.ErrorIs(e.Wait(), errTask)
	require.Len(r.order, 41)
}

func TestStopSkipsRemaining(t *testing.T) {
	require := require.New(t)

	shared := accountKey()
	e := New(100, 4, nil)
	r := &recorder{}
	for i := 0; i < 100; i++ {
		var before func()
		if i == 40 {
			before = e.Stop
		}
		e.Run(keys(state.Write, shared), r.task(i, before))
	}
	require.ErrorIs(e.Wait(), ErrStopped)
	require.Len(r.order, 41)
}

func TestTooManyTasks(t *testing.T) {
	require := require.New(t)

	e := New(1, 1, nil)
	e.Run(state.Keys{}, func() error { return nil })
	e.Run(state.Keys{}, func() error { return nil })
	require.ErrorIs(e.Wait(), ErrTooManyTasks)
}
