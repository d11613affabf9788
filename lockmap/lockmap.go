// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package lockmap provides per-key reader/writer locks whose entries are
// dropped once the last holder releases them.
package lockmap

import (
	"slices"
	"sync"

	"github.com/ava-labs/countervm/state"
)

type holderLock struct {
	holders int
	mu      sync.RWMutex
}

type Lockmap struct {
	l sync.Mutex
	m map[string]*holderLock
}

func New(initSize int) *Lockmap {
	return &Lockmap{
		m: make(map[string]*holderLock, initSize),
	}
}

func (l *Lockmap) Lock(key string) {
	l.lock(key, true)
}

func (l *Lockmap) Unlock(key string) {
	l.unlock(key, true)
}

func (l *Lockmap) RLock(key string) {
	l.lock(key, false)
}

func (l *Lockmap) RUnlock(key string) {
	l.unlock(key, false)
}

func (l *Lockmap) lock(key string, write bool) {
	l.l.Lock()
	hl, ok := l.m[key]
	if !ok {
		hl = &holderLock{}
		l.m[key] = hl
	}
	hl.holders++
	l.l.Unlock()

	if write {
		hl.mu.Lock()
	} else {
		hl.mu.RLock()
	}
}

func (l *Lockmap) unlock(key string, write bool) {
	l.l.Lock()
	hl := l.m[key]
	hl.holders--
	if hl.holders == 0 {
		delete(l.m, key)
	}
	l.l.Unlock()

	if write {
		hl.mu.Unlock()
	} else {
		hl.mu.RUnlock()
	}
}

// LockKeys acquires every key in [keys] with the permission it requires and
// returns a function that releases them. Keys are acquired in sorted order
// so concurrent callers cannot deadlock.
func (l *Lockmap) LockKeys(keys state.Keys) func() {
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	slices.Sort(names)

	for _, k := range names {
		if keys[k].Has(state.Write) {
			l.Lock(k)
		} else {
			l.RLock(k)
		}
	}
	return func() {
		for i := len(names) - 1; i >= 0; i-- {
			k := names[i]
			if keys[k].Has(state.Write) {
				l.Unlock(k)
			} else {
				l.RUnlock(k)
			}
		}
	}
}

// Locks returns the number of keys that are held or awaited.
func (l *Lockmap) Locks() int {
	l.l.Lock()
	defer l.l.Unlock()

	return len(l.m)
}
