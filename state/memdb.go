// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/maybe"
)

var (
	_ Database = (*MemDB)(nil)

	ErrClosed = errors.New("closed")
)

// MemDB is an in-memory [Database].
type MemDB struct {
	l      sync.RWMutex
	db     map[string][]byte
	closed bool
}

func NewMemDB() *MemDB {
	return &MemDB{db: map[string][]byte{}}
}

func (m *MemDB) GetValue(_ context.Context, key []byte) ([]byte, error) {
	m.l.RLock()
	defer m.l.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.db[string(key)]
	if !ok {
		return nil, database.ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *MemDB) Apply(_ context.Context, changes map[string]maybe.Maybe[[]byte]) error {
	m.l.Lock()
	defer m.l.Unlock()

	if m.closed {
		return ErrClosed
	}
	for k, v := range changes {
		if v.IsNothing() {
			delete(m.db, k)
			continue
		}
		m.db[k] = slices.Clone(v.Value())
	}
	return nil
}

func (m *MemDB) Len() int {
	m.l.RLock()
	defer m.l.RUnlock()

	return len(m.db)
}

func (m *MemDB) Close() error {
	m.l.Lock()
	defer m.l.Unlock()

	m.closed = true
	m.db = nil
	return nil
}
