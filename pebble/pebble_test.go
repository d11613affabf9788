// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"context"
	"testing"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/countervm/state"
)

func TestDatabaseApply(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cfg := NewDefaultConfig()
	cfg.Sync = false
	db, registry, err := New(t.TempDir(), cfg)
	require.NoError(err)
	require.NotNil(registry)

	_, err = db.GetValue(ctx, []byte("missing"))
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(db.Apply(ctx, map[string]maybe.Maybe[[]byte]{
		"a": maybe.Some([]byte{1, 2}),
		"b": maybe.Some([]byte{3}),
	}))
	v, err := db.GetValue(ctx, []byte("a"))
	require.NoError(err)
	require.Equal([]byte{1, 2}, v)

	require.NoError(db.Apply(ctx, map[string]maybe.Maybe[[]byte]{
		"a": maybe.Nothing[[]byte](),
	}))
	_, err = db.GetValue(ctx, []byte("a"))
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(db.Close())
	_, err = db.GetValue(ctx, []byte("b"))
	require.ErrorIs(err, ErrClosed)
	require.ErrorIs(db.Close(), ErrClosed)
}

func TestDatabaseReopen(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	db, _, err := New(dir, NewDefaultConfig())
	require.NoError(err)
	mu := state.NewSimpleMutable(db)
	require.NoError(mu.Insert(ctx, []byte("counter"), []byte{5, 0, 0, 0}))
	require.NoError(mu.Commit(ctx))
	require.NoError(db.Close())

	db, _, err = New(dir, NewDefaultConfig())
	require.NoError(err)
	v, err := db.GetValue(ctx, []byte("counter"))
	require.NoError(err)
	require.Equal([]byte{5, 0, 0, 0}, v)
	require.NoError(db.Close())
}
