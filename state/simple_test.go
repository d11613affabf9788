// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"context"
	"errors"
	"testing"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSimpleMutableOverlay(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	db := NewMemDB()
	require.NoError(db.Apply(ctx, map[string]maybe.Maybe[[]byte]{
		"a": maybe.Some([]byte{1}),
		"b": maybe.Some([]byte{2}),
	}))

	mu := NewSimpleMutable(db)
	require.NoError(mu.Insert(ctx, []byte("a"), []byte{3}))
	require.NoError(mu.Remove(ctx, []byte("b")))
	require.NoError(mu.Insert(ctx, []byte("c"), []byte{4}))
	require.Equal(3, mu.PendingChanges())

	v, err := mu.GetValue(ctx, []byte("a"))
	require.NoError(err)
	require.Equal([]byte{3}, v)
	_, err = mu.GetValue(ctx, []byte("b"))
	require.ErrorIs(err, database.ErrNotFound)

	// Nothing reaches the database before commit
	v, err = db.GetValue(ctx, []byte("a"))
	require.NoError(err)
	require.Equal([]byte{1}, v)
	_, err = db.GetValue(ctx, []byte("c"))
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(mu.Commit(ctx))
	require.Zero(mu.PendingChanges())
	v, err = db.GetValue(ctx, []byte("c"))
	require.NoError(err)
	require.Equal([]byte{4}, v)
	_, err = db.GetValue(ctx, []byte("b"))
	require.ErrorIs(err, database.ErrNotFound)
	require.Equal(2, db.Len())
}

func TestSimpleMutableCommitFailureKeepsChanges(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	errWrite := errors.New("disk full")
	db := NewMockDatabase(ctrl)
	db.EXPECT().Apply(gomock.Any(), gomock.Any()).Return(errWrite)

	mu := NewSimpleMutable(db)
	require.NoError(mu.Insert(ctx, []byte("a"), []byte{1}))
	require.ErrorIs(mu.Commit(ctx), errWrite)
	require.Equal(1, mu.PendingChanges())
}

func TestSimpleMutableEmptyCommit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Apply must not be called without changes
	require.NoError(t, NewSimpleMutable(NewMockDatabase(ctrl)).Commit(context.Background()))
}

func TestMemDBClosed(t *testing.T) {
	require := require.New(t)

	db := NewMemDB()
	require.NoError(db.Close())
	_, err := db.GetValue(context.Background(), []byte("a"))
	require.ErrorIs(err, ErrClosed)
	require.ErrorIs(db.Apply(context.Background(), nil), ErrClosed)
}
