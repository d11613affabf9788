// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/ava-labs/avalanchego/utils/perms"
	"github.com/stretchr/testify/require"
)

func TestBytesRoundTrip(t *testing.T) {
	require := require.New(t)

	filename := filepath.Join(t.TempDir(), "key")
	key := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(SaveBytes(filename, key))

	info, err := os.Stat(filename)
	require.NoError(err)
	require.Equal(os.FileMode(perms.ReadWrite), info.Mode().Perm())

	loaded, err := LoadBytes(filename, len(key))
	require.NoError(err)
	require.Equal(key, loaded)

	loaded, err = LoadBytes(filename, -1)
	require.NoError(err)
	require.Equal(key, loaded)

	_, err = LoadBytes(filename, len(key)+1)
	require.ErrorIs(err, ErrInvalidSize)

	_, err = LoadBytes(filepath.Join(t.TempDir(), "missing"), -1)
	require.ErrorIs(err, os.ErrNotExist)
}

func TestInitSubDirectory(t *testing.T) {
	require := require.New(t)

	root := t.TempDir()
	dir, err := InitSubDirectory(root, "statedb")
	require.NoError(err)
	require.Equal(filepath.Join(root, "statedb"), dir)
	require.DirExists(dir)

	// existing directories are reused
	_, err = InitSubDirectory(root, "statedb")
	require.NoError(err)
}

func TestToID(t *testing.T) {
	require := require.New(t)

	require.Equal(ToID([]byte("counter")), ToID([]byte("counter")))
	require.NotEqual(ToID([]byte("counter")), ToID([]byte("counters")))
}

func TestBalance(t *testing.T) {
	require := require.New(t)

	tests := []struct {
		lamports uint64
		display  string
	}{
		{0, "0.000000000"},
		{1, "0.000000001"},
		{1_500_000_000, "1.500000000"},
		{42_000_000_000, "42.000000000"},
	}
	for _, tt := range tests {
		require.Equal(tt.display, FormatBalance(tt.lamports))
		parsed, err := ParseBalance(tt.display)
		require.NoError(err)
		require.Equal(tt.lamports, parsed)
	}

	_, err := ParseBalance("one")
	require.ErrorIs(err, strconv.ErrSyntax)
	_, err = ParseBalance("-1")
	require.ErrorIs(err, ErrNegativeBalance)
}
