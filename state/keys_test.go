// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPermissionsHas(t *testing.T) {
	require := require.New(t)

	require.True(Read.Has(Read))
	require.False(Read.Has(Write))
	require.True(Write.Has(Read))
	require.True(All.Has(Write))
	require.True(None.Has(None))
	require.False(None.Has(Read))
}

func TestKeysAddUnion(t *testing.T) {
	require := require.New(t)

	keys := Keys{}
	keys.Add("a", Read)
	keys.Add("b", Read)
	keys.Add("a", Write)
	keys.Add("b", Read)

	require.Equal(Write, keys["a"])
	require.Equal(Read, keys["b"])
}
