// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package counter

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/countervm/consts"
)

var edgeValues = []uint32{0, 1, 2, 3, 5, 1 << 16, consts.MaxUint32 - 1, consts.MaxUint32}

func TestStateRoundTrip(t *testing.T) {
	require := require.New(t)

	r := rand.New(rand.NewSource(0)) //#nosec G404
	values := append([]uint32{}, edgeValues...)
	for i := 0; i < 256; i++ {
		values = append(values, r.Uint32())
	}
	for _, v := range values {
		s := &State{Count: v}
		b, err := s.Marshal()
		require.NoError(err)
		require.Len(b, consts.CounterStateLen)

		parsed, err := UnmarshalState(b)
		require.NoError(err)
		require.Equal(s, parsed)
	}
}

func TestStateLittleEndian(t *testing.T) {
	require := require.New(t)

	b, err := (&State{Count: 4294967294}).Marshal()
	require.NoError(err)
	require.Equal([]byte{0xFE, 0xFF, 0xFF, 0xFF}, b)
}

func TestUnmarshalStateMalformed(t *testing.T) {
	for _, b := range [][]byte{nil, {0x01}, {0x01, 0x02, 0x03}, {0x01, 0x02, 0x03, 0x04, 0x05}} {
		_, err := UnmarshalState(b)
		require.ErrorIs(t, err, ErrMalformedState)
	}
}

func TestApplyWraps(t *testing.T) {
	r := rand.New(rand.NewSource(1)) //#nosec G404
	for i := 0; i < 512; i++ {
		count, amount := r.Uint32(), r.Uint32()
		if i < len(edgeValues)*len(edgeValues) {
			count, amount = edgeValues[i/len(edgeValues)], edgeValues[i%len(edgeValues)]
		}

		inc := &State{Count: count}
		inc.Apply(NewIncrease(amount))
		require.Equal(t, uint32((uint64(count)+uint64(amount))%(1<<32)), inc.Count)

		dec := &State{Count: count}
		dec.Apply(NewDecrease(amount))
		require.Equal(t, uint32((uint64(count)+(1<<32)-uint64(amount))%(1<<32)), dec.Count)
	}
}
