// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package counter

import (
	"fmt"

	"github.com/near/borsh-go"

	"github.com/ava-labs/countervm/consts"
)

// State is the entire persisted contents of a counter account.
type State struct {
	Count uint32
}

func (s *State) Marshal() ([]byte, error) {
	return borsh.Serialize(*s)
}

// UnmarshalState decodes a counter account buffer. The buffer must be
// exactly [consts.CounterStateLen] bytes.
func UnmarshalState(b []byte) (*State, error) {
	if len(b) != consts.CounterStateLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedState, consts.CounterStateLen, len(b))
	}
	s := &State{}
	if err := borsh.Deserialize(s, b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedState, err)
	}
	return s, nil
}

// Apply mutates [s] according to [ix]. Both directions wrap modulo 2^32.
func (s *State) Apply(ix *Instruction) {
	switch ix.Kind {
	case Increase:
		s.Count += ix.Amount
	case Decrease:
		s.Count -= ix.Amount
	}
}
