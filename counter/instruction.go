// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package counter

import (
	"fmt"

	"github.com/near/borsh-go"

	"github.com/ava-labs/countervm/consts"
)

type InstructionKind uint8

const (
	Increase InstructionKind = iota
	Decrease
)

func (k InstructionKind) String() string {
	switch k {
	case Increase:
		return "Increase"
	case Decrease:
		return "Decrease"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Instruction is a decoded counter instruction.
type Instruction struct {
	Kind   InstructionKind
	Amount uint32
}

func NewIncrease(amount uint32) *Instruction {
	return &Instruction{Kind: Increase, Amount: amount}
}

func NewDecrease(amount uint32) *Instruction {
	return &Instruction{Kind: Decrease, Amount: amount}
}

func (i *Instruction) String() string {
	return fmt.Sprintf("%s(%d)", i.Kind, i.Amount)
}

type amountArgs struct {
	Amount uint32
}

// wireInstruction is the borsh layout of [Instruction]: a one byte variant
// index followed by the selected variant's fields.
type wireInstruction struct {
	Enum     borsh.Enum `borsh_enum:"true"`
	Increase amountArgs
	Decrease amountArgs
}

func (i *Instruction) Marshal() ([]byte, error) {
	w := wireInstruction{Enum: borsh.Enum(i.Kind)}
	switch i.Kind {
	case Increase:
		w.Increase.Amount = i.Amount
	case Decrease:
		w.Decrease.Amount = i.Amount
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrMalformedInstruction, i.Kind)
	}
	return borsh.Serialize(w)
}

// UnmarshalInstruction decodes exactly [consts.InstructionLen] bytes.
func UnmarshalInstruction(b []byte) (*Instruction, error) {
	if len(b) != consts.InstructionLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedInstruction, consts.InstructionLen, len(b))
	}
	if kind := InstructionKind(b[0]); kind != Increase && kind != Decrease {
		return nil, fmt.Errorf("%w: unknown tag %d", ErrMalformedInstruction, b[0])
	}
	var w wireInstruction
	if err := borsh.Deserialize(&w, b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInstruction, err)
	}
	switch InstructionKind(w.Enum) {
	case Increase:
		return NewIncrease(w.Increase.Amount), nil
	case Decrease:
		return NewDecrease(w.Decrease.Amount), nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrMalformedInstruction, w.Enum)
	}
}
