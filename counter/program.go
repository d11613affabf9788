// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package counter

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/ava-labs/countervm/program"
)

var _ program.Entrypoint = (*Program)(nil)

// Program is the counter program entrypoint. It holds no state: every
// invocation decodes the counter from the first account, applies the
// instruction and writes the result back.
type Program struct{}

func New() *Program {
	return &Program{}
}

func (*Program) Process(
	ctx context.Context,
	_ solana.PublicKey,
	accounts []*program.AccountInfo,
	data []byte,
) error {
	iter := program.NewAccountIter(accounts)
	acc, err := program.NextAccountInfo(iter)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMissingAccount, err)
	}
	ix, err := UnmarshalInstruction(data)
	if err != nil {
		return err
	}
	state, err := UnmarshalState(acc.Data())
	if err != nil {
		return err
	}

	switch ix.Kind {
	case Increase:
		program.Msg(ctx, "increasing the value")
	case Decrease:
		program.Msg(ctx, "decreasing the value")
	}
	state.Apply(ix)

	b, err := state.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
	if err := acc.Write(b); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	program.Msg(ctx, "%s", acc)
	program.Msg(ctx, "%s", ix)
	program.Msg(ctx, "counter execution completed")
	return nil
}
