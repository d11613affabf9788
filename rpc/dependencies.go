// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/gagliardetto/solana-go"

	"github.com/ava-labs/countervm/runtime"
	"github.com/ava-labs/countervm/storage"
)

// Runtime is the subset of [runtime.Runtime] served over RPC.
type Runtime interface {
	Execute(ctx context.Context, tx *runtime.Transaction) (*runtime.Result, error)
	CreateAccount(ctx context.Context, key, owner solana.PublicKey, space, lamports uint64) error
	GetAccount(ctx context.Context, key solana.PublicKey) (*storage.Account, error)
	Count(ctx context.Context, key solana.PublicKey) (uint32, error)
	SetKeyName(ctx context.Context, key solana.PublicKey, name string) error
	KeyName(ctx context.Context, key solana.PublicKey) (string, error)
}

type VM interface {
	Logger() logging.Logger
	Tracer() trace.Tracer
	Runtime() Runtime
}
