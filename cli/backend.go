// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"context"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/countervm/consts"
	"github.com/ava-labs/countervm/counter"
	"github.com/ava-labs/countervm/program"
	"github.com/ava-labs/countervm/rpc"
	"github.com/ava-labs/countervm/runtime"
	"github.com/ava-labs/countervm/state"
)

var (
	_ Backend = (*LocalBackend)(nil)
	_ Backend = (*RemoteBackend)(nil)
)

type Account struct {
	Key      solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
	Name     string
}

// Backend executes CLI commands either in process or against a node.
type Backend interface {
	CreateAccount(ctx context.Context, key, owner solana.PublicKey, space, lamports uint64, name string) error
	SubmitTx(ctx context.Context, tx *runtime.Transaction) (*runtime.Result, error)
	GetAccount(ctx context.Context, key solana.PublicKey) (*Account, error)
	GetCount(ctx context.Context, key solana.PublicKey) (uint32, error)
}

// LocalBackend runs transactions against an in-process runtime.
type LocalBackend struct {
	rt *runtime.Runtime
}

func NewLocalBackend(
	log logging.Logger,
	tracer trace.Tracer,
	db state.Database,
	cfg runtime.Config,
) (*LocalBackend, error) {
	programs := program.NewRegistry()
	if err := programs.Register(consts.CounterProgramID, counter.New()); err != nil {
		return nil, err
	}
	rt, err := runtime.New(log, tracer, prometheus.NewRegistry(), db, programs, cfg)
	if err != nil {
		return nil, err
	}
	return &LocalBackend{rt: rt}, nil
}

func (b *LocalBackend) CreateAccount(
	ctx context.Context,
	key, owner solana.PublicKey,
	space, lamports uint64,
	name string,
) error {
	if err := b.rt.CreateAccount(ctx, key, owner, space, lamports); err != nil {
		return err
	}
	if len(name) == 0 {
		return nil
	}
	return b.rt.SetKeyName(ctx, key, name)
}

func (b *LocalBackend) SubmitTx(ctx context.Context, tx *runtime.Transaction) (*runtime.Result, error) {
	return b.rt.Execute(ctx, tx)
}

func (b *LocalBackend) GetAccount(ctx context.Context, key solana.PublicKey) (*Account, error) {
	acc, err := b.rt.GetAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	name, err := b.rt.KeyName(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Account{
		Key:      key,
		Owner:    acc.OwnerKey(),
		Lamports: acc.Lamports,
		Data:     acc.Data,
		Name:     name,
	}, nil
}

func (b *LocalBackend) GetCount(ctx context.Context, key solana.PublicKey) (uint32, error) {
	return b.rt.Count(ctx, key)
}

// RemoteBackend forwards commands to a node over JSON-RPC.
type RemoteBackend struct {
	cli *rpc.JSONRPCClient
}

func NewRemoteBackend(uri string) *RemoteBackend {
	return &RemoteBackend{cli: rpc.NewJSONRPCClient(uri)}
}

func (b *RemoteBackend) CreateAccount(
	ctx context.Context,
	key, owner solana.PublicKey,
	space, lamports uint64,
	name string,
) error {
	return b.cli.CreateAccount(ctx, key, owner, space, lamports, name)
}

func (b *RemoteBackend) SubmitTx(ctx context.Context, tx *runtime.Transaction) (*runtime.Result, error) {
	_, result, err := b.cli.SubmitTx(ctx, tx)
	return result, err
}

func (b *RemoteBackend) GetAccount(ctx context.Context, key solana.PublicKey) (*Account, error) {
	reply, err := b.cli.GetAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Account{
		Key:      key,
		Owner:    reply.Owner,
		Lamports: reply.Lamports,
		Data:     reply.Data,
		Name:     reply.Name,
	}, nil
}

func (b *RemoteBackend) GetCount(ctx context.Context, key solana.PublicKey) (uint32, error) {
	return b.cli.GetCount(ctx, key)
}
