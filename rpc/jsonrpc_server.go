// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"fmt"
	"net/http"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/ava-labs/countervm/runtime"
)

type JSONRPCServer struct {
	vm VM
}

func NewJSONRPCServer(vm VM) *JSONRPCServer {
	return &JSONRPCServer{vm}
}

type PingReply struct {
	Success bool `json:"success"`
}

func (j *JSONRPCServer) Ping(_ *http.Request, _ *struct{}, reply *PingReply) (err error) {
	j.vm.Logger().Info("ping")
	reply.Success = true
	return nil
}

type CreateAccountArgs struct {
	Key      solana.PublicKey `json:"key"`
	Owner    solana.PublicKey `json:"owner"`
	Space    uint64           `json:"space"`
	Lamports uint64           `json:"lamports"`
	Name     string           `json:"name,omitempty"`
}

type CreateAccountReply struct {
	Key solana.PublicKey `json:"key"`
}

func (j *JSONRPCServer) CreateAccount(
	req *http.Request,
	args *CreateAccountArgs,
	reply *CreateAccountReply,
) error {
	ctx, span := j.vm.Tracer().Start(req.Context(), "JSONRPCServer.CreateAccount")
	defer span.End()

	if args.Key.IsZero() {
		return fmt.Errorf("%w: empty key", ErrInvalidAccount)
	}
	rt := j.vm.Runtime()
	if err := rt.CreateAccount(ctx, args.Key, args.Owner, args.Space, args.Lamports); err != nil {
		return err
	}
	if len(args.Name) > 0 {
		if err := rt.SetKeyName(ctx, args.Key, args.Name); err != nil {
			return err
		}
	}
	reply.Key = args.Key
	return nil
}

type SubmitTxArgs struct {
	Tx []byte `json:"tx"`
}

type SubmitTxReply struct {
	TxID   ids.ID          `json:"txId"`
	Result *runtime.Result `json:"result"`
}

func (j *JSONRPCServer) SubmitTx(
	req *http.Request,
	args *SubmitTxArgs,
	reply *SubmitTxReply,
) error {
	ctx, span := j.vm.Tracer().Start(req.Context(), "JSONRPCServer.SubmitTx")
	defer span.End()

	tx, err := runtime.UnmarshalTransaction(args.Tx)
	if err != nil {
		return fmt.Errorf("%w: unable to unmarshal on public service", err)
	}
	reply.TxID = tx.ID()
	result, err := j.vm.Runtime().Execute(ctx, tx)
	if err != nil {
		j.vm.Logger().Debug("rejected transaction",
			zap.Stringer("txID", reply.TxID),
			zap.Error(err),
		)
		return err
	}
	reply.Result = result
	return nil
}

type AccountArgs struct {
	Key solana.PublicKey `json:"key"`
}

type GetAccountReply struct {
	Owner      solana.PublicKey `json:"owner"`
	Lamports   uint64           `json:"lamports"`
	Executable bool             `json:"executable"`
	Data       []byte           `json:"data"`
	Name       string           `json:"name,omitempty"`
}

func (j *JSONRPCServer) GetAccount(req *http.Request, args *AccountArgs, reply *GetAccountReply) error {
	ctx, span := j.vm.Tracer().Start(req.Context(), "JSONRPCServer.GetAccount")
	defer span.End()

	rt := j.vm.Runtime()
	acc, err := rt.GetAccount(ctx, args.Key)
	if err != nil {
		return err
	}
	name, err := rt.KeyName(ctx, args.Key)
	if err != nil {
		return err
	}
	reply.Owner = acc.OwnerKey()
	reply.Lamports = acc.Lamports
	reply.Executable = acc.Executable
	reply.Data = acc.Data
	reply.Name = name
	return nil
}

type GetCountReply struct {
	Count uint32 `json:"count"`
}

func (j *JSONRPCServer) GetCount(req *http.Request, args *AccountArgs, reply *GetCountReply) error {
	ctx, span := j.vm.Tracer().Start(req.Context(), "JSONRPCServer.GetCount")
	defer span.End()

	count, err := j.vm.Runtime().Count(ctx, args.Key)
	if err != nil {
		return err
	}
	reply.Count = count
	return nil
}
