// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"strings"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/rpc"
	"github.com/gagliardetto/solana-go"

	"github.com/ava-labs/countervm/runtime"
)

type JSONRPCClient struct {
	requester rpc.EndpointRequester
}

func NewJSONRPCClient(uri string) *JSONRPCClient {
	uri = strings.TrimSuffix(uri, "/")
	uri += JSONRPCEndpoint
	return &JSONRPCClient{requester: rpc.NewEndpointRequester(uri)}
}

func (cli *JSONRPCClient) Ping(ctx context.Context) (bool, error) {
	resp := new(PingReply)
	err := cli.requester.SendRequest(ctx,
		Name+".ping",
		nil,
		resp,
	)
	return resp.Success, err
}

func (cli *JSONRPCClient) CreateAccount(
	ctx context.Context,
	key solana.PublicKey,
	owner solana.PublicKey,
	space uint64,
	lamports uint64,
	name string,
) error {
	resp := new(CreateAccountReply)
	return cli.requester.SendRequest(
		ctx,
		Name+".createAccount",
		&CreateAccountArgs{
			Key:      key,
			Owner:    owner,
			Space:    space,
			Lamports: lamports,
			Name:     name,
		},
		resp,
	)
}

// SubmitTx executes [tx] on the node and returns its result.
func (cli *JSONRPCClient) SubmitTx(ctx context.Context, tx *runtime.Transaction) (ids.ID, *runtime.Result, error) {
	resp := new(SubmitTxReply)
	err := cli.requester.SendRequest(
		ctx,
		Name+".submitTx",
		&SubmitTxArgs{Tx: tx.Bytes()},
		resp,
	)
	return resp.TxID, resp.Result, err
}

func (cli *JSONRPCClient) GetAccount(ctx context.Context, key solana.PublicKey) (*GetAccountReply, error) {
	resp := new(GetAccountReply)
	err := cli.requester.SendRequest(
		ctx,
		Name+".getAccount",
		&AccountArgs{Key: key},
		resp,
	)
	return resp, err
}

func (cli *JSONRPCClient) GetCount(ctx context.Context, key solana.PublicKey) (uint32, error) {
	resp := new(GetCountReply)
	err := cli.requester.SendRequest(
		ctx,
		Name+".getCount",
		&AccountArgs{Key: key},
		resp,
	)
	return resp.Count, err
}
