// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package integration

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/gagliardetto/solana-go"

	"github.com/ava-labs/countervm/config"
	"github.com/ava-labs/countervm/consts"
	"github.com/ava-labs/countervm/counter"
	"github.com/ava-labs/countervm/crypto/ed25519"
	"github.com/ava-labs/countervm/rpc"
	"github.com/ava-labs/countervm/runtime"
	"github.com/ava-labs/countervm/vm"
)

var ErrNodeNotReady = errors.New("node not ready")

const readyCheckInterval = 10 * time.Millisecond

type instance struct {
	vm     *vm.VM
	cancel context.CancelFunc
	done   chan error
}

// Network is a set of independent in-memory nodes.
type Network struct {
	instances []*instance
}

// NewNetwork starts [count] nodes and waits until each answers pings.
func NewNetwork(ctx context.Context, count int) (*Network, error) {
	n := &Network{}
	for i := 0; i < count; i++ {
		cfg, err := config.New([]byte(`{"memoryDB": true}`))
		if err != nil {
			return nil, errors.Join(err, n.Stop())
		}
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, errors.Join(err, n.Stop())
		}
		node, err := vm.New(cfg, logging.NoLog{}, listener)
		if err != nil {
			return nil, errors.Join(err, listener.Close(), n.Stop())
		}
		runCtx, cancel := context.WithCancel(context.Background())
		inst := &instance{vm: node, cancel: cancel, done: make(chan error, 1)}
		go func() {
			inst.done <- node.Run(runCtx)
		}()
		n.instances = append(n.instances, inst)

		if err := waitReady(ctx, node.URI()); err != nil {
			return nil, errors.Join(err, n.Stop())
		}
	}
	return n, nil
}

func waitReady(ctx context.Context, uri string) error {
	cli := rpc.NewJSONRPCClient(uri)
	for {
		if ok, err := cli.Ping(ctx); err == nil && ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Join(ErrNodeNotReady, ctx.Err())
		case <-time.After(readyCheckInterval):
		}
	}
}

func (n *Network) URIs() []string {
	uris := make([]string, len(n.instances))
	for i, inst := range n.instances {
		uris[i] = inst.vm.URI()
	}
	return uris
}

// Stop shuts every node down and returns the errors they exited with.
func (n *Network) Stop() error {
	var errs []error
	for _, inst := range n.instances {
		inst.cancel()
		errs = append(errs, <-inst.done)
	}
	n.instances = nil
	return errors.Join(errs...)
}

// CounterTx builds a transaction running [ix] against the counter account of
// [priv], signed by [priv].
func CounterTx(priv ed25519.PrivateKey, ix *counter.Instruction, nonce uint64) (*runtime.Transaction, error) {
	data, err := ix.Marshal()
	if err != nil {
		return nil, err
	}
	return runtime.Sign(runtime.Message{
		ProgramID: consts.CounterProgramID,
		Accounts: []*solana.AccountMeta{
			solana.NewAccountMeta(priv.PublicKey().Address(), true, true),
		},
		Data:  data,
		Nonce: nonce,
	}, priv)
}
