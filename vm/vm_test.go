// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/countervm/config"
	"github.com/ava-labs/countervm/consts"
	"github.com/ava-labs/countervm/counter"
	"github.com/ava-labs/countervm/rpc"
	"github.com/ava-labs/countervm/runtime"
)

type runningVM struct {
	vm     *VM
	cancel context.CancelFunc
	done   chan error
}

func (r *runningVM) stop(t *testing.T) {
	r.cancel()
	select {
	case err := <-r.done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		require.FailNow(t, "node did not shut down")
	}
}

func startVM(t *testing.T, cfg *config.Config) *runningVM {
	require := require.New(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	vm, err := New(cfg, logging.NoLog{}, listener)
	require.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- vm.Run(ctx)
	}()
	return &runningVM{vm: vm, cancel: cancel, done: done}
}

func increase(t *testing.T, cli *rpc.JSONRPCClient, key solana.PublicKey, amount uint32, nonce uint64) {
	require := require.New(t)

	data, err := counter.NewIncrease(amount).Marshal()
	require.NoError(err)
	tx, err := runtime.Sign(runtime.Message{
		ProgramID: consts.CounterProgramID,
		Accounts:  []*solana.AccountMeta{solana.NewAccountMeta(key, true, false)},
		Data:      data,
		Nonce:     nonce,
	})
	require.NoError(err)
	_, result, err := cli.SubmitTx(context.Background(), tx)
	require.NoError(err)
	require.True(result.Success)
}

func TestVMMemory(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cfg, err := config.New([]byte(`{"memoryDB": true}`))
	require.NoError(err)
	r := startVM(t, cfg)
	defer r.stop(t)

	cli := rpc.NewJSONRPCClient(r.vm.URI())
	require.Eventually(func() bool {
		ok, err := cli.Ping(ctx)
		return err == nil && ok
	}, 5*time.Second, 10*time.Millisecond)

	key := solana.NewWallet().PublicKey()
	require.NoError(cli.CreateAccount(ctx, key, consts.CounterProgramID, consts.CounterStateLen, 0, ""))
	increase(t, cli, key, 42, 0)

	count, err := cli.GetCount(ctx, key)
	require.NoError(err)
	require.Equal(uint32(42), count)

	resp, err := http.Get(r.vm.MetricsURI()) //nolint:noctx
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.Contains(string(body), "runtime_txs_succeeded 1")
}

func TestVMPersistence(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	cfg, err := config.New(nil)
	require.NoError(err)
	cfg.DataDir = t.TempDir()
	cfg.Pebble.Sync = false

	key := solana.NewWallet().PublicKey()

	r := startVM(t, cfg)
	cli := rpc.NewJSONRPCClient(r.vm.URI())
	require.Eventually(func() bool {
		ok, err := cli.Ping(ctx)
		return err == nil && ok
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(cli.CreateAccount(ctx, key, consts.CounterProgramID, consts.CounterStateLen, 0, "persisted"))
	increase(t, cli, key, 7, 0)
	r.stop(t)

	r = startVM(t, cfg)
	defer r.stop(t)
	cli = rpc.NewJSONRPCClient(r.vm.URI())
	require.Eventually(func() bool {
		ok, err := cli.Ping(ctx)
		return err == nil && ok
	}, 5*time.Second, 10*time.Millisecond)

	acc, err := cli.GetAccount(ctx, key)
	require.NoError(err)
	require.Equal("persisted", acc.Name)
	require.Equal([]byte{7, 0, 0, 0}, acc.Data)
}

func TestVMRunTwice(t *testing.T) {
	require := require.New(t)

	cfg, err := config.New([]byte(`{"memoryDB": true, "metricsEnabled": false}`))
	require.NoError(err)
	r := startVM(t, cfg)
	defer r.stop(t)

	require.Eventually(func() bool {
		return r.vm.running.Load()
	}, 5*time.Second, 10*time.Millisecond)
	require.ErrorIs(r.vm.Run(context.Background()), ErrAlreadyRunning)
}
