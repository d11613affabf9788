// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package integration_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/countervm/consts"
	"github.com/ava-labs/countervm/counter"
	"github.com/ava-labs/countervm/crypto/ed25519"
	"github.com/ava-labs/countervm/rpc"
	"github.com/ava-labs/countervm/runtime"
	"github.com/ava-labs/countervm/tests/integration"

	ginkgo "github.com/onsi/ginkgo/v2"
)

const (
	nodes         = 2
	suiteTimeout  = 30 * time.Second
	parallelUsers = 8
)

var network *integration.Network

func TestIntegration(t *testing.T) {
	ginkgo.RunSpecs(t, "countervm integration test suites")
}

var _ = ginkgo.BeforeSuite(func() {
	require := require.New(ginkgo.GinkgoT())

	ctx, cancel := context.WithTimeout(context.Background(), suiteTimeout)
	defer cancel()
	var err error
	network, err = integration.NewNetwork(ctx, nodes)
	require.NoError(err)
})

var _ = ginkgo.AfterSuite(func() {
	require.NoError(ginkgo.GinkgoT(), network.Stop())
})

func newCounter(ctx context.Context, cli *rpc.JSONRPCClient) ed25519.PrivateKey {
	require := require.New(ginkgo.GinkgoT())

	priv, err := ed25519.GeneratePrivateKey()
	require.NoError(err)
	require.NoError(cli.CreateAccount(
		ctx,
		priv.PublicKey().Address(),
		consts.CounterProgramID,
		consts.CounterStateLen,
		0,
		"",
	))
	return priv
}

var _ = ginkgo.Describe("[Ping]", func() {
	require := require.New(ginkgo.GinkgoT())

	ginkgo.It("answers on every node", func() {
		for _, uri := range network.URIs() {
			ok, err := rpc.NewJSONRPCClient(uri).Ping(context.Background())
			require.NoError(err)
			require.True(ok)
		}
	})
})

var _ = ginkgo.Describe("[Counter]", func() {
	require := require.New(ginkgo.GinkgoT())

	ginkgo.It("increases and wraps on decrease", func() {
		ctx := context.Background()
		cli := rpc.NewJSONRPCClient(network.URIs()[0])
		priv := newCounter(ctx, cli)
		addr := priv.PublicKey().Address()

		tx, err := integration.CounterTx(priv, counter.NewIncrease(1), 0)
		require.NoError(err)
		_, result, err := cli.SubmitTx(ctx, tx)
		require.NoError(err)
		require.True(result.Success)

		tx, err = integration.CounterTx(priv, counter.NewDecrease(3), 1)
		require.NoError(err)
		_, result, err = cli.SubmitTx(ctx, tx)
		require.NoError(err)
		require.True(result.Success)

		count, err := cli.GetCount(ctx, addr)
		require.NoError(err)
		require.Equal(consts.MaxUint32-1, count)
	})

	ginkgo.It("reports malformed instructions without changing state", func() {
		ctx := context.Background()
		cli := rpc.NewJSONRPCClient(network.URIs()[0])
		priv := newCounter(ctx, cli)

		tx, err := runtime.Sign(runtime.Message{
			ProgramID: consts.CounterProgramID,
			Accounts:  []*solana.AccountMeta{solana.NewAccountMeta(priv.PublicKey().Address(), true, true)},
			Data:      []byte{0, 1, 0},
		}, priv)
		require.NoError(err)
		_, result, err := cli.SubmitTx(ctx, tx)
		require.NoError(err)
		require.False(result.Success)
		require.Contains(result.Error, counter.ErrMalformedInstruction.Error())

		count, err := cli.GetCount(ctx, priv.PublicKey().Address())
		require.NoError(err)
		require.Zero(count)
	})

	ginkgo.It("keeps nodes independent", func() {
		ctx := context.Background()
		uris := network.URIs()
		priv := newCounter(ctx, rpc.NewJSONRPCClient(uris[0]))

		_, err := rpc.NewJSONRPCClient(uris[1]).GetCount(ctx, priv.PublicKey().Address())
		require.ErrorContains(err, runtime.ErrAccountNotFound.Error())
	})

	ginkgo.It("applies concurrent submissions to one account", func() {
		ctx := context.Background()
		cli := rpc.NewJSONRPCClient(network.URIs()[0])
		priv := newCounter(ctx, cli)

		var wg sync.WaitGroup
		errs := make(chan error, parallelUsers)
		for i := 0; i < parallelUsers; i++ {
			wg.Add(1)
			go func(nonce uint64) {
				defer wg.Done()
				tx, err := integration.CounterTx(priv, counter.NewIncrease(2), nonce)
				if err != nil {
					errs <- err
					return
				}
				_, _, err = cli.SubmitTx(ctx, tx)
				errs <- err
			}(uint64(i))
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(err)
		}

		count, err := cli.GetCount(ctx, priv.PublicKey().Address())
		require.NoError(err)
		require.Equal(uint32(2*parallelUsers), count)
	})
})

var _ = ginkgo.Describe("[WebSocket]", func() {
	require := require.New(ginkgo.GinkgoT())

	ginkgo.It("streams results to subscribers", func() {
		ctx, cancel := context.WithTimeout(context.Background(), suiteTimeout)
		defer cancel()
		uri := network.URIs()[1]
		priv := newCounter(ctx, rpc.NewJSONRPCClient(uri))

		ws, err := rpc.NewWebSocketClient(uri, 16)
		require.NoError(err)
		defer func() {
			require.NoError(ws.Close())
		}()
		require.NoError(ws.RegisterResults())

		tx, err := integration.CounterTx(priv, counter.NewIncrease(11), 0)
		require.NoError(err)
		require.NoError(ws.SubmitTx(tx))

		reply, err := ws.ListenTx(ctx)
		require.NoError(err)
		require.Equal(tx.ID(), reply.TxID)
		require.Empty(reply.Error)
		require.True(reply.Result.Success)

		result, err := ws.ListenResult(ctx)
		require.NoError(err)
		require.Equal(tx.ID(), result.TxID)
		require.Equal([]solana.PublicKey{priv.PublicKey().Address()}, result.Modified)
	})
})
