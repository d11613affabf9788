// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"context"

	"github.com/neilotoole/errgroup"
	"go.uber.org/zap"

	"github.com/ava-labs/countervm/crypto/ed25519"
	"github.com/ava-labs/countervm/executor"
)

// ExecuteBatch verifies the signatures of [txs] in parallel and then runs
// them concurrently. Transactions that write the same account run in the
// order they appear in [txs].
//
// The returned results are in the same order as [txs]. Transactions the host
// rejects are reported with [Result.Rejected] set.
func (r *Runtime) ExecuteBatch(ctx context.Context, txs []*Transaction) ([]*Result, error) {
	ctx, span := r.tracer.Start(ctx, "Runtime.ExecuteBatch")
	defer span.End()

	verifyErrs, err := r.verifyBatch(ctx, txs)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(txs))
	e := executor.New(len(txs), r.config.ExecutionConcurrency, r.metrics)
	for i, tx := range txs {
		if verr := verifyErrs[i]; verr != nil {
			r.metrics.txsRejected.Inc()
			results[i] = rejected(tx, verr)
			continue
		}
		i, tx := i, tx
		e.Run(tx.StateKeys(), func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := r.execute(ctx, tx)
			if err != nil {
				r.metrics.txsRejected.Inc()
				r.log.Debug("rejected transaction",
					zap.Stringer("txID", tx.ID()),
					zap.Error(err),
				)
				result = rejected(tx, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := e.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// verifyBatch returns the signature verification error of each transaction.
func (r *Runtime) verifyBatch(ctx context.Context, txs []*Transaction) ([]error, error) {
	errs := make([]error, len(txs))
	if len(txs) == 0 {
		return errs, nil
	}

	workers := r.config.VerifyConcurrency
	if workers <= 0 {
		workers = 1
	}
	chunkSize := (len(txs) + workers - 1) / workers
	if chunkSize < ed25519.MinBatchSize {
		chunkSize = ed25519.MinBatchSize
	}

	g, gctx := errgroup.WithContextN(ctx, workers, workers)
	for start := 0; start < len(txs); start += chunkSize {
		start, end := start, min(start+chunkSize, len(txs))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			verifyChunk(txs[start:end], errs[start:end])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return errs, nil
}

// verifyChunk verifies [txs] as a single batch and falls back to verifying
// each transaction when the batch fails.
func verifyChunk(txs []*Transaction, errs []error) {
	sigs := 0
	for _, tx := range txs {
		sigs += len(tx.Signatures)
	}
	if sigs < ed25519.MinBatchSize {
		for i, tx := range txs {
			errs[i] = tx.Verify()
		}
		return
	}

	batch := ed25519.NewBatch(sigs)
	for i, tx := range txs {
		errs[i] = tx.AddToBatch(batch)
	}
	if batch.Verify() {
		return
	}
	for i, tx := range txs {
		if errs[i] == nil {
			errs[i] = tx.Verify()
		}
	}
}
