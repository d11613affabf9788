// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/gagliardetto/solana-go"
)

// Result is the outcome of a transaction.
//
// A program failure produces Success=false with [Error] set. A transaction
// rejected by the host in a batch has Rejected=true and was never run.
type Result struct {
	TxID      ids.ID             `json:"txId"`
	ProgramID solana.PublicKey   `json:"programId"`
	Success   bool               `json:"success"`
	Rejected  bool               `json:"rejected,omitempty"`
	Error     string             `json:"error,omitempty"`
	Logs      []string           `json:"logs"`
	Modified  []solana.PublicKey `json:"modified"`
}

func rejected(tx *Transaction, err error) *Result {
	return &Result{
		TxID:      tx.ID(),
		ProgramID: tx.Message.ProgramID,
		Rejected:  true,
		Error:     err.Error(),
		Logs:      []string{},
		Modified:  []solana.PublicKey{},
	}
}

// ResultListener is notified of every executed transaction.
type ResultListener interface {
	OnResult(*Result)
}

type ResultListenerFunc func(*Result)

func (f ResultListenerFunc) OnResult(r *Result) {
	f(r)
}
