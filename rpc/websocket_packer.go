// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/countervm/runtime"
)

const (
	// ResultMode subscribes a connection to every result.
	ResultMode byte = 0
	// TxMode submits a transaction. The submitter receives a [TxMessage].
	TxMode byte = 1
)

// TxMessage is sent to the connection that submitted a transaction.
type TxMessage struct {
	TxID   ids.ID          `json:"txId"`
	Result *runtime.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func packMessage(mode byte, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte{mode}, b...), nil
}

func PackResultMessage(r *runtime.Result) ([]byte, error) {
	return packMessage(ResultMode, r)
}

func PackTxMessage(m *TxMessage) ([]byte, error) {
	return packMessage(TxMode, m)
}

func UnpackResultMessage(msg []byte) (*runtime.Result, error) {
	if len(msg) == 0 {
		return nil, ErrMessageMissing
	}
	if msg[0] != ResultMode {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedMode, msg[0])
	}
	var r runtime.Result
	if err := json.Unmarshal(msg[1:], &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func UnpackTxMessage(msg []byte) (*TxMessage, error) {
	if len(msg) == 0 {
		return nil, ErrMessageMissing
	}
	if msg[0] != TxMode {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedMode, msg[0])
	}
	var m TxMessage
	if err := json.Unmarshal(msg[1:], &m); err != nil {
		return nil, err
	}
	return &m, nil
}
