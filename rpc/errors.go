// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import "errors"

var (
	ErrClosed          = errors.New("closed")
	ErrMessageMissing  = errors.New("message missing")
	ErrUnexpectedMode  = errors.New("unexpected message mode")
	ErrInvalidAccount  = errors.New("invalid account")
	ErrTxSubmitFailure = errors.New("transaction submission failed")
)
