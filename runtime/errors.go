// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import "errors"

var (
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrMissingSignature    = errors.New("missing signature")
	ErrSignerMismatch      = errors.New("signature does not match signer")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrTooManyAccounts     = errors.New("too many accounts")
	ErrInstructionTooLarge = errors.New("instruction data too large")
	ErrDuplicateTx         = errors.New("duplicate transaction")
	ErrCommitFailed        = errors.New("failed to commit state")
	ErrInvalidObject       = errors.New("invalid object")
)
