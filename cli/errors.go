// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import "errors"

var (
	ErrDuplicateKeyName = errors.New("duplicate key name")
	ErrKeyNotFound      = errors.New("key not found")
	ErrTxFailed         = errors.New("tx failed")
	ErrInvalidPlan      = errors.New("invalid plan")
	ErrInvalidStep      = errors.New("invalid step")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrAssertionFailed  = errors.New("assertion failed")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMissingArgument  = errors.New("missing argument")
)
