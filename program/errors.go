// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package program

import "errors"

var (
	ErrNotEnoughAccountKeys = errors.New("not enough account keys")
	ErrAccountReadOnly      = errors.New("account is read-only")
	ErrAccountDataSize      = errors.New("account data size mismatch")
	ErrAccountReleased      = errors.New("account borrow released")
	ErrDuplicateProgram     = errors.New("duplicate program")
	ErrProgramNotFound      = errors.New("program not found")
)
