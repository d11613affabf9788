// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package counter

import "errors"

var (
	ErrMissingAccount       = errors.New("missing account")
	ErrMalformedInstruction = errors.New("malformed instruction")
	ErrMalformedState       = errors.New("malformed counter state")
	ErrPersistenceFailure   = errors.New("failed to persist counter state")
)
