// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"context"

	"github.com/ava-labs/avalanchego/utils/maybe"
)

type Immutable interface {
	GetValue(ctx context.Context, key []byte) (value []byte, err error)
}

type Mutable interface {
	Immutable

	Insert(ctx context.Context, key []byte, value []byte) error
	Remove(ctx context.Context, key []byte) error
}

// Database is the durable store behind the runtime. [Apply] must write all
// changes atomically: either every change is visible afterwards or none is.
//
//go:generate go run go.uber.org/mock/mockgen -package=state -destination=mock_database.go . Database
type Database interface {
	Immutable

	Apply(ctx context.Context, changes map[string]maybe.Maybe[[]byte]) error
	Close() error
}
