// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"context"
	"errors"

	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/countervm/crypto/ed25519"
	"github.com/ava-labs/countervm/state"
	"github.com/ava-labs/countervm/utils"
)

// Keys live next to account state in the same database, so the prefix must
// not collide with the runtime's prefixes.
const keyPrefix = 0xF0

func keyName(name string) []byte {
	k := make([]byte, 1+len(name))
	k[0] = keyPrefix
	copy(k[1:], name)
	return k
}

// StoreKey saves [priv] under [name].
func StoreKey(ctx context.Context, db state.Database, name string, priv ed25519.PrivateKey) error {
	mu := state.NewSimpleMutable(db)
	if err := mu.Insert(ctx, keyName(name), priv[:]); err != nil {
		return err
	}
	return mu.Commit(ctx)
}

// GetKey returns the private key stored under [name].
func GetKey(ctx context.Context, db state.Immutable, name string) (ed25519.PrivateKey, bool, error) {
	v, err := db.GetValue(ctx, keyName(name))
	if errors.Is(err, database.ErrNotFound) {
		return ed25519.EmptyPrivateKey, false, nil
	}
	if err != nil {
		return ed25519.EmptyPrivateKey, false, err
	}
	if len(v) != ed25519.PrivateKeyLen {
		return ed25519.EmptyPrivateKey, false, utils.ErrInvalidSize
	}
	return ed25519.PrivateKey(v), true, nil
}
