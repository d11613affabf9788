// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/countervm/consts"
	"github.com/ava-labs/countervm/pebble"
	"github.com/ava-labs/countervm/state"
	"github.com/ava-labs/countervm/utils"
)

// State
// 0x0/ (accounts)
//   -> [pubkey] => account
// 0x1/ (named keys)
//   -> [pubkey] => name

const (
	accountPrefix byte = iota
	namedKeyPrefix
)

const keyLen = consts.ByteLen + solana.PublicKeyLength

var ErrAccountTooLarge = errors.New("account data too large")

// Account is the persisted form of an account.
type Account struct {
	Owner      [32]byte
	Lamports   uint64
	Executable bool
	Data       []byte
}

func (a *Account) OwnerKey() solana.PublicKey {
	return solana.PublicKeyFromBytes(a.Owner[:])
}

// New opens a pebble database under [dataDir]/[namespace].
func New(cfg pebble.Config, dataDir string, namespace string) (state.Database, prometheus.Gatherer, error) {
	path, err := utils.InitSubDirectory(dataDir, namespace)
	if err != nil {
		return nil, nil, err
	}
	db, registry, err := pebble.New(path, cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, registry, nil
}

func AccountKey(key solana.PublicKey) []byte {
	k := make([]byte, keyLen)
	k[0] = accountPrefix
	copy(k[1:], key[:])
	return k
}

func NamedKeyKey(key solana.PublicKey) []byte {
	k := make([]byte, keyLen)
	k[0] = namedKeyPrefix
	copy(k[1:], key[:])
	return k
}

// GetAccount returns [database.ErrNotFound] if [key] has no account.
func GetAccount(ctx context.Context, im state.Immutable, key solana.PublicKey) (*Account, error) {
	v, err := im.GetValue(ctx, AccountKey(key))
	if err != nil {
		return nil, err
	}
	return UnmarshalAccount(v)
}

func SetAccount(ctx context.Context, mu state.Mutable, key solana.PublicKey, acc *Account) error {
	if len(acc.Data) > consts.MaxAccountDataLen {
		return fmt.Errorf("%w: %d > %d", ErrAccountTooLarge, len(acc.Data), consts.MaxAccountDataLen)
	}
	v, err := borsh.Serialize(*acc)
	if err != nil {
		return err
	}
	return mu.Insert(ctx, AccountKey(key), v)
}

func DeleteAccount(ctx context.Context, mu state.Mutable, key solana.PublicKey) error {
	return mu.Remove(ctx, AccountKey(key))
}

func HasAccount(ctx context.Context, im state.Immutable, key solana.PublicKey) (bool, error) {
	_, err := im.GetValue(ctx, AccountKey(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, database.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func UnmarshalAccount(b []byte) (*Account, error) {
	var acc Account
	if err := borsh.Deserialize(&acc, b); err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetNamedKey returns the label stored for [key], or "" if none.
func GetNamedKey(ctx context.Context, im state.Immutable, key solana.PublicKey) (string, error) {
	v, err := im.GetValue(ctx, NamedKeyKey(key))
	if errors.Is(err, database.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func SetNamedKey(ctx context.Context, mu state.Mutable, key solana.PublicKey, name string) error {
	return mu.Insert(ctx, NamedKeyKey(key), []byte(name))
}
