// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/ava-labs/countervm/consts"
	"github.com/ava-labs/countervm/counter"
	"github.com/ava-labs/countervm/crypto/ed25519"
	"github.com/ava-labs/countervm/runtime"
	"github.com/ava-labs/countervm/state"
	"github.com/ava-labs/countervm/utils"
)

// Handler implements the CLI commands. Keys are always stored in the local
// database; accounts live wherever [Backend] keeps them.
type Handler struct {
	log     logging.Logger
	db      state.Database
	backend Backend

	// nonce makes otherwise identical transactions unique
	nonce atomic.Uint64
}

func New(log logging.Logger, db state.Database, backend Backend) *Handler {
	h := &Handler{
		log:     log,
		db:      db,
		backend: backend,
	}
	h.nonce.Store(uint64(time.Now().UnixNano()))
	return h
}

// KeyCreate generates a private key and stores it under [name].
func (h *Handler) KeyCreate(ctx context.Context, name string) (solana.PublicKey, error) {
	priv, err := ed25519.GeneratePrivateKey()
	if err != nil {
		return solana.PublicKey{}, err
	}
	if err := h.storeNewKey(ctx, name, priv); err != nil {
		return solana.PublicKey{}, err
	}
	addr := priv.PublicKey().Address()
	h.log.Debug("created key",
		zap.String("name", name),
		zap.Stringer("address", addr),
	)
	return addr, nil
}

// KeyImport stores the base58 keypair read from [path] under [name].
func (h *Handler) KeyImport(ctx context.Context, name string, path string) (solana.PublicKey, error) {
	b, err := utils.LoadBytes(path, -1)
	if err != nil {
		return solana.PublicKey{}, err
	}
	priv, err := ed25519.PrivateKeyFromBase58(strings.TrimSpace(string(b)))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if err := h.storeNewKey(ctx, name, priv); err != nil {
		return solana.PublicKey{}, err
	}
	return priv.PublicKey().Address(), nil
}

// KeyExport writes the private key stored under [name] to [path] as a base58
// keypair.
func (h *Handler) KeyExport(ctx context.Context, name string, path string) error {
	priv, err := h.key(ctx, name)
	if err != nil {
		return err
	}
	return utils.SaveBytes(path, []byte(priv.String()+"\n"))
}

func (h *Handler) storeNewKey(ctx context.Context, name string, priv ed25519.PrivateKey) error {
	_, ok, err := GetKey(ctx, h.db, name)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKeyName, name)
	}
	return StoreKey(ctx, h.db, name, priv)
}

func (h *Handler) key(ctx context.Context, name string) (ed25519.PrivateKey, error) {
	priv, ok, err := GetKey(ctx, h.db, name)
	if err != nil {
		return ed25519.EmptyPrivateKey, err
	}
	if !ok {
		return ed25519.EmptyPrivateKey, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
	}
	return priv, nil
}

// Address returns the address of the key stored under [name].
func (h *Handler) Address(ctx context.Context, name string) (solana.PublicKey, error) {
	priv, err := h.key(ctx, name)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return priv.PublicKey().Address(), nil
}

// resolve returns the address of the key stored under [nameOrAddr], or
// [nameOrAddr] itself when it is an account address.
func (h *Handler) resolve(ctx context.Context, nameOrAddr string) (solana.PublicKey, error) {
	priv, ok, err := GetKey(ctx, h.db, nameOrAddr)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if ok {
		return priv.PublicKey().Address(), nil
	}
	pub, err := ed25519.ParseAddress(nameOrAddr)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrKeyNotFound, nameOrAddr)
	}
	return pub.Address(), nil
}

// AccountCreate creates the counter account addressed by key [name], funded
// with [lamports].
func (h *Handler) AccountCreate(ctx context.Context, name string, lamports uint64) (solana.PublicKey, error) {
	addr, err := h.Address(ctx, name)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if err := h.backend.CreateAccount(ctx, addr, consts.CounterProgramID, consts.CounterStateLen, lamports, name); err != nil {
		return solana.PublicKey{}, err
	}
	return addr, nil
}

// Increase adds [amount] to the counter of key [name].
func (h *Handler) Increase(ctx context.Context, name string, amount uint32) (*runtime.Result, error) {
	return h.submit(ctx, name, counter.NewIncrease(amount))
}

// Decrease subtracts [amount] from the counter of key [name].
func (h *Handler) Decrease(ctx context.Context, name string, amount uint32) (*runtime.Result, error) {
	return h.submit(ctx, name, counter.NewDecrease(amount))
}

func (h *Handler) submit(ctx context.Context, name string, ix *counter.Instruction) (*runtime.Result, error) {
	priv, err := h.key(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := ix.Marshal()
	if err != nil {
		return nil, err
	}
	tx, err := runtime.Sign(runtime.Message{
		ProgramID: consts.CounterProgramID,
		Accounts: []*solana.AccountMeta{
			solana.NewAccountMeta(priv.PublicKey().Address(), true, true),
		},
		Data:  data,
		Nonce: h.nonce.Add(1),
	}, priv)
	if err != nil {
		return nil, err
	}
	result, err := h.backend.SubmitTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	h.log.Debug("submitted tx",
		zap.Stringer("txID", result.TxID),
		zap.Bool("success", result.Success),
	)
	if !result.Success {
		return result, fmt.Errorf("%w: %s", ErrTxFailed, result.Error)
	}
	return result, nil
}

// Count reads the counter of key or address [name].
func (h *Handler) Count(ctx context.Context, name string) (uint32, error) {
	addr, err := h.resolve(ctx, name)
	if err != nil {
		return 0, err
	}
	return h.backend.GetCount(ctx, addr)
}

// Account reads the account of key or address [name].
func (h *Handler) Account(ctx context.Context, name string) (*Account, error) {
	addr, err := h.resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	return h.backend.GetAccount(ctx, addr)
}
