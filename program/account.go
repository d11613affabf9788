// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package program

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// AccountInfo is the handle a program receives for every account listed in
// an instruction. The data buffer is owned by the host runtime and is only
// borrowed for the duration of a single invocation.
type AccountInfo struct {
	Key        solana.PublicKey
	Owner      solana.PublicKey
	Lamports   uint64
	IsSigner   bool
	IsWritable bool
	Executable bool

	l        sync.Mutex
	data     []byte
	modified bool
	released bool
}

// NewAccountInfo wraps [data] in a handle. The handle takes ownership of
// [data] until it is released.
func NewAccountInfo(
	key solana.PublicKey,
	owner solana.PublicKey,
	lamports uint64,
	data []byte,
	isSigner bool,
	isWritable bool,
) *AccountInfo {
	return &AccountInfo{
		Key:        key,
		Owner:      owner,
		Lamports:   lamports,
		IsSigner:   isSigner,
		IsWritable: isWritable,
		data:       data,
	}
}

// Data returns the current contents of the account buffer. Callers must not
// retain the slice past the invocation.
func (a *AccountInfo) Data() []byte {
	a.l.Lock()
	defer a.l.Unlock()

	return a.data
}

// Write overwrites the account buffer with [b]. Accounts are never resized,
// so [b] must have exactly the length of the existing buffer.
func (a *AccountInfo) Write(b []byte) error {
	a.l.Lock()
	defer a.l.Unlock()

	switch {
	case a.released:
		return ErrAccountReleased
	case !a.IsWritable:
		return fmt.Errorf("%w: %s", ErrAccountReadOnly, a.Key)
	case len(b) != len(a.data):
		return fmt.Errorf("%w: have=%d got=%d", ErrAccountDataSize, len(a.data), len(b))
	}
	copy(a.data, b)
	a.modified = true
	return nil
}

// Modified returns whether the buffer was written during the invocation.
func (a *AccountInfo) Modified() bool {
	a.l.Lock()
	defer a.l.Unlock()

	return a.modified
}

// Release ends the borrow and hands the buffer back to the host. Any
// subsequent [Write] fails.
func (a *AccountInfo) Release() []byte {
	a.l.Lock()
	defer a.l.Unlock()

	a.released = true
	return a.data
}

func (a *AccountInfo) String() string {
	a.l.Lock()
	defer a.l.Unlock()

	return fmt.Sprintf(
		"AccountInfo { key: %s, owner: %s, is_signer: %t, is_writable: %t, executable: %t, lamports: %d, data.len: %d, data: %s }",
		a.Key,
		a.Owner,
		a.IsSigner,
		a.IsWritable,
		a.Executable,
		a.Lamports,
		len(a.data),
		hex.EncodeToString(a.data),
	)
}

// AccountIter walks the accounts passed to an instruction in order.
type AccountIter struct {
	accounts []*AccountInfo
	next     int
}

func NewAccountIter(accounts []*AccountInfo) *AccountIter {
	return &AccountIter{accounts: accounts}
}

// NextAccountInfo returns the next account from [iter] or
// [ErrNotEnoughAccountKeys] once the accounts are exhausted.
func NextAccountInfo(iter *AccountIter) (*AccountInfo, error) {
	if iter.next >= len(iter.accounts) {
		return nil, ErrNotEnoughAccountKeys
	}
	acc := iter.accounts[iter.next]
	iter.next++
	return acc, nil
}
