// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package program

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Entrypoint is implemented by every program the runtime can invoke.
type Entrypoint interface {
	Process(
		ctx context.Context,
		programID solana.PublicKey,
		accounts []*AccountInfo,
		data []byte,
	) error
}

// EntrypointFunc adapts a plain function to [Entrypoint].
type EntrypointFunc func(ctx context.Context, programID solana.PublicKey, accounts []*AccountInfo, data []byte) error

func (f EntrypointFunc) Process(
	ctx context.Context,
	programID solana.PublicKey,
	accounts []*AccountInfo,
	data []byte,
) error {
	return f(ctx, programID, accounts, data)
}

// Registry maps deployed program addresses to their entrypoints.
type Registry struct {
	l        sync.RWMutex
	programs map[solana.PublicKey]Entrypoint
}

func NewRegistry() *Registry {
	return &Registry{programs: map[solana.PublicKey]Entrypoint{}}
}

func (r *Registry) Register(programID solana.PublicKey, e Entrypoint) error {
	r.l.Lock()
	defer r.l.Unlock()

	if _, ok := r.programs[programID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProgram, programID)
	}
	r.programs[programID] = e
	return nil
}

func (r *Registry) Lookup(programID solana.PublicKey) (Entrypoint, bool) {
	r.l.RLock()
	defer r.l.RUnlock()

	e, ok := r.programs[programID]
	return e, ok
}

func (r *Registry) Len() int {
	r.l.RLock()
	defer r.l.RUnlock()

	return len(r.programs)
}
