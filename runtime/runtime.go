// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/countervm/consts"
	"github.com/ava-labs/countervm/counter"
	"github.com/ava-labs/countervm/lockmap"
	"github.com/ava-labs/countervm/program"
	"github.com/ava-labs/countervm/state"
	"github.com/ava-labs/countervm/storage"
)

// Runtime owns account state and invokes programs against it.
type Runtime struct {
	log      logging.Logger
	tracer   trace.Tracer
	config   Config
	db       state.Database
	programs *program.Registry
	locks    *lockmap.Lockmap
	metrics  *metrics

	seenL sync.Mutex
	seen  *cache.LRU[ids.ID, struct{}]

	listenersL sync.RWMutex
	listeners  []ResultListener
}

func New(
	log logging.Logger,
	tracer trace.Tracer,
	registerer prometheus.Registerer,
	db state.Database,
	programs *program.Registry,
	config Config,
) (*Runtime, error) {
	metrics, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		log:      log,
		tracer:   tracer,
		config:   config,
		db:       db,
		programs: programs,
		locks:    lockmap.New(config.ExecutionConcurrency),
		metrics:  metrics,
		seen:     &cache.LRU[ids.ID, struct{}]{Size: config.SeenCacheSize},
	}, nil
}

func (r *Runtime) AddListener(l ResultListener) {
	r.listenersL.Lock()
	defer r.listenersL.Unlock()

	r.listeners = append(r.listeners, l)
}

func (r *Runtime) notify(result *Result) {
	r.listenersL.RLock()
	defer r.listenersL.RUnlock()

	for _, l := range r.listeners {
		l.OnResult(result)
	}
}

func accountKeys(keys ...solana.PublicKey) state.Keys {
	k := make(state.Keys, len(keys))
	for _, key := range keys {
		k.Add(string(storage.AccountKey(key)), state.Write)
	}
	return k
}

// CreateAccount stores a new account owned by [owner] with a zeroed data
// buffer of [space] bytes.
func (r *Runtime) CreateAccount(
	ctx context.Context,
	key solana.PublicKey,
	owner solana.PublicKey,
	space uint64,
	lamports uint64,
) error {
	ctx, span := r.tracer.Start(ctx, "Runtime.CreateAccount")
	defer span.End()

	if space > consts.MaxAccountDataLen {
		return fmt.Errorf("%w: %d > %d", storage.ErrAccountTooLarge, space, consts.MaxAccountDataLen)
	}
	release := r.locks.LockKeys(accountKeys(key))
	defer release()

	mu := state.NewSimpleMutable(r.db)
	exists, err := storage.HasAccount(ctx, mu, key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAccountExists, key)
	}
	if err := storage.SetAccount(ctx, mu, key, &storage.Account{
		Owner:    owner,
		Lamports: lamports,
		Data:     make([]byte, space),
	}); err != nil {
		return err
	}
	if err := mu.Commit(ctx); err != nil {
		r.metrics.commitFailures.Inc()
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	r.metrics.accountsCreated.Inc()
	r.log.Debug("created account",
		zap.Stringer("key", key),
		zap.Stringer("owner", owner),
		zap.Uint64("space", space),
	)
	return nil
}

func (r *Runtime) GetAccount(ctx context.Context, key solana.PublicKey) (*storage.Account, error) {
	acc, err := storage.GetAccount(ctx, r.db, key)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return acc, err
}

// Count decodes the counter stored in [key].
func (r *Runtime) Count(ctx context.Context, key solana.PublicKey) (uint32, error) {
	acc, err := r.GetAccount(ctx, key)
	if err != nil {
		return 0, err
	}
	s, err := counter.UnmarshalState(acc.Data)
	if err != nil {
		return 0, err
	}
	return s.Count, nil
}

// SetKeyName labels [key] for display.
func (r *Runtime) SetKeyName(ctx context.Context, key solana.PublicKey, name string) error {
	mu := state.NewSimpleMutable(r.db)
	if err := storage.SetNamedKey(ctx, mu, key, name); err != nil {
		return err
	}
	return mu.Commit(ctx)
}

func (r *Runtime) KeyName(ctx context.Context, key solana.PublicKey) (string, error) {
	return storage.GetNamedKey(ctx, r.db, key)
}

// Execute verifies and runs [tx]. A program failure is reported in the
// returned [Result]; host failures are returned as errors and leave state
// untouched.
func (r *Runtime) Execute(ctx context.Context, tx *Transaction) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "Runtime.Execute")
	defer span.End()

	if err := tx.Verify(); err != nil {
		r.metrics.txsRejected.Inc()
		return nil, err
	}
	result, err := r.execute(ctx, tx)
	if err != nil {
		r.metrics.txsRejected.Inc()
		return nil, err
	}
	return result, nil
}

type loadedAccount struct {
	key     solana.PublicKey
	info    *program.AccountInfo
	account *storage.Account
}

func (r *Runtime) loadAccounts(
	ctx context.Context,
	im state.Immutable,
	msg *Message,
) ([]*program.AccountInfo, []*loadedAccount, error) {
	var (
		signer   = map[solana.PublicKey]bool{}
		writable = map[solana.PublicKey]bool{}
	)
	for _, meta := range msg.Accounts {
		signer[meta.PublicKey] = signer[meta.PublicKey] || meta.IsSigner
		writable[meta.PublicKey] = writable[meta.PublicKey] || meta.IsWritable
	}

	var (
		infos  = make([]*program.AccountInfo, len(msg.Accounts))
		loaded = make([]*loadedAccount, 0, len(msg.Accounts))
		byKey  = make(map[solana.PublicKey]*loadedAccount, len(msg.Accounts))
	)
	for i, meta := range msg.Accounts {
		key := meta.PublicKey
		if l, ok := byKey[key]; ok {
			infos[i] = l.info
			continue
		}
		acc, err := storage.GetAccount(ctx, im, key)
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
		}
		if err != nil {
			return nil, nil, err
		}
		owner := acc.OwnerKey()
		info := program.NewAccountInfo(
			key,
			owner,
			acc.Lamports,
			slices.Clone(acc.Data),
			signer[key],
			writable[key] && owner.Equals(msg.ProgramID),
		)
		info.Executable = acc.Executable
		l := &loadedAccount{key: key, info: info, account: acc}
		byKey[key] = l
		loaded = append(loaded, l)
		infos[i] = info
	}
	return infos, loaded, nil
}

// markSeen records [txID] and reports whether it was not already recorded.
func (r *Runtime) markSeen(txID ids.ID) bool {
	r.seenL.Lock()
	defer r.seenL.Unlock()

	if _, ok := r.seen.Get(txID); ok {
		return false
	}
	r.seen.Put(txID, struct{}{})
	return true
}

func (r *Runtime) unmarkSeen(txID ids.ID) {
	r.seenL.Lock()
	defer r.seenL.Unlock()

	r.seen.Evict(txID)
}

// execute runs [tx] after its signatures have been verified. Once a
// transaction reaches its program it is recorded as seen, even if the program
// fails.
func (r *Runtime) execute(ctx context.Context, tx *Transaction) (_ *Result, err error) {
	start := time.Now()
	txID := tx.ID()
	msg := &tx.Message

	if l := len(msg.Accounts); l > consts.MaxAccountsPerInstruction {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyAccounts, l, consts.MaxAccountsPerInstruction)
	}
	if l := len(msg.Data); l > consts.MaxInstructionDataLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrInstructionTooLarge, l, consts.MaxInstructionDataLen)
	}
	entrypoint, ok := r.programs.Lookup(msg.ProgramID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", program.ErrProgramNotFound, msg.ProgramID)
	}

	release := r.locks.LockKeys(tx.StateKeys())
	defer release()

	if !r.markSeen(txID) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTx, txID)
	}
	defer func() {
		if err != nil {
			r.unmarkSeen(txID)
		}
	}()

	mu := state.NewSimpleMutable(r.db)
	infos, loaded, err := r.loadAccounts(ctx, mu, msg)
	if err != nil {
		return nil, err
	}

	collector := program.NewLogCollector(func(s string) {
		r.log.Debug("program log",
			zap.Stringer("txID", txID),
			zap.String("msg", s),
		)
	})
	perr := entrypoint.Process(
		program.WithLogCollector(ctx, collector),
		msg.ProgramID,
		infos,
		msg.Data,
	)

	result := &Result{
		TxID:      txID,
		ProgramID: msg.ProgramID,
		Success:   perr == nil,
		Logs:      collector.Logs(),
		Modified:  []solana.PublicKey{},
	}
	for _, l := range loaded {
		data := l.info.Release()
		if perr != nil || !l.info.IsWritable || bytes.Equal(data, l.account.Data) {
			continue
		}
		l.account.Data = data
		if err := storage.SetAccount(ctx, mu, l.key, l.account); err != nil {
			return nil, err
		}
		result.Modified = append(result.Modified, l.key)
	}

	if perr != nil {
		result.Error = perr.Error()
		r.metrics.txsFailed.Inc()
	} else {
		if err := mu.Commit(ctx); err != nil {
			r.metrics.commitFailures.Inc()
			return nil, fmt.Errorf("%w: %w: %w", ErrCommitFailed, counter.ErrPersistenceFailure, err)
		}
		r.metrics.txsSucceeded.Inc()
	}
	r.metrics.execute.Observe(float64(time.Since(start)))

	r.log.Debug("executed transaction",
		zap.Stringer("txID", txID),
		zap.Stringer("programID", msg.ProgramID),
		zap.Bool("success", result.Success),
		zap.Int("modified", len(result.Modified)),
		zap.Int("heldLocks", r.locks.Locks()),
		zap.Duration("t", time.Since(start)),
	)
	r.notify(result)
	return result, nil
}
