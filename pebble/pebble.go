// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/maybe"
	"github.com/ava-labs/avalanchego/utils/units"
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/countervm/state"
)

var (
	_ state.Database = (*Database)(nil)

	ErrClosed = errors.New("closed")
)

type Config struct {
	CacheSize    int64 `json:"cacheSize"`
	BytesPerSync int   `json:"bytesPerSync"`
	MaxOpenFiles int   `json:"maxOpenFiles"`
	Sync         bool  `json:"sync"`
}

func NewDefaultConfig() Config {
	return Config{
		CacheSize:    64 * units.MiB,
		BytesPerSync: units.MiB,
		MaxOpenFiles: 4_096,
		Sync:         true,
	}
}

// Database persists account state in a pebble instance.
type Database struct {
	db      *pebble.DB
	metrics *metrics
	wo      *pebble.WriteOptions

	l       sync.RWMutex
	closed  bool
	closing chan struct{}
}

func New(file string, cfg Config) (*Database, *prometheus.Registry, error) {
	registry, metrics, err := newMetrics()
	if err != nil {
		return nil, nil, err
	}
	d := &Database{
		metrics: metrics,
		closing: make(chan struct{}),
		wo:      &pebble.WriteOptions{Sync: cfg.Sync},
	}
	cache := pebble.NewCache(cfg.CacheSize)
	defer cache.Unref()
	d.db, err = pebble.Open(file, &pebble.Options{
		Cache:         cache,
		BytesPerSync:  cfg.BytesPerSync,
		MaxOpenFiles:  cfg.MaxOpenFiles,
		EventListener: d.eventListener(),
	})
	if err != nil {
		return nil, nil, err
	}
	go d.collectMetrics()
	return d, registry, nil
}

func (d *Database) GetValue(_ context.Context, key []byte) ([]byte, error) {
	d.l.RLock()
	defer d.l.RUnlock()

	if d.closed {
		return nil, ErrClosed
	}
	start := time.Now()
	v, closer, err := d.db.Get(key)
	d.metrics.getLatency.Observe(float64(time.Since(start)))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	value := make([]byte, len(v))
	copy(value, v)
	return value, closer.Close()
}

// Apply writes [changes] in a single pebble batch.
func (d *Database) Apply(_ context.Context, changes map[string]maybe.Maybe[[]byte]) error {
	d.l.RLock()
	defer d.l.RUnlock()

	if d.closed {
		return ErrClosed
	}
	batch := d.db.NewBatch()
	defer batch.Close()

	for k, v := range changes {
		var err error
		if v.IsNothing() {
			err = batch.Delete([]byte(k), nil)
		} else {
			err = batch.Set([]byte(k), v.Value(), nil)
		}
		if err != nil {
			return err
		}
	}
	start := time.Now()
	if err := batch.Commit(d.wo); err != nil {
		return err
	}
	d.metrics.applyLatency.Observe(float64(time.Since(start)))
	d.metrics.appliedKeys.Add(float64(len(changes)))
	return nil
}

func (d *Database) Close() error {
	d.l.Lock()
	defer d.l.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.closed = true
	close(d.closing)
	return d.db.Close()
}
