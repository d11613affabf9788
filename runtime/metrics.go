// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"github.com/ava-labs/avalanchego/utils/metric"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/countervm/executor"
)

var _ executor.Metrics = (*metrics)(nil)

type metrics struct {
	txsSucceeded    prometheus.Counter
	txsFailed       prometheus.Counter
	txsRejected     prometheus.Counter
	accountsCreated prometheus.Counter
	commitFailures  prometheus.Counter

	executorBlocked    prometheus.Counter
	executorExecutable prometheus.Counter

	execute metric.Averager
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	execute, err := metric.NewAverager(
		"",
		"runtime_execute",
		"time spent executing transactions",
		r,
	)
	if err != nil {
		return nil, err
	}
	m := &metrics{
		txsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "runtime",
			Name:      "txs_succeeded",
			Help:      "number of transactions whose program succeeded",
		}),
		txsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "runtime",
			Name:      "txs_failed",
			Help:      "number of transactions whose program returned an error",
		}),
		txsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "runtime",
			Name:      "txs_rejected",
			Help:      "number of transactions rejected before execution",
		}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "runtime",
			Name:      "accounts_created",
			Help:      "number of accounts created",
		}),
		commitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "runtime",
			Name:      "commit_failures",
			Help:      "number of state commits that failed",
		}),
		executorBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "runtime",
			Name:      "executor_blocked",
			Help:      "batch transactions that waited on a conflicting transaction",
		}),
		executorExecutable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "runtime",
			Name:      "executor_executable",
			Help:      "batch transactions that ran without waiting",
		}),
		execute: execute,
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.txsSucceeded),
		r.Register(m.txsFailed),
		r.Register(m.txsRejected),
		r.Register(m.accountsCreated),
		r.Register(m.commitFailures),
		r.Register(m.executorBlocked),
		r.Register(m.executorExecutable),
	)
	return m, errs.Err
}

func (m *metrics) RecordBlocked() {
	m.executorBlocked.Inc()
}

func (m *metrics) RecordExecutable() {
	m.executorExecutable.Inc()
}
