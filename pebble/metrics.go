// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"time"

	"github.com/ava-labs/avalanchego/utils/metric"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace       = "pebble"
	metricsInterval = 10 * time.Second
)

type metrics struct {
	stallStart time.Time
	writeStall metric.Averager

	getLatency   metric.Averager
	applyLatency metric.Averager
	appliedKeys  prometheus.Counter

	compactions       *prometheus.CounterVec
	activeCompactions prometheus.Gauge

	tombstones    prometheus.Gauge
	obsoleteBytes *prometheus.GaugeVec
}

func newMetrics() (*prometheus.Registry, *metrics, error) {
	r := prometheus.NewRegistry()
	m := &metrics{
		appliedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "applied_keys",
			Help:      "account keys written or deleted",
		}),
		compactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compactions",
			Help:      "started compactions by input level",
		}, []string{"level"}),
		activeCompactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_compactions",
			Help:      "compactions in progress",
		}),
		tombstones: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tombstone_count",
			Help:      "approximate count of internal tombstones",
		}),
		obsoleteBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "obsolete_bytes",
			Help:      "bytes on disk no longer referenced by the db",
		}, []string{"kind"}),
	}

	errs := wrappers.Errs{}
	averager := func(name, desc string) metric.Averager {
		a, err := metric.NewAverager("", namespace+"_"+name, desc, r)
		errs.Add(err)
		return a
	}
	m.writeStall = averager("write_stall", "time spent waiting for disk writes")
	m.getLatency = averager("read_latency", "time spent reading an account")
	m.applyLatency = averager("apply_latency", "time spent committing account changes")
	errs.Add(
		r.Register(m.appliedKeys),
		r.Register(m.compactions),
		r.Register(m.activeCompactions),
		r.Register(m.tombstones),
		r.Register(m.obsoleteBytes),
	)
	return r, m, errs.Err
}

func (d *Database) eventListener() *pebble.EventListener {
	return &pebble.EventListener{
		CompactionBegin: func(info pebble.CompactionInfo) {
			d.metrics.activeCompactions.Inc()
			level := "l1+"
			if len(info.Input) > 0 && info.Input[0].Level == 0 {
				level = "l0"
			}
			d.metrics.compactions.WithLabelValues(level).Inc()
		},
		CompactionEnd: func(pebble.CompactionInfo) {
			d.metrics.activeCompactions.Dec()
		},
		WriteStallBegin: func(pebble.WriteStallBeginInfo) {
			d.metrics.stallStart = time.Now()
		},
		WriteStallEnd: func() {
			d.metrics.writeStall.Observe(float64(time.Since(d.metrics.stallStart)))
		},
	}
}

func (d *Database) collectMetrics() {
	t := time.NewTicker(metricsInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			m := d.db.Metrics()
			d.metrics.tombstones.Set(float64(m.Keys.TombstoneCount))
			d.metrics.obsoleteBytes.WithLabelValues("table").Set(float64(m.Table.ObsoleteSize))
			d.metrics.obsoleteBytes.WithLabelValues("wal").Set(float64(m.WAL.ObsoletePhysicalSize))
		case <-d.closing:
			return
		}
	}
}
