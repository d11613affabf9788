// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/profiler"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/countervm/config"
	"github.com/ava-labs/countervm/consts"
	"github.com/ava-labs/countervm/counter"
	"github.com/ava-labs/countervm/program"
	"github.com/ava-labs/countervm/rpc"
	"github.com/ava-labs/countervm/runtime"
	"github.com/ava-labs/countervm/server"
	"github.com/ava-labs/countervm/state"
	"github.com/ava-labs/countervm/storage"

	countertrace "github.com/ava-labs/countervm/trace"
)

const (
	stateDB      = "statedb"
	metricsRoute = "metrics"
)

var _ rpc.VM = (*VM)(nil)

// VM wires storage, the runtime and the API server of a single node.
type VM struct {
	config *config.Config
	log    logging.Logger
	tracer trace.Tracer

	db       state.Database
	runtime  *runtime.Runtime
	server   *server.Server
	gatherer prometheus.Gatherer

	closers []func() error
	running atomic.Bool
}

// New initializes a node from [cfg]. The API is served on [listener] once
// [Run] is called.
func New(cfg *config.Config, log logging.Logger, listener net.Listener) (*VM, error) {
	vm := &VM{
		config: cfg,
		log:    log,
	}
	if err := vm.initialize(listener); err != nil {
		_ = vm.Shutdown()
		return nil, err
	}
	return vm, nil
}

func (vm *VM) initialize(listener net.Listener) error {
	var err error
	vm.tracer, err = countertrace.New(vm.config.GetTraceConfig())
	if err != nil {
		return err
	}
	vm.closers = append(vm.closers, vm.tracer.Close)

	if pcfg := vm.config.GetContinuousProfilerConfig(); pcfg.Enabled {
		continuousProfiler := profiler.NewContinuous(pcfg.Dir, pcfg.Freq, pcfg.MaxNumFiles)
		vm.closers = append(vm.closers, func() error {
			continuousProfiler.Shutdown()
			return nil
		})
		go continuousProfiler.Dispatch() //nolint:errcheck
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	gatherers := prometheus.Gatherers{registry}

	if vm.config.MemoryDB {
		vm.db = state.NewMemDB()
	} else {
		db, dbGatherer, err := storage.New(vm.config.Pebble, vm.config.DataDir, stateDB)
		if err != nil {
			return fmt.Errorf("failed to open state: %w", err)
		}
		vm.db = db
		gatherers = append(gatherers, dbGatherer)
	}
	vm.closers = append(vm.closers, vm.db.Close)
	vm.gatherer = gatherers

	programs := program.NewRegistry()
	if err := programs.Register(consts.CounterProgramID, counter.New()); err != nil {
		return err
	}
	vm.runtime, err = runtime.New(vm.log, vm.tracer, registry, vm.db, programs, vm.config.Runtime)
	if err != nil {
		return err
	}

	vm.server = server.New(
		server.Config{
			BaseURL:         vm.config.BaseURL,
			HTTP:            vm.config.HTTP,
			AllowedOrigins:  vm.config.AllowedOrigins,
			AllowedHosts:    vm.config.AllowedHosts,
			ShutdownTimeout: vm.config.ShutdownTimeout,
		},
		vm.log,
		listener,
		server.LogRequests(vm.log),
	)
	jsonRPCHandler, err := server.NewHandler(rpc.NewJSONRPCServer(vm), rpc.Name)
	if err != nil {
		return err
	}
	if err := vm.server.AddRoute(jsonRPCHandler, rpc.Name, rpc.JSONRPCEndpoint); err != nil {
		return err
	}
	ws, wsHandler := rpc.NewWebSocketServer(vm, vm.config.WebSocketWorkers, vm.config.WebSocketBacklog)
	vm.runtime.AddListener(ws)
	vm.closers = append(vm.closers, func() error {
		ws.Close()
		return nil
	})
	if err := vm.server.AddRoute(wsHandler, rpc.Name, rpc.WebSocketEndpoint); err != nil {
		return err
	}
	if vm.config.MetricsEnabled {
		metricsHandler := promhttp.HandlerFor(vm.gatherer, promhttp.HandlerOpts{})
		if err := vm.server.AddRoute(metricsHandler, metricsRoute, ""); err != nil {
			return err
		}
	}

	vm.log.Info("initialized node",
		zap.Stringer("version", consts.Version),
		zap.Stringer("counterProgram", consts.CounterProgramID),
		zap.Bool("memoryDB", vm.config.MemoryDB),
	)
	return nil
}

// Run serves the API until [ctx] is cancelled and then shuts the node down.
func (vm *VM) Run(ctx context.Context) error {
	if !vm.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vm.log.Info("serving API", zap.String("uri", vm.URI()))
		if err := vm.server.Dispatch(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return vm.server.Shutdown()
	})
	err := g.Wait()
	return errors.Join(err, vm.Shutdown())
}

// URI is the base URI clients of this node should use.
func (vm *VM) URI() string {
	return fmt.Sprintf("http://%s%s/%s", vm.server.Addr(), vm.config.BaseURL, rpc.Name)
}

// MetricsURI is where the node serves prometheus metrics.
func (vm *VM) MetricsURI() string {
	return fmt.Sprintf("http://%s%s/%s", vm.server.Addr(), vm.config.BaseURL, metricsRoute)
}

// Shutdown releases everything opened by [New] in reverse order.
func (vm *VM) Shutdown() error {
	errs := wrappers.Errs{}
	for i := len(vm.closers) - 1; i >= 0; i-- {
		errs.Add(vm.closers[i]())
	}
	vm.closers = nil
	return errs.Err
}

func (vm *VM) Logger() logging.Logger { return vm.log }

func (vm *VM) Tracer() trace.Tracer { return vm.tracer }

func (vm *VM) Runtime() rpc.Runtime { return vm.runtime }
