// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ava-labs/countervm/pubsub"
	"github.com/ava-labs/countervm/runtime"
)

var _ runtime.ResultListener = (*WebSocketServer)(nil)

type txWrapper struct {
	msg []byte
	c   *pubsub.Connection
}

type WebSocketServer struct {
	vm VM
	s  *pubsub.Server

	resultListeners *pubsub.Connections

	incomingTransactions chan *txWrapper
	txBacklog            atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	workers  sync.WaitGroup
}

func NewWebSocketServer(vm VM, workers int, backlog int) (*WebSocketServer, *pubsub.Server) {
	w := &WebSocketServer{
		vm:                   vm,
		resultListeners:      pubsub.NewConnections(),
		incomingTransactions: make(chan *txWrapper, backlog),
		stop:                 make(chan struct{}),
	}
	w.s = pubsub.New(vm.Logger(), pubsub.NewDefaultServerConfig(), w.MessageCallback())
	for i := 0; i < workers; i++ {
		w.workers.Add(1)
		go w.startWorker()
	}
	return w, w.s
}

func (w *WebSocketServer) startWorker() {
	defer w.workers.Done()

	log := w.vm.Logger()
	for {
		select {
		case txw := <-w.incomingTransactions:
			w.txBacklog.Add(-1)
			ctx, span := w.vm.Tracer().Start(context.Background(), "WebSocketServer.SubmitTx")

			tx, err := runtime.UnmarshalTransaction(txw.msg)
			if err != nil {
				log.Debug("failed to unmarshal tx",
					zap.Int("len", len(txw.msg)),
					zap.Error(err),
				)
				span.End()
				continue
			}
			reply := &TxMessage{TxID: tx.ID()}
			result, err := w.vm.Runtime().Execute(ctx, tx)
			if err != nil {
				log.Debug("failed to execute tx",
					zap.Stringer("txID", reply.TxID),
					zap.Error(err),
				)
				reply.Error = err.Error()
			} else {
				reply.Result = result
			}
			w.reply(txw.c, reply)
			span.End()
		case <-w.stop:
			return
		}
	}
}

func (w *WebSocketServer) reply(c *pubsub.Connection, m *TxMessage) {
	log := w.vm.Logger()
	msg, err := PackTxMessage(m)
	if err != nil {
		log.Error("failed to pack tx message", zap.Error(err))
		return
	}
	if !c.Send(msg) {
		log.Debug("dropped tx reply",
			zap.Uint64("conn", c.ID()),
			zap.Stringer("txID", m.TxID),
		)
	}
}

// OnResult publishes [r] to every result listener.
func (w *WebSocketServer) OnResult(r *runtime.Result) {
	if w.resultListeners.Len() == 0 {
		return
	}
	msg, err := PackResultMessage(r)
	if err != nil {
		w.vm.Logger().Error("failed to pack result", zap.Error(err))
		return
	}
	w.resultListeners.Remove(w.s.Publish(msg, w.resultListeners)...)
}

func (w *WebSocketServer) MessageCallback() pubsub.Callback {
	log := w.vm.Logger()
	return func(msgBytes []byte, c *pubsub.Connection) {
		if len(msgBytes) == 0 {
			log.Error("failed to unmarshal msg",
				zap.Int("len", len(msgBytes)),
			)
			return
		}

		switch msgBytes[0] {
		case ResultMode:
			if w.resultListeners.Add(c) {
				log.Debug("added result listener", zap.Uint64("conn", c.ID()))
			}
		case TxMode:
			select {
			case w.incomingTransactions <- &txWrapper{msgBytes[1:], c}:
				w.txBacklog.Add(1)
				log.Debug("enqueued tx for processing")
			default:
				log.Debug("dropping tx because backlog is full")
			}
		default:
			log.Error("unexpected message type",
				zap.Int("len", len(msgBytes)),
				zap.Uint8("mode", msgBytes[0]),
			)
		}
	}
}

// Backlog returns the number of submitted transactions waiting for a worker.
func (w *WebSocketServer) Backlog() int64 {
	return w.txBacklog.Load()
}

// Close stops the workers and closes every connection. Queued transactions
// are dropped.
func (w *WebSocketServer) Close() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	w.workers.Wait()
	w.s.Close()
}
