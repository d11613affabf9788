// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/gorilla/websocket"

	"github.com/ava-labs/countervm/pubsub"
	"github.com/ava-labs/countervm/runtime"
)

type WebSocketClient struct {
	conn *websocket.Conn

	mb           *pubsub.MessageBuffer
	readStopped  chan struct{}
	writeStopped chan struct{}

	pendingResults chan []byte
	pendingTxs     chan []byte

	startedClose atomic.Bool
	closed       atomic.Bool
	errl         sync.Once
	err          error
}

// NewWebSocketClient dials into the server at [uri] (the node base URI) and
// returns a client.
func NewWebSocketClient(uri string, pending int) (*WebSocketClient, error) {
	uri = strings.TrimSuffix(uri, "/")
	uri = strings.Replace(uri, "http://", "ws://", 1)
	uri = strings.Replace(uri, "https://", "wss://", 1)
	if !strings.HasPrefix(uri, "ws") {
		uri = "ws://" + uri
	}
	uri += WebSocketEndpoint

	conn, resp, err := websocket.DefaultDialer.Dial(uri, nil)
	if err != nil {
		return nil, err
	}
	// not using resp for now
	_ = resp.Body.Close()

	wc := &WebSocketClient{
		conn:           conn,
		mb:             pubsub.NewMessageBuffer(logging.NoLog{}, clientPendingMessages, pubsub.MaxMessageSize, clientMessageWait),
		readStopped:    make(chan struct{}),
		writeStopped:   make(chan struct{}),
		pendingResults: make(chan []byte, pending),
		pendingTxs:     make(chan []byte, pending),
	}
	go wc.readLoop()
	go wc.writeLoop()
	return wc, nil
}

func (c *WebSocketClient) readLoop() {
	defer close(c.readStopped)

	for {
		_, msgBatch, err := c.conn.ReadMessage()
		if err != nil {
			c.errl.Do(func() {
				c.err = err
			})
			return
		}
		msgs, err := pubsub.ParseBatchMessage(4*pubsub.MaxMessageSize, msgBatch)
		if err != nil {
			c.errl.Do(func() {
				c.err = err
			})
			return
		}
		for _, msg := range msgs {
			if len(msg) == 0 {
				continue
			}
			switch msg[0] {
			case ResultMode:
				c.pendingResults <- msg
			case TxMode:
				c.pendingTxs <- msg
			}
		}
	}
}

func (c *WebSocketClient) writeLoop() {
	defer close(c.writeStopped)

	for {
		select {
		case msg, ok := <-c.mb.Queue:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				c.errl.Do(func() {
					c.err = err
				})
				return
			}
		case <-c.readStopped:
			return
		}
	}
}

// RegisterResults subscribes to every executed result.
func (c *WebSocketClient) RegisterResults() error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.mb.Send([]byte{ResultMode})
}

// SubmitTx sends [tx] for execution. The outcome is returned by [ListenTx].
func (c *WebSocketClient) SubmitTx(tx *runtime.Transaction) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return c.mb.Send(append([]byte{TxMode}, tx.Bytes()...))
}

// ListenResult waits for the next result.
func (c *WebSocketClient) ListenResult(ctx context.Context) (*runtime.Result, error) {
	select {
	case msg := <-c.pendingResults:
		return UnpackResultMessage(msg)
	case <-c.readStopped:
		return nil, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ListenTx waits for the response to a submitted transaction.
func (c *WebSocketClient) ListenTx(ctx context.Context) (*TxMessage, error) {
	select {
	case msg := <-c.pendingTxs:
		return UnpackTxMessage(msg)
	case <-c.readStopped:
		return nil, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes [c]'s connection to the server.
func (c *WebSocketClient) Close() error {
	if !c.startedClose.CompareAndSwap(false, true) {
		return ErrClosed
	}
	// Flush pending writes before closing the connection
	_ = c.mb.Close()
	<-c.writeStopped
	err := c.conn.Close()
	<-c.readStopped
	c.closed.Store(true)
	return err
}
