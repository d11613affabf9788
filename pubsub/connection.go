// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pubsub

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Callback is invoked once for every message unpacked from a batch received
// on [c].
type Callback func(msg []byte, c *Connection)

// Connection is a single websocket client of a [Server].
type Connection struct {
	id   uint64
	s    *Server
	conn *websocket.Conn
	mb   *MessageBuffer

	active    atomic.Bool
	closeOnce sync.Once
}

func newConnection(s *Server, id uint64, conn *websocket.Conn) *Connection {
	c := &Connection{
		id:   id,
		s:    s,
		conn: conn,
		mb: NewMessageBuffer(
			s.log,
			s.config.MaxPendingMessages,
			s.config.MaxWriteMessageSize,
			s.config.MaxMessageWait,
		),
	}
	c.active.Store(true)
	return c
}

// ID is unique among the connections of a server.
func (c *Connection) ID() uint64 {
	return c.id
}

// Active is false once either pump has exited.
func (c *Connection) Active() bool {
	return c.active.Load()
}

// Send queues [msg] for the next outbound batch and reports whether it was
// accepted.
func (c *Connection) Send(msg []byte) bool {
	if !c.Active() {
		return false
	}
	if err := c.mb.Send(msg); err != nil {
		c.s.log.Debug("unable to queue message",
			zap.Uint64("conn", c.id),
			zap.Error(err),
		)
		return false
	}
	return true
}

// Close detaches [c] from its server and closes the socket. Pending batches
// are flushed to the write pump first.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.active.Store(false)
		c.s.removeConnection(c)
		_ = c.mb.Close()
	})
}

func (c *Connection) extendDeadline() error {
	return c.conn.SetReadDeadline(time.Now().Add(c.s.config.PongWait))
}

// readPump is the only reader of [c.conn].
func (c *Connection) readPump() {
	defer func() {
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(c.s.config.MaxReadMessageSize))
	if err := c.extendDeadline(); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.extendDeadline()
	})
	for {
		_, reader, err := c.conn.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.s.log.Debug("connection closed unexpectedly",
					zap.Uint64("conn", c.id),
					zap.Error(err),
				)
			}
			return
		}
		if c.s.callback == nil {
			continue
		}
		batch, err := io.ReadAll(reader)
		if err != nil {
			c.s.log.Debug("failed to read batch",
				zap.Uint64("conn", c.id),
				zap.Error(err),
			)
			return
		}
		msgs, err := ParseBatchMessage(c.s.config.MaxReadMessageSize, batch)
		if err != nil {
			c.s.log.Debug("failed to parse batch",
				zap.Uint64("conn", c.id),
				zap.Error(err),
			)
			return
		}
		for _, msg := range msgs {
			c.s.callback(msg, c)
		}
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.s.config.WriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// writePump is the only writer of [c.conn]. It exits once the message buffer
// is closed and drained.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.s.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case batch, ok := <-c.mb.Queue:
			if !ok {
				_ = c.write(websocket.CloseMessage, nil)
				return
			}
			if err := c.write(websocket.BinaryMessage, batch); err != nil {
				c.s.log.Debug("failed to write batch",
					zap.Uint64("conn", c.id),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
