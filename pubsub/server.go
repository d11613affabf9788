// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pubsub

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	// WriteWait bounds every write to a peer.
	WriteWait time.Duration
	// PongWait is how long a peer may stay silent before it is dropped.
	PongWait time.Duration
	// PingPeriod must be less than PongWait.
	PingPeriod time.Duration
	// MaxReadMessageSize bounds an inbound batch.
	MaxReadMessageSize int
	// MaxWriteMessageSize bounds an outbound message and batch.
	MaxWriteMessageSize int
	MaxPendingMessages  int
	MaxMessageWait      time.Duration
}

func NewDefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadBufferSize:      ReadBufferSize,
		WriteBufferSize:     WriteBufferSize,
		WriteWait:           WriteWait,
		PongWait:            PongWait,
		PingPeriod:          PingPeriod,
		MaxReadMessageSize:  maxBatchMessageSize,
		MaxWriteMessageSize: MaxMessageSize,
		MaxPendingMessages:  MaxPendingMessages,
		MaxMessageWait:      MaxMessageWait,
	}
}

// Server upgrades HTTP requests to websocket connections, hands every inbound
// message to a [Callback], and publishes messages to sets of connections.
type Server struct {
	log      logging.Logger
	config   *ServerConfig
	callback Callback
	upgrader *websocket.Upgrader

	conns  *Connections
	nextID atomic.Uint64
	closed atomic.Bool
}

// New returns a server that passes inbound messages to [callback]. A nil
// callback discards them.
func New(log logging.Logger, config *ServerConfig, callback Callback) *Server {
	return &Server{
		log:      log,
		config:   config,
		callback: callback,
		conns:    NewConnections(),
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("failed to upgrade", zap.Error(err))
		return
	}
	conn := newConnection(s, s.nextID.Add(1), wsConn)
	s.conns.Add(conn)
	s.log.Debug("accepted connection",
		zap.Uint64("conn", conn.id),
		zap.String("remote", r.RemoteAddr),
	)

	go conn.writePump()
	go conn.readPump()
}

// Publish sends [msg] to every connection in [to] and returns the members
// of [to] that are no longer served.
func (s *Server) Publish(msg []byte, to *Connections) []*Connection {
	var inactive []*Connection
	for _, conn := range to.List() {
		if !s.conns.Has(conn) {
			inactive = append(inactive, conn)
			continue
		}
		if !conn.Send(msg) {
			s.log.Verbo("dropped message to subscriber",
				zap.Uint64("conn", conn.id),
			)
		}
	}
	return inactive
}

// Connections returns the live connections.
func (s *Server) Connections() *Connections {
	return s.conns
}

// Close refuses new connections and closes the existing ones.
func (s *Server) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	for _, conn := range s.conns.List() {
		conn.Close()
	}
}

func (s *Server) removeConnection(conn *Connection) {
	s.conns.Remove(conn)
}
