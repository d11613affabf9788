// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pubsub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return conn
}

func readBatch(t *testing.T, conn *websocket.Conn) [][]byte {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	msgs, err := ParseBatchMessage(maxBatchMessageSize, msg)
	require.NoError(t, err)
	return msgs
}

func writeBatch(t *testing.T, conn *websocket.Conn, msgs ...[]byte) {
	b, err := CreateBatchMessage(msgs)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, b))
}

func waitForConns(t *testing.T, s *Server, n int) {
	require.Eventually(t, func() bool {
		return s.Connections().Len() == n
	}, 5*time.Second, 10*time.Millisecond)
}

// TestServerPublish adds a connection to a server then publishes a msg to be
// sent to all connections. Checks the message was delivered properly and the
// connection is properly handled when closed.
func TestServerPublish(t *testing.T) {
	require := require.New(t)

	server := New(logging.NoLog{}, NewDefaultServerConfig(), nil)
	srv := httptest.NewServer(server)
	defer srv.Close()

	conn := dial(t, srv)
	waitForConns(t, server, 1)

	inactive := server.Publish([]byte("result"), server.Connections())
	require.Empty(inactive)
	require.Equal([][]byte{[]byte("result")}, readBatch(t, conn))

	require.NoError(conn.Close())
	waitForConns(t, server, 0)
}

func TestServerCallback(t *testing.T) {
	require := require.New(t)

	received := make(chan []byte, 2)
	server := New(logging.NoLog{}, NewDefaultServerConfig(), func(msg []byte, c *Connection) {
		received <- msg
		c.Send(append([]byte("ack:"), msg...))
	})
	srv := httptest.NewServer(server)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	writeBatch(t, conn, []byte("a"), []byte("b"))

	require.Equal([]byte("a"), <-received)
	require.Equal([]byte("b"), <-received)

	acks := [][]byte{}
	for len(acks) < 2 {
		acks = append(acks, readBatch(t, conn)...)
	}
	require.Equal([][]byte{[]byte("ack:a"), []byte("ack:b")}, acks)
}

func TestServerPublishSpecific(t *testing.T) {
	require := require.New(t)

	server := New(logging.NoLog{}, NewDefaultServerConfig(), nil)
	srv := httptest.NewServer(server)
	defer srv.Close()

	conn1 := dial(t, srv)
	defer conn1.Close()
	waitForConns(t, server, 1)
	first := server.Connections().List()[0]
	require.True(first.Active())

	conn2 := dial(t, srv)
	defer conn2.Close()
	waitForConns(t, server, 2)

	only := NewConnections(first)
	require.False(only.Add(first))
	server.Publish([]byte("only-first"), only)
	require.Equal([][]byte{[]byte("only-first")}, readBatch(t, conn1))

	require.NoError(conn2.SetReadDeadline(time.Now().Add(200 * time.Millisecond)))
	_, _, err := conn2.ReadMessage()
	require.Error(err)
}

func TestServerClose(t *testing.T) {
	require := require.New(t)

	server := New(logging.NoLog{}, NewDefaultServerConfig(), nil)
	srv := httptest.NewServer(server)
	defer srv.Close()

	conn1 := dial(t, srv)
	defer conn1.Close()
	conn2 := dial(t, srv)
	defer conn2.Close()
	waitForConns(t, server, 2)

	conns := server.Connections().List()
	require.NotEqual(conns[0].ID(), conns[1].ID())

	server.Close()
	require.Zero(server.Connections().Len())
	for _, c := range conns {
		require.False(c.Active())
		require.False(c.Send([]byte("late")))
	}

	require.NoError(conn1.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, _, err := conn1.ReadMessage()
	require.True(websocket.IsCloseError(err, websocket.CloseNoStatusReceived))

	inactive := server.Publish([]byte("late"), NewConnections(conns...))
	require.Len(inactive, 2)

	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.ErrorIs(err, websocket.ErrBadHandshake)
	require.NoError(resp.Body.Close())
}

func TestMessageBufferLimits(t *testing.T) {
	require := require.New(t)

	mb := NewMessageBuffer(logging.NoLog{}, 4, 8, time.Hour)
	require.ErrorIs(mb.Send(make([]byte, 9)), ErrMessageTooLarge)

	require.NoError(mb.Send([]byte("12345")))
	// exceeds the batch size and flushes the first message
	require.NoError(mb.Send([]byte("6789")))
	batch := <-mb.Queue
	msgs, err := ParseBatchMessage(64, batch)
	require.NoError(err)
	require.Equal([][]byte{[]byte("12345")}, msgs)

	require.NoError(mb.Close())
	batch = <-mb.Queue
	msgs, err = ParseBatchMessage(64, batch)
	require.NoError(err)
	require.Equal([][]byte{[]byte("6789")}, msgs)
	require.ErrorIs(mb.Send([]byte("x")), ErrClosed)
	require.ErrorIs(mb.Close(), ErrClosed)
}

func TestParseBatchMessageTooLarge(t *testing.T) {
	require := require.New(t)
	b, err := CreateBatchMessage([][]byte{make([]byte, 32)})
	require.NoError(err)
	_, err = ParseBatchMessage(16, b)
	require.ErrorIs(err, ErrMessageTooLarge)
}
