// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pubsub

import (
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/timer"
	"go.uber.org/zap"
)

// MessageBuffer groups outbound messages into batches. A batch is pushed to
// [Queue] when the next message would overflow it, when it holds
// [MaxBatchedMessages], or [wait] after its first message.
type MessageBuffer struct {
	Queue chan []byte

	log     logging.Logger
	maxSize int
	wait    time.Duration
	flusher *timer.Timer

	lock   sync.Mutex
	batch  [][]byte
	size   int
	closed bool
}

func NewMessageBuffer(log logging.Logger, pending int, maxSize int, wait time.Duration) *MessageBuffer {
	m := &MessageBuffer{
		Queue:   make(chan []byte, pending),
		log:     log,
		maxSize: maxSize,
		wait:    wait,
	}
	m.flusher = timer.NewTimer(m.onTimeout)
	go m.flusher.Dispatch()
	return m
}

func (m *MessageBuffer) onTimeout() {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.closed {
		return
	}
	m.flush()
}

// flush must be called with [lock] held.
func (m *MessageBuffer) flush() {
	if len(m.batch) == 0 {
		return
	}
	count := len(m.batch)
	msg, err := CreateBatchMessage(m.batch)
	m.batch = nil
	m.size = 0
	if err != nil {
		m.log.Debug("failed to create batch", zap.Error(err))
		return
	}
	select {
	case m.Queue <- msg:
		m.log.Verbo("flushed batch", zap.Int("count", count))
	default:
		m.log.Debug("dropped batch", zap.Int("count", count))
	}
}

func (m *MessageBuffer) Send(msg []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	switch {
	case m.closed:
		return ErrClosed
	case len(msg) > m.maxSize:
		return ErrMessageTooLarge
	}

	if m.size+len(msg) > m.maxSize || len(m.batch) >= MaxBatchedMessages {
		m.flusher.Cancel()
		m.flush()
	}
	m.batch = append(m.batch, msg)
	m.size += len(msg)
	if len(m.batch) == 1 {
		m.flusher.SetTimeoutIn(m.wait)
	}
	return nil
}

// Close flushes the pending batch and closes [Queue]. Readers of [Queue] are
// responsible for delivering what remains in it.
func (m *MessageBuffer) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.closed = true
	m.flush()
	m.flusher.Stop()
	close(m.Queue)
	return nil
}
