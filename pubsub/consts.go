// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pubsub

import (
	"errors"
	"time"

	"github.com/ava-labs/avalanchego/utils/units"
)

const (
	ReadBufferSize      = units.KiB
	WriteBufferSize     = units.KiB
	WriteWait           = 10 * time.Second
	PongWait            = 60 * time.Second
	PingPeriod          = (PongWait * 9) / 10
	MaxMessageSize      = 10 * units.KiB
	MaxPendingMessages  = 1024
	MaxMessageWait      = 50 * time.Millisecond
	MaxBatchedMessages  = 256
	maxBatchMessageSize = 4 * MaxMessageSize
)

var (
	ErrClosed          = errors.New("closed")
	ErrMessageTooLarge = errors.New("message too large")
	ErrTooManyMessages = errors.New("too many messages in batch")
)
