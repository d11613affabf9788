// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import "time"

const (
	Name              = "counter"
	JSONRPCEndpoint   = "/counterapi"
	WebSocketEndpoint = "/counterws"

	DefaultWebSocketWorkers = 4
	DefaultWebSocketBacklog = 1024

	clientPendingMessages = 1024
	clientMessageWait     = 10 * time.Millisecond
)
