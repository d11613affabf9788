// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pubsub

import (
	"sync"

	"github.com/ava-labs/avalanchego/utils/set"
)

// Connections is a concurrent set of connections, such as the subscribers of
// one topic.
type Connections struct {
	lock  sync.RWMutex
	conns set.Set[*Connection]
}

func NewConnections(conns ...*Connection) *Connections {
	return &Connections{conns: set.Of(conns...)}
}

func (c *Connections) List() []*Connection {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.conns.List()
}

func (c *Connections) Has(conn *Connection) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.conns.Contains(conn)
}

// Add returns false if [conn] was already present.
func (c *Connections) Add(conn *Connection) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.conns.Contains(conn) {
		return false
	}
	c.conns.Add(conn)
	return true
}

func (c *Connections) Remove(conns ...*Connection) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.conns.Remove(conns...)
}

func (c *Connections) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.conns.Len()
}
