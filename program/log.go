// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package program

import (
	"context"
	"fmt"
	"sync"
)

type collectorKey struct{}

// LogCollector records the log messages a program emits during a single
// invocation.
type LogCollector struct {
	l    sync.Mutex
	logs []string

	// OnLog, if set, is called for every record as it is emitted.
	OnLog func(string)
}

func NewLogCollector(onLog func(string)) *LogCollector {
	return &LogCollector{OnLog: onLog}
}

func (c *LogCollector) add(msg string) {
	c.l.Lock()
	c.logs = append(c.logs, msg)
	c.l.Unlock()

	if c.OnLog != nil {
		c.OnLog(msg)
	}
}

// Logs returns a copy of the records collected so far.
func (c *LogCollector) Logs() []string {
	c.l.Lock()
	defer c.l.Unlock()

	logs := make([]string, len(c.logs))
	copy(logs, c.logs)
	return logs
}

// WithLogCollector installs [c] as the sink for [Msg] calls made with the
// returned context.
func WithLogCollector(ctx context.Context, c *LogCollector) context.Context {
	return context.WithValue(ctx, collectorKey{}, c)
}

// Msg emits a program log record. It is a no-op if the runtime did not
// install a [LogCollector].
func Msg(ctx context.Context, format string, args ...any) {
	c, ok := ctx.Value(collectorKey{}).(*LogCollector)
	if !ok || c == nil {
		return
	}
	c.add(fmt.Sprintf(format, args...))
}
