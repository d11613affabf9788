// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/countervm/rpc"
)

func TestDefaults(t *testing.T) {
	require := require.New(t)

	c, err := New(nil)
	require.NoError(err)
	require.Equal(logging.Info, c.LogLevel)
	require.Equal(defaultListenAddress, c.ListenAddress)
	require.Equal(rpc.DefaultWebSocketWorkers, c.WebSocketWorkers)
	require.True(c.Pebble.Sync)
	require.False(c.GetContinuousProfilerConfig().Enabled)
	require.False(c.GetTraceConfig().Enabled)
}

func TestOverrides(t *testing.T) {
	require := require.New(t)

	c, err := New([]byte(`{
		"logLevel": "debug",
		"listenAddress": "0.0.0.0:9999",
		"shutdownTimeout": 1000000000,
		"pebble": {"sync": false},
		"runtime": {"executionConcurrency": 2, "verifyConcurrency": 3, "seenCacheSize": 10},
		"continuousProfilerDir": "/tmp/profiles"
	}`))
	require.NoError(err)
	require.Equal(logging.Debug, c.LogLevel)
	require.Equal("0.0.0.0:9999", c.ListenAddress)
	require.Equal(time.Second, c.ShutdownTimeout)
	require.False(c.Pebble.Sync)
	// Unset nested fields keep their defaults
	require.Positive(c.Pebble.CacheSize)
	require.Equal(2, c.Runtime.ExecutionConcurrency)
	require.Equal(10, c.Runtime.SeenCacheSize)

	pc := c.GetContinuousProfilerConfig()
	require.True(pc.Enabled)
	require.Equal("/tmp/profiles", pc.Dir)
}

func TestInvalid(t *testing.T) {
	require := require.New(t)

	_, err := New([]byte(`{"webSocketWorkers": 0}`))
	require.ErrorIs(err, ErrInvalidConfig)

	_, err = New([]byte(`{"runtime": {"executionConcurrency": 0}}`))
	require.ErrorIs(err, ErrInvalidConfig)

	_, err = New([]byte(`not json`))
	require.Error(err)
}

func TestLoad(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(os.WriteFile(path, []byte(`{"dataDir": "/var/counter"}`), 0o600))
	c, err := Load(path)
	require.NoError(err)
	require.Equal("/var/counter", c.DataDir)
	require.Equal("/var/counter/logs", c.GetLogConfig().Directory)

	c, err = Load("")
	require.NoError(err)
	require.Equal(defaultDataDir, c.DataDir)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(err)
}
