// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/profiler"

	"github.com/ava-labs/countervm/consts"
	"github.com/ava-labs/countervm/pebble"
	"github.com/ava-labs/countervm/rpc"
	"github.com/ava-labs/countervm/runtime"
	"github.com/ava-labs/countervm/server"
	"github.com/ava-labs/countervm/trace"
)

const (
	defaultListenAddress               = "127.0.0.1:9650"
	defaultBaseURL                     = "/ext"
	defaultDataDir                     = ".countervm"
	defaultShutdownTimeout             = 10 * time.Second
	defaultContinuousProfilerFrequency = 1 * time.Minute
	defaultContinuousProfilerMaxFiles  = 10
)

type Config struct {
	// Logging
	LogLevel        logging.Level `json:"logLevel"`
	LogDisplayLevel logging.Level `json:"logDisplayLevel"`
	LogDir          string        `json:"logDir"`

	// Storage
	DataDir  string        `json:"dataDir"`
	MemoryDB bool          `json:"memoryDB"` // state is lost on shutdown
	Pebble   pebble.Config `json:"pebble"`

	// Execution
	Runtime runtime.Config `json:"runtime"`

	// API
	ListenAddress    string            `json:"listenAddress"`
	BaseURL          string            `json:"baseURL"`
	AllowedOrigins   []string          `json:"allowedOrigins"`
	AllowedHosts     []string          `json:"allowedHosts"`
	HTTP             server.HTTPConfig `json:"http"`
	ShutdownTimeout  time.Duration     `json:"shutdownTimeout"`
	WebSocketWorkers int               `json:"webSocketWorkers"`
	WebSocketBacklog int               `json:"webSocketBacklog"`
	MetricsEnabled   bool              `json:"metricsEnabled"`

	// Tracing
	TraceEnabled    bool    `json:"traceEnabled"`
	TraceSampleRate float64 `json:"traceSampleRate"`
	TraceEndpoint   string  `json:"traceEndpoint"`

	// Profiling
	ContinuousProfilerDir string `json:"continuousProfilerDir"` // "*" is replaced with the process ID
}

func New(b []byte) (*Config, error) {
	c := &Config{}
	c.setDefault()
	if len(b) > 0 {
		if err := json.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", string(b), err)
		}
	}
	if c.WebSocketWorkers <= 0 {
		return nil, fmt.Errorf("%w: webSocketWorkers=%d", ErrInvalidConfig, c.WebSocketWorkers)
	}
	if c.Runtime.ExecutionConcurrency <= 0 || c.Runtime.VerifyConcurrency <= 0 {
		return nil, fmt.Errorf("%w: runtime concurrency must be positive", ErrInvalidConfig)
	}
	return c, nil
}

// Load reads the config at [path]. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if len(path) == 0 {
		return New(nil)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(b)
}

func (c *Config) setDefault() {
	c.LogLevel = logging.Info
	c.LogDisplayLevel = logging.Info
	c.DataDir = defaultDataDir
	c.Pebble = pebble.NewDefaultConfig()
	c.Runtime = runtime.NewDefaultConfig()
	c.ListenAddress = defaultListenAddress
	c.BaseURL = defaultBaseURL
	c.AllowedOrigins = []string{"*"}
	c.AllowedHosts = []string{"localhost"}
	c.HTTP = server.NewDefaultHTTPConfig()
	c.ShutdownTimeout = defaultShutdownTimeout
	c.WebSocketWorkers = rpc.DefaultWebSocketWorkers
	c.WebSocketBacklog = rpc.DefaultWebSocketBacklog
	c.MetricsEnabled = true
	c.TraceEndpoint = trace.DefaultEndpoint
}

func (c *Config) GetLogConfig() logging.Config {
	logDir := c.LogDir
	if len(logDir) == 0 {
		logDir = c.DataDir + "/logs"
	}
	return logging.Config{
		RotatingWriterConfig: logging.RotatingWriterConfig{
			MaxSize:   8, // MB
			MaxFiles:  5,
			MaxAge:    30, // days
			Directory: logDir,
			Compress:  true,
		},
		LogLevel:     c.LogLevel,
		DisplayLevel: c.LogDisplayLevel,
		LogFormat:    logging.Colors,
	}
}

func (c *Config) GetTraceConfig() *trace.Config {
	return &trace.Config{
		Enabled:         c.TraceEnabled,
		TraceSampleRate: c.TraceSampleRate,
		Endpoint:        c.TraceEndpoint,
		AppName:         consts.Name,
		Agent:           consts.Name,
		Version:         consts.Version.String(),
	}
}

func (c *Config) GetContinuousProfilerConfig() *profiler.Config {
	if len(c.ContinuousProfilerDir) == 0 {
		return &profiler.Config{Enabled: false}
	}
	// Replace all instances of "*" with the pid. This is useful when
	// running multiple nodes on the same machine.
	dir := strings.ReplaceAll(c.ContinuousProfilerDir, "*", fmt.Sprintf("%d", os.Getpid()))
	return &profiler.Config{
		Enabled:     true,
		Dir:         dir,
		Freq:        defaultContinuousProfilerFrequency,
		MaxNumFiles: defaultContinuousProfilerMaxFiles,
	}
}
