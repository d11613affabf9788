// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var ErrDuplicateLogger = errors.New("duplicate logger")

type logWrapper struct {
	logger       logging.Logger
	displayLevel zap.AtomicLevel
	logLevel     zap.AtomicLevel
}

// Factory produces loggers that write to the console and to a rotating file
// per logger under the configured directory.
type Factory struct {
	config logging.Config
	lock   sync.RWMutex

	// Logger name --> the logger.
	loggers map[string]logWrapper
}

func NewFactory(config logging.Config) *Factory {
	return &Factory{
		config:  config,
		loggers: make(map[string]logWrapper),
	}
}

// Assumes [f.lock] is held
func (f *Factory) makeLogger(config logging.Config) (logging.Logger, error) {
	if _, ok := f.loggers[config.LoggerName]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateLogger, config.LoggerName)
	}
	consoleEnc := config.LogFormat.ConsoleEncoder()
	fileEnc := config.LogFormat.FileEncoder()

	var consoleWriter io.WriteCloser
	if config.DisableWriterDisplaying {
		consoleWriter = discardWriteCloser{io.Discard}
	} else {
		consoleWriter = os.Stderr
	}

	consoleCore := logging.NewWrappedCore(config.DisplayLevel, consoleWriter, consoleEnc)
	consoleCore.WriterDisabled = config.DisableWriterDisplaying

	rw := &lumberjack.Logger{
		Filename:   filepath.Join(config.Directory, config.LoggerName+".log"),
		MaxSize:    config.MaxSize,  // megabytes
		MaxAge:     config.MaxAge,   // days
		MaxBackups: config.MaxFiles, // files
		Compress:   config.Compress,
	}
	fileCore := logging.NewWrappedCore(config.LogLevel, rw, fileEnc)
	prefix := config.LogFormat.WrapPrefix(config.MsgPrefix)

	l := logging.NewLogger(prefix, consoleCore, fileCore)
	f.loggers[config.LoggerName] = logWrapper{
		logger:       l,
		displayLevel: consoleCore.AtomicLevel,
		logLevel:     fileCore.AtomicLevel,
	}
	return l, nil
}

// Make returns a new logger named [name].
func (f *Factory) Make(name string) (logging.Logger, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	config := f.config
	config.LoggerName = name
	return f.makeLogger(config)
}

// SetLogLevel changes the file log level of [name].
func (f *Factory) SetLogLevel(name string, level logging.Level) error {
	f.lock.RLock()
	defer f.lock.RUnlock()

	lw, ok := f.loggers[name]
	if !ok {
		return fmt.Errorf("logger %q not found", name)
	}
	lw.logLevel.SetLevel(zapcore.Level(level))
	return nil
}

// SetDisplayLevel changes the console log level of [name].
func (f *Factory) SetDisplayLevel(name string, level logging.Level) error {
	f.lock.RLock()
	defer f.lock.RUnlock()

	lw, ok := f.loggers[name]
	if !ok {
		return fmt.Errorf("logger %q not found", name)
	}
	lw.displayLevel.SetLevel(zapcore.Level(level))
	return nil
}

func (f *Factory) Close() {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, lw := range f.loggers {
		lw.logger.Stop()
	}
	f.loggers = nil
}

type discardWriteCloser struct {
	io.Writer
}

func (discardWriteCloser) Close() error {
	return nil
}
