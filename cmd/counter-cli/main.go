// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/akamensky/argparse"
	"github.com/ava-labs/avalanchego/utils/logging"

	"github.com/ava-labs/countervm/cli"
	"github.com/ava-labs/countervm/logger"
	"github.com/ava-labs/countervm/pebble"
	"github.com/ava-labs/countervm/runtime"
	"github.com/ava-labs/countervm/state"
	"github.com/ava-labs/countervm/storage"
	"github.com/ava-labs/countervm/trace"
	"github.com/ava-labs/countervm/utils"
)

const (
	cliFolder   = ".counter-cli"
	cliDatabase = "db"
)

type options struct {
	endpoint *string
	dataDir  *string
	memory   *bool
	logLevel *string
	verbose  *bool
}

func main() {
	parser := argparse.NewParser("counter-cli", "Interacts with the counter program")
	opts := &options{
		endpoint: parser.String("e", "endpoint", &argparse.Options{Help: "node URI; runs in process when empty"}),
		dataDir:  parser.String("d", "data-dir", &argparse.Options{Help: "directory for keys and local state (default ~/" + cliFolder + ")"}),
		memory:   parser.Flag("m", "memory", &argparse.Options{Help: "keep keys and local state in memory only"}),
		logLevel: parser.String("", "log-level", &argparse.Options{Default: "info", Help: "log level"}),
		verbose:  parser.Flag("", "verbose", &argparse.Options{Help: "print logs to stderr"}),
	}
	cmds := newCommands(parser)
	if err := parser.Parse(os.Args); err != nil {
		fmt.Fprint(os.Stderr, parser.Usage(err))
		os.Exit(1)
	}

	if err := run(context.Background(), opts, cmds); err != nil {
		utils.Outf("{{red}}error:{{/}} %s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options, cmds []command) error {
	dataDir := *opts.dataDir
	if len(dataDir) == 0 {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dataDir = filepath.Join(homeDir, cliFolder)
	}

	level, err := logging.ToLevel(*opts.logLevel)
	if err != nil {
		return err
	}
	logConfig := logging.Config{
		RotatingWriterConfig: logging.RotatingWriterConfig{
			MaxSize:   8,
			MaxFiles:  2,
			MaxAge:    7,
			Directory: filepath.Join(dataDir, "logs"),
		},
		DisableWriterDisplaying: !*opts.verbose,
		LogLevel:                level,
		DisplayLevel:            level,
		LogFormat:               logging.JSON,
	}
	logFactory := logger.NewFactory(logConfig)
	defer logFactory.Close()
	log, err := logFactory.Make("cli")
	if err != nil {
		return err
	}

	var db state.Database
	if *opts.memory {
		db = state.NewMemDB()
	} else {
		db, _, err = storage.New(pebble.NewDefaultConfig(), dataDir, cliDatabase)
		if err != nil {
			return err
		}
	}
	defer db.Close()

	var backend cli.Backend
	if len(*opts.endpoint) > 0 {
		backend = cli.NewRemoteBackend(*opts.endpoint)
	} else {
		tracer, err := trace.New(&trace.Config{})
		if err != nil {
			return err
		}
		defer tracer.Close()
		backend, err = cli.NewLocalBackend(log, tracer, db, runtime.NewDefaultConfig())
		if err != nil {
			return err
		}
	}
	h := cli.New(log, db, backend)

	for _, c := range cmds {
		if c.Happened() {
			return c.Run(ctx, h)
		}
	}
	return cli.ErrUnknownCommand
}
