// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/akamensky/argparse"
	"go.uber.org/zap"

	"github.com/ava-labs/countervm/config"
	"github.com/ava-labs/countervm/consts"
	"github.com/ava-labs/countervm/logger"
	"github.com/ava-labs/countervm/vm"
)

func main() {
	parser := argparse.NewParser(consts.Name, "Runs a node serving the counter program")
	configPath := parser.String("c", "config", &argparse.Options{Help: "path to a JSON config file"})
	dataDir := parser.String("d", "data-dir", &argparse.Options{Help: "overrides the configured data directory"})
	listen := parser.String("l", "listen", &argparse.Options{Help: "overrides the configured listen address"})
	memory := parser.Flag("m", "memory", &argparse.Options{Help: "keep state in memory only"})
	version := parser.Flag("v", "version", &argparse.Options{Help: "print the version and exit"})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Fprint(os.Stderr, parser.Usage(err))
		os.Exit(1)
	}
	if *version {
		fmt.Printf("%s@%s\n", consts.Name, consts.Version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %s\n", err)
		os.Exit(1)
	}
	if len(*dataDir) > 0 {
		cfg.DataDir = *dataDir
	}
	if len(*listen) > 0 {
		cfg.ListenAddress = *listen
	}
	if *memory {
		cfg.MemoryDB = true
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "node failed: %s\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logFactory := logger.NewFactory(cfg.GetLogConfig())
	defer logFactory.Close()
	log, err := logFactory.Make("node")
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return err
	}
	node, err := vm.New(cfg, log, listener)
	if err != nil {
		_ = listener.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := node.Run(ctx); err != nil {
		log.Error("node stopped", zap.Error(err))
		return err
	}
	log.Info("node stopped")
	return nil
}
