// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/ava-labs/countervm/cli/prompt"
)

const exitCommand = "exit"

// Interpret runs one command per line read from [r] until EOF or "exit".
// Lines are split with shell quoting rules and use the plan method names,
// e.g. `increase "my key" 5`.
func (h *Handler) Interpret(ctx context.Context, r io.Reader, onResponse func(*Response) error) error {
	scanner := bufio.NewScanner(r)
	for id := 0; scanner.Scan(); {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "#") {
			continue
		}
		args, err := shellwords.Parse(line)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == exitCommand {
			return nil
		}
		resp := &Response{ID: id}
		id++
		step, err := parseCommand(args)
		if err == nil {
			err = h.runStep(ctx, step, resp)
		}
		if err != nil {
			resp.Error = err.Error()
		}
		if err := onResponse(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func parseCommand(args []string) (*Step, error) {
	method := Method(args[0])
	step := &Step{Method: method}
	switch method {
	case MethodKeyCreate, MethodCount:
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: usage: %s <key>", ErrMissingArgument, method)
		}
	case MethodAccountCreate:
		if len(args) != 2 && len(args) != 3 {
			return nil, fmt.Errorf("%w: usage: %s <key> [lamports]", ErrMissingArgument, method)
		}
		if len(args) == 3 {
			lamports, err := prompt.ParseLamports(args[2])
			if err != nil {
				return nil, err
			}
			step.Lamports = lamports
		}
	case MethodIncrease, MethodDecrease:
		if len(args) != 3 {
			return nil, fmt.Errorf("%w: usage: %s <key> <amount>", ErrMissingArgument, method)
		}
		amount, err := prompt.ParseUint32(args[2])
		if err != nil {
			return nil, err
		}
		step.Amount = amount
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
	step.Key = args[1]
	return step, nil
}
