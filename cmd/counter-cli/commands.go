// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/akamensky/argparse"

	"github.com/ava-labs/countervm/cli"
	"github.com/ava-labs/countervm/cli/prompt"
	"github.com/ava-labs/countervm/utils"
)

type command interface {
	Happened() bool
	Run(ctx context.Context, h *cli.Handler) error
}

func newCommands(parser *argparse.Parser) []command {
	return []command{
		newKeyCreateCmd(parser),
		newKeyImportCmd(parser),
		newKeyExportCmd(parser),
		newAccountCreateCmd(parser),
		newAccountCmd(parser),
		newAdjustCmd(parser, cli.MethodIncrease, "Adds an amount to a counter"),
		newAdjustCmd(parser, cli.MethodDecrease, "Subtracts an amount from a counter"),
		newCountCmd(parser),
		newRunCmd(parser),
		newInterpreterCmd(parser),
	}
}

func nameArg(cmd *argparse.Command) *string {
	return cmd.String("n", "name", &argparse.Options{Help: "name of the key; prompted when omitted"})
}

func resolveName(name *string) (string, error) {
	if len(*name) == 0 {
		return prompt.Name("key name")
	}
	return prompt.ParseName(*name)
}

type keyCreateCmd struct {
	cmd  *argparse.Command
	name *string
}

func newKeyCreateCmd(parser *argparse.Parser) *keyCreateCmd {
	c := &keyCreateCmd{cmd: parser.NewCommand("key-create", "Creates a new named private key")}
	c.name = nameArg(c.cmd)
	return c
}

func (c *keyCreateCmd) Happened() bool { return c.cmd.Happened() }

func (c *keyCreateCmd) Run(ctx context.Context, h *cli.Handler) error {
	name, err := resolveName(c.name)
	if err != nil {
		return err
	}
	addr, err := h.KeyCreate(ctx, name)
	if err != nil {
		return err
	}
	utils.Outf("{{green}}created key:{{/}} %s {{cyan}}address:{{/}} %s\n", name, addr)
	return nil
}

type keyImportCmd struct {
	cmd  *argparse.Command
	name *string
	file *string
}

func newKeyImportCmd(parser *argparse.Parser) *keyImportCmd {
	c := &keyImportCmd{cmd: parser.NewCommand("key-import", "Stores a base58 keypair file under a name")}
	c.name = nameArg(c.cmd)
	c.file = c.cmd.String("f", "file", &argparse.Options{Required: true, Help: "path to the base58 keypair"})
	return c
}

func (c *keyImportCmd) Happened() bool { return c.cmd.Happened() }

func (c *keyImportCmd) Run(ctx context.Context, h *cli.Handler) error {
	name, err := resolveName(c.name)
	if err != nil {
		return err
	}
	addr, err := h.KeyImport(ctx, name, *c.file)
	if err != nil {
		return err
	}
	utils.Outf("{{green}}imported key:{{/}} %s {{cyan}}address:{{/}} %s\n", name, addr)
	return nil
}

type keyExportCmd struct {
	cmd  *argparse.Command
	name *string
	file *string
}

func newKeyExportCmd(parser *argparse.Parser) *keyExportCmd {
	c := &keyExportCmd{cmd: parser.NewCommand("key-export", "Writes a named private key to a file")}
	c.name = nameArg(c.cmd)
	c.file = c.cmd.String("f", "file", &argparse.Options{Required: true, Help: "destination path"})
	return c
}

func (c *keyExportCmd) Happened() bool { return c.cmd.Happened() }

func (c *keyExportCmd) Run(ctx context.Context, h *cli.Handler) error {
	name, err := resolveName(c.name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(*c.file); err == nil {
		overwrite, err := prompt.Bool("overwrite " + *c.file)
		if err != nil {
			return err
		}
		if !overwrite {
			return nil
		}
	}
	if err := h.KeyExport(ctx, name, *c.file); err != nil {
		return err
	}
	utils.Outf("{{green}}exported key:{{/}} %s {{cyan}}to:{{/}} %s\n", name, *c.file)
	return nil
}

type accountCreateCmd struct {
	cmd      *argparse.Command
	name     *string
	lamports *string
}

func newAccountCreateCmd(parser *argparse.Parser) *accountCreateCmd {
	c := &accountCreateCmd{cmd: parser.NewCommand("account-create", "Creates the counter account of a key")}
	c.name = nameArg(c.cmd)
	c.lamports = c.cmd.String("", "lamports", &argparse.Options{Default: "0", Help: "initial balance in SOL"})
	return c
}

func (c *accountCreateCmd) Happened() bool { return c.cmd.Happened() }

func (c *accountCreateCmd) Run(ctx context.Context, h *cli.Handler) error {
	name, err := resolveName(c.name)
	if err != nil {
		return err
	}
	lamports, err := prompt.ParseLamports(*c.lamports)
	if err != nil {
		return err
	}
	addr, err := h.AccountCreate(ctx, name, lamports)
	if err != nil {
		return err
	}
	utils.Outf("{{green}}created account:{{/}} %s\n", addr)
	return nil
}

func nameOrAddrArg(cmd *argparse.Command) *string {
	return cmd.String("n", "name", &argparse.Options{Help: "name of the key or an account address; prompted when omitted"})
}

type accountCmd struct {
	cmd  *argparse.Command
	name *string
}

func newAccountCmd(parser *argparse.Parser) *accountCmd {
	c := &accountCmd{cmd: parser.NewCommand("account", "Prints the account of a key or address")}
	c.name = nameOrAddrArg(c.cmd)
	return c
}

func (c *accountCmd) Happened() bool { return c.cmd.Happened() }

func (c *accountCmd) Run(ctx context.Context, h *cli.Handler) error {
	name, err := resolveName(c.name)
	if err != nil {
		return err
	}
	acc, err := h.Account(ctx, name)
	if err != nil {
		return err
	}
	utils.Outf(
		"{{cyan}}address:{{/}} %s {{cyan}}owner:{{/}} %s {{cyan}}lamports:{{/}} %s {{cyan}}data:{{/}} %x\n",
		acc.Key,
		acc.Owner,
		utils.FormatBalance(acc.Lamports),
		acc.Data,
	)
	return nil
}

type adjustCmd struct {
	cmd    *argparse.Command
	method cli.Method
	name   *string
	amount *string
}

func newAdjustCmd(parser *argparse.Parser, method cli.Method, description string) *adjustCmd {
	c := &adjustCmd{
		cmd:    parser.NewCommand(string(method), description),
		method: method,
	}
	c.name = nameArg(c.cmd)
	c.amount = c.cmd.String("a", "amount", &argparse.Options{Help: "amount; prompted when omitted"})
	return c
}

func (c *adjustCmd) Happened() bool { return c.cmd.Happened() }

func (c *adjustCmd) Run(ctx context.Context, h *cli.Handler) error {
	name, err := resolveName(c.name)
	if err != nil {
		return err
	}
	var amount uint32
	if len(*c.amount) == 0 {
		amount, err = prompt.Uint32("amount")
	} else {
		amount, err = prompt.ParseUint32(*c.amount)
	}
	if err != nil {
		return err
	}
	f := h.Increase
	if c.method == cli.MethodDecrease {
		f = h.Decrease
	}
	result, err := f(ctx, name, amount)
	if err != nil {
		return err
	}
	for _, l := range result.Logs {
		utils.Outf("{{yellow}}log:{{/}} %s\n", l)
	}
	utils.Outf("{{green}}%s succeeded:{{/}} %s\n", c.method, result.TxID)
	return nil
}

type countCmd struct {
	cmd  *argparse.Command
	name *string
}

func newCountCmd(parser *argparse.Parser) *countCmd {
	c := &countCmd{cmd: parser.NewCommand("count", "Prints the counter of a key or address")}
	c.name = nameOrAddrArg(c.cmd)
	return c
}

func (c *countCmd) Happened() bool { return c.cmd.Happened() }

func (c *countCmd) Run(ctx context.Context, h *cli.Handler) error {
	name, err := resolveName(c.name)
	if err != nil {
		return err
	}
	count, err := h.Count(ctx, name)
	if err != nil {
		return err
	}
	utils.Outf("{{cyan}}count:{{/}} %d\n", count)
	return nil
}

type runCmd struct {
	cmd  *argparse.Command
	plan *string
}

func newRunCmd(parser *argparse.Parser) *runCmd {
	c := &runCmd{cmd: parser.NewCommand("run", "Runs a YAML or JSON plan")}
	c.plan = c.cmd.String("p", "plan", &argparse.Options{Required: true, Help: "path to the plan, or - for stdin"})
	return c
}

func (c *runCmd) Happened() bool { return c.cmd.Happened() }

func (c *runCmd) Run(ctx context.Context, h *cli.Handler) error {
	var (
		b   []byte
		err error
	)
	if *c.plan == "-" {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(*c.plan)
	}
	if err != nil {
		return err
	}
	p, err := cli.UnmarshalPlan(b)
	if err != nil {
		return err
	}
	return h.RunPlan(ctx, p, printResponse)
}

type interpreterCmd struct {
	cmd *argparse.Command
}

func newInterpreterCmd(parser *argparse.Parser) *interpreterCmd {
	return &interpreterCmd{cmd: parser.NewCommand("interpreter", "Reads commands from stdin")}
}

func (c *interpreterCmd) Happened() bool { return c.cmd.Happened() }

func (*interpreterCmd) Run(ctx context.Context, h *cli.Handler) error {
	return h.Interpret(ctx, os.Stdin, printResponse)
}

func printResponse(r *cli.Response) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(b, '\n'))
	return err
}
