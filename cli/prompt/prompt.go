// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/ava-labs/countervm/utils"
)

const MaxNameLen = 64

var (
	ErrInputEmpty    = errors.New("input is empty")
	ErrInputTooLarge = errors.New("input is too large")
	ErrInvalidChoice = errors.New("invalid choice")
)

// ask prompts until [parse] accepts the input.
func ask[T any](label string, parse func(string) (T, error)) (T, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			_, err := parse(input)
			return err
		},
	}
	raw, err := p.Run()
	if err != nil {
		var zero T
		return zero, err
	}
	return parse(raw)
}

func ParseName(input string) (string, error) {
	name := strings.TrimSpace(input)
	switch {
	case len(name) == 0:
		return "", ErrInputEmpty
	case len(name) > MaxNameLen:
		return "", fmt.Errorf("%w: %d > %d", ErrInputTooLarge, len(name), MaxNameLen)
	}
	return name, nil
}

func Name(label string) (string, error) {
	return ask(label, ParseName)
}

// ParseUint32 parses a counter amount.
func ParseUint32(input string) (uint32, error) {
	input = strings.TrimSpace(input)
	if len(input) == 0 {
		return 0, ErrInputEmpty
	}
	amount, err := strconv.ParseUint(input, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidChoice, err)
	}
	return uint32(amount), nil
}

func Uint32(label string) (uint32, error) {
	return ask(label, ParseUint32)
}

// ParseLamports parses a decimal SOL amount such as "1.5".
func ParseLamports(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if len(input) == 0 {
		return 0, ErrInputEmpty
	}
	lamports, err := utils.ParseBalance(input)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidChoice, err)
	}
	return lamports, nil
}

func Lamports(label string) (uint64, error) {
	return ask(label, ParseLamports)
}

// ParseBool accepts y or n.
func ParseBool(input string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return false, ErrInputEmpty
	case "y":
		return true, nil
	case "n":
		return false, nil
	default:
		return false, ErrInvalidChoice
	}
}

func Bool(label string) (bool, error) {
	return ask(label+" (y/n)", ParseBool)
}
