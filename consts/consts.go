// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consts

import (
	"github.com/ava-labs/avalanchego/version"
	"github.com/gagliardetto/solana-go"
)

const (
	Name = "countervm"

	ByteLen   = 1
	Uint32Len = 4
	Uint64Len = 8
	IDLen     = 32

	// CounterStateLen is the size of a serialized counter account.
	CounterStateLen = Uint32Len
	// InstructionLen is the size of a serialized counter instruction
	// (discriminant + amount).
	InstructionLen = ByteLen + Uint32Len

	MaxUint32 = ^uint32(0)

	// MaxAccountDataLen bounds the space a single account can allocate.
	MaxAccountDataLen = 10 * 1024 * 1024
	// MaxAccountsPerInstruction bounds the account metas in a message.
	MaxAccountsPerInstruction = 64
	// MaxInstructionDataLen bounds the instruction payload in a message.
	MaxInstructionDataLen = 1232
)

var Version = &version.Semantic{
	Major: 0,
	Minor: 1,
	Patch: 0,
}

// CounterProgramID is the address the counter program is deployed at.
var CounterProgramID = solana.MustPublicKeyFromBase58("92iqwdPBDa7r1KzWkEvBVqkVyKLS3M5qyaZjxVN65KYQ")
