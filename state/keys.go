// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

const (
	Read  Permissions = 1
	Write             = 1<<1 | Read

	None Permissions = 0
	All              = Read | Write
)

// Keys holds the name of each key touched by a transaction and its
// permission. Use [Keys.Add] so duplicate keys union their permissions
// instead of overriding them.
type Keys map[string]Permissions

type Permissions byte

func (k Keys) Add(name string, permission Permissions) {
	k[name] |= permission
}

// Has returns true if [p] has all the permissions that are contained in require
func (p Permissions) Has(require Permissions) bool {
	return require&^p == 0
}
