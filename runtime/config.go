// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import goruntime "runtime"

type Config struct {
	// Maximum number of transactions executed at once by [Runtime.ExecuteBatch].
	ExecutionConcurrency int `json:"executionConcurrency"`
	// Number of goroutines used to verify batch signatures.
	VerifyConcurrency int `json:"verifyConcurrency"`
	// Number of recent transaction IDs remembered for replay protection.
	SeenCacheSize int `json:"seenCacheSize"`
}

func NewDefaultConfig() Config {
	return Config{
		ExecutionConcurrency: goruntime.NumCPU(),
		VerifyConcurrency:    goruntime.NumCPU(),
		SeenCacheSize:        65_536,
	}
}
